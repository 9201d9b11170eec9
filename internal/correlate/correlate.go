// Package correlate connects ordered segments to batch results through
// composite keys of ordinal index and content hash. The hash is a pure
// function of normalized segment text, so both sides of a batch can compute
// the same key without sharing state.
package correlate

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/jonathan/storyforge/internal/types"
)

// ContentHash returns the digest of normalized (trimmed, lower-cased) text.
func ContentHash(text string) string {
	normalized := strings.ToLower(strings.TrimSpace(text))
	digest := md5.Sum([]byte(normalized))
	return hex.EncodeToString(digest[:])
}

// Key builds the composite correlation key for a segment.
func Key(ordinal int, text string) string {
	return fmt.Sprintf("%d-hash-%s", ordinal, ContentHash(text))
}

// Resolve finds the result for one segment. Resolution order, first match
// wins:
//  1. the segment's ordinal as an exact key,
//  2. any key containing "hash-<digest>" for the segment's content hash.
//
// No positional fallback: a segment with no match gets nil rather than
// risking another segment's result.
func Resolve(segment types.Segment, results map[string]types.TaskOutcome) *types.TaskOutcome {
	if outcome, ok := results[strconv.Itoa(segment.Ordinal)]; ok {
		return &outcome
	}

	token := "hash-" + ContentHash(segment.Text)
	for key, outcome := range results {
		if strings.Contains(key, token) {
			outcome := outcome
			return &outcome
		}
	}

	return nil
}

// Attach resolves every segment against results and fills its image fields
// in place. Unmatched segments are logged and left untouched.
func Attach(segments []types.Segment, results map[string]types.TaskOutcome) {
	for i := range segments {
		outcome := Resolve(segments[i], results)
		if outcome == nil {
			fmt.Printf("No batch result matched segment %d, leaving image fields empty\n", segments[i].Ordinal)
			continue
		}
		if outcome.Result != nil {
			segments[i].ImageURL = outcome.Result.ImageURL
			segments[i].DepthMapURL = outcome.Result.DepthMapURL
		}
	}
}
