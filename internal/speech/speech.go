// Package speech converts narration scripts into audio through an HTTP TTS
// provider, splitting long scripts into sentence-aligned chunks and storing
// the resulting audio through a blob store.
package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/storyforge/internal/types"
)

// DefaultMaxChunkChars is the per-request character limit enforced before
// calling the provider.
const DefaultMaxChunkChars = 4000

// BlobStore persists generated audio and returns a stable URL for it.
type BlobStore interface {
	Put(ctx context.Context, name string, data []byte, contentType string) (string, error)
}

// Config holds TTS provider settings.
type Config struct {
	Endpoint string
	Model    string
	APIKey   string
	// MaxChunkChars caps characters per provider call. Zero means DefaultMaxChunkChars.
	MaxChunkChars int
}

// Synthesizer converts text into stored audio chunks.
type Synthesizer struct {
	cfg        Config
	httpClient *http.Client
	store      BlobStore
}

// NewSynthesizer creates a Synthesizer for the given provider config and store.
func NewSynthesizer(cfg Config, store BlobStore) *Synthesizer {
	if cfg.MaxChunkChars <= 0 {
		cfg.MaxChunkChars = DefaultMaxChunkChars
	}
	return &Synthesizer{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 120 * time.Second},
		store:      store,
	}
}

// Synthesize converts the script text to audio. Long scripts are split into
// chunks and every chunk must succeed; a failed chunk fails the whole call.
func (s *Synthesizer) Synthesize(ctx context.Context, text string) (*types.AudioInfo, error) {
	if strings.TrimSpace(text) == "" {
		return nil, &APICallError{Message: "script text is empty"}
	}

	wordCount := len(strings.Fields(text))
	fmt.Printf("Generating audio for text (%d words)...\n", wordCount)

	chunks := SplitIntoChunks(text, s.cfg.MaxChunkChars)
	if len(chunks) > 1 {
		fmt.Printf("Splitting long text into %d chunks...\n", len(chunks))
	}

	audioURLs := make([]string, 0, len(chunks))
	for i, chunk := range chunks {
		fmt.Printf("Processing chunk %d/%d (%d chars)...\n", i+1, len(chunks), len(chunk))

		url, err := s.synthesizeChunk(ctx, chunk)
		if err != nil {
			return nil, err
		}
		audioURLs = append(audioURLs, url)
	}

	return &types.AudioInfo{
		URL:         audioURLs[0],
		AllURLs:     audioURLs,
		Chunks:      len(chunks),
		WordCount:   wordCount,
		GeneratedAt: time.Now().UTC(),
	}, nil
}

// synthesizeChunk calls the provider for one chunk and stores the audio.
func (s *Synthesizer) synthesizeChunk(ctx context.Context, chunk string) (string, error) {
	payload, err := json.Marshal(map[string]string{"text": chunk})
	if err != nil {
		return "", &APICallError{Message: "failed to encode request", Cause: err}
	}

	endpoint := fmt.Sprintf("%s?model=%s", s.cfg.Endpoint, s.cfg.Model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", &APICallError{Message: "failed to build request", Cause: err}
	}
	req.Header.Set("Authorization", "Token "+s.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", &APICallError{Message: "provider request failed", Cause: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		msg := "failed to generate audio chunk"
		if resp.StatusCode == http.StatusUnprocessableEntity {
			msg += ", text may contain unsupported characters or formatting"
		}
		return "", &APICallError{StatusCode: resp.StatusCode, Message: msg}
	}

	audioData, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &APICallError{Message: "failed to read audio response", Cause: err}
	}

	name := fmt.Sprintf("tts_output_%s_%s.mp3", time.Now().UTC().Format("20060102_150405"), uuid.NewString()[:6])
	url, err := s.store.Put(ctx, name, audioData, "audio/mpeg")
	if err != nil {
		return "", &APICallError{Message: "audio generated but storage upload failed", Cause: err}
	}

	return url, nil
}
