// Package transcriber turns stored audio into timestamped text segments via
// an HTTP speech-to-text provider.
//
// Audio produced in multiple chunks is transcribed chunk by chunk; segment
// timestamps are shifted by the cumulative duration of earlier chunks so the
// combined timeline is continuous. A chunk that fails to transcribe is
// skipped; producing no segments at all is an error.
package transcriber

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/jonathan/storyforge/internal/types"
)

// Config holds speech-to-text provider settings.
type Config struct {
	Endpoint string
	Model    string
	APIKey   string
}

// Client transcribes audio chunks into a combined segment timeline.
type Client struct {
	cfg        Config
	httpClient *http.Client
}

// NewClient creates a Client for the given provider config.
func NewClient(cfg Config) *Client {
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 120 * time.Second},
	}
}

// listenResponse mirrors the provider's utterance-level response shape.
type listenResponse struct {
	Results struct {
		Utterances []struct {
			Transcript string  `json:"transcript"`
			Start      float64 `json:"start"`
			End        float64 `json:"end"`
			Confidence float64 `json:"confidence"`
			Words      []struct {
				Word string `json:"word"`
			} `json:"words"`
		} `json:"utterances"`
	} `json:"results"`
}

// ProcessAudio transcribes every audio chunk in audioInfo and combines the
// segments into one contiguous timeline with ordinals 0..N-1.
func (c *Client) ProcessAudio(ctx context.Context, audioInfo *types.AudioInfo) (*types.Transcription, error) {
	audioURLs := audioInfo.AllURLs
	if len(audioURLs) == 0 && audioInfo.URL != "" {
		audioURLs = []string{audioInfo.URL}
	}
	if len(audioURLs) == 0 {
		return nil, &TranscribeError{Message: "no audio URLs to process"}
	}

	fmt.Printf("Processing %d audio chunk(s) for transcription...\n", len(audioURLs))

	var combined []types.Segment
	cumulativeDuration := 0.0
	totalWords := 0

	for i, audioURL := range audioURLs {
		if audioURL == "" {
			fmt.Printf("Skipping empty audio URL for chunk %d.\n", i+1)
			continue
		}

		fmt.Printf("Transcribing audio chunk %d/%d...\n", i+1, len(audioURLs))

		segments, duration, err := c.transcribeChunk(ctx, audioURL)
		if err != nil {
			fmt.Printf("Error processing audio chunk %d: %v\n", i+1, err)
			continue
		}
		if len(segments) == 0 {
			fmt.Printf("Warning: transcription for chunk %d produced no segments.\n", i+1)
			continue
		}

		for _, seg := range segments {
			seg.StartTime += cumulativeDuration
			seg.EndTime += cumulativeDuration
			totalWords += seg.WordCount
			combined = append(combined, seg)
		}
		cumulativeDuration += duration
	}

	if len(combined) == 0 {
		return nil, &TranscribeError{Message: "transcription produced no segments"}
	}

	for i := range combined {
		combined[i].Ordinal = i
	}

	return &types.Transcription{
		Segments:    combined,
		Duration:    cumulativeDuration,
		WordCount:   totalWords,
		GeneratedAt: time.Now().UTC(),
	}, nil
}

// transcribeChunk downloads one audio chunk and sends it to the provider.
// The returned duration is the end time of the chunk's last segment.
func (c *Client) transcribeChunk(ctx context.Context, audioURL string) ([]types.Segment, float64, error) {
	audioData, err := c.downloadAudio(ctx, audioURL)
	if err != nil {
		return nil, 0, err
	}

	endpoint := fmt.Sprintf("%s?%s", c.cfg.Endpoint, url.Values{
		"model":        {c.cfg.Model},
		"smart_format": {"true"},
		"punctuate":    {"true"},
		"utterances":   {"true"},
	}.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(audioData))
	if err != nil {
		return nil, 0, &TranscribeError{Message: "failed to build request", Cause: err}
	}
	req.Header.Set("Authorization", "Token "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "audio/mpeg")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, &TranscribeError{Message: "provider request failed", Cause: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, 0, &TranscribeError{
			StatusCode: resp.StatusCode,
			Message:    "transcription request rejected",
		}
	}

	var parsed listenResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, 0, &TranscribeError{Message: "failed to decode response", Cause: err}
	}

	segments := make([]types.Segment, 0, len(parsed.Results.Utterances))
	duration := 0.0
	for _, utt := range parsed.Results.Utterances {
		segments = append(segments, types.Segment{
			Text:       utt.Transcript,
			StartTime:  utt.Start,
			EndTime:    utt.End,
			Duration:   utt.End - utt.Start,
			Confidence: utt.Confidence,
			WordCount:  len(utt.Words),
		})
		if utt.End > duration {
			duration = utt.End
		}
	}

	return segments, duration, nil
}

// downloadAudio fetches the audio bytes for a chunk URL.
func (c *Client) downloadAudio(ctx context.Context, audioURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, audioURL, nil)
	if err != nil {
		return nil, &TranscribeError{Message: "failed to build download request", Cause: err}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &TranscribeError{Message: "audio download failed", Cause: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, &TranscribeError{StatusCode: resp.StatusCode, Message: "audio download rejected"}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TranscribeError{Message: "failed to read audio data", Cause: err}
	}
	return data, nil
}
