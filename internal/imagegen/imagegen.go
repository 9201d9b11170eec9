// Package imagegen generates illustration images from text prompts through an
// HTTP image provider, storing results and deriving depth maps per image.
//
// A rate-limit response surfaces immediately as a typed RateLimitedError so
// callers can tune concurrency; other failures are retried here.
package imagegen

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/jonathan/storyforge/internal/types"
)

const (
	maxRetries     = 5
	retryDelay     = 5 * time.Second
	requestTimeout = 30 * time.Second

	dataURLPrefix = "data:image/png;base64,"
)

// BlobStore persists generated images and returns a stable URL for them.
type BlobStore interface {
	Put(ctx context.Context, name string, data []byte, contentType string) (string, error)
}

// Config holds image provider settings.
type Config struct {
	Endpoint      string
	Model         string
	APIKey        string
	DepthEndpoint string
}

// Client generates single images with depth maps.
type Client struct {
	cfg        Config
	httpClient *http.Client
	store      BlobStore

	// sleep is swapped out in tests
	sleep func(time.Duration)
}

// NewClient creates a Client for the given provider config and store.
func NewClient(cfg Config, store BlobStore) *Client {
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: requestTimeout},
		store:      store,
		sleep:      time.Sleep,
	}
}

// Healthy reports whether the image provider is reachable. Any HTTP response
// counts as reachable; only transport failures mark the provider down.
func (c *Client) Healthy(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, c.cfg.Endpoint, nil)
	if err != nil {
		return fmt.Errorf("image provider health check: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("image provider unreachable: %w", err)
	}
	_ = resp.Body.Close()
	return nil
}

// GenerateOne generates one image for a prompt, stores it, and derives its
// depth map. A 429 from the provider returns a RateLimitedError without
// retrying; other failures are retried up to maxRetries.
func (c *Client) GenerateOne(ctx context.Context, prompt, segmentID string) (*types.ImageResult, error) {
	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		result, err := c.generateOnce(ctx, prompt, segmentID)
		if err == nil {
			return result, nil
		}

		var rlErr *RateLimitedError
		if errors.As(err, &rlErr) {
			return nil, err
		}

		lastErr = err
		fmt.Printf("Attempt %d/%d failed for %s: %v\n", attempt+1, maxRetries, segmentID, err)
		if attempt < maxRetries-1 {
			c.sleep(retryDelay)
		}
	}

	return nil, &GenerateError{SegmentID: segmentID, Message: "max retries exceeded", Cause: lastErr}
}

// generateOnce performs a single provider call plus storage and depth map.
func (c *Client) generateOnce(ctx context.Context, prompt, segmentID string) (*types.ImageResult, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for field, value := range map[string]string{
		"model":       c.cfg.Model,
		"size":        "9_16",
		"lora":        "",
		"style":       "no_style",
		"color":       "",
		"lighting":    "",
		"composition": "",
	} {
		_ = writer.WriteField(field, value)
	}
	_ = writer.WriteField("prompt", prompt)
	if err := writer.Close(); err != nil {
		return nil, &GenerateError{SegmentID: segmentID, Message: "failed to encode request", Cause: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint, body)
	if err != nil {
		return nil, &GenerateError{SegmentID: segmentID, Message: "failed to build request", Cause: err}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &GenerateError{SegmentID: segmentID, Message: "provider request failed", Cause: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, &RateLimitedError{RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After"))}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &GenerateError{SegmentID: segmentID, Message: fmt.Sprintf("provider returned status %d", resp.StatusCode)}
	}

	var parsed struct {
		Result string `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, &GenerateError{SegmentID: segmentID, Message: "failed to decode response", Cause: err}
	}
	if !strings.HasPrefix(parsed.Result, dataURLPrefix) {
		return nil, &GenerateError{SegmentID: segmentID, Message: "response did not contain image data"}
	}

	imageBytes, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(parsed.Result, dataURLPrefix))
	if err != nil {
		return nil, &GenerateError{SegmentID: segmentID, Message: "failed to decode image data", Cause: err}
	}

	name := fmt.Sprintf("image_%s_%s.png", segmentID, time.Now().UTC().Format("20060102_150405"))
	imageURL, err := c.store.Put(ctx, name, imageBytes, "image/png")
	if err != nil {
		// Keep the raw data URL rather than dropping a generated image.
		fmt.Printf("Failed to upload image for %s: %v\n", segmentID, err)
		dataURL := parsed.Result
		return &types.ImageResult{ImageURL: &dataURL}, nil
	}

	depthURL := c.generateDepthMap(ctx, imageURL)
	return &types.ImageResult{ImageURL: &imageURL, DepthMapURL: depthURL}, nil
}

// generateDepthMap derives a depth map for a stored image. Failures are
// logged and yield a nil URL.
func (c *Client) generateDepthMap(ctx context.Context, imageURL string) *string {
	if c.cfg.DepthEndpoint == "" || imageURL == "" {
		return nil
	}

	payload, _ := json.Marshal(map[string]string{"image_url": imageURL})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.DepthEndpoint, bytes.NewReader(payload))
	if err != nil {
		return nil
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		fmt.Printf("Depth map request failed: %v\n", err)
		return nil
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		fmt.Printf("Depth map service returned status %d\n", resp.StatusCode)
		return nil
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil
	}

	if url := extractDepthMapURL(raw); url != "" {
		return &url
	}
	return nil
}

// extractDepthMapURL pulls a URL out of the depth service's loosely shaped
// response: a JSON object, a one-element array of objects, or a bare URL.
func extractDepthMapURL(raw []byte) string {
	var doc map[string]json.RawMessage

	var list []map[string]json.RawMessage
	if err := json.Unmarshal(raw, &list); err == nil && len(list) > 0 {
		doc = list[0]
	} else if err := json.Unmarshal(raw, &doc); err != nil {
		text := strings.TrimSpace(string(raw))
		if strings.HasPrefix(text, "http") {
			return text
		}
		return ""
	}

	for _, key := range []string{"depth_map_url", "output_url", "url", "result", "image_url"} {
		var value string
		if rawValue, ok := doc[key]; ok {
			if json.Unmarshal(rawValue, &value) == nil && strings.HasPrefix(value, "http") {
				return value
			}
		}
	}
	return ""
}

func parseRetryAfter(header string) time.Duration {
	if header == "" {
		return 0
	}
	if secs, err := strconv.Atoi(header); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	return 0
}
