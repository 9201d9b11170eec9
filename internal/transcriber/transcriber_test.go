package transcriber

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/storyforge/internal/types"
)

// utterance builds a provider utterance with a word entry per word of text.
func utterance(text string, start, end, confidence float64) map[string]any {
	words := make([]map[string]any, 0)
	for _, w := range strings.Fields(text) {
		words = append(words, map[string]any{"word": w})
	}
	return map[string]any{
		"transcript": text,
		"start":      start,
		"end":        end,
		"confidence": confidence,
		"words":      words,
	}
}

func listenBody(utterances ...map[string]any) []byte {
	body, _ := json.Marshal(map[string]any{
		"results": map[string]any{"utterances": utterances},
	})
	return body
}

// newTestStack serves fake audio downloads and per-call transcription bodies.
func newTestStack(t *testing.T, transcriptBodies [][]byte) (*httptest.Server, *Client) {
	t.Helper()
	var listenCalls int
	mux := http.NewServeMux()
	mux.HandleFunc("/audio/", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("audio-bytes"))
	})
	mux.HandleFunc("/listen", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "true", r.URL.Query().Get("utterances"))
		i := listenCalls
		listenCalls++
		if i >= len(transcriptBodies) {
			i = len(transcriptBodies) - 1
		}
		_, _ = w.Write(transcriptBodies[i])
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	client := NewClient(Config{Endpoint: server.URL + "/listen", Model: "nova-3", APIKey: "k"})
	return server, client
}

func TestProcessAudioSingleChunk(t *testing.T) {
	server, client := newTestStack(t, [][]byte{listenBody(
		utterance("Hello there", 0, 1.5, 0.99),
		utterance("General greetings to you", 1.5, 3.25, 0.97),
	)})

	info := &types.AudioInfo{AllURLs: []string{server.URL + "/audio/1"}}
	tr, err := client.ProcessAudio(context.Background(), info)
	require.NoError(t, err)

	require.Len(t, tr.Segments, 2)
	assert.Equal(t, 0, tr.Segments[0].Ordinal)
	assert.Equal(t, 1, tr.Segments[1].Ordinal)
	assert.Equal(t, "Hello there", tr.Segments[0].Text)
	assert.InDelta(t, 3.25, tr.Duration, 1e-9)
	assert.Equal(t, 6, tr.WordCount)
	assert.InDelta(t, 1.75, tr.Segments[1].Duration, 1e-9)
}

func TestProcessAudioCumulativeOffsets(t *testing.T) {
	server, client := newTestStack(t, [][]byte{
		listenBody(utterance("First chunk speech", 0, 2.0, 0.9)),
		listenBody(utterance("Second chunk speech", 0, 3.0, 0.9)),
	})

	info := &types.AudioInfo{AllURLs: []string{server.URL + "/audio/1", server.URL + "/audio/2"}}
	tr, err := client.ProcessAudio(context.Background(), info)
	require.NoError(t, err)

	require.Len(t, tr.Segments, 2)
	// Second chunk timestamps are shifted by the first chunk's duration.
	assert.InDelta(t, 2.0, tr.Segments[1].StartTime, 1e-9)
	assert.InDelta(t, 5.0, tr.Segments[1].EndTime, 1e-9)
	assert.InDelta(t, 5.0, tr.Duration, 1e-9)

	// Ordinals stay contiguous across chunks.
	for i, seg := range tr.Segments {
		assert.Equal(t, i, seg.Ordinal)
	}
}

func TestProcessAudioSkipsFailedChunk(t *testing.T) {
	var listenCalls int
	mux := http.NewServeMux()
	mux.HandleFunc("/audio/", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("audio-bytes"))
	})
	mux.HandleFunc("/listen", func(w http.ResponseWriter, r *http.Request) {
		listenCalls++
		if listenCalls == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write(listenBody(utterance("Recovered speech", 0, 1.0, 0.9)))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := NewClient(Config{Endpoint: server.URL + "/listen", Model: "nova-3", APIKey: "k"})
	info := &types.AudioInfo{AllURLs: []string{server.URL + "/audio/1", server.URL + "/audio/2"}}

	tr, err := client.ProcessAudio(context.Background(), info)
	require.NoError(t, err)
	require.Len(t, tr.Segments, 1)
	assert.Equal(t, "Recovered speech", tr.Segments[0].Text)
	assert.Equal(t, 0, tr.Segments[0].Ordinal)
}

func TestProcessAudioNoSegmentsIsError(t *testing.T) {
	server, client := newTestStack(t, [][]byte{listenBody()})

	info := &types.AudioInfo{AllURLs: []string{server.URL + "/audio/1"}}
	_, err := client.ProcessAudio(context.Background(), info)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no segments")
}

func TestProcessAudioNoURLs(t *testing.T) {
	client := NewClient(Config{Endpoint: "http://unused", Model: "nova-3", APIKey: "k"})
	_, err := client.ProcessAudio(context.Background(), &types.AudioInfo{})
	require.Error(t, err)
}

func TestProcessAudioFallsBackToPrimaryURL(t *testing.T) {
	server, client := newTestStack(t, [][]byte{listenBody(utterance("Only chunk", 0, 1.0, 0.9))})

	info := &types.AudioInfo{URL: server.URL + "/audio/1"}
	tr, err := client.ProcessAudio(context.Background(), info)
	require.NoError(t, err)
	assert.Len(t, tr.Segments, 1)
}
