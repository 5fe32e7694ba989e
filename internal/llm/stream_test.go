package llm

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func deltaEvent(content string) string {
	return fmt.Sprintf(`data: {"choices":[{"delta":{"content":%s}}]}`, mustJSON(content))
}

// sseHandler writes the given SSE lines, flushing after each one.
func sseHandler(lines []string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)
		for _, line := range lines {
			fmt.Fprintf(w, "%s\n\n", line)
			flusher.Flush()
		}
	})
}

func collectFragments(t *testing.T, fragments <-chan Fragment) ([]string, error) {
	t.Helper()
	var texts []string
	for f := range fragments {
		if f.Err != nil {
			return texts, f.Err
		}
		texts = append(texts, f.Text)
	}
	return texts, nil
}

func TestStream_DeliversFragmentsInOrder(t *testing.T) {
	client, _ := newTestClient(t, sseHandler([]string{
		deltaEvent("Hello"),
		deltaEvent(", "),
		deltaEvent("world"),
		"data: [DONE]",
	}))

	fragments, err := client.Stream(context.Background(), []Message{{Role: "user", Content: "hi"}}, "")
	require.NoError(t, err)

	texts, streamErr := collectFragments(t, fragments)
	require.NoError(t, streamErr)
	assert.Equal(t, []string{"Hello", ", ", "world"}, texts)
}

func TestStream_SkipsEmptyDeltas(t *testing.T) {
	client, _ := newTestClient(t, sseHandler([]string{
		`data: {"choices":[{"delta":{"role":"assistant"}}]}`,
		deltaEvent("text"),
		`data: {"choices":[]}`,
		"data: [DONE]",
	}))

	fragments, err := client.Stream(context.Background(), []Message{{Role: "user", Content: "hi"}}, "")
	require.NoError(t, err)

	texts, streamErr := collectFragments(t, fragments)
	require.NoError(t, streamErr)
	assert.Equal(t, []string{"text"}, texts)
}

func TestStream_RequestsStreaming(t *testing.T) {
	var gotAccept string
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAccept = r.Header.Get("Accept")
		sseHandler([]string{"data: [DONE]"}).ServeHTTP(w, r)
	}))

	fragments, err := client.Stream(context.Background(), []Message{{Role: "user", Content: "hi"}}, "")
	require.NoError(t, err)
	for range fragments {
	}
	assert.Equal(t, "text/event-stream", gotAccept)
}

func TestStream_ErrorStatusBeforeChannel(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":{"message":"bad key"}}`))
	}))

	fragments, err := client.Stream(context.Background(), []Message{{Role: "user", Content: "hi"}}, "")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrGenerationFailed)
	assert.Contains(t, err.Error(), "bad key")
	assert.Nil(t, fragments)
}

func TestStream_MalformedEventIsTerminal(t *testing.T) {
	client, _ := newTestClient(t, sseHandler([]string{
		deltaEvent("before"),
		"data: {not json",
		deltaEvent("after"),
		"data: [DONE]",
	}))

	fragments, err := client.Stream(context.Background(), []Message{{Role: "user", Content: "hi"}}, "")
	require.NoError(t, err)

	texts, streamErr := collectFragments(t, fragments)
	require.Error(t, streamErr)
	assert.ErrorIs(t, streamErr, ErrGenerationFailed)
	assert.Equal(t, []string{"before"}, texts, "fragments delivered before the error stand")

	// The error fragment is the last value; the channel must then close.
	_, open := <-fragments
	assert.False(t, open)
}

func TestStream_ContextCancellation(t *testing.T) {
	release := make(chan struct{})
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)
		fmt.Fprintf(w, "%s\n\n", deltaEvent("first"))
		flusher.Flush()
		// Hold the stream open until the client side gives up.
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	fragments, err := client.Stream(ctx, []Message{{Role: "user", Content: "hi"}}, "")
	require.NoError(t, err)

	first := <-fragments
	require.NoError(t, first.Err)
	assert.Equal(t, "first", first.Text)

	cancel()

	select {
	case _, open := <-fragments:
		assert.False(t, open, "channel closes after cancellation")
	case <-time.After(5 * time.Second):
		t.Fatal("stream did not shut down after cancellation")
	}
}
