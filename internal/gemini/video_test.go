package gemini

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateVideoSubmitPollDownload(t *testing.T) {
	var polls atomic.Int64
	mux := http.NewServeMux()

	mux.HandleFunc("POST /v1beta/models/"+modelVideo+":predictLongRunning", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.Header.Get("x-goog-api-key"))
		writeResp(t, w, videoOperation{Name: "operations/job-1"})
	})

	mux.HandleFunc("GET /v1beta/operations/job-1", func(w http.ResponseWriter, r *http.Request) {
		if polls.Add(1) < 3 {
			writeResp(t, w, videoOperation{Name: "operations/job-1"})
			return
		}
		uri := fmt.Sprintf("http://%s/files/result.mp4", r.Host)
		writeResp(t, w, videoOperation{
			Name: "operations/job-1",
			Done: true,
			Response: &videoJobResponseVal{GenerateVideoResponse: &generateVideoResponse{
				GeneratedSamples: []generatedSample{{Video: &videoRef{URI: uri}}},
			}},
		})
	})

	mux.HandleFunc("GET /files/result.mp4", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.Header.Get("x-goog-api-key"), "download must be authenticated")
		_, _ = w.Write([]byte("mp4-bytes"))
	})

	c := newTestClient(t, mux, nil)
	c.apiVersion = "v1beta"

	data, err := c.GenerateVideo(context.Background(), "data:image/png;base64,aW1n", "a promo")
	require.NoError(t, err)

	assert.Equal(t, []byte("mp4-bytes"), data)
	assert.GreaterOrEqual(t, polls.Load(), int64(3), "polling is interval driven")
}

func TestGenerateVideoJobError(t *testing.T) {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /v1beta/models/"+modelVideo+":predictLongRunning", func(w http.ResponseWriter, r *http.Request) {
		writeResp(t, w, videoOperation{Name: "operations/job-2"})
	})
	mux.HandleFunc("GET /v1beta/operations/job-2", func(w http.ResponseWriter, r *http.Request) {
		writeResp(t, w, videoOperation{
			Name:  "operations/job-2",
			Done:  true,
			Error: &operationError{Code: 400, Message: "unsafe prompt"},
		})
	})

	c := newTestClient(t, mux, nil)

	_, err := c.GenerateVideo(context.Background(), "data:image/png;base64,aW1n", "a promo")
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "unsafe prompt"))
}

func TestGenerateVideoHonorsContext(t *testing.T) {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /v1beta/models/"+modelVideo+":predictLongRunning", func(w http.ResponseWriter, r *http.Request) {
		writeResp(t, w, videoOperation{Name: "operations/job-3"})
	})
	mux.HandleFunc("GET /v1beta/operations/job-3", func(w http.ResponseWriter, r *http.Request) {
		// Never done: only the caller's context can end the wait.
		writeResp(t, w, videoOperation{Name: "operations/job-3"})
	})

	c := newTestClient(t, mux, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := c.GenerateVideo(ctx, "data:image/png;base64,aW1n", "a promo")
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestGenerateVideoRejectsBadImage(t *testing.T) {
	c := newTestClient(t, http.NewServeMux(), nil)

	_, err := c.GenerateVideo(context.Background(), "", "a promo")
	require.Error(t, err)
}
