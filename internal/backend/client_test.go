package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avelar/videoseek/internal/endpoint"
)

// newTestClient builds a client whose registry points at the given server.
func newTestClient(t *testing.T, serverURL string) *HTTPClient {
	t.Helper()
	registry := endpoint.NewRegistry()
	require.NoError(t, registry.Set(serverURL))
	return NewHTTPClient(registry)
}

func TestHealth_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/health", r.URL.Path)
		assert.Equal(t, "true", r.Header.Get("ngrok-skip-browser-warning"))
		assert.Equal(t, "videoseek/1.0", r.Header.Get("User-Agent"))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status":             "healthy",
			"engine_initialized": true,
			"gpu_available":      true,
			"gpu_name":           "Tesla T4",
		})
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	info, err := client.Health(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "healthy", info.Status)
	assert.True(t, info.EngineInitialized)
	assert.True(t, info.GPUAvailable)
	assert.Equal(t, "Tesla T4", info.GPUName)
}

func TestHealth_NonJSONResponseIsProtocolError(t *testing.T) {
	// An ngrok interstitial: HTTP 200 with an HTML body.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<html><body>You are about to visit...</body></html>"))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	_, err := client.Health(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrProtocol)
	assert.NotErrorIs(t, err, ErrTransport)
}

func TestHealth_TransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // connection refused from here on

	client := newTestClient(t, server.URL)
	_, err := client.Health(context.Background())
	assert.ErrorIs(t, err, ErrTransport)
}

func TestHealth_NotConfigured(t *testing.T) {
	client := NewHTTPClient(endpoint.NewRegistry())
	_, err := client.Health(context.Background())
	assert.ErrorIs(t, err, endpoint.ErrNotConfigured)
}

func TestStats_BackendErrorCarriesDetail(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		_ = json.NewEncoder(w).Encode(map[string]string{"detail": "index not initialized"})
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	_, err := client.Stats(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBackend)
	assert.Contains(t, err.Error(), "index not initialized")
}

func TestDates_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/dates", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string][]string{"dates": {"2026-08-01", "2026-08-02"}})
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	dates, err := client.Dates(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"2026-08-01", "2026-08-02"}, dates)
}

func TestUpload_StreamsMultipartAndReportsProgress(t *testing.T) {
	payload := bytes.Repeat([]byte("v"), 4096)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer func() { _ = file.Close() }()

		assert.Equal(t, "clip.mp4", header.Filename)
		got, err := io.ReadAll(file)
		require.NoError(t, err)
		assert.Equal(t, payload, got)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{
			"filename":          "clip_abc123.mp4",
			"original_filename": "clip.mp4",
		})
	}))
	defer server.Close()

	var progress []float64
	client := newTestClient(t, server.URL)
	reply, err := client.Upload(context.Background(), "clip.mp4", bytes.NewReader(payload), int64(len(payload)), func(pct float64) {
		progress = append(progress, pct)
	})
	require.NoError(t, err)
	assert.Equal(t, "clip_abc123.mp4", reply.Filename)
	assert.Equal(t, "clip.mp4", reply.OriginalFilename)

	require.NotEmpty(t, progress)
	for i := 1; i < len(progress); i++ {
		assert.GreaterOrEqual(t, progress[i], progress[i-1])
	}
	assert.InDelta(t, 100, progress[len(progress)-1], 0.001)
}

func TestSubmitProcess_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/process", r.URL.Path)
		assert.Equal(t, "clip_abc123.mp4", r.URL.Query().Get("video_filename"))

		var req ProcessRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.NotNil(t, req.VideoName)
		assert.Equal(t, "front door", *req.VideoName)
		assert.True(t, req.UploadToPinecone)
		assert.False(t, req.UseObjectDetection)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"job_id": "job-42"})
	}))
	defer server.Close()

	name := "front door"
	client := newTestClient(t, server.URL)
	jobID, err := client.SubmitProcess(context.Background(), "clip_abc123.mp4", ProcessRequest{
		VideoName:        &name,
		UploadToPinecone: true,
	})
	require.NoError(t, err)
	assert.Equal(t, "job-42", jobID)
}

func TestSubmitProcess_MissingJobID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte("{}"))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	_, err := client.SubmitProcess(context.Background(), "clip.mp4", ProcessRequest{})
	assert.ErrorIs(t, err, ErrNoJobIDReturned)
}

func TestJobStatus_RequiresJobID(t *testing.T) {
	client := newTestClient(t, "https://example.invalid")
	_, err := client.JobStatus(context.Background(), "")
	assert.ErrorIs(t, err, ErrJobIDRequired)
}

func TestSearch_OmitsUnsetFilters(t *testing.T) {
	var rawBody string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		rawBody = string(raw)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(SearchReply{Count: 0, Results: []SearchRecord{}})
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	_, err := client.Search(context.Background(), SearchRequest{
		Query:               "person walking",
		TopK:                5,
		SimilarityThreshold: 0.5,
	})
	require.NoError(t, err)

	assert.Contains(t, rawBody, `"query":"person walking"`)
	assert.NotContains(t, rawBody, "date_filter")
	assert.NotContains(t, rawBody, "namespace_filter")
}

func TestSearch_DecodesRecords(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"results": [{
				"video_name": "front_door",
				"caption": "a person walking a dog",
				"timestamp": 42.7,
				"time_formatted": "0:42",
				"similarity_score": 0.83,
				"frame_id": "front_door_frame_0042",
				"video_date": "2026-08-01",
				"cloudinary_url": "https://res.cloudinary.com/demo/video/upload/front_door.mp4"
			}],
			"count": 1
		}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	reply, err := client.Search(context.Background(), SearchRequest{Query: "dog", TopK: 10, SimilarityThreshold: 0.5})
	require.NoError(t, err)
	require.Len(t, reply.Results, 1)

	rec := reply.Results[0]
	assert.Equal(t, "front_door", rec.VideoName)
	assert.Equal(t, "a person walking a dog", rec.Caption)
	assert.InDelta(t, 42.7, rec.Timestamp, 0.001)
	assert.Equal(t, 0.83, rec.SimilarityScore)
	assert.Equal(t, "front_door_frame_0042", rec.FrameID)
}

func TestEndpointChangeTakesEffectWithoutRebuild(t *testing.T) {
	first := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"healthy"}`))
	}))
	defer first.Close()
	second := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"degraded"}`))
	}))
	defer second.Close()

	registry := endpoint.NewRegistry()
	require.NoError(t, registry.Set(first.URL))
	client := NewHTTPClient(registry)

	info, err := client.Health(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "healthy", info.Status)

	require.NoError(t, registry.Set(second.URL+"/"))
	info, err = client.Health(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "degraded", info.Status)
}

func TestIsJSONContentType(t *testing.T) {
	tests := []struct {
		ct   string
		want bool
	}{
		{"application/json", true},
		{"application/json; charset=utf-8", true},
		{"Application/JSON", true},
		{"text/html", false},
		{"", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, isJSONContentType(tt.ct), "content-type %q", tt.ct)
	}
}

func TestProgressReader_CapsAtHundred(t *testing.T) {
	var last float64
	pr := &progressReader{
		r:          strings.NewReader("0123456789"),
		total:      5, // understated size must not push progress past 100
		onProgress: func(pct float64) { last = pct },
	}
	_, err := io.ReadAll(pr)
	require.NoError(t, err)
	assert.Equal(t, float64(100), last)
}
