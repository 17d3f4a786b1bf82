package main

import (
	"bytes"
	"encoding/json"
	"io"
	"math"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"coda/audio"
	"coda/cmd"
	"coda/metrics"
	"coda/services"
	"coda/trimmer"
	"coda/websocket"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

// TestHelper provides utilities for testing the Coda server
type TestHelper struct {
	Server     *httptest.Server
	StorageDir string
	Deps       *cmd.ServerDeps
	Router     *gin.Engine
}

// NewTestHelper creates a new test helper with a temporary storage
// location and a fully wired server
func NewTestHelper(t *testing.T) *TestHelper {
	storageDir, err := os.MkdirTemp("", "coda-test-*")
	require.NoError(t, err)

	// Route storage into the temp directory
	t.Setenv("CODA_STORAGE", storageDir)

	gin.SetMode(gin.TestMode)

	m := metrics.NewMetrics()
	hub := websocket.NewHub()
	go hub.Run()

	uploader := services.NewLocalUploader(storageDir)
	trimCfg := trimmer.DefaultConfig()
	transcoder := audio.NewTranscoder()

	queue := services.NewEncodeQueue(2, hub, uploader, m, trimCfg.ClipSeconds)
	queue.Start()

	deps := &cmd.ServerDeps{
		Queue:      queue,
		Trims:      trimmer.NewManager(trimCfg, transcoder),
		Transcoder: transcoder,
		Hub:        hub,
		Metrics:    m,
		Assets:     services.NewAssetService(),
	}

	router := cmd.NewRouter(deps)
	server := httptest.NewServer(router)

	return &TestHelper{
		Server:     server,
		StorageDir: storageDir,
		Deps:       deps,
		Router:     router,
	}
}

// Cleanup cleans up test resources
func (h *TestHelper) Cleanup(t *testing.T) {
	if h.Server != nil {
		h.Server.Close()
	}
	err := os.RemoveAll(h.StorageDir)
	require.NoError(t, err)
}

// makeTestWAV renders a sine tone of the given duration as a 24-bit WAV
// at the given sample rate. Mono keeps fixtures small.
func makeTestWAV(t *testing.T, seconds float64, sampleRate int) []byte {
	t.Helper()

	n := int(seconds * float64(sampleRate))
	samples := make([]float64, n)
	for i := range samples {
		samples[i] = 0.5 * math.Sin(2*math.Pi*440*float64(i)/float64(sampleRate))
	}

	buf, err := audio.NewPCMBuffer(sampleRate, [][]float64{samples})
	require.NoError(t, err)

	data, err := audio.EncodeWAV24(buf)
	require.NoError(t, err)
	return data
}

// uploadFile posts a multipart upload to the given endpoint
func (h *TestHelper) uploadFile(t *testing.T, path, filename string, data []byte, fields map[string]string) *http.Response {
	t.Helper()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)

	for key, value := range fields {
		require.NoError(t, writer.WriteField(key, value))
	}
	require.NoError(t, writer.Close())

	req, err := http.NewRequest(http.MethodPost, h.Server.URL+path, &body)
	require.NoError(t, err)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

// decodeBody parses a JSON response body into a generic map
func decodeBody(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()

	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &body))
	return body
}

// jobID pulls the job ID out of a queue response body
func jobID(t *testing.T, body map[string]interface{}) string {
	t.Helper()

	job, ok := body["job"].(map[string]interface{})
	require.True(t, ok, "response has no job object")
	id, ok := job["id"].(string)
	require.True(t, ok, "job has no id")
	return id
}

// waitForJobStatus polls the job endpoint until the job reaches the
// wanted status or the timeout expires
func (h *TestHelper) waitForJobStatus(t *testing.T, id, status string, timeout time.Duration) map[string]interface{} {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		resp, err := http.Get(h.Server.URL + "/api/jobs/" + id)
		require.NoError(t, err)
		body := decodeBody(t, resp)

		if job, ok := body["job"].(map[string]interface{}); ok {
			if job["status"] == status {
				return job
			}
			if job["status"] == "failed" && status != "failed" {
				t.Fatalf("job %s failed: %v", id, job["error"])
			}
		}
		time.Sleep(25 * time.Millisecond)
	}

	t.Fatalf("job %s never reached status %q within %v", id, status, timeout)
	return nil
}

// postJSON sends a JSON request with the given method
func (h *TestHelper) postJSON(t *testing.T, method, path string, payload interface{}) *http.Response {
	t.Helper()

	raw, err := json.Marshal(payload)
	require.NoError(t, err)

	req, err := http.NewRequest(method, h.Server.URL+path, bytes.NewReader(raw))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

// mustGet fetches a URL and fails the test on transport errors
func (h *TestHelper) mustGet(t *testing.T, path string) *http.Response {
	t.Helper()

	resp, err := http.Get(h.Server.URL + path)
	require.NoError(t, err)
	return resp
}
