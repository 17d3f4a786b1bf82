package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"coda/audio"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// storageStub fakes the back-office storage API
type storageStub struct {
	mu       sync.Mutex
	requests []string
	chunks   map[string][][]byte
}

func newStorageStub() *storageStub {
	return &storageStub{chunks: make(map[string][][]byte)}
}

func (s *storageStub) handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/storage/", func(w http.ResponseWriter, r *http.Request) {
		s.record(r)
		// Chunked endpoints share the /api/storage/ prefix
		switch {
		case r.Method == http.MethodPost && filepath.Base(r.URL.Path) == "chunked":
			json.NewEncoder(w).Encode(map[string]string{"uploadId": "up-1"})
		case r.Method == http.MethodPut:
			body, _ := io.ReadAll(r.Body)
			s.mu.Lock()
			s.chunks["up-1"] = append(s.chunks["up-1"], body)
			s.mu.Unlock()
			w.WriteHeader(http.StatusOK)
		case r.Method == http.MethodPost && filepath.Base(r.URL.Path) == "complete":
			json.NewEncoder(w).Encode(map[string]string{"storagePath": "assembled/path.wav"})
		case r.Method == http.MethodPost:
			json.NewEncoder(w).Encode(map[string]string{
				"storagePath": "stored/" + r.URL.Query().Get("filename"),
			})
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	})

	mux.HandleFunc("/api/previews", func(w http.ResponseWriter, r *http.Request) {
		s.record(r)
		var body map[string]interface{}
		json.NewDecoder(r.Body).Decode(&body)
		json.NewEncoder(w).Encode(map[string]string{
			"previewPath": fmt.Sprintf("previews/%v", body["storagePath"]),
		})
	})

	return mux
}

func (s *storageStub) record(r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, r.Method+" "+r.URL.Path)
}

func smallAsset(size int) *audio.Asset {
	data := make([]byte, size)
	for i := range data {
		data[i] = byte(i)
	}
	return &audio.Asset{Data: data, Filename: "a.wav", MIMEType: "audio/wav", Kind: audio.AssetMaster}
}

func TestHTTPUploaderSingleRequestBelowThreshold(t *testing.T) {
	stub := newStorageStub()
	server := httptest.NewServer(stub.handler())
	defer server.Close()

	u := NewHTTPUploader(server.URL)

	var progress []float64
	path, err := u.UploadBlob(context.Background(), "label", "track-1", smallAsset(1024), func(p float64) {
		progress = append(progress, p)
	})
	require.NoError(t, err)
	assert.Equal(t, "stored/a.wav", path)
	assert.Equal(t, []float64{100}, progress)
	assert.Equal(t, []string{"POST /api/storage/label/track-1"}, stub.requests)
}

func TestHTTPUploaderChunksLargePayloads(t *testing.T) {
	stub := newStorageStub()
	server := httptest.NewServer(stub.handler())
	defer server.Close()

	u := NewHTTPUploader(server.URL)
	u.ChunkThreshold = 100
	u.ChunkSize = 64

	asset := smallAsset(200) // 64 + 64 + 64 + 8

	var progress []float64
	path, err := u.UploadBlob(context.Background(), "label", "track-1", asset, func(p float64) {
		progress = append(progress, p)
	})
	require.NoError(t, err)
	assert.Equal(t, "assembled/path.wav", path)

	require.Len(t, stub.chunks["up-1"], 4)
	assert.Len(t, stub.chunks["up-1"][0], 64)
	assert.Len(t, stub.chunks["up-1"][3], 8)

	// Reassembled payload matches the original byte for byte
	var assembled []byte
	for _, chunk := range stub.chunks["up-1"] {
		assembled = append(assembled, chunk...)
	}
	assert.Equal(t, asset.Data, assembled)

	// Per-chunk progress climbs to exactly 100
	require.NotEmpty(t, progress)
	assert.Equal(t, float64(100), progress[len(progress)-1])
	for i := 1; i < len(progress); i++ {
		assert.Greater(t, progress[i], progress[i-1])
	}
}

func TestHTTPUploaderServerFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "disk full", http.StatusInternalServerError)
	}))
	defer server.Close()

	u := NewHTTPUploader(server.URL)
	_, err := u.UploadBlob(context.Background(), "label", "track-1", smallAsset(10), nil)
	require.Error(t, err)

	var upErr *UploadError
	assert.ErrorAs(t, err, &upErr)
}

func TestHTTPUploaderRejectsEmptyAsset(t *testing.T) {
	u := NewHTTPUploader("http://unused")

	var upErr *UploadError
	_, err := u.UploadBlob(context.Background(), "label", "track-1", nil, nil)
	assert.ErrorAs(t, err, &upErr)

	_, err = u.UploadBlob(context.Background(), "label", "track-1", &audio.Asset{}, nil)
	assert.ErrorAs(t, err, &upErr)
}

func TestHTTPUploaderGeneratePreview(t *testing.T) {
	stub := newStorageStub()
	server := httptest.NewServer(stub.handler())
	defer server.Close()

	u := NewHTTPUploader(server.URL)
	path, err := u.GeneratePreview(context.Background(), "stored/a-trim.wav", 12.5, 60)
	require.NoError(t, err)
	assert.Equal(t, "previews/stored/a-trim.wav", path)
}

func TestLocalUploaderWritesUnderOwnerAndSlot(t *testing.T) {
	root := t.TempDir()
	u := NewLocalUploader(root)

	asset := smallAsset(32)
	path, err := u.UploadBlob(context.Background(), "label", "track-1", asset, nil)
	require.NoError(t, err)
	assert.Equal(t, "label/track-1/a.wav", path)

	written, err := os.ReadFile(filepath.Join(root, "label", "track-1", "a.wav"))
	require.NoError(t, err)
	assert.Equal(t, asset.Data, written)
}

func TestLocalUploaderPreviewIsTheClipItself(t *testing.T) {
	u := NewLocalUploader(t.TempDir())
	path, err := u.GeneratePreview(context.Background(), "label/track-1/a-trim.wav", 0, 60)
	require.NoError(t, err)
	assert.Equal(t, "label/track-1/a-trim.wav", path)
}
