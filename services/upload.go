package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"coda/audio"
)

// Default chunked-upload sizing: payloads above the threshold are sent
// in chunks with per-chunk progress.
const (
	DefaultChunkThreshold = 1 << 20  // 1 MB
	DefaultChunkSize      = 10 << 20 // 10 MB
)

// UploadError indicates a network/storage failure after a successful
// encode. The encoded asset is retained so only the upload is retried.
type UploadError struct {
	Err error
}

func (e *UploadError) Error() string {
	return "upload failed: " + e.Err.Error()
}

func (e *UploadError) Unwrap() error {
	return e.Err
}

// Uploader is the external collaborator that takes ownership of encoded
// assets. The wire format behind it is the backend's concern.
type Uploader interface {
	// UploadBlob stores the asset under the owner/slot pair and returns
	// a durable storage path.
	UploadBlob(ctx context.Context, owner, slot string, asset *audio.Asset, onProgress audio.ProgressFunc) (string, error)

	// GeneratePreview asks the backend to derive a streamable preview
	// from an already-uploaded clip, aligned to the chosen trim offset.
	GeneratePreview(ctx context.Context, storagePath string, startSeconds, windowSeconds float64) (string, error)
}

// HTTPUploader talks to the back-office storage API. Small payloads go
// up in a single request; anything above ChunkThreshold is pushed in
// ChunkSize pieces through the chunked endpoints.
type HTTPUploader struct {
	BaseURL        string
	Client         *http.Client
	ChunkThreshold int
	ChunkSize      int
}

// NewHTTPUploader creates an uploader against the given API base URL.
func NewHTTPUploader(baseURL string) *HTTPUploader {
	return &HTTPUploader{
		BaseURL:        baseURL,
		Client:         &http.Client{Timeout: 5 * time.Minute},
		ChunkThreshold: DefaultChunkThreshold,
		ChunkSize:      DefaultChunkSize,
	}
}

// UploadBlob stores an encoded asset and returns its storage path.
func (u *HTTPUploader) UploadBlob(ctx context.Context, owner, slot string, asset *audio.Asset, onProgress audio.ProgressFunc) (string, error) {
	if asset == nil || len(asset.Data) == 0 {
		return "", &UploadError{Err: fmt.Errorf("no asset data to upload")}
	}

	if len(asset.Data) <= u.ChunkThreshold {
		return u.uploadSingle(ctx, owner, slot, asset, onProgress)
	}
	return u.uploadChunked(ctx, owner, slot, asset, onProgress)
}

func (u *HTTPUploader) uploadSingle(ctx context.Context, owner, slot string, asset *audio.Asset, onProgress audio.ProgressFunc) (string, error) {
	url := fmt.Sprintf("%s/api/storage/%s/%s?filename=%s", u.BaseURL, owner, slot, asset.Filename)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(asset.Data))
	if err != nil {
		return "", &UploadError{Err: err}
	}
	req.Header.Set("Content-Type", asset.MIMEType)

	var result struct {
		StoragePath string `json:"storagePath"`
	}
	if err := u.do(req, &result); err != nil {
		return "", err
	}
	if onProgress != nil {
		onProgress(100)
	}
	return result.StoragePath, nil
}

func (u *HTTPUploader) uploadChunked(ctx context.Context, owner, slot string, asset *audio.Asset, onProgress audio.ProgressFunc) (string, error) {
	initURL := fmt.Sprintf("%s/api/storage/%s/%s/chunked?filename=%s", u.BaseURL, owner, slot, asset.Filename)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, initURL, nil)
	if err != nil {
		return "", &UploadError{Err: err}
	}

	var initResp struct {
		UploadID string `json:"uploadId"`
	}
	if err := u.do(req, &initResp); err != nil {
		return "", err
	}
	if initResp.UploadID == "" {
		return "", &UploadError{Err: fmt.Errorf("storage API returned no upload ID")}
	}

	total := len(asset.Data)
	sent := 0
	for index := 0; sent < total; index++ {
		end := sent + u.ChunkSize
		if end > total {
			end = total
		}

		chunkURL := fmt.Sprintf("%s/api/storage/chunked/%s/%d", u.BaseURL, initResp.UploadID, index)
		req, err := http.NewRequestWithContext(ctx, http.MethodPut, chunkURL, bytes.NewReader(asset.Data[sent:end]))
		if err != nil {
			return "", &UploadError{Err: err}
		}
		req.Header.Set("Content-Type", "application/octet-stream")
		if err := u.do(req, nil); err != nil {
			return "", err
		}

		sent = end
		if onProgress != nil {
			onProgress(float64(sent) / float64(total) * 100)
		}
	}

	completeURL := fmt.Sprintf("%s/api/storage/chunked/%s/complete", u.BaseURL, initResp.UploadID)
	req, err = http.NewRequestWithContext(ctx, http.MethodPost, completeURL, nil)
	if err != nil {
		return "", &UploadError{Err: err}
	}

	var result struct {
		StoragePath string `json:"storagePath"`
	}
	if err := u.do(req, &result); err != nil {
		return "", err
	}
	return result.StoragePath, nil
}

// GeneratePreview requests a server-side preview render for a clip.
func (u *HTTPUploader) GeneratePreview(ctx context.Context, storagePath string, startSeconds, windowSeconds float64) (string, error) {
	body, err := json.Marshal(map[string]interface{}{
		"storagePath":   storagePath,
		"startSeconds":  startSeconds,
		"windowSeconds": windowSeconds,
	})
	if err != nil {
		return "", &UploadError{Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.BaseURL+"/api/previews", bytes.NewReader(body))
	if err != nil {
		return "", &UploadError{Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	var result struct {
		PreviewPath string `json:"previewPath"`
	}
	if err := u.do(req, &result); err != nil {
		return "", err
	}
	return result.PreviewPath, nil
}

func (u *HTTPUploader) do(req *http.Request, out interface{}) error {
	resp, err := u.Client.Do(req)
	if err != nil {
		return &UploadError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &UploadError{Err: fmt.Errorf("storage API returned status %d", resp.StatusCode)}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &UploadError{Err: fmt.Errorf("invalid storage API response: %w", err)}
	}
	return nil
}

// LocalUploader stores assets under a directory on disk. It is the
// default collaborator when no storage API endpoint is configured, and
// what the asset streaming endpoints serve from.
type LocalUploader struct {
	Root string
}

// NewLocalUploader creates a disk-backed uploader rooted at dir.
func NewLocalUploader(dir string) *LocalUploader {
	return &LocalUploader{Root: dir}
}

// UploadBlob writes the asset to <root>/<owner>/<slot>/<filename> and
// returns the path relative to the root.
func (u *LocalUploader) UploadBlob(ctx context.Context, owner, slot string, asset *audio.Asset, onProgress audio.ProgressFunc) (string, error) {
	if asset == nil || len(asset.Data) == 0 {
		return "", &UploadError{Err: fmt.Errorf("no asset data to upload")}
	}

	dir := filepath.Join(u.Root, owner, slot)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", &UploadError{Err: err}
	}

	path := filepath.Join(dir, asset.Filename)
	if err := os.WriteFile(path, asset.Data, 0644); err != nil {
		return "", &UploadError{Err: err}
	}

	if onProgress != nil {
		onProgress(100)
	}
	return filepath.ToSlash(filepath.Join(owner, slot, asset.Filename)), nil
}

// GeneratePreview returns the clip path itself: a locally stored clip is
// already exactly the preview window, so no separate render happens.
func (u *LocalUploader) GeneratePreview(ctx context.Context, storagePath string, startSeconds, windowSeconds float64) (string, error) {
	return storagePath, nil
}
