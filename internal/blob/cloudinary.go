package blob

import (
	"context"
	"crypto/sha1"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"attendboard/internal/metrics"
)

// Cloudinary uploads images through the Cloudinary REST API.
type Cloudinary struct {
	CloudName string
	APIKey    string
	APISecret string
	Folder    string
	BaseURL   string
	HTTP      *http.Client
}

// NewCloudinary creates a Cloudinary-backed store.
func NewCloudinary(cloudName, apiKey, apiSecret, folder string) *Cloudinary {
	return &Cloudinary{
		CloudName: cloudName,
		APIKey:    apiKey,
		APISecret: apiSecret,
		Folder:    folder,
		BaseURL:   "https://api.cloudinary.com",
		HTTP:      &http.Client{Timeout: 30 * time.Second},
	}
}

// UploadResult holds the response from Cloudinary after a successful upload.
type UploadResult struct {
	PublicID  string `json:"public_id"`
	SecureURL string `json:"secure_url"`
	URL       string `json:"url"`
	Format    string `json:"format"`
	Bytes     int    `json:"bytes"`
}

// Put streams r to Cloudinary as a multipart upload and returns the secure
// URL. The public_id is a fresh UUID so names never collide.
func (c *Cloudinary) Put(ctx context.Context, r io.Reader, filenameHint string) (string, error) {
	params := map[string]string{
		"timestamp": strconv.FormatInt(time.Now().Unix(), 10),
		"public_id": uuid.NewString(),
		"api_key":   c.APIKey,
	}
	if c.Folder != "" {
		params["folder"] = c.Folder
	}
	params["signature"] = c.sign(params)

	pr, pw := io.Pipe()
	w := multipart.NewWriter(pw)
	go func() {
		for k, v := range params {
			if err := w.WriteField(k, v); err != nil {
				pw.CloseWithError(err)
				return
			}
		}
		part, err := w.CreateFormFile("file", "upload."+Ext(filenameHint))
		if err != nil {
			pw.CloseWithError(err)
			return
		}
		if _, err := io.Copy(part, r); err != nil {
			pw.CloseWithError(err)
			return
		}
		pw.CloseWithError(w.Close())
	}()

	url := fmt.Sprintf("%s/v1_1/%s/image/upload", strings.TrimRight(c.BaseURL, "/"), c.CloudName)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, pr)
	if err != nil {
		pr.Close()
		metrics.BlobUploads.WithLabelValues("cloudinary", metrics.OutcomeError).Inc()
		return "", classify("Failed to create upload request", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := c.HTTP.Do(req)
	if err != nil {
		pr.Close()
		metrics.BlobUploads.WithLabelValues("cloudinary", metrics.OutcomeError).Inc()
		return "", classify("Failed to upload file", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 300 {
		metrics.BlobUploads.WithLabelValues("cloudinary", metrics.OutcomeError).Inc()
		return "", classify("Failed to upload file", fmt.Errorf("cloudinary: upload failed (%d): %s", resp.StatusCode, string(body)))
	}

	var result UploadResult
	if err := json.Unmarshal(body, &result); err != nil {
		metrics.BlobUploads.WithLabelValues("cloudinary", metrics.OutcomeError).Inc()
		return "", classify("Failed to upload file", fmt.Errorf("cloudinary: decode response failed: %w", err))
	}
	metrics.BlobUploads.WithLabelValues("cloudinary", metrics.OutcomeOK).Inc()
	metrics.UploadedBytes.Add(float64(result.Bytes))
	return result.SecureURL, nil
}

// sign computes the Cloudinary API signature from the given params.
// api_key, file and resource_type are not signed.
func (c *Cloudinary) sign(params map[string]string) string {
	excludeKeys := map[string]bool{"api_key": true, "file": true, "resource_type": true}

	pairs := make([]string, 0, len(params))
	for k, v := range params {
		if !excludeKeys[k] && v != "" {
			pairs = append(pairs, k+"="+v)
		}
	}
	sort.Strings(pairs)

	h := sha1.New()
	h.Write([]byte(strings.Join(pairs, "&") + c.APISecret))
	return fmt.Sprintf("%x", h.Sum(nil))
}
