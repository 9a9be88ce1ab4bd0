package blob

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"os"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"
)

const cloudinaryAPIBase = "https://api.cloudinary.com"

// CloudinaryConfig holds the credentials for a Cloudinary account.
type CloudinaryConfig struct {
	CloudName string
	APIKey    string
	APISecret string
	BaseURL   string // override for testing; defaults to the Cloudinary API
}

// CloudinaryStore implements Store against the Cloudinary upload API.
type CloudinaryStore struct {
	cloudName  string
	apiKey     string
	apiSecret  string
	httpClient *resty.Client
}

var _ Store = (*CloudinaryStore)(nil)

// NewCloudinaryStore creates a Cloudinary-backed blob store.
func NewCloudinaryStore(cfg CloudinaryConfig) *CloudinaryStore {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = cloudinaryAPIBase
	}
	return &CloudinaryStore{
		cloudName: cfg.CloudName,
		apiKey:    cfg.APIKey,
		apiSecret: cfg.APISecret,
		httpClient: resty.New().
			SetBaseURL(baseURL).
			SetTimeout(30 * time.Second),
	}
}

type uploadResponse struct {
	SecureURL string `json:"secure_url"`
	PublicID  string `json:"public_id"`
}

type destroyResponse struct {
	Result string `json:"result"`
}

// Upload stores image bytes under the given folder and returns the public URL.
func (s *CloudinaryStore) Upload(ctx context.Context, data []byte, folder string) (string, error) {
	timestamp := fmt.Sprintf("%d", time.Now().Unix())
	params := map[string]string{
		"folder":    folder,
		"timestamp": timestamp,
	}

	result := &uploadResponse{}
	res, err := s.httpClient.NewRequest().
		SetContext(ctx).
		SetFileReader("file", "upload", bytes.NewReader(data)).
		SetFormData(map[string]string{
			"folder":    folder,
			"timestamp": timestamp,
			"api_key":   s.apiKey,
			"signature": s.sign(params),
		}).
		SetResult(result).
		Post(fmt.Sprintf("/v1_1/%s/image/upload", s.cloudName))
	if err != nil {
		return "", fmt.Errorf("failed to upload image: %w", err)
	}
	if res.IsError() {
		return "", fmt.Errorf("image upload failed (status: %d): %s", res.StatusCode(), res.String())
	}
	if result.SecureURL == "" {
		return "", fmt.Errorf("image upload returned no URL")
	}
	return result.SecureURL, nil
}

// Delete removes an uploaded image. Failures are logged and reported as
// false; they never fail the caller's operation.
func (s *CloudinaryStore) Delete(ctx context.Context, uri string) bool {
	publicID := publicIDFromURI(uri)
	if publicID == "" {
		log.Warn().Str("uri", uri).Msg("could not derive public id for delete")
		return false
	}

	timestamp := fmt.Sprintf("%d", time.Now().Unix())
	params := map[string]string{
		"public_id": publicID,
		"timestamp": timestamp,
	}

	result := &destroyResponse{}
	res, err := s.httpClient.NewRequest().
		SetContext(ctx).
		SetFormData(map[string]string{
			"public_id": publicID,
			"timestamp": timestamp,
			"api_key":   s.apiKey,
			"signature": s.sign(params),
		}).
		SetResult(result).
		Post(fmt.Sprintf("/v1_1/%s/image/destroy", s.cloudName))
	if err != nil {
		log.Warn().Err(err).Str("uri", uri).Msg("failed to delete blob")
		return false
	}
	if res.IsError() || result.Result != "ok" {
		log.Warn().Str("uri", uri).Int("status", res.StatusCode()).Str("result", result.Result).Msg("blob delete rejected")
		return false
	}
	return true
}

// DownloadTemp fetches an image to a temporary file and returns its path.
func (s *CloudinaryStore) DownloadTemp(ctx context.Context, uri string) (string, error) {
	res, err := s.httpClient.NewRequest().
		SetContext(ctx).
		Get(uri)
	if err != nil {
		return "", fmt.Errorf("failed to download image: %w", err)
	}
	if res.IsError() {
		return "", fmt.Errorf("image download failed (status: %d)", res.StatusCode())
	}

	f, err := os.CreateTemp("", "wardrobe-image-*"+path.Ext(uri))
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(res.Body()); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("failed to write temp file: %w", err)
	}
	return f.Name(), nil
}

// ThumbnailURL inserts a crop-and-fill transformation segment into an
// uploaded image URL.
func (s *CloudinaryStore) ThumbnailURL(uri string, width, height int) string {
	const marker = "/upload/"
	idx := strings.Index(uri, marker)
	if idx == -1 {
		return uri
	}
	transform := fmt.Sprintf("c_fill,w_%d,h_%d", width, height)
	return uri[:idx+len(marker)] + transform + "/" + uri[idx+len(marker):]
}

// sign computes the Cloudinary request signature: parameters sorted by key,
// joined as key=value with &, with the API secret appended, SHA-1 hashed.
func (s *CloudinaryStore) sign(params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+params[k])
	}

	sum := sha1.Sum([]byte(strings.Join(pairs, "&") + s.apiSecret))
	return hex.EncodeToString(sum[:])
}

// publicIDFromURI extracts the Cloudinary public id from a delivery URL:
// everything after /upload/ minus the version segment and file extension.
func publicIDFromURI(uri string) string {
	const marker = "/upload/"
	idx := strings.Index(uri, marker)
	if idx == -1 {
		return ""
	}
	rest := uri[idx+len(marker):]

	parts := strings.Split(rest, "/")
	if len(parts) > 1 && len(parts[0]) > 1 && parts[0][0] == 'v' && isDigits(parts[0][1:]) {
		parts = parts[1:]
	}
	publicID := strings.Join(parts, "/")
	if ext := path.Ext(publicID); ext != "" {
		publicID = strings.TrimSuffix(publicID, ext)
	}
	return publicID
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
