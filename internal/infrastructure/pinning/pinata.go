// Package pinning talks to Pinata's pinning API, the content-addressed
// store behind every asset and metadata document.
package pinning

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/AayushJain09/Polyplace/internal/config"
	"github.com/AayushJain09/Polyplace/internal/domain"
)

// PinataClient provides minimal operations against Pinata's pinning API.
// It supports JWT or API key/secret authentication. Every call is a
// single outbound write; retries are the caller's business.
type PinataClient struct {
	httpClient  *http.Client
	baseURL     string
	gatewayBase string
	authHeader  string
	apiKey      string
	apiSecret   string
}

func NewPinataClient(cfg config.PinataConfig) *PinataClient {
	jwt := strings.TrimSpace(cfg.JWTKey)
	var authHeader string
	if jwt != "" {
		if !strings.HasPrefix(strings.ToLower(jwt), "bearer ") {
			authHeader = "Bearer " + jwt
		} else {
			authHeader = jwt
		}
	}
	return &PinataClient{
		httpClient:  &http.Client{Timeout: 60 * time.Second},
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		gatewayBase: strings.TrimRight(cfg.GatewayURL, "/"),
		authHeader:  authHeader,
		apiKey:      cfg.APIKey,
		apiSecret:   cfg.SecretKey,
	}
}

// PinFile uploads a binary payload and returns the provider's content
// identifier. Identical bytes dedupe at the provider, not here.
func (c *PinataClient) PinFile(ctx context.Context, r io.Reader, name string) (domain.PinResult, error) {
	var res domain.PinResult
	if r == nil {
		return res, fmt.Errorf("%w: reader is nil", domain.ErrUploadFailed)
	}
	if name == "" {
		name = "file"
	}

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	go func() {
		defer pw.Close()
		defer mw.Close()

		fw, err := mw.CreateFormFile("file", filepath.Base(name))
		if err != nil {
			_ = pw.CloseWithError(err)
			return
		}
		if _, err := io.Copy(fw, r); err != nil {
			_ = pw.CloseWithError(err)
			return
		}
	}()

	endpoint := c.baseURL + "/pinning/pinFileToIPFS"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, pr)
	if err != nil {
		return res, fmt.Errorf("%w: %v", domain.ErrUploadFailed, err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	c.applyAuth(req)

	if err := c.do(req, &res); err != nil {
		return res, fmt.Errorf("%w: pinFileToIPFS: %v", domain.ErrUploadFailed, err)
	}
	return res, nil
}

// PinJSON serializes v to canonical JSON and pins the document.
func (c *PinataClient) PinJSON(ctx context.Context, v any, name string) (domain.PinResult, error) {
	var res domain.PinResult

	buf := &bytes.Buffer{}
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return res, fmt.Errorf("%w: encode document: %v", domain.ErrUploadFailed, err)
	}

	payload := map[string]any{
		"pinataContent": json.RawMessage(bytes.TrimSpace(buf.Bytes())),
	}
	if name != "" {
		payload["pinataMetadata"] = map[string]string{"name": name}
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return res, fmt.Errorf("%w: %v", domain.ErrUploadFailed, err)
	}

	endpoint := c.baseURL + "/pinning/pinJSONToIPFS"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return res, fmt.Errorf("%w: %v", domain.ErrUploadFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.applyAuth(req)

	if err := c.do(req, &res); err != nil {
		return res, fmt.Errorf("%w: pinJSONToIPFS: %v", domain.ErrUploadFailed, err)
	}
	return res, nil
}

// Unpin removes a CID from Pinata.
func (c *PinataClient) Unpin(ctx context.Context, cid string) error {
	if strings.TrimSpace(cid) == "" {
		return fmt.Errorf("%w: cid is required", domain.ErrUploadFailed)
	}
	endpoint := c.baseURL + "/pinning/unpin/" + url.PathEscape(cid)
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, endpoint, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrUploadFailed, err)
	}
	c.applyAuth(req)

	if err := c.do(req, nil); err != nil {
		return fmt.Errorf("%w: unpin: %v", domain.ErrUploadFailed, err)
	}
	return nil
}

// GatewayURL composes the public retrieval URL for a CID.
func (c *PinataClient) GatewayURL(cid string) string {
	if c.gatewayBase == "" || cid == "" {
		return ""
	}
	return c.gatewayBase + "/ipfs/" + cid
}

func (c *PinataClient) do(req *http.Request, out any) error {
	httpRes, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer httpRes.Body.Close()

	if httpRes.StatusCode < 200 || httpRes.StatusCode >= 300 {
		b, _ := io.ReadAll(httpRes.Body)
		return fmt.Errorf("%s: %s", httpRes.Status, strings.TrimSpace(string(b)))
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(httpRes.Body).Decode(out)
}

func (c *PinataClient) applyAuth(req *http.Request) {
	if c.authHeader != "" {
		req.Header.Set("Authorization", c.authHeader)
		return
	}
	if c.apiKey != "" {
		req.Header.Set("pinata_api_key", c.apiKey)
	}
	if c.apiSecret != "" {
		req.Header.Set("pinata_secret_api_key", c.apiSecret)
	}
}
