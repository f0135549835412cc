package pinning

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AayushJain09/Polyplace/internal/config"
	"github.com/AayushJain09/Polyplace/internal/domain"
)

func newTestClient(serverURL string) *PinataClient {
	return NewPinataClient(config.PinataConfig{
		BaseURL:    serverURL,
		APIKey:     "key",
		SecretKey:  "secret",
		GatewayURL: "https://gateway.pinata.cloud",
	})
}

func TestPinFile(t *testing.T) {
	var gotPath, gotKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("pinata_api_key")

		require.NoError(t, r.ParseMultipartForm(1<<20))
		f, _, err := r.FormFile("file")
		require.NoError(t, err)
		defer f.Close()
		body, err := io.ReadAll(f)
		require.NoError(t, err)
		assert.Equal(t, "artwork-bytes", string(body))

		json.NewEncoder(w).Encode(domain.PinResult{CID: "QmAsset", Size: 13})
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	res, err := c.PinFile(context.Background(), bytes.NewReader([]byte("artwork-bytes")), "artwork.png")
	require.NoError(t, err)
	assert.Equal(t, "/pinning/pinFileToIPFS", gotPath)
	assert.Equal(t, "key", gotKey)
	assert.Equal(t, "QmAsset", res.CID)
}

func TestPinJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/pinning/pinJSONToIPFS", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var payload struct {
			Content domain.TokenMetadata `json:"pinataContent"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "Cool Art", payload.Content.Name)
		assert.Equal(t, domain.AssetImage, payload.Content.Asset.Kind)

		json.NewEncoder(w).Encode(domain.PinResult{CID: "QmMeta"})
	}))
	defer srv.Close()

	doc := domain.TokenMetadata{
		Name:        "Cool Art",
		Description: "a picture",
		Asset:       domain.AssetRef{Kind: domain.AssetImage, URL: "https://gateway.pinata.cloud/ipfs/QmAsset"},
	}
	c := newTestClient(srv.URL)
	res, err := c.PinJSON(context.Background(), doc, "metadata.json")
	require.NoError(t, err)
	assert.Equal(t, "QmMeta", res.CID)
}

func TestPinFileProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	_, err := c.PinFile(context.Background(), bytes.NewReader([]byte("x")), "x.png")
	assert.ErrorIs(t, err, domain.ErrUploadFailed)
}

func TestPinFileNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connection refused from here on

	c := newTestClient(srv.URL)
	_, err := c.PinFile(context.Background(), bytes.NewReader([]byte("x")), "x.png")
	assert.ErrorIs(t, err, domain.ErrUploadFailed)
}

func TestGatewayURL(t *testing.T) {
	c := newTestClient("https://api.pinata.cloud")
	assert.Equal(t, "https://gateway.pinata.cloud/ipfs/QmAsset", c.GatewayURL("QmAsset"))
	assert.Equal(t, "", c.GatewayURL(""))
}
