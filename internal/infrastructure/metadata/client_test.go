package metadata

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AayushJain09/Polyplace/internal/domain"
	"github.com/AayushJain09/Polyplace/shared/resilience"
)

func TestFetchImageDocument(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"name":"Cool Art","description":"a picture","assetType":"image","image":"https://gw/ipfs/QmAsset"}`))
	}))
	defer srv.Close()

	md, err := NewClient().Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "Cool Art", md.Name)
	assert.Equal(t, domain.AssetRef{Kind: domain.AssetImage, URL: "https://gw/ipfs/QmAsset"}, md.Asset)
}

func TestFetchAudioDocument(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"name":"Track","assetType":"audio","animation_url":"https://gw/ipfs/QmTrack"}`))
	}))
	defer srv.Close()

	md, err := NewClient().Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, domain.AssetRef{Kind: domain.AssetAudio, URL: "https://gw/ipfs/QmTrack"}, md.Asset)
}

func TestFetchMissingAssetType(t *testing.T) {
	// Older documents omit assetType; the present URL decides the kind.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"name":"Legacy","animation_url":"https://gw/ipfs/QmTrack"}`))
	}))
	defer srv.Close()

	md, err := NewClient().Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, domain.AssetAudio, md.Asset.Kind)
	assert.Equal(t, "https://gw/ipfs/QmTrack", md.Asset.URL)
}

func TestFetchAttemptsExactlyOnceByDefault(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := NewClient().Fetch(context.Background(), srv.URL)
	assert.ErrorIs(t, err, domain.ErrMetadataFetch)
	assert.Equal(t, 1, attempts)
}

func TestFetchRetriesTransientFailuresWhenConfigured(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"name":"Eventually","assetType":"image","image":"https://gw/ipfs/QmAsset"}`))
	}))
	defer srv.Close()

	c := NewClientWithRetry(&resilience.RetryConfig{
		MaxAttempts:   3,
		InitialDelay:  time.Millisecond,
		MaxDelay:      time.Millisecond,
		BackoffFactor: 2.0,
	})

	md, err := c.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "Eventually", md.Name)
	assert.Equal(t, 3, attempts)
}

func TestFetchDoesNotRetryMissingDocuments(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		http.NotFound(w, r)
	}))
	defer srv.Close()

	_, err := NewClient().Fetch(context.Background(), srv.URL)
	assert.ErrorIs(t, err, domain.ErrMetadataFetch)
	assert.Equal(t, 1, attempts)
}

func TestFetchFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/missing":
			http.NotFound(w, r)
		case "/garbage":
			w.Write([]byte("not json"))
		}
	}))
	defer srv.Close()

	c := NewClient()
	_, err := c.Fetch(context.Background(), srv.URL+"/missing")
	assert.ErrorIs(t, err, domain.ErrMetadataFetch)

	_, err = c.Fetch(context.Background(), srv.URL+"/garbage")
	assert.ErrorIs(t, err, domain.ErrMetadataFetch)

	_, err = c.Fetch(context.Background(), "")
	assert.ErrorIs(t, err, domain.ErrMetadataFetch)
}
