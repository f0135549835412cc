package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"math/big"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AayushJain09/Polyplace/internal/domain"
	"github.com/AayushJain09/Polyplace/internal/service"
	"github.com/AayushJain09/Polyplace/shared/logging"
)

type stubWallet struct{ signerErr error }

func (w *stubWallet) Available() error                                  { return nil }
func (w *stubWallet) Accounts() []domain.Address                        { return nil }
func (w *stubWallet) Connect(ctx context.Context) (domain.Address, error) { return "0xabc", nil }
func (w *stubWallet) Signer(ctx context.Context) (domain.TxSigner, error) {
	return nil, w.signerErr
}

type stubPinner struct {
	fileCalls int
	lastSize  int
}

func (p *stubPinner) PinFile(ctx context.Context, r io.Reader, name string) (domain.PinResult, error) {
	p.fileCalls++
	data, _ := io.ReadAll(r)
	p.lastSize = len(data)
	return domain.PinResult{CID: "QmX"}, nil
}
func (p *stubPinner) PinJSON(ctx context.Context, v any, name string) (domain.PinResult, error) {
	return domain.PinResult{CID: "QmY"}, nil
}
func (p *stubPinner) Unpin(ctx context.Context, cid string) error { return nil }
func (p *stubPinner) GatewayURL(cid string) string                { return "https://g.test/ipfs/" + cid }

type stubReader struct{ listings []domain.Listing }

func (r *stubReader) ListingPrice(ctx context.Context) (*big.Int, error) { return big.NewInt(1), nil }
func (r *stubReader) MarketItems(ctx context.Context) ([]domain.Listing, error) {
	return r.listings, nil
}
func (r *stubReader) TokenURI(ctx context.Context, tokenID domain.TokenID) (string, error) {
	return "https://g.test/ipfs/QmMeta", nil
}

type stubMeta struct{ doc domain.TokenMetadata }

func (m *stubMeta) Fetch(ctx context.Context, url string) (domain.TokenMetadata, error) {
	return m.doc, nil
}

func newTestServer(t *testing.T, wallet *stubWallet, reader *stubReader) (*Server, *stubPinner) {
	t.Helper()
	pinner := &stubPinner{}
	market := service.NewMarketplaceService(
		wallet, pinner, reader,
		func(domain.TxSigner) domain.MarketWriter { return nil },
		&stubMeta{doc: domain.TokenMetadata{
			Name:  "One",
			Asset: domain.AssetRef{Kind: domain.AssetImage, URL: "https://g.test/ipfs/QmA"},
		}},
		logging.Nop(), service.Options{},
	)
	return NewServer(":0", market, logging.Nop()), pinner
}

func TestMarketEndpointEmitsLegacyShape(t *testing.T) {
	reader := &stubReader{listings: []domain.Listing{
		{TokenID: 1, Seller: "0xs", Owner: "0xo", Price: big.NewInt(1500000000000000000)},
	}}
	srv, _ := newTestServer(t, &stubWallet{}, reader)

	rec := httptest.NewRecorder()
	srv.http.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/market", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var items []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &items))
	require.Len(t, items, 1)
	assert.Equal(t, "1.5", items[0]["price"])
	assert.Equal(t, "One", items[0]["name"])
	assert.Equal(t, float64(1), items[0]["i"])
	assert.Equal(t, "https://g.test/ipfs/QmA", items[0]["image"])
}

func TestMineWithoutSessionIsUnauthorized(t *testing.T) {
	srv, _ := newTestServer(t, &stubWallet{signerErr: domain.ErrNoSigner}, &stubReader{})

	rec := httptest.NewRecorder()
	srv.http.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/mine", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func mintRequest(t *testing.T, fileSize int) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	fw, err := mw.CreateFormFile("file", "art.png")
	require.NoError(t, err)
	_, err = fw.Write(make([]byte, fileSize))
	require.NoError(t, err)
	require.NoError(t, mw.WriteField("name", "Sunset"))
	require.NoError(t, mw.WriteField("description", "A sunset"))
	require.NoError(t, mw.WriteField("price", "1"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/mint", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestMintRejectsOversizeUpload(t *testing.T) {
	srv, pinner := newTestServer(t, &stubWallet{}, &stubReader{})

	rec := httptest.NewRecorder()
	srv.http.Handler.ServeHTTP(rec, mintRequest(t, maxUploadBytes+1))

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Equal(t, 0, pinner.fileCalls, "oversize uploads must never reach the pinner")
}

func TestResellRejectsMalformedBody(t *testing.T) {
	srv, _ := newTestServer(t, &stubWallet{}, &stubReader{})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/resell", strings.NewReader("{not json"))
	srv.http.Handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBuyInvalidPriceIsBadRequest(t *testing.T) {
	srv, _ := newTestServer(t, &stubWallet{}, &stubReader{})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/buy", strings.NewReader(`{"tokenId":1,"price":"abc"}`))
	srv.http.Handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSessionEndpoint(t *testing.T) {
	srv, _ := newTestServer(t, &stubWallet{}, &stubReader{})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/session/connect", nil)
	srv.http.Handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	srv.http.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/session", nil))

	var state map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &state))
	assert.Equal(t, "0xabc", state["account"])
	assert.Equal(t, false, state["busy"])
}

func TestHealthz(t *testing.T) {
	srv, _ := newTestServer(t, &stubWallet{}, &stubReader{})

	rec := httptest.NewRecorder()
	srv.http.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
}
