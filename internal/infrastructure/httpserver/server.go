// Package httpserver exposes the marketplace facade as a small JSON API
// plus the operational endpoints (health, metrics).
package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/AayushJain09/Polyplace/internal/domain"
	"github.com/AayushJain09/Polyplace/internal/service"
	"github.com/AayushJain09/Polyplace/shared/logging"
	"github.com/AayushJain09/Polyplace/shared/monitoring"
	"github.com/AayushJain09/Polyplace/shared/recovery"
)

// 32 MiB, same ceiling Pinata applies to free-tier pins.
const maxUploadBytes = 32 << 20

type Server struct {
	market *service.Service
	logger *logging.Logger
	http   *http.Server
}

func NewServer(addr string, market *service.Service, logger *logging.Logger) *Server {
	s := &Server{market: market, logger: logger}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/market", s.handleMarket)
	mux.HandleFunc("GET /api/mine", s.handleMine)
	mux.HandleFunc("POST /api/mint", s.handleMint)
	mux.HandleFunc("POST /api/resell", s.handleResell)
	mux.HandleFunc("POST /api/buy", s.handleBuy)
	mux.HandleFunc("POST /api/session/connect", s.handleConnect)
	mux.HandleFunc("GET /api/session", s.handleSession)
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	s.http = &http.Server{
		Addr:              addr,
		Handler:           recovery.NewPanicHandler(logger).HTTPMiddleware(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) ListenAndServe() error {
	s.logger.WithField("addr", s.http.Addr).Info("http server listening")
	err := s.http.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func (s *Server) handleMarket(w http.ResponseWriter, r *http.Request) {
	items, err := s.market.BrowseMarket(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, items)
}

func (s *Server) handleMine(w http.ResponseWriter, r *http.Request) {
	kind := service.BrowseKind(r.URL.Query().Get("kind"))
	if kind == "" {
		kind = service.BrowseOwned
	}
	items, err := s.market.BrowseMine(r.Context(), kind)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, items)
}

func (s *Server) handleMint(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		s.writeError(w, domain.ErrInvalidInput)
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		s.writeError(w, domain.ErrInvalidInput)
		return
	}
	defer file.Close()

	// Read one byte past the limit so oversize uploads are rejected
	// whole rather than pinned truncated.
	data, err := io.ReadAll(io.LimitReader(file, maxUploadBytes+1))
	if err != nil {
		s.writeError(w, domain.ErrInvalidInput)
		return
	}
	if len(data) > maxUploadBytes {
		s.writeJSON(w, http.StatusRequestEntityTooLarge, map[string]string{
			"error": "upload exceeds the 32 MiB limit",
		})
		return
	}

	listing, err := s.market.Mint(r.Context(), domain.MintInput{
		Asset:       data,
		Filename:    header.Filename,
		Name:        r.FormValue("name"),
		Description: r.FormValue("description"),
		Price:       r.FormValue("price"),
		Kind:        domain.AssetKind(r.FormValue("assetType")),
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, listingView(listing))
}

func (s *Server) handleResell(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TokenID domain.TokenID `json:"tokenId"`
		Price   string         `json:"price"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, domain.ErrInvalidInput)
		return
	}
	listing, err := s.market.ListForResale(r.Context(), req.TokenID, req.Price)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, listingView(listing))
}

func (s *Server) handleBuy(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TokenID domain.TokenID `json:"tokenId"`
		Price   string         `json:"price"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, domain.ErrInvalidInput)
		return
	}
	listing, err := s.market.Buy(r.Context(), domain.MarketItem{TokenID: req.TokenID, Price: req.Price})
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, listingView(listing))
}

func (s *Server) handleConnect(w http.ResponseWriter, r *http.Request) {
	addr, err := s.market.Connect(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"account": addr})
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"account": s.market.CurrentAccount(),
		"busy":    s.market.IsBusy(),
	})
}

func listingView(l domain.Listing) map[string]any {
	price := "0"
	if l.Price != nil {
		price = l.Price.String()
	}
	return map[string]any{
		"tokenId": l.TokenID,
		"seller":  l.Seller,
		"owner":   l.Owner,
		"price":   price,
		"sold":    l.Sold,
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.WithError(err).Error("failed to encode response")
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrInvalidInput), errors.Is(err, domain.ErrInvalidAmount):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrNoSigner), errors.Is(err, domain.ErrConnectionRejected):
		status = http.StatusUnauthorized
	case errors.Is(err, domain.ErrProviderUnavailable):
		status = http.StatusServiceUnavailable
	case errors.Is(err, domain.ErrUploadFailed), errors.Is(err, domain.ErrMetadataFetch), errors.Is(err, domain.ErrGatewayCall):
		status = http.StatusBadGateway
	}

	if status >= http.StatusInternalServerError || status == http.StatusBadGateway {
		monitoring.CaptureError(err, "http_request")
		s.logger.WithError(err).Error("request failed")
	} else {
		s.logger.WithError(err).Warn("request rejected")
	}
	s.writeJSON(w, status, map[string]string{"error": err.Error()})
}
