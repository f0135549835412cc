// Package service implements the marketplace facade: the workflows the
// UI calls, composed from the wallet session, the content store and the
// contract gateways.
package service

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/AayushJain09/Polyplace/internal/currency"
	"github.com/AayushJain09/Polyplace/internal/domain"
	"github.com/AayushJain09/Polyplace/internal/metrics"
	"github.com/AayushJain09/Polyplace/shared/logging"
)

// MetadataPolicy decides what a failed per-item metadata resolution
// does to the surrounding browse workflow.
type MetadataPolicy string

const (
	// DropFailed logs the item and leaves it out of the result set.
	DropFailed MetadataPolicy = "drop"
	// PropagateFailed fails the whole workflow.
	PropagateFailed MetadataPolicy = "propagate"
)

// Options tune per-workflow behavior. The zero value reproduces the
// original client: the public market browse drops unresolvable items,
// the per-account browse propagates the failure.
type Options struct {
	MarketPolicy MetadataPolicy
	MinePolicy   MetadataPolicy
}

func (o Options) withDefaults() Options {
	if o.MarketPolicy == "" {
		o.MarketPolicy = DropFailed
	}
	if o.MinePolicy == "" {
		o.MinePolicy = PropagateFailed
	}
	return o
}

// BrowseKind selects which of the caller's item sets to browse.
type BrowseKind string

const (
	BrowseOwned  BrowseKind = "owned"
	BrowseListed BrowseKind = "listed"
)

// Service owns the only mutable state in this layer: the connected
// account and the busy flag. Busy is a cooperative signal for callers;
// the facade does not serialize mutating workflows.
type Service struct {
	wallet  domain.WalletSession
	pinner  domain.Pinner
	reader  domain.MarketReader
	writers domain.WriterFactory
	meta    domain.MetadataClient
	logger  *logging.Logger
	opts    Options

	mu        sync.Mutex
	account   domain.Address
	busy      bool
	onSession []func(domain.Address)
}

func NewMarketplaceService(
	wallet domain.WalletSession,
	pinner domain.Pinner,
	reader domain.MarketReader,
	writers domain.WriterFactory,
	meta domain.MetadataClient,
	logger *logging.Logger,
	opts Options,
) *Service {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Service{
		wallet:  wallet,
		pinner:  pinner,
		reader:  reader,
		writers: writers,
		meta:    meta,
		logger:  logger,
		opts:    opts.withDefaults(),
	}
}

// CurrentAccount returns the connected address, empty while
// disconnected.
func (s *Service) CurrentAccount() domain.Address {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.account
}

// IsBusy reports whether a mutating workflow is between transaction
// submission and confirmation.
func (s *Service) IsBusy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.busy
}

// OnSessionChanged registers an observer fired after a successful
// Connect, so views can refresh without polling the session.
func (s *Service) OnSessionChanged(fn func(account domain.Address)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onSession = append(s.onSession, fn)
}

// Initialize picks up an already-authorized account without prompting.
// A missing wallet provider is not an error: the page must still load.
func (s *Service) Initialize(ctx context.Context) {
	log, done := s.begin("initialize")
	defer done(nil)

	if err := s.wallet.Available(); err != nil {
		log.WithError(err).Info("no wallet provider, starting disconnected")
		return
	}
	accounts := s.wallet.Accounts()
	if len(accounts) == 0 {
		log.Info("no authorized accounts found")
		return
	}

	s.mu.Lock()
	s.account = accounts[0]
	s.mu.Unlock()
	log.WithField("account", accounts[0]).Info("restored wallet session")
}

// Connect authorizes the wallet session interactively and notifies
// session observers. The prior account survives any failure.
func (s *Service) Connect(ctx context.Context) (addr domain.Address, err error) {
	log, done := s.begin("connect")
	defer func() { done(err) }()

	if err = s.wallet.Available(); err != nil {
		return "", err
	}
	addr, err = s.wallet.Connect(ctx)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	s.account = addr
	observers := make([]func(domain.Address), len(s.onSession))
	copy(observers, s.onSession)
	s.mu.Unlock()

	metrics.SessionsConnected.Inc()
	log.WithField("account", addr).Info("wallet connected")
	for _, fn := range observers {
		fn(addr)
	}
	return addr, nil
}

// Mint uploads the artwork and its metadata document, then lists the
// freshly minted token. Empty inputs fail before any network call.
func (s *Service) Mint(ctx context.Context, in domain.MintInput) (listing domain.Listing, err error) {
	if in.Name == "" || in.Description == "" || in.Price == "" || len(in.Asset) == 0 {
		return domain.Listing{}, fmt.Errorf("%w: name, description, price and asset are required", domain.ErrInvalidInput)
	}

	log, done := s.begin("mint")
	defer func() { done(err) }()

	assetRes, err := s.pinner.PinFile(ctx, bytes.NewReader(in.Asset), in.Filename)
	if err != nil {
		return domain.Listing{}, err
	}
	assetURL := s.pinner.GatewayURL(assetRes.CID)
	if assetURL == "" {
		return domain.Listing{}, fmt.Errorf("%w: no gateway URL for cid %q", domain.ErrUploadFailed, assetRes.CID)
	}

	kind := in.Kind
	if kind == "" {
		kind = domain.AssetImage
	}
	doc := domain.TokenMetadata{
		Name:        in.Name,
		Description: in.Description,
		Asset:       domain.AssetRef{Kind: kind, URL: assetURL},
	}
	metaRes, err := s.pinner.PinJSON(ctx, doc, in.Name)
	if err != nil {
		return domain.Listing{}, err
	}
	metadataURL := s.pinner.GatewayURL(metaRes.CID)
	if metadataURL == "" {
		return domain.Listing{}, fmt.Errorf("%w: no gateway URL for cid %q", domain.ErrUploadFailed, metaRes.CID)
	}

	price, err := currency.ToBaseUnits(in.Price)
	if err != nil {
		return domain.Listing{}, err
	}

	s.setBusy(true)
	defer s.setBusy(false)

	signer, err := s.wallet.Signer(ctx)
	if err != nil {
		return domain.Listing{}, err
	}

	listing, err = s.writers(signer).Mint(ctx, metadataURL, price)
	if err != nil {
		return domain.Listing{}, err
	}
	log.WithFields(map[string]interface{}{
		"tokenId":  listing.TokenID,
		"metadata": metadataURL,
	}).Info("token minted and listed")
	return listing, nil
}

// ListForResale relists an owned token at a new price. The existing
// metadata document is reused; nothing is re-uploaded.
func (s *Service) ListForResale(ctx context.Context, tokenID domain.TokenID, priceDecimal string) (listing domain.Listing, err error) {
	if priceDecimal == "" {
		return domain.Listing{}, fmt.Errorf("%w: price is required", domain.ErrInvalidInput)
	}

	log, done := s.begin("resell")
	defer func() { done(err) }()

	price, err := currency.ToBaseUnits(priceDecimal)
	if err != nil {
		return domain.Listing{}, err
	}
	s.setBusy(true)
	defer s.setBusy(false)

	signer, err := s.wallet.Signer(ctx)
	if err != nil {
		return domain.Listing{}, err
	}

	listing, err = s.writers(signer).Resell(ctx, tokenID, price)
	if err != nil {
		return domain.Listing{}, err
	}
	log.WithField("tokenId", tokenID).Info("token relisted")
	return listing, nil
}

// BrowseMarket returns every open listing joined with its metadata.
// Items that cannot be resolved are handled per the market policy
// (dropped and logged by default).
func (s *Service) BrowseMarket(ctx context.Context) (items []domain.MarketItem, err error) {
	log, done := s.begin("browse_market")
	defer func() { done(err) }()

	listings, err := s.reader.MarketItems(ctx)
	if err != nil {
		return nil, err
	}
	return s.join(ctx, log, listings, s.opts.MarketPolicy)
}

// BrowseMine returns the caller's owned or listed items. Resolution
// failures follow the mine policy (propagated by default).
func (s *Service) BrowseMine(ctx context.Context, kind BrowseKind) (items []domain.MarketItem, err error) {
	log, done := s.begin("browse_mine")
	defer func() { done(err) }()

	signer, err := s.wallet.Signer(ctx)
	if err != nil {
		return nil, err
	}
	writer := s.writers(signer)

	var listings []domain.Listing
	switch kind {
	case BrowseOwned:
		listings, err = writer.OwnedItems(ctx)
	case BrowseListed:
		listings, err = writer.ItemsListed(ctx)
	default:
		return nil, fmt.Errorf("%w: unknown browse kind %q", domain.ErrInvalidInput, kind)
	}
	if err != nil {
		return nil, err
	}
	return s.join(ctx, log, listings, s.opts.MinePolicy)
}

// Buy pays the asking price for an item and takes ownership.
func (s *Service) Buy(ctx context.Context, item domain.MarketItem) (listing domain.Listing, err error) {
	log, done := s.begin("buy")
	defer func() { done(err) }()

	signer, err := s.wallet.Signer(ctx)
	if err != nil {
		return domain.Listing{}, err
	}
	price, err := currency.ToBaseUnits(item.Price)
	if err != nil {
		return domain.Listing{}, err
	}

	s.setBusy(true)
	defer s.setBusy(false)

	listing, err = s.writers(signer).Buy(ctx, item.TokenID, price)
	if err != nil {
		return domain.Listing{}, err
	}
	log.WithField("tokenId", item.TokenID).Info("token purchased")
	return listing, nil
}

// join dereferences each listing's metadata document and assembles the
// market item view models, preserving the source order.
func (s *Service) join(ctx context.Context, log *logging.Logger, listings []domain.Listing, policy MetadataPolicy) ([]domain.MarketItem, error) {
	items := make([]domain.MarketItem, 0, len(listings))
	for _, l := range listings {
		uri, err := s.reader.TokenURI(ctx, l.TokenID)
		if err == nil {
			var md domain.TokenMetadata
			md, err = s.meta.Fetch(ctx, uri)
			if err == nil {
				if md.Asset.URL == "" {
					// A document without any asset reference is a
					// data-integrity fault: skip, never crash.
					log.WithField("tokenId", l.TokenID).Warn("metadata document has no asset reference, skipping item")
					metrics.ItemsDropped.Inc()
					continue
				}
				items = append(items, buildItem(l, uri, md))
				continue
			}
		}

		if policy == PropagateFailed {
			return nil, err
		}
		log.WithError(err).WithField("tokenId", l.TokenID).Warn("dropping item with unresolvable metadata")
		metrics.ItemsDropped.Inc()
	}
	return items, nil
}

func buildItem(l domain.Listing, uri string, md domain.TokenMetadata) domain.MarketItem {
	name := md.Name
	if name == "" {
		name = "Unnamed NFT"
	}
	return domain.MarketItem{
		TokenID:     l.TokenID,
		Seller:      l.Seller,
		Owner:       l.Owner,
		Price:       currency.ToDecimalString(l.Price),
		Name:        name,
		Description: md.Description,
		Asset:       md.Asset,
		TokenURI:    uri,
	}
}

func (s *Service) setBusy(v bool) {
	s.mu.Lock()
	s.busy = v
	s.mu.Unlock()
}

func (s *Service) begin(workflow string) (*logging.Logger, func(error)) {
	start := time.Now()
	log := s.logger.WithFields(map[string]interface{}{
		"workflow":    workflow,
		"workflow_id": uuid.New().String(),
	})
	return log, func(err error) {
		metrics.ObserveWorkflow(workflow, time.Since(start).Seconds(), err)
	}
}
