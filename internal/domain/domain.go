package domain

import (
	"context"
	"encoding/json"
	"io"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// Type aliases for better readability
type Address = string
type TokenID = uint64

//
// =============== Domain Types ===============
//

// AssetKind tags the visual asset a token's metadata points at.
type AssetKind string

const (
	AssetImage AssetKind = "image"
	AssetAudio AssetKind = "audio"
)

// AssetRef is the tagged asset reference inside a metadata document:
// exactly one URL, selected by Kind.
type AssetRef struct {
	Kind AssetKind
	URL  string
}

// TokenMetadata is the immutable JSON document pinned alongside a token.
// On the wire it carries image/animation_url keys chosen by assetType.
type TokenMetadata struct {
	Name        string
	Description string
	Asset       AssetRef
}

type metadataWire struct {
	Name         string `json:"name"`
	Description  string `json:"description"`
	AssetType    string `json:"assetType"`
	Image        string `json:"image,omitempty"`
	AnimationURL string `json:"animation_url,omitempty"`
}

func (m TokenMetadata) MarshalJSON() ([]byte, error) {
	w := metadataWire{
		Name:        m.Name,
		Description: m.Description,
		AssetType:   string(m.Asset.Kind),
	}
	if m.Asset.Kind == AssetAudio {
		w.AnimationURL = m.Asset.URL
	} else {
		w.Image = m.Asset.URL
	}
	return json.Marshal(w)
}

func (m *TokenMetadata) UnmarshalJSON(data []byte) error {
	var w metadataWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	m.Name = w.Name
	m.Description = w.Description
	switch AssetKind(w.AssetType) {
	case AssetAudio:
		m.Asset = AssetRef{Kind: AssetAudio, URL: w.AnimationURL}
	default:
		m.Asset = AssetRef{Kind: AssetImage, URL: w.Image}
	}
	// Documents in the wild sometimes omit assetType; fall back to
	// whichever URL is actually present.
	if m.Asset.URL == "" {
		if w.AnimationURL != "" {
			m.Asset = AssetRef{Kind: AssetAudio, URL: w.AnimationURL}
		} else if w.Image != "" {
			m.Asset = AssetRef{Kind: AssetImage, URL: w.Image}
		}
	}
	return nil
}

// Listing is the on-ledger sale record for one token. Price is in base
// units (wei). A sold listing keeps its tokenId forever.
type Listing struct {
	TokenID TokenID
	Seller  Address
	Owner   Address
	Price   *big.Int
	Sold    bool
}

// MarketItem joins a Listing with its dereferenced metadata document.
// Price is a human-readable decimal string; base units never leave the
// facade.
type MarketItem struct {
	TokenID     TokenID
	Seller      Address
	Owner       Address
	Price       string
	Name        string
	Description string
	Asset       AssetRef
	TokenURI    string
}

// MarshalJSON emits the legacy flat shape the UI consumes, including the
// duplicated "i" fallback index.
func (it MarketItem) MarshalJSON() ([]byte, error) {
	w := struct {
		Price        string  `json:"price"`
		TokenID      TokenID `json:"tokenId"`
		Seller       Address `json:"seller"`
		Owner        Address `json:"owner"`
		Image        string  `json:"image,omitempty"`
		AnimationURL string  `json:"animation_url,omitempty"`
		Name         string  `json:"name"`
		Description  string  `json:"description"`
		AssetType    string  `json:"assetType"`
		TokenURI     string  `json:"tokenURI"`
		I            TokenID `json:"i"`
	}{
		Price:       it.Price,
		TokenID:     it.TokenID,
		Seller:      it.Seller,
		Owner:       it.Owner,
		Name:        it.Name,
		Description: it.Description,
		AssetType:   string(it.Asset.Kind),
		TokenURI:    it.TokenURI,
		I:           it.TokenID,
	}
	if it.Asset.Kind == AssetAudio {
		w.AnimationURL = it.Asset.URL
	} else {
		w.Image = it.Asset.URL
	}
	return json.Marshal(w)
}

// MintInput carries everything the mint workflow needs from the caller.
// Price is a decimal string in human units.
type MintInput struct {
	Asset       []byte
	Filename    string
	Name        string
	Description string
	Price       string
	Kind        AssetKind
}

//
// =============== Infra: Pinner (Pinata) ===============
//

type PinResult struct {
	CID         string `json:"IpfsHash"`
	Size        int64  `json:"PinSize"`
	IsDuplicate bool   `json:"IsDuplicate"`
}

type Pinner interface {
	PinFile(ctx context.Context, r io.Reader, name string) (PinResult, error)
	PinJSON(ctx context.Context, v any, name string) (PinResult, error)
	Unpin(ctx context.Context, cid string) error
	GatewayURL(cid string) string
}

//
// =============== Infra: Wallet Session ===============
//

// TxSigner is the signing capability bound to one account, handed out by
// the wallet session and consumed by the signer-bound gateway.
type TxSigner interface {
	Address() common.Address
	SignTx(tx *types.Transaction) (*types.Transaction, error)
}

// WalletSession owns the connection to the signing backend. Once
// Connected there is no transition back to Disconnected inside this
// layer; disconnection is only observed by re-querying accounts.
type WalletSession interface {
	// Available reports ErrProviderUnavailable when no signing backend
	// is present in the environment.
	Available() error

	// Accounts lists already-authorized addresses without prompting.
	Accounts() []Address

	// Connect authorizes the session interactively and returns the
	// active address. ErrConnectionRejected when authorization fails.
	Connect(ctx context.Context) (Address, error)

	// Signer returns the signing handle for the connected account.
	// ErrNoSigner while the session is not connected.
	Signer(ctx context.Context) (TxSigner, error)
}

//
// =============== Infra: Contract Gateway ===============
//

// MarketReader is the read-only gateway over public RPC.
type MarketReader interface {
	ListingPrice(ctx context.Context) (*big.Int, error)
	MarketItems(ctx context.Context) ([]Listing, error)
	TokenURI(ctx context.Context, tokenID TokenID) (string, error)
}

// MarketWriter is the signer-bound gateway. Mutating calls are two-phase:
// they submit a transaction and block until the ledger finalizes it.
type MarketWriter interface {
	Mint(ctx context.Context, metadataURL string, price *big.Int) (Listing, error)
	Resell(ctx context.Context, tokenID TokenID, price *big.Int) (Listing, error)
	Buy(ctx context.Context, tokenID TokenID, price *big.Int) (Listing, error)
	ItemsListed(ctx context.Context) ([]Listing, error)
	OwnedItems(ctx context.Context) ([]Listing, error)
}

// WriterFactory binds a signer to a mutating gateway.
type WriterFactory func(signer TxSigner) MarketWriter

//
// =============== Infra: Metadata ===============
//

type MetadataClient interface {
	Fetch(ctx context.Context, url string) (TokenMetadata, error)
}
