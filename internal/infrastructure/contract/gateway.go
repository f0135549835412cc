// Package contract wraps the marketplace ledger's read and write
// operations behind the gateway interfaces the facade consumes.
package contract

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/AayushJain09/Polyplace/internal/domain"
)

// marketItemRow mirrors the contract's MarketItem tuple.
type marketItemRow struct {
	TokenId *big.Int
	Seller  common.Address
	Owner   common.Address
	Price   *big.Int
	Sold    bool
}

// Reader is the read-only gateway over public RPC. It needs no signer.
type Reader struct {
	client          *ethclient.Client
	contractAddress common.Address
	contractABI     abi.ABI
}

func NewReader(client *ethclient.Client, contractAddr string) (*Reader, error) {
	parsedABI, err := abi.JSON(strings.NewReader(MarketplaceABI))
	if err != nil {
		return nil, fmt.Errorf("parse marketplace ABI: %w", err)
	}
	return &Reader{
		client:          client,
		contractAddress: common.HexToAddress(contractAddr),
		contractABI:     parsedABI,
	}, nil
}

func (r *Reader) ContractAddress() string {
	return r.contractAddress.Hex()
}

func (r *Reader) ListingPrice(ctx context.Context) (*big.Int, error) {
	result, err := r.call(ctx, nil, "getListingPrice")
	if err != nil {
		return nil, err
	}
	out, err := r.contractABI.Unpack("getListingPrice", result)
	if err != nil {
		return nil, fmt.Errorf("%w: decode getListingPrice: %v", domain.ErrGatewayCall, err)
	}
	return out[0].(*big.Int), nil
}

func (r *Reader) MarketItems(ctx context.Context) ([]domain.Listing, error) {
	return r.fetchListings(ctx, nil, "fetchMarketItems")
}

func (r *Reader) TokenURI(ctx context.Context, tokenID domain.TokenID) (string, error) {
	result, err := r.call(ctx, nil, "tokenURI", new(big.Int).SetUint64(tokenID))
	if err != nil {
		return "", err
	}
	out, err := r.contractABI.Unpack("tokenURI", result)
	if err != nil {
		return "", fmt.Errorf("%w: decode tokenURI: %v", domain.ErrGatewayCall, err)
	}
	return out[0].(string), nil
}

// fetchListings runs one of the MarketItem[] views. A non-nil from is
// set as the call sender so msg.sender-dependent views resolve.
func (r *Reader) fetchListings(ctx context.Context, from *common.Address, method string) ([]domain.Listing, error) {
	result, err := r.call(ctx, from, method)
	if err != nil {
		return nil, err
	}
	return r.decodeListings(method, result)
}

func (r *Reader) decodeListings(method string, result []byte) ([]domain.Listing, error) {
	var rows []marketItemRow
	if err := r.contractABI.UnpackIntoInterface(&rows, method, result); err != nil {
		return nil, fmt.Errorf("%w: decode %s: %v", domain.ErrGatewayCall, method, err)
	}

	listings := make([]domain.Listing, 0, len(rows))
	for _, row := range rows {
		listings = append(listings, domain.Listing{
			TokenID: row.TokenId.Uint64(),
			Seller:  row.Seller.Hex(),
			Owner:   row.Owner.Hex(),
			Price:   row.Price,
			Sold:    row.Sold,
		})
	}
	return listings, nil
}

func (r *Reader) call(ctx context.Context, from *common.Address, method string, args ...interface{}) ([]byte, error) {
	data, err := r.contractABI.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: pack %s: %v", domain.ErrGatewayCall, method, err)
	}

	msg := ethereum.CallMsg{
		To:   &r.contractAddress,
		Data: data,
	}
	if from != nil {
		msg.From = *from
	}

	result, err := r.client.CallContract(ctx, msg, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrGatewayCall, method, err)
	}
	return result, nil
}

// Writer is the signer-bound gateway. Every mutating call is two-phase:
// submit, then block on confirmation. Submitted transactions cannot be
// aborted; the ctx only bounds how long we wait.
type Writer struct {
	*Reader
	signer domain.TxSigner
}

func NewWriter(reader *Reader, signer domain.TxSigner) *Writer {
	return &Writer{Reader: reader, signer: signer}
}

// Mint lists a freshly minted token, paying the current listing fee as
// the call's value.
func (w *Writer) Mint(ctx context.Context, metadataURL string, price *big.Int) (domain.Listing, error) {
	fee, err := w.ListingPrice(ctx)
	if err != nil {
		return domain.Listing{}, err
	}

	receipt, err := w.transact(ctx, "createToken", fee, metadataURL, price)
	if err != nil {
		return domain.Listing{}, err
	}
	return w.listingFromReceipt(receipt, price), nil
}

// Resell relists an owned token, paying the listing fee again.
func (w *Writer) Resell(ctx context.Context, tokenID domain.TokenID, price *big.Int) (domain.Listing, error) {
	fee, err := w.ListingPrice(ctx)
	if err != nil {
		return domain.Listing{}, err
	}

	receipt, err := w.transact(ctx, "resellToken", fee, new(big.Int).SetUint64(tokenID), price)
	if err != nil {
		return domain.Listing{}, err
	}

	listing := w.listingFromReceipt(receipt, price)
	if listing.TokenID == 0 && tokenID != 0 {
		listing.TokenID = tokenID
	}
	return listing, nil
}

// Buy pays the asking price as the call's value and takes ownership.
func (w *Writer) Buy(ctx context.Context, tokenID domain.TokenID, price *big.Int) (domain.Listing, error) {
	if _, err := w.transact(ctx, "createMarketSale", price, new(big.Int).SetUint64(tokenID)); err != nil {
		return domain.Listing{}, err
	}
	// The sale clears the seller and hands the token to the caller.
	return domain.Listing{
		TokenID: tokenID,
		Seller:  (common.Address{}).Hex(),
		Owner:   w.signer.Address().Hex(),
		Price:   price,
		Sold:    true,
	}, nil
}

func (w *Writer) ItemsListed(ctx context.Context) ([]domain.Listing, error) {
	from := w.signer.Address()
	return w.fetchListings(ctx, &from, "fetchItemsListed")
}

func (w *Writer) OwnedItems(ctx context.Context) ([]domain.Listing, error) {
	from := w.signer.Address()
	return w.fetchListings(ctx, &from, "fetchMyNFTs")
}

// transact packs, prices, signs and submits one contract call, then
// waits for the ledger to finalize it.
func (w *Writer) transact(ctx context.Context, method string, value *big.Int, args ...interface{}) (*types.Receipt, error) {
	data, err := w.contractABI.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: pack %s: %v", domain.ErrGatewayCall, method, err)
	}

	from := w.signer.Address()
	nonce, err := w.client.PendingNonceAt(ctx, from)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: nonce: %v", domain.ErrGatewayCall, method, err)
	}
	gasPrice, err := w.client.SuggestGasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: gas price: %v", domain.ErrGatewayCall, method, err)
	}
	gasLimit, err := w.client.EstimateGas(ctx, ethereum.CallMsg{
		From:  from,
		To:    &w.contractAddress,
		Value: value,
		Data:  data,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %s: estimate gas: %v", domain.ErrGatewayCall, method, err)
	}

	tx := types.NewTransaction(nonce, w.contractAddress, value, gasLimit, gasPrice, data)
	signed, err := w.signer.SignTx(tx)
	if err != nil {
		return nil, err
	}

	if err := w.client.SendTransaction(ctx, signed); err != nil {
		return nil, fmt.Errorf("%w: %s: submit: %v", domain.ErrGatewayCall, method, err)
	}

	receipt, err := bind.WaitMined(ctx, w.client, signed)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: confirmation: %v", domain.ErrGatewayCall, method, err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return nil, fmt.Errorf("%w: %s: transaction reverted (tx %s)", domain.ErrGatewayCall, method, signed.Hash().Hex())
	}
	return receipt, nil
}

// listingFromReceipt decodes the MarketItemCreated event. When the log
// is missing (older contract builds) the listing is reconstructed from
// the call's inputs.
func (w *Writer) listingFromReceipt(receipt *types.Receipt, price *big.Int) domain.Listing {
	event := w.contractABI.Events["MarketItemCreated"]

	for _, vLog := range receipt.Logs {
		if vLog.Address != w.contractAddress || len(vLog.Topics) < 2 || vLog.Topics[0] != event.ID {
			continue
		}

		listing := domain.Listing{
			TokenID: new(big.Int).SetBytes(vLog.Topics[1].Bytes()).Uint64(),
			Price:   price,
		}

		data := make(map[string]interface{})
		if err := w.contractABI.UnpackIntoMap(data, "MarketItemCreated", vLog.Data); err != nil {
			return listing
		}
		if seller, ok := data["seller"].(common.Address); ok {
			listing.Seller = seller.Hex()
		}
		if owner, ok := data["owner"].(common.Address); ok {
			listing.Owner = owner.Hex()
		}
		if p, ok := data["price"].(*big.Int); ok {
			listing.Price = p
		}
		if sold, ok := data["sold"].(bool); ok {
			listing.Sold = sold
		}
		return listing
	}

	// No event in the receipt; the seller is the caller and escrow
	// holds the token until it sells.
	return domain.Listing{
		Seller: w.signer.Address().Hex(),
		Owner:  w.contractAddress.Hex(),
		Price:  price,
	}
}
