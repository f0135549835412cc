// Package wallet manages the signing session. The provider is a
// go-ethereum keystore directory; authorizing the session means
// unlocking an account and proving ownership with a SIWE message.
package wallet

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	siwe "github.com/spruceid/siwe-go"

	"github.com/AayushJain09/Polyplace/internal/config"
	"github.com/AayushJain09/Polyplace/internal/domain"
)

// Session implements domain.WalletSession. Once connected it stays
// connected; the handle for the active account is cached for the life
// of the session rather than re-acquired per call.
type Session struct {
	ks      *keystore.KeyStore
	cfg     config.WalletConfig
	chainID *big.Int

	mu        sync.Mutex
	connected bool
	account   accounts.Account
	signer    domain.TxSigner
}

func NewSession(cfg config.WalletConfig, chainID int64) *Session {
	var ks *keystore.KeyStore
	if cfg.KeystoreDir != "" {
		ks = keystore.NewKeyStore(cfg.KeystoreDir, keystore.StandardScryptN, keystore.StandardScryptP)
	}
	return newSession(ks, cfg, chainID)
}

func newSession(ks *keystore.KeyStore, cfg config.WalletConfig, chainID int64) *Session {
	return &Session{
		ks:      ks,
		cfg:     cfg,
		chainID: big.NewInt(chainID),
	}
}

// Available reports whether a signing backend with at least one account
// exists in this environment.
func (s *Session) Available() error {
	if s.ks == nil {
		return fmt.Errorf("%w: no keystore configured", domain.ErrProviderUnavailable)
	}
	if len(s.ks.Accounts()) == 0 {
		return fmt.Errorf("%w: keystore holds no accounts", domain.ErrProviderUnavailable)
	}
	return nil
}

// Accounts lists authorized addresses without touching key material.
func (s *Session) Accounts() []domain.Address {
	if s.ks == nil {
		return nil
	}
	accts := s.ks.Accounts()
	out := make([]domain.Address, 0, len(accts))
	for _, a := range accts {
		out = append(out, a.Address.Hex())
	}
	return out
}

// Connect unlocks the first account and proves it controls its address
// by signing and verifying a SIWE message. The session's active account
// is fixed from here on.
func (s *Session) Connect(ctx context.Context) (domain.Address, error) {
	if err := s.Available(); err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.connected {
		return s.account.Address.Hex(), nil
	}

	acct := s.ks.Accounts()[0]
	if err := s.ks.Unlock(acct, s.cfg.Passphrase); err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrConnectionRejected, err)
	}
	if err := s.proveOwnership(acct); err != nil {
		return "", err
	}

	s.connected = true
	s.account = acct
	return acct.Address.Hex(), nil
}

// Signer returns the cached signing handle for the connected account.
func (s *Session) Signer(ctx context.Context) (domain.TxSigner, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.connected {
		return nil, fmt.Errorf("%w: session not connected", domain.ErrNoSigner)
	}
	if s.signer == nil {
		s.signer = &keystoreSigner{ks: s.ks, account: s.account, chainID: s.chainID}
	}
	return s.signer, nil
}

// proveOwnership signs a fresh SIWE message with the unlocked key and
// verifies the signature recovers the account address.
func (s *Session) proveOwnership(acct accounts.Account) error {
	msg, err := siwe.InitMessage(
		s.cfg.SIWEDomain,
		acct.Address.Hex(),
		s.cfg.SIWEURI,
		siwe.GenerateNonce(),
		map[string]interface{}{
			"statement": "Polyplace marketplace session",
			"chainId":   int(s.chainID.Int64()),
		},
	)
	if err != nil {
		return fmt.Errorf("%w: build siwe message: %v", domain.ErrConnectionRejected, err)
	}

	sig, err := s.ks.SignHash(acct, accounts.TextHash([]byte(msg.String())))
	if err != nil {
		return fmt.Errorf("%w: sign siwe message: %v", domain.ErrConnectionRejected, err)
	}
	// Keystore signatures carry V as 0/1; EIP-191 verification expects
	// the legacy 27/28 form.
	sig[64] += 27

	if _, err := msg.Verify(hexutil.Encode(sig), nil, nil, nil); err != nil {
		return fmt.Errorf("%w: ownership proof: %v", domain.ErrConnectionRejected, err)
	}
	return nil
}

// keystoreSigner binds transaction signing to one unlocked account.
type keystoreSigner struct {
	ks      *keystore.KeyStore
	account accounts.Account
	chainID *big.Int
}

func (k *keystoreSigner) Address() common.Address {
	return k.account.Address
}

func (k *keystoreSigner) SignTx(tx *types.Transaction) (*types.Transaction, error) {
	signed, err := k.ks.SignTx(k.account, tx, k.chainID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrNoSigner, err)
	}
	return signed, nil
}
