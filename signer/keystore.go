package signer

import (
	"context"
	"fmt"
	"math/big"

	"github.com/dexwallet/tx-manager/sender"
	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/common"
	ethTypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/hermeznetwork/tracerr"
)

// Config for the keystore signer manager
type Config struct {
	// KeystorePath is the directory holding the encrypted key files
	KeystorePath string `mapstructure:"KeystorePath"`

	// Password decrypts the key files
	Password string `mapstructure:"Password"`
}

// KeystoreManager produces signers backed by an on-disk encrypted keystore
type KeystoreManager struct {
	keystore *keystore.KeyStore
	password string
}

// NewKeystoreManager opens the keystore directory
func NewKeystoreManager(cfg Config) *KeystoreManager {
	return &KeystoreManager{
		keystore: keystore.NewKeyStore(cfg.KeystorePath, keystore.StandardScryptN, keystore.StandardScryptP),
		password: cfg.Password,
	}
}

// SignerFor returns a signer for the account, failing when the keystore has no key for it
func (m *KeystoreManager) SignerFor(ctx context.Context, account common.Address) (sender.Signer, error) {
	if !m.keystore.HasAddress(account) {
		return nil, tracerr.Wrap(fmt.Errorf("keystore has no key for account %s", account.Hex()))
	}
	return &keystoreSigner{manager: m, account: accounts.Account{Address: account}}, nil
}

type keystoreSigner struct {
	manager *KeystoreManager
	account accounts.Account
}

func (s *keystoreSigner) SignTx(account common.Address, tx *ethTypes.Transaction, chainID *big.Int) (*ethTypes.Transaction, error) {
	if account != s.account.Address {
		return nil, tracerr.Wrap(fmt.Errorf("signer bound to %s cannot sign for %s", s.account.Address.Hex(), account.Hex()))
	}
	signed, err := s.manager.keystore.SignTxWithPassphrase(s.account, s.manager.password, tx, chainID)
	if err != nil {
		return nil, tracerr.Wrap(err)
	}
	return signed, nil
}
