package wallet

import (
	"encoding/hex"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	hdwallet "github.com/miguelmota/go-ethereum-hdwallet"
	"gitlab.com/SmartLease/leaserouter/internal/lib"
)

// Wallet holds one signing account, created either from a raw private key
// or derived from a BIP-39 mnemonic.
type Wallet struct {
	privKeyHex string
	address    common.Address
}

func NewWalletFromPrivateKeyStr(privKeyHex string) (*Wallet, error) {
	addr, err := lib.PrivKeyStringToAddr(privKeyHex)
	if err != nil {
		return nil, err
	}
	return &Wallet{privKeyHex: privKeyHex, address: addr}, nil
}

// NewWalletFromMnemonic derives the account at the standard ethereum path
// m/44'/60'/0'/0/<accountIndex>.
func NewWalletFromMnemonic(mnemonic string, accountIndex int) (*Wallet, error) {
	w, err := hdwallet.NewFromMnemonic(mnemonic)
	if err != nil {
		return nil, err
	}
	path, err := hdwallet.ParseDerivationPath(fmt.Sprintf("m/44'/60'/0'/0/%d", accountIndex))
	if err != nil {
		return nil, err
	}
	account, err := w.Derive(path, false)
	if err != nil {
		return nil, err
	}
	privKey, err := w.PrivateKey(account)
	if err != nil {
		return nil, err
	}
	return &Wallet{
		privKeyHex: hex.EncodeToString(crypto.FromECDSA(privKey)),
		address:    account.Address,
	}, nil
}

func (w *Wallet) PrivateKey() string {
	return w.privKeyHex
}

func (w *Wallet) Address() common.Address {
	return w.address
}
