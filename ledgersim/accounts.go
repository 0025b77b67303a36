package ledgersim

import (
	"fmt"

	ethCommon "github.com/ethereum/go-ethereum/common"
	"github.com/hermeznetwork/tracerr"
	hdwallet "github.com/miguelmota/go-ethereum-hdwallet"
)

// DevMnemonic is the default mnemonic the dev network derives its accounts
// from. It is public, never use it with real funds.
const DevMnemonic = "test test test test test test test test test test test junk"

// DevAccount is one derived dev network identity
type DevAccount struct {
	Address ethCommon.Address
	// PrivateKeyHex is the hex encoded private key without 0x prefix,
	// importable into a keystore
	PrivateKeyHex string
}

// DevAccounts derives n accounts from the mnemonic following the standard
// ethereum derivation path m/44'/60'/0'/0/index.
func DevAccounts(mnemonic string, n int) ([]DevAccount, error) {
	wallet, err := hdwallet.NewFromMnemonic(mnemonic)
	if err != nil {
		return nil, tracerr.Wrap(err)
	}
	accounts := make([]DevAccount, n)
	for i := 0; i < n; i++ {
		path := hdwallet.MustParseDerivationPath(
			fmt.Sprintf("m/44'/60'/0'/0/%d", i))
		account, err := wallet.Derive(path, false)
		if err != nil {
			return nil, tracerr.Wrap(err)
		}
		keyHex, err := wallet.PrivateKeyHex(account)
		if err != nil {
			return nil, tracerr.Wrap(err)
		}
		accounts[i] = DevAccount{
			Address:       account.Address,
			PrivateKeyHex: keyHex,
		}
	}
	return accounts, nil
}
