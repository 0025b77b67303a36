/*
Package apitypes is used to map the common types used across the node with the format expected by the API.

This is done using different strategies:
- Marshallers: they get triggered when the API marshals the response structs into JSONs
- Scanners/Valuers: they get triggered when a struct is sent/received to/from the SQL database
- Adhoc functions: when the already mentioned strategies are not suitable, functions are added to the structs to facilitate the conversions
*/
package apitypes

import (
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"

	ethCommon "github.com/ethereum/go-ethereum/common"
	"github.com/hermeznetwork/tracerr"
	"github.com/procurenet/tender-node/common"
)

// BigIntStr is used to scan/value *big.Int directly into strings from/to sql DBs.
// It assumes that *big.Int are inserted/fetched to/from the DB using the BigIntMeddler meddler
// defined at github.com/procurenet/tender-node/auditdb.  Since *big.Int is
// stored as a decimal string in SQL, there's no need to implement Scan()/Value()
// because decimal strings are encoded/decoded as strings by the sql driver, and
// BigIntStr is already a string.
type BigIntStr string

// NewBigIntStr creates a *BigIntStr from a *big.Int.
// If the provided bigInt is nil the returned *BigIntStr will also be nil
func NewBigIntStr(bigInt *big.Int) *BigIntStr {
	if bigInt == nil {
		return nil
	}
	bigIntStr := BigIntStr(bigInt.String())
	return &bigIntStr
}

// StrBigInt is used to unmarshal BigIntStr directly into an alias of big.Int
type StrBigInt big.Int

// UnmarshalText unmarshals a StrBigInt
func (s *StrBigInt) UnmarshalText(text []byte) error {
	bi, ok := (*big.Int)(s).SetString(string(text), 10)
	if !ok {
		return tracerr.Wrap(fmt.Errorf("could not unmarshal %s into a StrBigInt", text))
	}
	*s = StrBigInt(*bi)
	return nil
}

// StrEthAddr is used to unmarshal an Ethereum address in its 0x hex string
// form directly into an alias of ethCommon.Address
type StrEthAddr ethCommon.Address

// UnmarshalText unmarshals a StrEthAddr
func (s *StrEthAddr) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*s = StrEthAddr(common.EmptyAddr)
		return nil
	}
	var addr ethCommon.Address
	if err := addr.UnmarshalText(text); err != nil {
		return tracerr.Wrap(err)
	}
	*s = StrEthAddr(addr)
	return nil
}

// HexBytes is used to marshal/unmarshal 0x prefixed hex strings from/to raw
// bytes across the API. It is used for the bid nonces, which are opaque byte
// strings chosen by the bidder.
type HexBytes []byte

// NewHexBytes creates a *HexBytes from a []byte.
// If the provided bytes are nil the returned *HexBytes will also be nil
func NewHexBytes(b []byte) *HexBytes {
	if b == nil {
		return nil
	}
	hexBytes := HexBytes(b)
	return &hexBytes
}

// UnmarshalText unmarshals a HexBytes
func (h *HexBytes) UnmarshalText(text []byte) error {
	without0x := strings.TrimPrefix(string(text), "0x")
	b, err := hex.DecodeString(without0x)
	if err != nil {
		return tracerr.Wrap(err)
	}
	*h = HexBytes(b)
	return nil
}

// MarshalText marshals a HexBytes
func (h HexBytes) MarshalText() ([]byte, error) {
	return []byte("0x" + hex.EncodeToString(h)), nil
}
