package apitypes

import (
	"encoding/json"
	"math/big"
	"testing"

	ethCommon "github.com/ethereum/go-ethereum/common"
	"github.com/procurenet/tender-node/common"
	"github.com/stretchr/testify/assert"
)

func TestNewBigIntStr(t *testing.T) {
	assert.Nil(t, NewBigIntStr(nil))
	bigIntStr := NewBigIntStr(big.NewInt(74684))
	assert.Equal(t, BigIntStr("74684"), *bigIntStr)
	two256 := new(big.Int).Exp(big.NewInt(2), big.NewInt(256), nil)
	assert.Equal(t, two256.String(), string(*NewBigIntStr(two256)))
}

func TestStrBigInt(t *testing.T) {
	type testStrBigInt struct {
		I StrBigInt
	}
	from := []byte(`{"I":"4"}`)
	to := &testStrBigInt{}
	assert.NoError(t, json.Unmarshal(from, to))
	assert.Equal(t, big.NewInt(4), (*big.Int)(&to.I))
	// Not a decimal string
	from = []byte(`{"I":"0xff"}`)
	assert.Error(t, json.Unmarshal(from, &testStrBigInt{}))
}

func TestStrEthAddr(t *testing.T) {
	type testStrEthAddr struct {
		I StrEthAddr
	}
	addrStr := "0xaa942cfcd25ad4d90a62358b0dd84f33b398262a"
	from := []byte(`{"I":"` + addrStr + `"}`)
	var addr ethCommon.Address
	if err := addr.UnmarshalText([]byte(addrStr)); err != nil {
		panic(err)
	}
	to := &testStrEthAddr{}
	assert.NoError(t, json.Unmarshal(from, to))
	assert.Equal(t, addr, ethCommon.Address(to.I))
	// Empty address
	from = []byte(`{"I":""}`)
	to = &testStrEthAddr{}
	assert.NoError(t, json.Unmarshal(from, to))
	assert.Equal(t, common.EmptyAddr, ethCommon.Address(to.I))
	// Not an address
	from = []byte(`{"I":"0xG0000001"}`)
	assert.Error(t, json.Unmarshal(from, &testStrEthAddr{}))
}

func TestHexBytes(t *testing.T) {
	type testHexBytes struct {
		I HexBytes
	}
	from := []byte(`{"I":"0xdeadbeef"}`)
	to := &testHexBytes{}
	assert.NoError(t, json.Unmarshal(from, to))
	assert.Equal(t, HexBytes{0xde, 0xad, 0xbe, 0xef}, to.I)
	// Without the 0x prefix
	from = []byte(`{"I":"cafe"}`)
	to = &testHexBytes{}
	assert.NoError(t, json.Unmarshal(from, to))
	assert.Equal(t, HexBytes{0xca, 0xfe}, to.I)
	// Round trip
	marshaled, err := json.Marshal(&testHexBytes{I: HexBytes{0xde, 0xad, 0xbe, 0xef}})
	assert.NoError(t, err)
	assert.Equal(t, `{"I":"0xdeadbeef"}`, string(marshaled))
	// Not hex
	from = []byte(`{"I":"0xzz"}`)
	assert.Error(t, json.Unmarshal(from, &testHexBytes{}))
}
