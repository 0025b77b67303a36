package common

import (
	"math/big"
	"testing"

	ethCommon "github.com/ethereum/go-ethereum/common"
	"github.com/hermeznetwork/tracerr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBidCommitment(t *testing.T) {
	nonce := make([]byte, 32)
	for i := range nonce {
		nonce[i] = byte(i + 1)
	}
	commit, err := BidCommitment(big.NewInt(1000), nonce)
	require.NoError(t, err)
	assert.Equal(t,
		"0x6a983bb7ed510e90cc593816c856bee8a31a129c640ffdd7d9e718d4c55af874",
		commit.Hex(),
	)

	commit, err = BidCommitment(big.NewInt(250000), []byte("procurement-nonce-1"))
	require.NoError(t, err)
	assert.Equal(t,
		"0xf044aefa42f2cfe4158a480fd01a44303e41c88753ca3d6b9982c664efb4422b",
		commit.Hex(),
	)
}

func TestBidCommitmentBinding(t *testing.T) {
	nonce := []byte("fixed-nonce")
	a, err := BidCommitment(big.NewInt(500), nonce)
	require.NoError(t, err)
	b, err := BidCommitment(big.NewInt(501), nonce)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)

	c, err := BidCommitment(big.NewInt(500), []byte("other-nonce"))
	require.NoError(t, err)
	assert.NotEqual(t, a, c)

	again, err := BidCommitment(big.NewInt(500), nonce)
	require.NoError(t, err)
	assert.Equal(t, a, again)
}

func TestBidCommitmentRejects(t *testing.T) {
	_, err := BidCommitment(nil, []byte{1})
	assert.Equal(t, ErrNegativeAmount, tracerr.Unwrap(err))

	_, err = BidCommitment(big.NewInt(-1), []byte{1})
	assert.Equal(t, ErrNegativeAmount, tracerr.Unwrap(err))

	_, err = BidCommitment(big.NewInt(1), nil)
	assert.Equal(t, ErrEmptyNonce, tracerr.Unwrap(err))

	tooBig := new(big.Int).Lsh(big.NewInt(1), 256)
	_, err = BidCommitment(tooBig, []byte{1})
	assert.Equal(t, ErrAmountOverflow, tracerr.Unwrap(err))

	// 256 bits exactly still fits
	maxVal := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))
	_, err = BidCommitment(maxVal, []byte{1})
	assert.NoError(t, err)
}

func TestBidCopy(t *testing.T) {
	bid := &Bid{
		TenderID:       3,
		Bidder:         ethCommon.HexToAddress("0x1111111111111111111111111111111111111111"),
		CommitHash:     ethCommon.HexToHash("0x02"),
		RevealedAmount: big.NewInt(42),
		Revealed:       true,
		Valid:          true,
		RevealedAt:     100,
	}
	cpy := bid.Copy()
	assert.Equal(t, bid, cpy)
	cpy.RevealedAmount.SetInt64(43)
	assert.Equal(t, int64(42), bid.RevealedAmount.Int64())
}
