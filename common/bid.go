package common

import (
	"math/big"

	ethCommon "github.com/ethereum/go-ethereum/common"
	ethCrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/hermeznetwork/tracerr"
)

// EmptyAddr is the zero ethereum address, used as the null identity
var EmptyAddr = ethCommon.Address{}

// EmptyHash is the zero hash, rejected as a bid commitment
var EmptyHash = ethCommon.Hash{}

// Bid is the sealed bid of one bidder on one tender
type Bid struct {
	TenderID TenderID          `json:"tenderId"`
	Bidder   ethCommon.Address `json:"bidder"`
	// CommitHash is the commitment submitted during the bid submission
	// phase, binding the bidder to one (amount, nonce) pair
	CommitHash ethCommon.Hash `json:"commitHash"`
	// RevealedAmount is nil until the bid has been revealed
	RevealedAmount *big.Int `json:"revealedAmount"`
	Revealed       bool     `json:"revealed"`
	// Valid marks a revealed bid that respects the budget ceiling
	Valid bool `json:"valid"`
	// RevealedAt is the ledger time of the reveal, 0 while unrevealed
	RevealedAt int64 `json:"revealedAt"`
}

// Copy returns a deep copy of the bid
func (b *Bid) Copy() *Bid {
	bCpy := *b
	if b.RevealedAmount != nil {
		bCpy.RevealedAmount = CopyBigInt(b.RevealedAmount)
	}
	return &bCpy
}

// BidCommitment computes the hash that seals a bid: the Keccak256 digest of
// the amount encoded as a 32 byte big endian unsigned integer followed by
// the nonce. The amount must be non negative and fit in 256 bits, and the
// nonce must not be empty.
func BidCommitment(amount *big.Int, nonce []byte) (ethCommon.Hash, error) {
	if amount == nil || amount.Sign() < 0 {
		return EmptyHash, tracerr.Wrap(ErrNegativeAmount)
	}
	if amount.BitLen() > 256 {
		return EmptyHash, tracerr.Wrap(ErrAmountOverflow)
	}
	if len(nonce) == 0 {
		return EmptyHash, tracerr.Wrap(ErrEmptyNonce)
	}
	var amountBuf [32]byte
	amountBytes := amount.Bytes()
	copy(amountBuf[32-len(amountBytes):], amountBytes)
	return ethCrypto.Keccak256Hash(amountBuf[:], nonce), nil
}
