package common

import (
	"math/big"
)

// CopyBigInt returns a copy of the big int
func CopyBigInt(a *big.Int) *big.Int {
	return new(big.Int).Set(a)
}
