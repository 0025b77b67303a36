package common

import "errors"

// ErrNegativeAmount is used when an amount that must be non negative is
// negative or missing
var ErrNegativeAmount = errors.New("amount must be a non negative integer")

// ErrAmountOverflow is used when an amount does not fit in 256 bits
var ErrAmountOverflow = errors.New("amount overflows 256 bits")

// ErrEmptyNonce is used when a bid commitment is computed over an empty nonce
var ErrEmptyNonce = errors.New("nonce must not be empty")
