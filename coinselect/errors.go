// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package coinselect

import (
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcutil"
)

var (
	// ErrInsufficientFunds is returned when the spendable candidates do
	// not cover the outputs and the fee.
	ErrInsufficientFunds = errors.New("not enough funds")

	// ErrFeeTooHigh is returned when the fee exceeds the configured
	// maximum.
	ErrFeeTooHigh = errors.New("fee is too high")

	// ErrCannotSubtractFee is returned when no output can absorb the fee
	// and still clear its dust threshold.
	ErrCannotSubtractFee = errors.New("could not subtract fee")
)

// FundingError is returned when a transaction cannot be funded. It carries
// the amounts involved so the failure can be reported to the user, and
// unwraps to one of ErrInsufficientFunds, ErrFeeTooHigh or
// ErrCannotSubtractFee.
type FundingError struct {
	// Reason is the sentinel describing the failure.
	Reason error

	// Available is the amount that was gathered, or the fee that was
	// computed for ErrFeeTooHigh.
	Available btcutil.Amount

	// Required is the amount that was needed, or the fee limit for
	// ErrFeeTooHigh.
	Required btcutil.Amount
}

// NewFundingError creates a funding error.
func NewFundingError(reason error, available,
	required btcutil.Amount) *FundingError {

	return &FundingError{
		Reason:    reason,
		Available: available,
		Required:  required,
	}
}

// Error returns a human-readable description of the failure.
func (e *FundingError) Error() string {
	return fmt.Sprintf("%v (available=%v, required=%v)", e.Reason,
		e.Available, e.Required)
}

// Unwrap returns the sentinel reason.
func (e *FundingError) Unwrap() error {
	return e.Reason
}
