// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mtx

import (
	"context"
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/btcsuite/btcmtx/coinselect"
	"github.com/btcsuite/btcmtx/utxo"
	"github.com/btcsuite/btcwallet/wallet/txrules"
)

var (
	// ErrAlreadyFunded is returned when Fund is called on a transaction
	// that already has inputs.
	ErrAlreadyFunded = errors.New("transaction is already funded")

	// ErrMissingChangeAddress is returned when Fund is called without a
	// change address.
	ErrMissingChangeAddress = errors.New("change address is required")

	// errFeeMismatch is returned when the funded transaction does not pay
	// the fee the selection settled on.
	errFeeMismatch = errors.New("funded fee does not match selection")
)

// FundOptions configures Fund and SelectCoins.
type FundOptions struct {
	// Selection configures the coin selector. Its SubtractFee and
	// ChangeScript fields are derived from the options below.
	Selection coinselect.Options

	// ChangeAddress receives the change. Required by Fund.
	ChangeAddress btcutil.Address

	// SubtractFee, when set, takes the fee out of the outputs it selects
	// instead of adding it on top of them.
	SubtractFee FeeTarget

	// Estimator sizes inputs whose script is not a standard single key
	// or bare multisig pattern.
	Estimator SizeEstimator

	// DustRelayFee is the relay fee the dust threshold is derived from.
	// Defaults to txrules.DefaultRelayFeePerKb.
	DustRelayFee btcutil.Amount
}

// dustRelayFee returns the configured relay fee or the default.
func (o *FundOptions) dustRelayFee() btcutil.Amount {
	if o.DustRelayFee == 0 {
		return txrules.DefaultRelayFeePerKb
	}

	return o.DustRelayFee
}

// SelectCoins runs coin selection for the current outputs without modifying
// the transaction.
func (m *MTX) SelectCoins(ctx context.Context, coins []*utxo.Coin,
	opts FundOptions) (*coinselect.Selection, error) {

	var changeScript []byte
	if opts.ChangeAddress != nil {
		script, err := txscript.PayToAddrScript(opts.ChangeAddress)
		if err != nil {
			return nil, fmt.Errorf("change script: %w", err)
		}
		changeScript = script
	}

	return m.selectCoins(ctx, coins, opts, changeScript)
}

// selectCoins runs the selector with sizes estimated on drafts of m.
func (m *MTX) selectCoins(ctx context.Context, coins []*utxo.Coin,
	opts FundOptions, changeScript []byte) (*coinselect.Selection, error) {

	selOpts := opts.Selection
	selOpts.SubtractFee = opts.SubtractFee != nil
	selOpts.ChangeScript = changeScript

	return coinselect.Select(
		ctx, coins, m.OutputValue(), m.sizeFunc(opts.Estimator),
		selOpts,
	)
}

// sizeFunc returns a coinselect.SizeFunc that sizes m as if it spent the
// chosen coins and paid a change output.
func (m *MTX) sizeFunc(estimator SizeEstimator) coinselect.SizeFunc {
	return func(ctx context.Context, chosen []*utxo.Coin,
		changeScript []byte) (int, error) {

		draft := m.Clone()
		for _, coin := range chosen {
			if _, err := draft.AddCoin(coin); err != nil {
				return 0, err
			}
		}
		draft.tx.AddTxOut(wire.NewTxOut(0, changeScript))

		return draft.EstimateSize(ctx, estimator)
	}
}

// Fund selects coins from the candidates, adds them as inputs, takes the fee
// out of the outputs if requested and adds a change output. Change below the
// dust threshold is left to the fee instead, in which case ChangeIndex is -1.
//
// Fund either succeeds completely or leaves the transaction untouched.
func (m *MTX) Fund(ctx context.Context, coins []*utxo.Coin,
	opts FundOptions) (*coinselect.Selection, error) {

	if len(m.tx.TxIn) != 0 {
		return nil, ErrAlreadyFunded
	}
	if opts.ChangeAddress == nil {
		return nil, ErrMissingChangeAddress
	}

	changeScript, err := txscript.PayToAddrScript(opts.ChangeAddress)
	if err != nil {
		return nil, fmt.Errorf("change script: %w", err)
	}

	sel, err := m.selectCoins(ctx, coins, opts, changeScript)
	if err != nil {
		return nil, err
	}

	relayFee := opts.dustRelayFee()

	draft := m.Clone()
	for _, coin := range sel.Chosen {
		if _, err := draft.AddCoin(coin); err != nil {
			return nil, err
		}
	}

	if opts.SubtractFee != nil {
		err := draft.subtractFee(sel.Fee, opts.SubtractFee, relayFee)
		if err != nil {
			return nil, err
		}
	}

	expected := sel.Fee
	if isDust(sel.Change, changeScript, relayFee) {
		log.Debugf("Change of %v is dust, adding it to the fee",
			sel.Change)

		draft.changeIndex = -1
		expected += sel.Change
	} else {
		draft.tx.AddTxOut(wire.NewTxOut(int64(sel.Change), changeScript))
		draft.changeIndex = len(draft.tx.TxOut) - 1
	}

	if fee := draft.Fee(); fee != expected {
		return nil, fmt.Errorf("%w: fee=%v, expected=%v",
			errFeeMismatch, fee, expected)
	}

	m.adopt(draft)

	log.Debugf("Funded %v", m)

	return sel, nil
}

// FeeTarget selects the outputs a fee may be subtracted from.
type FeeTarget interface {
	// matches reports whether output i may pay the fee.
	matches(i int, txOut *wire.TxOut) bool
}

// SubtractFromIndex subtracts the fee from the output at this index.
type SubtractFromIndex int

func (s SubtractFromIndex) matches(i int, _ *wire.TxOut) bool {
	return i == int(s)
}

// SubtractFromAddress subtracts the fee from the first output paying to the
// address.
type SubtractFromAddress struct {
	btcutil.Address
}

func (s SubtractFromAddress) matches(_ int, txOut *wire.TxOut) bool {
	return paysTo(txOut, s.Address)
}

// SubtractFromAddresses subtracts the fee from the first output paying to any
// of the addresses.
type SubtractFromAddresses []btcutil.Address

func (s SubtractFromAddresses) matches(_ int, txOut *wire.TxOut) bool {
	for _, addr := range s {
		if paysTo(txOut, addr) {
			return true
		}
	}

	return false
}

// SubtractFromAny subtracts the fee from the first output that can afford
// it.
type SubtractFromAny struct{}

func (SubtractFromAny) matches(int, *wire.TxOut) bool {
	return true
}

// paysTo reports whether txOut pays to addr.
func paysTo(txOut *wire.TxOut, addr btcutil.Address) bool {
	script, err := txscript.PayToAddrScript(addr)
	if err != nil {
		return false
	}

	return string(script) == string(txOut.PkScript)
}

// SubtractFee takes fee out of the first output selected by target whose
// value stays above the dust threshold after paying it. A nil target
// selects every output.
func (m *MTX) SubtractFee(fee btcutil.Amount, target FeeTarget) error {
	return m.subtractFee(fee, target, txrules.DefaultRelayFeePerKb)
}

func (m *MTX) subtractFee(fee btcutil.Amount, target FeeTarget,
	relayFee btcutil.Amount) error {

	if target == nil {
		target = SubtractFromAny{}
	}

	if idx, ok := target.(SubtractFromIndex); ok {
		if _, err := m.Output(int(idx)); err != nil {
			return err
		}
	}

	var largest btcutil.Amount
	for i, txOut := range m.tx.TxOut {
		if !target.matches(i, txOut) {
			continue
		}

		value := btcutil.Amount(txOut.Value)
		largest = max(largest, value)

		if value < fee || isDust(value-fee, txOut.PkScript, relayFee) {
			continue
		}

		txOut.Value -= int64(fee)

		log.Tracef("Subtracted fee %v from output %d", fee, i)

		return nil
	}

	return coinselect.NewFundingError(
		coinselect.ErrCannotSubtractFee, largest, fee,
	)
}

// isDust reports whether an output of value paying to pkScript would be dust
// at relayFee.
func isDust(value btcutil.Amount, pkScript []byte,
	relayFee btcutil.Amount) bool {

	txOut := wire.NewTxOut(int64(value), pkScript)

	return txrules.IsDustOutput(txOut, relayFee)
}
