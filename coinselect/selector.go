// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package coinselect chooses which coins fund a transaction and what fee it
// pays, converging on a fee that matches the size of the inputs chosen.
package coinselect

import (
	"context"
	"fmt"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/wire"
	"github.com/btcsuite/btcmtx/pkg/btcunit"
	"github.com/btcsuite/btcmtx/utxo"
	"github.com/btcsuite/btcwallet/wallet/txrules"
	"github.com/lightningnetwork/lnd/fn/v2"
)

const (
	// AbsoluteMaxFee caps a caller supplied hard fee.
	AbsoluteMaxFee = btcutil.Amount(btcutil.SatoshiPerBitcoin / 10)

	// DefaultInitialFee is the fee assumed for the first accumulation
	// round, before any size is known.
	DefaultInitialFee = btcutil.Amount(1000)
)

// dummyChangeScript is a pay-to-pubkey-hash script used to size the change
// output when the caller has not supplied one.
var dummyChangeScript = []byte{
	0x76, 0xa9, 0x14,
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	0x88, 0xac,
}

// SizeFunc returns the estimated virtual size of the transaction being
// funded when it spends chosen and carries an extra change output paying to
// changeScript.
type SizeFunc func(ctx context.Context, chosen []*utxo.Coin,
	changeScript []byte) (int, error)

// Options configures a selection.
type Options struct {
	// Strategy orders the candidates. Defaults to CoinSelectionAge.
	Strategy CoinSelectionStrategy

	// FeeRate is the rate the estimated fee is computed at. Defaults to
	// the relay fee.
	FeeRate fn.Option[btcunit.SatPerKVByte]

	// Round charges the fee for whole kvbs.
	Round bool

	// HardFee skips estimation and pays exactly this fee, capped at
	// AbsoluteMaxFee.
	HardFee fn.Option[btcutil.Amount]

	// MaxFee fails the selection when the fee exceeds it. Zero disables
	// the check.
	MaxFee btcutil.Amount

	// InitialFee is the fee used for the first accumulation round.
	// Defaults to DefaultInitialFee.
	InitialFee fn.Option[btcutil.Amount]

	// Height is the current chain height. The maturity and depth checks
	// are skipped when it is unset or utxo.UnminedHeight.
	Height fn.Option[int32]

	// MinConfs skips coins with fewer confirmations.
	MinConfs fn.Option[int32]

	// CoinbaseMaturity is the number of confirmations a coinbase output
	// needs before it can be spent. Defaults to the main network value.
	CoinbaseMaturity uint16

	// SubtractFee takes the fee out of the outputs instead of adding it
	// on top, so the target is only the output total.
	SubtractFee bool

	// ChangeScript is the script change will be paid to. A dummy
	// pay-to-pubkey-hash script is used for sizing when nil.
	ChangeScript []byte
}

// Selection is the result of a successful selection.
type Selection struct {
	// Chosen are the coins to spend, in the order they were chosen.
	Chosen []*utxo.Coin

	// InputValue is the total value of Chosen.
	InputValue btcutil.Amount

	// OutputValue is the total value of the outputs being funded.
	OutputValue btcutil.Amount

	// Fee is the fee the transaction pays, excluding change that ends
	// up folded into it.
	Fee btcutil.Amount

	// Change is what is left of InputValue after the target.
	Change btcutil.Amount

	// SubtractFee reports whether the fee is taken out of the outputs.
	SubtractFee bool
}

// Target is the value the inputs had to cover.
func (s *Selection) Target() btcutil.Amount {
	return target(s.OutputValue, s.Fee, s.SubtractFee)
}

// target returns the output total, plus the fee unless it is subtracted.
func target(outputValue, fee btcutil.Amount, subtract bool) btcutil.Amount {
	if subtract {
		return outputValue
	}

	return outputValue + fee
}

// selectorState names the phases of a selection.
type selectorState uint8

const (
	stateInit selectorState = iota
	stateAccumulate
	stateConverge
	stateDone
)

// String returns the state's name.
func (s selectorState) String() string {
	switch s {
	case stateInit:
		return "init"

	case stateAccumulate:
		return "accumulate"

	case stateConverge:
		return "converge"

	default:
		return "done"
	}
}

// selector is the transient state of one funding attempt.
type selector struct {
	opts     Options
	strategy CoinSelectionStrategy
	rate     btcunit.SatPerKVByte
	state    selectorState

	coins []*utxo.Coin
	index int

	chosen     []*utxo.Coin
	seen       map[wire.OutPoint]struct{}
	inputValue btcutil.Amount

	outputValue btcutil.Amount
	fee         btcutil.Amount
}

// Select chooses coins from candidates to fund outputs worth outputValue.
// candidates is never modified. Failures to fund are returned as a
// *FundingError.
func Select(ctx context.Context, candidates []*utxo.Coin,
	outputValue btcutil.Amount, sizeOf SizeFunc,
	opts Options) (*Selection, error) {

	s := newSelector(candidates, outputValue, opts)

	var err error
	if opts.HardFee.IsSome() {
		err = s.selectHard(opts.HardFee.UnwrapOr(0))
	} else {
		err = s.selectEstimate(ctx, sizeOf)
	}
	if err != nil {
		return nil, err
	}

	s.transition(stateDone)

	if !s.isFull() {
		return nil, NewFundingError(
			ErrInsufficientFunds, s.inputValue, s.total(),
		)
	}

	sel := &Selection{
		Chosen:      s.chosen,
		InputValue:  s.inputValue,
		OutputValue: s.outputValue,
		Fee:         s.fee,
		Change:      s.inputValue - s.total(),
		SubtractFee: opts.SubtractFee,
	}

	log.Debugf("Selected %d of %d coins using %v: input=%v, fee=%v, "+
		"change=%v", len(sel.Chosen), len(candidates), s.strategy,
		sel.InputValue, sel.Fee, sel.Change)

	return sel, nil
}

// newSelector copies the candidates and orders them by strategy.
func newSelector(candidates []*utxo.Coin, outputValue btcutil.Amount,
	opts Options) *selector {

	strategy := opts.Strategy
	if strategy == nil {
		strategy = CoinSelectionAge
	}

	if opts.CoinbaseMaturity == 0 {
		opts.CoinbaseMaturity = chaincfg.MainNetParams.CoinbaseMaturity
	}

	coins := make([]*utxo.Coin, len(candidates))
	copy(coins, candidates)

	s := &selector{
		opts:     opts,
		strategy: strategy,
		rate: opts.FeeRate.UnwrapOr(
			btcunit.NewSatPerKVByte(txrules.DefaultRelayFeePerKb),
		),
		state:       stateInit,
		coins:       strategy.ArrangeCoins(coins),
		seen:        make(map[wire.OutPoint]struct{}),
		outputValue: outputValue,
	}

	return s
}

// transition records a state change.
func (s *selector) transition(next selectorState) {
	log.Tracef("Coin selection %v -> %v (chosen=%d, input=%v, fee=%v)",
		s.state, next, len(s.chosen), s.inputValue, s.fee)

	s.state = next
}

// total returns the value the inputs must cover at the current fee.
func (s *selector) total() btcutil.Amount {
	return target(s.outputValue, s.fee, s.opts.SubtractFee)
}

// isFull reports whether the chosen coins cover the target.
func (s *selector) isFull() bool {
	return s.inputValue >= s.total()
}

// isSpendable applies the maturity and depth policies to coin.
func (s *selector) isSpendable(coin *utxo.Coin) bool {
	if _, ok := s.seen[coin.OutPoint]; ok {
		return false
	}

	height := s.opts.Height.UnwrapOr(utxo.UnminedHeight)
	if height == utxo.UnminedHeight {
		return true
	}

	if coin.Coinbase {
		if coin.Height == utxo.UnminedHeight {
			return false
		}

		maturity := int32(s.opts.CoinbaseMaturity)
		if height+1 < coin.Height+maturity {
			return false
		}
	}

	minConfs := s.opts.MinConfs.UnwrapOr(0)

	return coin.Depth(height) >= minConfs
}

// accumulate walks the remaining candidates, choosing spendable coins until
// the target is covered. The all strategy chooses every spendable coin.
func (s *selector) accumulate() {
	s.transition(stateAccumulate)

	_, consumeAll := s.strategy.(*AllCoinSelector)

	for s.index < len(s.coins) {
		coin := s.coins[s.index]
		s.index++

		if !s.isSpendable(coin) {
			log.Tracef("Skipping unspendable coin %v", coin)
			continue
		}

		s.seen[coin.OutPoint] = struct{}{}
		s.chosen = append(s.chosen, coin)
		s.inputValue += coin.Value

		if !consumeAll && s.isFull() {
			break
		}
	}
}

// selectHard funds the target with a fixed fee.
func (s *selector) selectHard(hardFee btcutil.Amount) error {
	if s.opts.MaxFee > 0 && hardFee > s.opts.MaxFee {
		return NewFundingError(ErrFeeTooHigh, hardFee, s.opts.MaxFee)
	}

	s.fee = min(hardFee, AbsoluteMaxFee)
	s.accumulate()

	return nil
}

// selectEstimate funds the target, re-estimating the fee from the size of
// the chosen inputs until the fee matches the inputs paying it or the
// candidates run out.
func (s *selector) selectEstimate(ctx context.Context, sizeOf SizeFunc) error {
	s.fee = s.opts.InitialFee.UnwrapOr(DefaultInitialFee)
	s.accumulate()

	changeScript := s.opts.ChangeScript
	if changeScript == nil {
		changeScript = dummyChangeScript
	}

	for {
		s.transition(stateConverge)

		size, err := sizeOf(ctx, s.chosen, changeScript)
		if err != nil {
			return fmt.Errorf("estimate size: %w", err)
		}

		s.fee = s.feeForSize(size)
		if s.opts.MaxFee > 0 && s.fee > s.opts.MaxFee {
			return NewFundingError(ErrFeeTooHigh, s.fee, s.opts.MaxFee)
		}

		if s.isFull() || s.index >= len(s.coins) {
			return nil
		}

		s.accumulate()
	}
}

// feeForSize prices a transaction of size vbytes.
func (s *selector) feeForSize(size int) btcutil.Amount {
	if size < 0 {
		size = 0
	}

	vb := btcunit.NewVByte(uint64(size))
	if s.opts.Round {
		return s.rate.RoundFee(vb)
	}

	return s.rate.MinFee(vb)
}
