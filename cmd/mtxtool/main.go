// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Command mtxtool funds a transaction from a set of candidate coins, signs
// it with the given keys and prints it hex encoded, or as an unsigned PSBT.
package main

import (
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcmtx/coinselect"
	"github.com/btcsuite/btcmtx/mtx"
	"github.com/btcsuite/btcmtx/pkg/btcunit"
	"github.com/btcsuite/btcmtx/utxo"
	"github.com/btcsuite/btcmtx/workers"
	"github.com/jessevdk/go-flags"
	"github.com/lightningnetwork/lnd/fn/v2"
	"golang.org/x/term"
)

func main() {
	if err := realMain(); err != nil {
		var flagErr *flags.Error
		if errors.As(err, &flagErr) && flagErr.Type == flags.ErrHelp {
			os.Exit(0)
		}

		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func realMain() error {
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}
	defer func() {
		if logRotator != nil {
			logRotator.Close()
		}
	}()

	wifs := cfg.WIFs
	if cfg.PromptKeys {
		keys, err := promptKeys()
		if err != nil {
			return err
		}
		wifs = append(wifs, keys...)
	}

	signers, err := parseSigners(wifs, cfg.RedeemScripts, cfg.params)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	tx, err := buildTx(ctx, cfg, signers)
	if err != nil {
		return err
	}

	return printTx(os.Stdout, tx, cfg.PSBT)
}

// promptKeys reads WIF encoded keys from the terminal without echoing them,
// one per line, until an empty line.
func promptKeys() ([]string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return nil, errors.New("--promptkeys needs a terminal")
	}

	fmt.Fprintln(os.Stderr, "Enter WIF keys, an empty line ends input")

	var keys []string
	for {
		fmt.Fprint(os.Stderr, "Key: ")
		key, err := term.ReadPassword(fd)
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return nil, err
		}
		if len(key) == 0 {
			return keys, nil
		}

		keys = append(keys, string(bytes.TrimSpace(key)))
	}
}

// selectionOptions maps the fee and selection options onto the selector.
func selectionOptions(cfg *config) (coinselect.Options, error) {
	strategy, err := coinselect.ParseStrategy(cfg.Strategy)
	if err != nil {
		return coinselect.Options{}, err
	}

	rate := btcunit.NewSatPerVByte(btcutil.Amount(cfg.FeeRate))

	opts := coinselect.Options{
		Strategy: strategy,
		FeeRate:  fn.Some(rate.ToSatPerKVByte()),
		Round:    cfg.RoundFee,
		Height:   fn.Some(cfg.Height),
	}

	if cfg.HardFee > 0 {
		fee, err := btcAmount(cfg.HardFee)
		if err != nil {
			return coinselect.Options{}, err
		}
		opts.HardFee = fn.Some(fee)
	}

	if cfg.MaxFee > 0 {
		maxFee, err := btcAmount(cfg.MaxFee)
		if err != nil {
			return coinselect.Options{}, err
		}
		opts.MaxFee = maxFee
	}

	if cfg.MinConf > 0 {
		opts.MinConfs = fn.Some(cfg.MinConf)
	}

	return opts, nil
}

// buildTx funds the requested outputs from the candidate coins and signs
// the result. With --psbt the inputs are only templated.
func buildTx(ctx context.Context, cfg *config,
	signers []mtx.Signer) (*mtx.MTX, error) {

	coins := make([]*utxo.Coin, 0, len(cfg.Coins))
	for _, s := range cfg.Coins {
		coin, err := parseCoin(s)
		if err != nil {
			return nil, err
		}
		coins = append(coins, coin)
	}

	var opts []mtx.Option
	if cfg.Workers > 0 {
		opts = append(opts, mtx.WithPool(workers.NewGroup(cfg.Workers)))
	}
	tx := mtx.New(opts...)

	for _, s := range cfg.Outputs {
		addr, value, err := parseOutput(s, cfg.params)
		if err != nil {
			return nil, err
		}

		if _, err := tx.AddOutput(mtx.AddressDest{Address: addr},
			value); err != nil {

			return nil, err
		}
	}

	selOpts, err := selectionOptions(cfg)
	if err != nil {
		return nil, err
	}

	fundOpts := mtx.FundOptions{Selection: selOpts}
	if cfg.Change != "" {
		change, err := decodeAddress(cfg.Change, cfg.params)
		if err != nil {
			return nil, err
		}
		fundOpts.ChangeAddress = change
	}
	if cfg.SubtractFee {
		fundOpts.SubtractFee = mtx.SubtractFromAny{}
	}

	sel, err := tx.Fund(ctx, coins, fundOpts)
	if err != nil {
		return nil, err
	}

	log.Infof("Spending %d of %d coins worth %v, fee %v, change %v",
		len(sel.Chosen), len(coins), sel.InputValue, tx.Fee(),
		sel.Change)

	if cfg.BIP69 {
		if err := tx.SortMembers(); err != nil {
			return nil, err
		}
	} else {
		tx.RandomizeChangePosition()
	}

	switch {
	case cfg.AntiFeeSnipe && cfg.Height >= 0:
		err = tx.AvoidFeeSniping(cfg.Height)

	case cfg.LockTime != 0:
		err = tx.SetLocktime(cfg.LockTime)
	}
	if err != nil {
		return nil, err
	}

	if cfg.PSBT {
		if _, err := tx.Template(signers...); err != nil {
			return nil, err
		}

		return tx, nil
	}

	total, err := tx.Sign(ctx, signers, txscript.SigHashAll)
	if err != nil {
		return nil, err
	}

	log.Infof("Signed %d of %d inputs", total, tx.NumInputs())
	if !tx.IsSigned() {
		log.Warnf("Transaction %v is not fully signed", tx)
	}

	return tx, nil
}

// printTx writes the transaction hex encoded, or as a base64 PSBT.
func printTx(w io.Writer, tx *mtx.MTX, asPsbt bool) error {
	if asPsbt {
		packet, err := tx.ToPsbt()
		if err != nil {
			return err
		}

		encoded, err := packet.B64Encode()
		if err != nil {
			return err
		}

		_, err = fmt.Fprintln(w, encoded)

		return err
	}

	var buf bytes.Buffer
	if err := tx.ToTx().Serialize(&buf); err != nil {
		return err
	}

	_, err := fmt.Fprintln(w, hex.EncodeToString(buf.Bytes()))

	return err
}
