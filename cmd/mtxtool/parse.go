// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/btcsuite/btcmtx/keyring"
	"github.com/btcsuite/btcmtx/mtx"
	"github.com/btcsuite/btcmtx/utxo"
)

var (
	errCoinFormat   = errors.New("coin must be txid:index:amount:pkscript[:height[:coinbase]]")
	errOutputFormat = errors.New("output must be address=amount")
)

// parseCoin parses a candidate coin given as
// txid:index:amount:pkscript[:height[:coinbase]].
func parseCoin(s string) (*utxo.Coin, error) {
	fields := strings.Split(s, ":")
	if len(fields) < 4 || len(fields) > 6 {
		return nil, fmt.Errorf("%w: %q", errCoinFormat, s)
	}

	hash, err := chainhash.NewHashFromStr(fields[0])
	if err != nil {
		return nil, fmt.Errorf("txid: %w", err)
	}

	index, err := strconv.ParseUint(fields[1], 10, 32)
	if err != nil {
		return nil, fmt.Errorf("index: %w", err)
	}

	value, err := parseAmount(fields[2])
	if err != nil {
		return nil, err
	}

	pkScript, err := hex.DecodeString(fields[3])
	if err != nil {
		return nil, fmt.Errorf("pkscript: %w", err)
	}

	height := int64(utxo.UnminedHeight)
	if len(fields) > 4 {
		height, err = strconv.ParseInt(fields[4], 10, 32)
		if err != nil {
			return nil, fmt.Errorf("height: %w", err)
		}
	}

	var coinbase bool
	if len(fields) > 5 {
		coinbase, err = strconv.ParseBool(fields[5])
		if err != nil {
			return nil, fmt.Errorf("coinbase: %w", err)
		}
	}

	op := wire.OutPoint{Hash: *hash, Index: uint32(index)}

	return utxo.NewCoin(op, value, pkScript, int32(height), coinbase)
}

// parseOutput parses an output given as address=amount.
func parseOutput(s string, params *chaincfg.Params) (btcutil.Address,
	btcutil.Amount, error) {

	encoded, amount, ok := strings.Cut(s, "=")
	if !ok {
		return nil, 0, fmt.Errorf("%w: %q", errOutputFormat, s)
	}

	addr, err := decodeAddress(encoded, params)
	if err != nil {
		return nil, 0, err
	}

	value, err := parseAmount(amount)
	if err != nil {
		return nil, 0, err
	}

	return addr, value, nil
}

// decodeAddress decodes an address and checks it belongs to params.
func decodeAddress(encoded string, params *chaincfg.Params) (
	btcutil.Address, error) {

	addr, err := btcutil.DecodeAddress(encoded, params)
	if err != nil {
		return nil, fmt.Errorf("address %q: %w", encoded, err)
	}
	if !addr.IsForNet(params) {
		return nil, fmt.Errorf("address %q is not for %s", encoded,
			params.Name)
	}

	return addr, nil
}

// parseAmount parses a non-negative amount in BTC.
func parseAmount(s string) (btcutil.Amount, error) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("amount: %w", err)
	}

	return btcAmount(f)
}

// btcAmount converts a non-negative amount in BTC to satoshis.
func btcAmount(f float64) (btcutil.Amount, error) {
	amt, err := btcutil.NewAmount(f)
	if err != nil {
		return 0, fmt.Errorf("amount: %w", err)
	}
	if amt < 0 {
		return 0, fmt.Errorf("amount %v must not be negative", amt)
	}

	return amt, nil
}

// parseSigners creates a key ring for every key, and one more per key and
// redeem script so the keys can claim script hash outputs.
func parseSigners(wifs, redeemScripts []string,
	params *chaincfg.Params) ([]mtx.Signer, error) {

	scripts := make([][]byte, 0, len(redeemScripts))
	for _, s := range redeemScripts {
		script, err := hex.DecodeString(s)
		if err != nil {
			return nil, fmt.Errorf("redeem script: %w", err)
		}
		scripts = append(scripts, script)
	}

	var signers []mtx.Signer
	for _, wif := range wifs {
		ring, err := keyring.FromWIF(wif, params)
		if err != nil {
			return nil, err
		}
		signers = append(signers, ring)

		for _, script := range scripts {
			ring, err := keyring.FromWIF(wif, params)
			if err != nil {
				return nil, err
			}
			signers = append(signers, ring.SetScript(script))
		}
	}

	return signers, nil
}
