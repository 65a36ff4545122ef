// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package txsign computes signature digests for transaction inputs and signs
// them deterministically.
package txsign

import (
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
)

// SigVersion selects the digest algorithm an input's signature commits to.
type SigVersion uint8

const (
	// SigVersionBase is the legacy digest over a canonicalised copy of
	// the whole transaction.
	SigVersionBase SigVersion = iota

	// SigVersionWitnessV0 is the BIP143 digest committing to the spent
	// value.
	SigVersionWitnessV0
)

// String returns a human-readable name for the version.
func (v SigVersion) String() string {
	switch v {
	case SigVersionBase:
		return "base"

	case SigVersionWitnessV0:
		return "witness_v0"

	default:
		return fmt.Sprintf("unknown(%d)", uint8(v))
	}
}

// ErrUnknownSigVersion is returned for a digest version this package cannot
// compute.
var ErrUnknownSigVersion = errors.New("unknown signature version")

// Digest returns the hash an input's signature commits to. script is the
// effective script code: the previous output script for bare outputs, the
// redeem or witness script for script hash outputs, and the implied
// pay-to-pubkey-hash script for v0 key hash programs. value is only
// committed to by witness digests.
//
// hashes caches the BIP143 midstate for the transaction and may be nil, in
// which case it is computed for this call alone.
func Digest(tx *wire.MsgTx, idx int, script []byte, value btcutil.Amount,
	hashType txscript.SigHashType, version SigVersion,
	hashes *txscript.TxSigHashes) ([]byte, error) {

	switch version {
	case SigVersionBase:
		return txscript.CalcSignatureHash(script, hashType, tx, idx)

	case SigVersionWitnessV0:
		if hashes == nil {
			fetcher := txscript.NewCannedPrevOutputFetcher(
				script, int64(value),
			)
			hashes = txscript.NewTxSigHashes(tx, fetcher)
		}

		return txscript.CalcWitnessSigHash(
			script, hashes, hashType, tx, idx, int64(value),
		)

	default:
		return nil, fmt.Errorf("%w: %v", ErrUnknownSigVersion, version)
	}
}

// Sign signs hash with an RFC6979 deterministic nonce and returns the DER
// signature with hashType appended.
func Sign(hash []byte, key *btcec.PrivateKey,
	hashType txscript.SigHashType) []byte {

	sig := ecdsa.Sign(key, hash)

	return append(sig.Serialize(), byte(hashType))
}

// Signature computes the digest for input idx and signs it.
func Signature(tx *wire.MsgTx, idx int, script []byte, value btcutil.Amount,
	key *btcec.PrivateKey, hashType txscript.SigHashType,
	version SigVersion, hashes *txscript.TxSigHashes) ([]byte, error) {

	hash, err := Digest(tx, idx, script, value, hashType, version, hashes)
	if err != nil {
		return nil, fmt.Errorf("digest input %d: %w", idx, err)
	}

	return Sign(hash, key, hashType), nil
}

// IsSignatureEncoding reports whether sig is structurally a DER signature
// followed by a sighash type byte. It does not check the signature against
// any digest.
func IsSignatureEncoding(sig []byte) bool {
	if len(sig) < 2 {
		return false
	}

	_, err := ecdsa.ParseDERSignature(sig[:len(sig)-1])

	return err == nil
}
