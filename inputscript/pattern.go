// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package inputscript

import (
	"github.com/btcsuite/btcd/txscript"
)

const (
	// keyHashSize is the size of a HASH160 digest.
	keyHashSize = 20

	// scriptHashSize is the size of a SHA256 digest.
	scriptHashSize = 32
)

// pubKeyOf returns the key of a pay-to-pubkey script.
func pubKeyOf(script []byte) ([]byte, bool) {
	if txscript.GetScriptClass(script) != txscript.PubKeyTy {
		return nil, false
	}

	return firstPush(script)
}

// pubKeyHashOf returns the key hash of a pay-to-pubkey-hash script.
func pubKeyHashOf(script []byte) ([]byte, bool) {
	if txscript.GetScriptClass(script) != txscript.PubKeyHashTy {
		return nil, false
	}

	return firstPush(script)
}

// scriptHashOf returns the script hash of a pay-to-script-hash script.
func scriptHashOf(script []byte) ([]byte, bool) {
	if txscript.GetScriptClass(script) != txscript.ScriptHashTy {
		return nil, false
	}

	return firstPush(script)
}

// multisigOf returns the threshold and the ordered keys of a bare multisig
// script.
func multisigOf(script []byte) (int, [][]byte, bool) {
	if txscript.GetScriptClass(script) != txscript.MultiSigTy {
		return 0, nil, false
	}

	_, m, err := txscript.CalcMultiSigStats(script)
	if err != nil {
		return 0, nil, false
	}

	// The threshold and key count are small integer opcodes, so only the
	// keys are data pushes.
	keys, err := txscript.PushedData(script)
	if err != nil {
		return 0, nil, false
	}

	return m, keys, true
}

// witnessProgramOf returns the version and program of a witness program
// script.
func witnessProgramOf(script []byte) (int, []byte, bool) {
	if !txscript.IsWitnessProgram(script) {
		return 0, nil, false
	}

	version, program, err := txscript.ExtractWitnessProgramInfo(script)
	if err != nil {
		return 0, nil, false
	}

	return version, program, true
}

// isWitnessScriptHash reports whether script is a v0 script hash program.
func isWitnessScriptHash(script []byte) ([]byte, bool) {
	version, program, ok := witnessProgramOf(script)
	if !ok || version != 0 || len(program) != scriptHashSize {
		return nil, false
	}

	return program, true
}

// isWitnessPubKeyHash reports whether script is a v0 key hash program.
func isWitnessPubKeyHash(script []byte) ([]byte, bool) {
	version, program, ok := witnessProgramOf(script)
	if !ok || version != 0 || len(program) != keyHashSize {
		return nil, false
	}

	return program, true
}

// payToPubKeyHash returns the pay-to-pubkey-hash script for hash. It is the
// script code a v0 key hash program is signed and templated against.
func payToPubKeyHash(hash []byte) []byte {
	script := make([]byte, 0, 25)
	script = append(script, txscript.OP_DUP, txscript.OP_HASH160,
		txscript.OP_DATA_20)
	script = append(script, hash...)

	return append(script, txscript.OP_EQUALVERIFY, txscript.OP_CHECKSIG)
}

// firstPush returns the first data push of script.
func firstPush(script []byte) ([]byte, bool) {
	pushes, err := txscript.PushedData(script)
	if err != nil || len(pushes) == 0 {
		return nil, false
	}

	return pushes[0], true
}
