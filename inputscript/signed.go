// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package inputscript

import (
	"github.com/btcsuite/btcd/wire"
)

// IsSigned reports whether the unlocking data of txIn has the shape of a
// fully signed spend of prevScript. Signatures are not verified.
func IsSigned(txIn *wire.TxIn, prevScript []byte) bool {
	spend, err := Resolve(txIn, prevScript)
	if err != nil {
		return false
	}

	return IsVectorSigned(spend.Script, spend.Vector.items)
}

// IsVectorSigned reports whether items fill every slot script requires:
// one signature for pay-to-pubkey, a signature and a key for
// pay-to-pubkey-hash, and the dummy item followed by exactly m signatures
// for multisig.
func IsVectorSigned(script []byte, items [][]byte) bool {
	if _, ok := pubKeyOf(script); ok {
		return len(items) == 1 && len(items[0]) > 0
	}

	if _, ok := pubKeyHashOf(script); ok {
		return len(items) == 2 && len(items[0]) > 0 &&
			len(items[1]) > 0
	}

	if m, _, ok := multisigOf(script); ok {
		if len(items)-1 != m || len(items[0]) != 0 {
			return false
		}

		for _, item := range items[1:] {
			if len(item) == 0 {
				return false
			}
		}

		return true
	}

	return false
}
