// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mtx

import (
	"fmt"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/btcutil/psbt"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/btcsuite/btcmtx/inputscript"
	"github.com/btcsuite/btcwallet/wallet/txauthor"
)

// ToTx returns an immutable copy of the transaction.
func (m *MTX) ToTx() *wire.MsgTx {
	return m.tx.Copy()
}

// ToAuthoredTx returns the transaction with the scripts and values of the
// coins it spends. Every input must be resolved.
func (m *MTX) ToAuthoredTx() (*txauthor.AuthoredTx, error) {
	authored := &txauthor.AuthoredTx{
		Tx:              m.ToTx(),
		PrevScripts:     make([][]byte, 0, len(m.tx.TxIn)),
		PrevInputValues: make([]btcutil.Amount, 0, len(m.tx.TxIn)),
		ChangeIndex:     m.changeIndex,
	}

	for i, txIn := range m.tx.TxIn {
		coin := m.view.Get(txIn.PreviousOutPoint)
		if coin == nil {
			return nil, fmt.Errorf("%w: input %d", ErrMissingCoin, i)
		}

		authored.PrevScripts = append(authored.PrevScripts, coin.PkScript)
		authored.PrevInputValues = append(
			authored.PrevInputValues, coin.Value,
		)
		authored.TotalInput += coin.Value
	}

	return authored, nil
}

// ToPsbt returns the unsigned transaction as a PSBT packet, together with
// any redeem and witness scripts revealed by templating. Inputs spending a
// witness program, directly or nested in a script hash, carry their coin as
// the witness UTXO. Every input whose previous transaction is in the view
// also carries that transaction as the non-witness UTXO.
func (m *MTX) ToPsbt() (*psbt.Packet, error) {
	unsigned := m.tx.Copy()
	for _, txIn := range unsigned.TxIn {
		txIn.SignatureScript = nil
		txIn.Witness = nil
	}

	packet, err := psbt.NewFromUnsignedTx(unsigned)
	if err != nil {
		return nil, err
	}

	for i, txIn := range m.tx.TxIn {
		pInput := &packet.Inputs[i]

		prevTx := m.view.Tx(txIn.PreviousOutPoint.Hash)
		if prevTx != nil {
			pInput.NonWitnessUtxo = prevTx.Copy()
		}

		coin := m.view.Get(txIn.PreviousOutPoint)
		if coin == nil {
			continue
		}

		program := coin.PkScript
		if txscript.IsPayToScriptHash(coin.PkScript) &&
			len(txIn.SignatureScript) > 0 {

			v, err := inputscript.OpenVector(
				txIn, inputscript.SlotScript, true,
			)
			if err != nil {
				return nil, fmt.Errorf("input %d: %w", i, err)
			}
			pInput.RedeemScript = v.Redeem()
			program = v.Redeem()
		}

		if txscript.IsWitnessProgram(program) {
			pInput.WitnessUtxo = coin.TxOut()
		}

		spend, err := inputscript.Resolve(txIn, coin.PkScript)
		if err != nil {
			continue
		}
		if spend.Vector.Slot() == inputscript.SlotWitness &&
			spend.Vector.Redeem() != nil {

			pInput.WitnessScript = spend.Vector.Redeem()
		}
	}

	return packet, nil
}
