package mtx

import (
	"bytes"
	"testing"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/btcutil/psbt"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/btcsuite/btcmtx/keyring"
	"github.com/stretchr/testify/require"
)

// TestToTx checks the exported transaction is a copy.
func TestToTx(t *testing.T) {
	t.Parallel()

	m := spendOf(t, pkScriptOf(t, testRing(1)))

	tx := m.ToTx()
	tx.TxOut[0].Value = 1

	out, err := m.Output(0)
	require.NoError(t, err)
	require.Equal(t, int64(coinValue-1_000), out.Value)
}

// TestToAuthoredTx checks the previous scripts and values travel with the
// transaction.
func TestToAuthoredTx(t *testing.T) {
	t.Parallel()

	script := pkScriptOf(t, testRing(1))

	m := New()
	_, err := m.AddCoin(testCoin(t, 1, 10_000, script, 1))
	require.NoError(t, err)
	_, err = m.AddCoin(testCoin(t, 2, 20_000, script, 1))
	require.NoError(t, err)
	_, err = m.AddOutput(ScriptDest(script), 29_000)
	require.NoError(t, err)

	authored, err := m.ToAuthoredTx()
	require.NoError(t, err)
	require.Equal(t, [][]byte{script, script}, authored.PrevScripts)
	require.Equal(t, []btcutil.Amount{10_000, 20_000},
		authored.PrevInputValues)
	require.Equal(t, btcutil.Amount(30_000), authored.TotalInput)
	require.Equal(t, -1, authored.ChangeIndex)
	require.Equal(t, m.ToTx().TxHash(), authored.Tx.TxHash())

	m.AddOutpoint(wire.OutPoint{Hash: chainhash.Hash{0x09}})
	_, err = m.ToAuthoredTx()
	require.ErrorIs(t, err, ErrMissingCoin)
}

// TestToPsbt checks the packet carries coins and revealed scripts but no
// signatures.
func TestToPsbt(t *testing.T) {
	t.Parallel()

	ms := multisigScript(t, 1, 2, 3)
	nested := testRing(1).SetScript(ms).SetNested(true)
	legacy := testRing(4)

	m := New()
	_, err := m.AddCoin(testCoin(t, 1, 10_000, pkScriptOf(t, nested), 1))
	require.NoError(t, err)
	_, err = m.AddCoin(testCoin(t, 2, 20_000, pkScriptOf(t, legacy), 1))
	require.NoError(t, err)
	m.AddOutpoint(wire.OutPoint{Hash: chainhash.Hash{0x03}})
	_, err = m.AddOutput(KeyDest{testRing(5)}, 25_000)
	require.NoError(t, err)

	_, err = m.Template(nested)
	require.NoError(t, err)
	_, err = m.Sign(t.Context(), []Signer{legacy}, txscript.SigHashAll)
	require.NoError(t, err)

	packet, err := m.ToPsbt()
	require.NoError(t, err)
	require.Len(t, packet.Inputs, 3)

	for _, txIn := range packet.UnsignedTx.TxIn {
		require.Empty(t, txIn.SignatureScript)
		require.Empty(t, txIn.Witness)
	}

	first := packet.Inputs[0]
	require.Equal(t, int64(10_000), first.WitnessUtxo.Value)
	require.Equal(t, nested.Program(), first.RedeemScript)
	require.Equal(t, ms, first.WitnessScript)

	second := packet.Inputs[1]
	require.Nil(t, second.WitnessUtxo)
	require.Nil(t, second.NonWitnessUtxo)
	require.Nil(t, second.RedeemScript)
	require.Nil(t, second.WitnessScript)

	require.Nil(t, packet.Inputs[2].WitnessUtxo)

	var buf bytes.Buffer
	require.NoError(t, packet.Serialize(&buf))
	require.NotZero(t, buf.Len())
}

// TestToPsbtUtxoKind checks that only witness spends carry a witness UTXO.
func TestToPsbtUtxoKind(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name    string
		ring    *keyring.KeyRing
		witness bool
	}{
		{
			name: "pubkey hash",
			ring: testRing(1),
		},
		{
			name: "script hash pubkey hash",
			ring: testRing(2).SetScript(
				pkScriptOf(t, testRing(2)),
			),
		},
		{
			name:    "witness pubkey hash",
			ring:    testRing(3).SetWitness(true),
			witness: true,
		},
		{
			name:    "nested witness pubkey hash",
			ring:    testRing(4).SetNested(true),
			witness: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			m := spendOf(t, pkScriptOf(t, tc.ring))
			_, err := m.Template(tc.ring)
			require.NoError(t, err)

			packet, err := m.ToPsbt()
			require.NoError(t, err)

			input := packet.Inputs[0]
			if !tc.witness {
				require.Nil(t, input.WitnessUtxo)
				return
			}

			require.NotNil(t, input.WitnessUtxo)
			require.EqualValues(t, coinValue, input.WitnessUtxo.Value)
		})
	}
}

// TestToPsbtLegacyInputSigns checks that a cosigner can attach and finalize
// a key hash signature on an exported packet.
func TestToPsbtLegacyInputSigns(t *testing.T) {
	t.Parallel()

	ring := testRing(8)

	prev := wire.NewMsgTx(wire.TxVersion)
	prev.AddTxIn(wire.NewTxIn(&wire.OutPoint{Index: 1}, nil, nil))
	prev.AddTxOut(wire.NewTxOut(coinValue, pkScriptOf(t, ring)))

	m := New()
	_, err := m.AddTxOutput(prev, 0)
	require.NoError(t, err)
	_, err = m.AddOutput(KeyDest{testRing(1)}, coinValue-1_000)
	require.NoError(t, err)

	packet, err := m.ToPsbt()
	require.NoError(t, err)

	input := packet.Inputs[0]
	require.Nil(t, input.WitnessUtxo)
	require.NotNil(t, input.NonWitnessUtxo)
	require.Equal(t, prev.TxHash(), input.NonWitnessUtxo.TxHash())

	// Sign a copy to obtain the signature a cosigner would produce.
	signed := m.Clone()
	total, err := signed.Sign(
		t.Context(), []Signer{ring}, txscript.SigHashAll,
	)
	require.NoError(t, err)
	require.Equal(t, 1, total)

	sigScript := signed.ToTx().TxIn[0].SignatureScript
	pushes, err := txscript.PushedData(sigScript)
	require.NoError(t, err)
	require.Len(t, pushes, 2)

	updater, err := psbt.NewUpdater(packet)
	require.NoError(t, err)

	outcome, err := updater.Sign(0, pushes[0], pushes[1], nil, nil)
	require.NoError(t, err)
	require.Equal(t, psbt.SignOutcome(psbt.SignSuccesful), outcome)

	require.NoError(t, psbt.MaybeFinalizeAll(packet))

	final, err := psbt.Extract(packet)
	require.NoError(t, err)
	require.Equal(t, sigScript, final.TxIn[0].SignatureScript)
}
