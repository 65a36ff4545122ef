package utxo

import (
	"testing"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/btcsuite/btcwallet/wtxmgr"
	"github.com/stretchr/testify/require"
)

var testScript = []byte{
	0x76, 0xa9, 0x14, 0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08,
	0x09, 0x0a, 0x0b, 0x0c, 0x0d, 0x0e, 0x0f, 0x10, 0x11, 0x12, 0x13,
	0x14, 0x88, 0xac,
}

// TestCoinDepth checks the confirmation count for mined and unmined coins.
func TestCoinDepth(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name          string
		coinHeight    int32
		currentHeight int32
		expected      int32
	}{
		{
			name:          "unmined",
			coinHeight:    UnminedHeight,
			currentHeight: 100,
			expected:      0,
		},
		{
			name:          "same block",
			coinHeight:    100,
			currentHeight: 100,
			expected:      1,
		},
		{
			name:          "buried",
			coinHeight:    90,
			currentHeight: 100,
			expected:      11,
		},
		{
			name:          "chain behind coin",
			coinHeight:    110,
			currentHeight: 100,
			expected:      0,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			coin := &Coin{Height: tc.coinHeight}
			require.Equal(t, tc.expected, coin.Depth(tc.currentHeight))
		})
	}
}

// TestNewCoinFromTx checks that a coin built from a transaction references
// the right output and detects coinbase transactions.
func TestNewCoinFromTx(t *testing.T) {
	t.Parallel()

	// Arrange: a regular transaction and a coinbase.
	tx := wire.NewMsgTx(wire.TxVersion)
	tx.AddTxIn(wire.NewTxIn(&wire.OutPoint{Index: 3}, nil, nil))
	tx.AddTxOut(wire.NewTxOut(1000, testScript))
	tx.AddTxOut(wire.NewTxOut(2000, testScript))

	coinbase := wire.NewMsgTx(wire.TxVersion)
	coinbase.AddTxIn(wire.NewTxIn(
		wire.NewOutPoint(&chainhash.Hash{}, wire.MaxPrevOutIndex),
		[]byte{0x01, 0x02}, nil,
	))
	coinbase.AddTxOut(wire.NewTxOut(5000, testScript))

	// Act.
	coin, err := NewCoinFromTx(tx, 1, 50)
	require.NoError(t, err)

	cbCoin, err := NewCoinFromTx(coinbase, 0, UnminedHeight)
	require.NoError(t, err)

	_, err = NewCoinFromTx(tx, 2, 50)

	// Assert.
	require.Equal(t, tx.TxHash(), coin.OutPoint.Hash)
	require.Equal(t, uint32(1), coin.OutPoint.Index)
	require.Equal(t, btcutil.Amount(2000), coin.Value)
	require.Equal(t, int32(50), coin.Height)
	require.False(t, coin.Coinbase)
	require.True(t, cbCoin.Coinbase)
	require.ErrorIs(t, err, ErrOutputIndex)
}

// TestNewCoinNegative checks that negative values are rejected.
func TestNewCoinNegative(t *testing.T) {
	t.Parallel()

	_, err := NewCoin(wire.OutPoint{}, -1, testScript, 0, false)
	require.ErrorIs(t, err, ErrNegativeValue)
}

// TestNewCoinFromCredit checks the adapter from wallet credits.
func TestNewCoinFromCredit(t *testing.T) {
	t.Parallel()

	credit := &wtxmgr.Credit{
		OutPoint:     wire.OutPoint{Hash: chainhash.Hash{0x01}, Index: 7},
		Amount:       btcutil.Amount(12345),
		PkScript:     testScript,
		FromCoinBase: true,
	}
	credit.Height = 321

	coin := NewCoinFromCredit(credit)

	require.Equal(t, credit.OutPoint, coin.OutPoint)
	require.Equal(t, credit.Amount, coin.Value)
	require.Equal(t, testScript, coin.PkScript)
	require.Equal(t, int32(321), coin.Height)
	require.True(t, coin.Coinbase)
	require.Equal(t, int64(12345), coin.TxOut().Value)
}
