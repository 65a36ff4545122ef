// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package coinselect

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"strings"

	"github.com/btcsuite/btcmtx/utxo"
)

// ErrUnknownStrategy is returned for a strategy name that does not exist.
var ErrUnknownStrategy = errors.New("unknown coin selection strategy")

// CoinSelectionStrategy is responsible for ordering the working copy of the
// candidate coins before they are accumulated.
type CoinSelectionStrategy interface {
	// ArrangeCoins reorders coins in place and returns them.
	ArrangeCoins(coins []*utxo.Coin) []*utxo.Coin

	// String returns the strategy's name.
	String() string
}

var (
	// CoinSelectionAge spends the oldest coins first. Unconfirmed coins
	// go last.
	CoinSelectionAge CoinSelectionStrategy = &AgeCoinSelector{}

	// CoinSelectionRandom spends coins in random order.
	CoinSelectionRandom CoinSelectionStrategy = &RandomCoinSelector{}

	// CoinSelectionAll spends every spendable candidate, whether or not
	// the target needs them.
	CoinSelectionAll CoinSelectionStrategy = &AllCoinSelector{}

	// CoinSelectionLargest spends the largest confirmed coins first.
	// Unconfirmed coins go last.
	CoinSelectionLargest CoinSelectionStrategy = &LargestFirstCoinSelector{}
)

// ParseStrategy returns the strategy with the given name.
func ParseStrategy(name string) (CoinSelectionStrategy, error) {
	switch strings.ToLower(name) {
	case "age":
		return CoinSelectionAge, nil

	case "random":
		return CoinSelectionRandom, nil

	case "all":
		return CoinSelectionAll, nil

	case "value", "largest":
		return CoinSelectionLargest, nil

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, name)
	}
}

// sortHeight returns the height a coin sorts at, placing unconfirmed coins
// after every confirmed one.
func sortHeight(coin *utxo.Coin) int32 {
	if coin.Height == utxo.UnminedHeight {
		return math.MaxInt32
	}

	return coin.Height
}

// AgeCoinSelector orders coins by ascending confirmation height.
type AgeCoinSelector struct{}

// ArrangeCoins sorts coins oldest first.
func (*AgeCoinSelector) ArrangeCoins(coins []*utxo.Coin) []*utxo.Coin {
	sort.SliceStable(coins, func(i, j int) bool {
		return sortHeight(coins[i]) < sortHeight(coins[j])
	})

	return coins
}

// String returns the strategy's name.
func (*AgeCoinSelector) String() string {
	return "age"
}

// RandomCoinSelector shuffles coins. This prevents the creation of ever
// smaller UTXOs over time that may never become economical to spend.
type RandomCoinSelector struct{}

// ArrangeCoins shuffles coins.
func (*RandomCoinSelector) ArrangeCoins(coins []*utxo.Coin) []*utxo.Coin {
	rand.Shuffle(len(coins), func(i, j int) {
		coins[i], coins[j] = coins[j], coins[i]
	})

	return coins
}

// String returns the strategy's name.
func (*RandomCoinSelector) String() string {
	return "random"
}

// AllCoinSelector keeps the caller's order and consumes every coin.
type AllCoinSelector struct{}

// ArrangeCoins returns coins unchanged.
func (*AllCoinSelector) ArrangeCoins(coins []*utxo.Coin) []*utxo.Coin {
	return coins
}

// String returns the strategy's name.
func (*AllCoinSelector) String() string {
	return "all"
}

// LargestFirstCoinSelector orders confirmed coins by descending value,
// followed by unconfirmed coins by descending value.
type LargestFirstCoinSelector struct{}

// ArrangeCoins sorts coins largest first.
func (*LargestFirstCoinSelector) ArrangeCoins(
	coins []*utxo.Coin) []*utxo.Coin {

	sort.SliceStable(coins, func(i, j int) bool {
		iUnmined := coins[i].Height == utxo.UnminedHeight
		jUnmined := coins[j].Height == utxo.UnminedHeight
		if iUnmined != jUnmined {
			return jUnmined
		}

		return coins[i].Value > coins[j].Value
	})

	return coins
}

// String returns the strategy's name.
func (*LargestFirstCoinSelector) String() string {
	return "value"
}
