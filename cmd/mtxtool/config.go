// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcmtx/utxo"
	"github.com/jessevdk/go-flags"
)

const (
	defaultConfigFilename = "mtxtool.conf"
	defaultLogLevel       = "info"
	defaultLogDirname     = "logs"
	defaultLogFilename    = "mtxtool.log"
	defaultStrategy       = "age"
	defaultFeeRate        = 1
)

var (
	defaultAppDataDir = btcutil.AppDataDir("mtxtool", false)
	defaultConfigFile = filepath.Join(
		defaultAppDataDir, defaultConfigFilename,
	)
	defaultLogDir = filepath.Join(defaultAppDataDir, defaultLogDirname)

	errMultipleNets = errors.New("the testnet, regtest and simnet " +
		"options can not be used together")
)

type config struct {
	ConfigFile string `short:"C" long:"configfile" description:"Path to configuration file"`
	LogDir     string `long:"logdir" description:"Directory to log output"`
	DebugLevel string `short:"d" long:"debuglevel" description:"Logging level {trace, debug, info, warn, error, critical}, or <subsystem>=<level>,... to set levels per subsystem"`

	TestNet3 bool `long:"testnet" description:"Use the test Bitcoin network"`
	RegTest  bool `long:"regtest" description:"Use the regression test network"`
	SimNet   bool `long:"simnet" description:"Use the simulation test network"`

	Coins   []string `long:"coin" description:"Candidate coin as txid:index:amount:pkscript[:height[:coinbase]], amount in BTC, pkscript in hex"`
	Outputs []string `long:"output" description:"Output as address=amount, amount in BTC"`
	Change  string   `long:"change" description:"Change address"`

	WIFs          []string `long:"wif" description:"WIF encoded signing key"`
	PromptKeys    bool     `long:"promptkeys" description:"Read WIF encoded signing keys from the terminal"`
	RedeemScripts []string `long:"redeemscript" description:"Hex encoded redeem or witness script the signing keys take part in"`

	FeeRate     int64   `long:"feerate" description:"Fee rate in sat/vb"`
	RoundFee    bool    `long:"roundfee" description:"Charge the fee for whole kilo-vbytes"`
	HardFee     float64 `long:"fee" description:"Fixed fee in BTC, disables fee estimation"`
	MaxFee      float64 `long:"maxfee" description:"Fail if the fee exceeds this amount in BTC"`
	SubtractFee bool    `long:"subtractfee" description:"Take the fee out of the first output that can pay it"`
	Strategy    string  `long:"strategy" description:"Coin selection strategy {age, random, all, value}"`
	Height      int32   `long:"height" description:"Current chain height, -1 if unknown"`
	MinConf     int32   `long:"minconf" description:"Only spend coins with at least this many confirmations"`

	BIP69        bool   `long:"bip69" description:"Sort inputs and outputs per BIP 69"`
	LockTime     uint32 `long:"locktime" description:"Absolute lock time"`
	AntiFeeSnipe bool   `long:"antifeesnipe" description:"Lock the transaction to the current height"`
	Workers      int    `long:"workers" description:"Number of workers estimating and signing, 0 runs inline"`
	PSBT         bool   `long:"psbt" description:"Print an unsigned PSBT instead of the signed transaction"`

	params *chaincfg.Params
}

// loadConfig initializes and parses the config using a config file and
// command line options. Command line options override the config file, which
// overrides the defaults.
func loadConfig() (*config, []string, error) {
	cfg := config{
		ConfigFile: defaultConfigFile,
		LogDir:     defaultLogDir,
		DebugLevel: defaultLogLevel,
		FeeRate:    defaultFeeRate,
		Strategy:   defaultStrategy,
		Height:     utxo.UnminedHeight,
	}

	// Pre-parse the command line options to see if an alternative config
	// file or the help flag was given.
	preCfg := cfg
	preParser := flags.NewParser(&preCfg, flags.Default)
	if _, err := preParser.Parse(); err != nil {
		return nil, nil, err
	}

	parser := flags.NewParser(&cfg, flags.Default)
	configFileError := flags.NewIniParser(parser).ParseFile(
		preCfg.ConfigFile,
	)
	if configFileError != nil {
		var pathErr *os.PathError
		if !errors.As(configFileError, &pathErr) {
			return nil, nil, fmt.Errorf("error parsing config "+
				"file: %w", configFileError)
		}
	}

	remainingArgs, err := parser.Parse()
	if err != nil {
		return nil, nil, err
	}

	if err := cfg.validate(); err != nil {
		parser.WriteHelp(os.Stderr)
		return nil, nil, err
	}

	initLogRotator(filepath.Join(
		cleanAndExpandPath(cfg.LogDir), cfg.params.Name,
		defaultLogFilename,
	))
	if err := parseAndSetDebugLevels(cfg.DebugLevel); err != nil {
		return nil, nil, err
	}

	// Only report a missing config file once logging is set up, and only
	// if a non-default one was asked for.
	if configFileError != nil && preCfg.ConfigFile != defaultConfigFile {
		log.Warnf("%v", configFileError)
	}

	return &cfg, remainingArgs, nil
}

// validate checks the parsed options and resolves the network.
func (c *config) validate() error {
	c.params = &chaincfg.MainNetParams

	var numNets int
	if c.TestNet3 {
		numNets++
		c.params = &chaincfg.TestNet3Params
	}
	if c.RegTest {
		numNets++
		c.params = &chaincfg.RegressionNetParams
	}
	if c.SimNet {
		numNets++
		c.params = &chaincfg.SimNetParams
	}
	if numNets > 1 {
		return errMultipleNets
	}

	if c.FeeRate < 0 {
		return fmt.Errorf("fee rate %d must not be negative", c.FeeRate)
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers %d must not be negative", c.Workers)
	}

	return nil
}

// cleanAndExpandPath expands environment variables and a leading ~ in the
// passed path, cleans the result, and returns it.
func cleanAndExpandPath(path string) string {
	if strings.HasPrefix(path, "~") {
		homeDir := filepath.Dir(defaultAppDataDir)
		path = strings.Replace(path, "~", homeDir, 1)
	}

	return filepath.Clean(os.ExpandEnv(path))
}
