// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/btcsuite/btclog"
	"github.com/btcsuite/btcmtx/coinselect"
	"github.com/btcsuite/btcmtx/mtx"
	"github.com/btcsuite/btcmtx/workers"
	"github.com/jrick/logrotate/rotator"
)

// logWriter implements an io.Writer that outputs to both standard error and
// the write-end pipe of an initialized log rotator.
type logWriter struct{}

func (logWriter) Write(p []byte) (n int, err error) {
	os.Stderr.Write(p)
	if logRotator != nil {
		logRotator.Write(p)
	}

	return len(p), nil
}

var (
	// backendLog is the logging backend used to create all subsystem
	// loggers.
	backendLog = btclog.NewBackend(logWriter{})

	// logRotator is one of the logging outputs. It is nil until
	// initLogRotator is called.
	logRotator *rotator.Rotator

	log     = backendLog.Logger("MAIN")
	mtxnLog = backendLog.Logger("MTXN")
	cselLog = backendLog.Logger("CSEL")
	wrkrLog = backendLog.Logger("WRKR")
)

// Initialize package-global logger variables.
func init() {
	mtx.UseLogger(mtxnLog)
	coinselect.UseLogger(cselLog)
	workers.UseLogger(wrkrLog)
}

// subsystemLoggers maps each subsystem identifier to its associated logger.
var subsystemLoggers = map[string]btclog.Logger{
	"MAIN": log,
	"MTXN": mtxnLog,
	"CSEL": cselLog,
	"WRKR": wrkrLog,
}

// initLogRotator initializes the logging rotater to write logs to logFile and
// create roll files in the same directory. It must be called before the
// package-global log rotater variables are used.
func initLogRotator(logFile string) {
	logDir, _ := filepath.Split(logFile)
	if err := os.MkdirAll(logDir, 0700); err != nil {
		fmt.Fprintf(os.Stderr, "failed to create log directory: %v\n",
			err)
		os.Exit(1)
	}

	r, err := rotator.New(logFile, 10*1024, false, 3)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create file rotator: %v\n",
			err)
		os.Exit(1)
	}

	logRotator = r
}

// setLogLevel sets the logging level for provided subsystem. Invalid
// subsystems are ignored.
func setLogLevel(subsystemID string, logLevel string) {
	logger, ok := subsystemLoggers[subsystemID]
	if !ok {
		return
	}

	level, _ := btclog.LevelFromString(logLevel)
	logger.SetLevel(level)
}

// setLogLevels sets the log level for all subsystem loggers to the passed
// level.
func setLogLevels(logLevel string) {
	for subsystemID := range subsystemLoggers {
		setLogLevel(subsystemID, logLevel)
	}
}

// supportedSubsystems returns a sorted slice of the supported subsystems for
// logging purposes.
func supportedSubsystems() []string {
	subsystems := make([]string, 0, len(subsystemLoggers))
	for subsysID := range subsystemLoggers {
		subsystems = append(subsystems, subsysID)
	}
	sort.Strings(subsystems)

	return subsystems
}

// validLogLevel returns whether or not logLevel is a valid debug log level.
func validLogLevel(logLevel string) bool {
	_, ok := btclog.LevelFromString(logLevel)
	return ok
}

// parseAndSetDebugLevels attempts to parse the specified debug level and set
// the levels accordingly. An appropriate error is returned if anything is
// invalid.
func parseAndSetDebugLevels(debugLevel string) error {
	// When the specified string doesn't have any delimiters, treat it as
	// the log level for all subsystems.
	if !strings.Contains(debugLevel, ",") &&
		!strings.Contains(debugLevel, "=") {

		if !validLogLevel(debugLevel) {
			return fmt.Errorf("the specified debug level [%v] is "+
				"invalid", debugLevel)
		}
		setLogLevels(debugLevel)

		return nil
	}

	// Split the specified string into subsystem/level pairs while
	// detecting issues and update the log levels accordingly.
	for _, logLevelPair := range strings.Split(debugLevel, ",") {
		fields := strings.Split(logLevelPair, "=")
		if len(fields) != 2 {
			return fmt.Errorf("the specified debug level has an "+
				"invalid format [%v] -- use format "+
				"<subsystem>=<level>,<subsystem2>=<level2>,...",
				logLevelPair)
		}

		subsysID, logLevel := fields[0], fields[1]
		if _, exists := subsystemLoggers[subsysID]; !exists {
			return fmt.Errorf("the specified subsystem [%v] is "+
				"invalid -- supported subsystems %v", subsysID,
				supportedSubsystems())
		}

		if !validLogLevel(logLevel) {
			return fmt.Errorf("the specified debug level [%v] is "+
				"invalid", logLevel)
		}

		setLogLevel(subsysID, logLevel)
	}

	return nil
}
