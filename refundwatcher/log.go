package refundwatcher

import "github.com/btcsuite/btclog"

// log is this package's logger, disabled until the caller wires one in
// with UseLogger, following the lnd-family subsystem logging convention.
var log = btclog.Disabled

// UseLogger sets the package-wide logger used by Watcher.
func UseLogger(logger btclog.Logger) {
	log = logger
}
