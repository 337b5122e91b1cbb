package monitor

import "github.com/dexwallet/tx-manager/config/types"

// Config for the transaction watcher
type Config struct {
	// InitialWaitInterval is the time a watcher waits before polling for the receipt the first time
	InitialWaitInterval types.Duration `mapstructure:"InitialWaitInterval"`

	// ReceiptCheckInterval is the time between receipt polls for a watched tx
	ReceiptCheckInterval types.Duration `mapstructure:"ReceiptCheckInterval"`

	// RPCReadTimeout is the timeout applied to every receipt query
	RPCReadTimeout types.Duration `mapstructure:"RPCReadTimeout"`

	// FiatOnRampCheckInterval is the time between status polls against the ramp provider
	FiatOnRampCheckInterval types.Duration `mapstructure:"FiatOnRampCheckInterval"`

	// FiatOnRampStaleAfter is how long a ramp tx may stay not-found before it is marked unknown
	FiatOnRampStaleAfter types.Duration `mapstructure:"FiatOnRampStaleAfter"`
}
