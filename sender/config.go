package sender

import "github.com/dexwallet/tx-manager/config/types"

// Config for the transaction sender
type Config struct {
	// SubmitTimeout is attached to every submitted tx as the advisory timeout timestamp
	// used to flag stuck transactions
	SubmitTimeout types.Duration `mapstructure:"SubmitTimeout"`
}
