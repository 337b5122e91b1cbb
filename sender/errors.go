package sender

import (
	"errors"
	"fmt"
	"strings"
)

// Classified submission error kinds. The classification feeds telemetry and user-facing
// messages, so the set is intentionally small and stable.
var (
	ErrNonce                  = errors.New("nonce_error")
	ErrInsufficientFunds      = errors.New("insufficient_funds")
	ErrReplacementUnderpriced = errors.New("replacement_underpriced")
	ErrGas                    = errors.New("gas_error")
	ErrUserRejected           = errors.New("user_rejected")
	ErrUnknown                = errors.New("unknown_error")
)

// ClassifySendError maps a raw signing/broadcast error into one of the classified kinds,
// preserving the kind for errors.Is checks.
func ClassifySendError(err error) error {
	if err == nil {
		return nil
	}

	msg := strings.ToLower(err.Error())
	var kind error
	switch {
	case strings.Contains(msg, "nonce too low"), strings.Contains(msg, "nonce too high"),
		strings.Contains(msg, "invalid nonce"), strings.Contains(msg, "already known"):
		kind = ErrNonce
	case strings.Contains(msg, "insufficient funds"):
		kind = ErrInsufficientFunds
	case strings.Contains(msg, "replacement transaction underpriced"):
		kind = ErrReplacementUnderpriced
	case strings.Contains(msg, "gas limit"), strings.Contains(msg, "intrinsic gas"),
		strings.Contains(msg, "max fee per gas"), strings.Contains(msg, "fee cap"):
		kind = ErrGas
	case strings.Contains(msg, "user rejected"), strings.Contains(msg, "user denied"):
		kind = ErrUserRejected
	default:
		kind = ErrUnknown
	}

	return fmt.Errorf("failed to send transaction: %w: %s", kind, err.Error())
}
