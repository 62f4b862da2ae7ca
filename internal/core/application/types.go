package application

import (
	"fmt"

	"github.com/shopspring/decimal"
)

const (
	// maxMemoBytes is the network's text-memo byte limit.
	maxMemoBytes = 28
	// maxAmountPrecision is the number of decimal places the ledger
	// represents amounts with.
	maxAmountPrecision = 7
)

var (
	ErrInvalidKey    = fmt.Errorf("invalid public key")
	ErrInvalidAmount = fmt.Errorf(
		"amount must be a positive decimal with at most 7 decimal places",
	)
)

// BuildInfo holds the daemon's build details, injected at link time.
type BuildInfo struct {
	Version string
	Commit  string
	Date    string
}

// ParseAmount validates a decimal-string amount and returns its canonical
// representation. Amounts travel as strings end to end to avoid
// floating-point precision loss.
func ParseAmount(amount string) (string, error) {
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return "", ErrInvalidAmount
	}
	if !d.IsPositive() {
		return "", ErrInvalidAmount
	}
	if -d.Exponent() > maxAmountPrecision {
		return "", ErrInvalidAmount
	}
	return d.String(), nil
}

// TruncateMemo silently caps a text memo to the network's 28-byte limit.
// The truncation is lossy by contract, callers must surface that to users.
func TruncateMemo(memo string) string {
	if len(memo) <= maxMemoBytes {
		return memo
	}
	return memo[:maxMemoBytes]
}
