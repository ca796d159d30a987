// Package risk refuses runs that would issue or move more than the configured caps.
package risk

import (
	"errors"
	"fmt"

	"spltoken-go/internal/config"
	"spltoken-go/internal/spl"
)

// ErrLimitExceeded is wrapped (next to spl.ErrInvalidAmount) when an amount is over its cap.
var ErrLimitExceeded = errors.New("limit exceeded")

// Limits holds per-run caps in base units. Zero means unlimited.
type Limits struct {
	MaxMint     uint64
	MaxTransfer uint64
}

// FromConfig scales the human-readable caps by the mint decimals.
func FromConfig(cfg config.Limits, decimals uint8) (Limits, error) {
	var l Limits
	var err error
	if cfg.MaxMint != "" {
		if l.MaxMint, err = spl.ParseAmount(cfg.MaxMint, decimals); err != nil {
			return Limits{}, fmt.Errorf("limits.max_mint: %w", err)
		}
	}
	if cfg.MaxTransfer != "" {
		if l.MaxTransfer, err = spl.ParseAmount(cfg.MaxTransfer, decimals); err != nil {
			return Limits{}, fmt.Errorf("limits.max_transfer: %w", err)
		}
	}
	return l, nil
}

// Allow reports whether amount fits under the cap for op.
func (l Limits) Allow(op spl.Op, amount uint64) bool {
	switch op {
	case spl.OpMint:
		return l.MaxMint == 0 || amount <= l.MaxMint
	case spl.OpTransfer:
		return l.MaxTransfer == 0 || amount <= l.MaxTransfer
	default:
		return true
	}
}

// Check is Allow as an error carrying spl.ErrInvalidAmount.
func (l Limits) Check(op spl.Op, amount uint64) error {
	if l.Allow(op, amount) {
		return nil
	}
	limit := l.MaxMint
	if op == spl.OpTransfer {
		limit = l.MaxTransfer
	}
	return &spl.OpError{Op: string(op), Kind: spl.ErrInvalidAmount, Err: fmt.Errorf("%w: %d > %d", ErrLimitExceeded, amount, limit)}
}
