// Package validate contains pure request validators. All checks run before
// any ledger or store call is made.
package validate

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// ProjectID checks that a project id is non-empty after trimming and
// returns the trimmed form.
func ProjectID(id string) (string, error) {
	trimmed := strings.TrimSpace(id)
	if trimmed == "" {
		return "", fmt.Errorf("project_id cannot be empty")
	}
	return trimmed, nil
}

// Amount checks that an amount is strictly positive.
func Amount(amount int64) error {
	if amount <= 0 {
		return fmt.Errorf("amount must be greater than 0")
	}
	return nil
}

// Address checks that s is a well-formed hex address and returns its
// EIP-55 checksummed form.
func Address(s string) (string, error) {
	if !common.IsHexAddress(s) {
		return "", fmt.Errorf("invalid address")
	}
	return common.HexToAddress(s).Hex(), nil
}

// PageParam parses a non-negative numeric query parameter, returning the
// fallback when the parameter is absent.
func PageParam(name, raw string, fallback int64) (int64, error) {
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be a number", name)
	}
	if n < 0 {
		return 0, fmt.Errorf("%s must be non-negative", name)
	}
	return n, nil
}
