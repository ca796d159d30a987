package cli

import (
	"errors"
	"strings"

	solana "github.com/gagliardetto/solana-go"
	"github.com/manifoldco/promptui"
	"github.com/shopspring/decimal"
)

var (
	ErrInputEmpty    = errors.New("input is empty")
	ErrInvalidChoice = errors.New("invalid choice")
)

// ValidatePublicKey accepts a base58 address.
func ValidatePublicKey(input string) error {
	if strings.TrimSpace(input) == "" {
		return ErrInputEmpty
	}
	_, err := solana.PublicKeyFromBase58(strings.TrimSpace(input))
	return err
}

// ValidateAmount accepts a positive human amount such as "1" or "0.00001".
func ValidateAmount(input string) error {
	if strings.TrimSpace(input) == "" {
		return ErrInputEmpty
	}
	d, err := decimal.NewFromString(strings.TrimSpace(input))
	if err != nil {
		return err
	}
	if !d.IsPositive() {
		return errors.New("amount must be positive")
	}
	return nil
}

// ValidateCommitment accepts processed, confirmed or finalized.
func ValidateCommitment(input string) error {
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "processed", "confirmed", "finalized":
		return nil
	case "":
		return ErrInputEmpty
	default:
		return ErrInvalidChoice
	}
}

// optional lets a blank answer through so the caller can keep the current value.
func optional(validate func(string) error) func(string) error {
	return func(input string) error {
		if validate == nil || strings.TrimSpace(input) == "" {
			return nil
		}
		return validate(input)
	}
}

// PromptValue asks for label, keeping current on a blank answer.
func PromptValue(label, current string, validate func(string) error) (string, error) {
	prompt := promptui.Prompt{
		Label:    label,
		Default:  current,
		Validate: optional(validate),
	}
	v, err := prompt.Run()
	if err != nil {
		return current, err
	}
	if v = strings.TrimSpace(v); v == "" {
		return current, nil
	}
	return v, nil
}

// PromptChoice shows a select list and returns the picked index.
func PromptChoice(label string, items []string) (int, error) {
	sel := promptui.Select{Label: label, Items: items, Size: len(items)}
	idx, _, err := sel.Run()
	return idx, err
}
