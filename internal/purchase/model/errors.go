package model

import (
	"errors"
	"fmt"
)

// ErrorCategory classifies why a purchase attempt failed.
type ErrorCategory string

const (
	NotConnected        ErrorCategory = "not_connected"
	LookupFailure       ErrorCategory = "lookup_failure"
	UserRejected        ErrorCategory = "user_rejected"
	ChainRejected       ErrorCategory = "chain_rejected"
	ConfirmationTimeout ErrorCategory = "confirmation_timeout"
	EscrowAlreadyExists ErrorCategory = "escrow_already_exists"
	InsufficientFunds   ErrorCategory = "insufficient_funds"
	UnknownFailure      ErrorCategory = "unknown_failure"
)

var categoryMessages = map[ErrorCategory]string{
	NotConnected:        "Please connect your wallet first",
	LookupFailure:       "Could not check your token accounts, please try again",
	UserRejected:        "Transaction was rejected by user",
	ChainRejected:       "Transaction was rejected by the network",
	ConfirmationTimeout: "Transaction was not confirmed in time, please try again",
	EscrowAlreadyExists: "This purchase was already submitted",
	InsufficientFunds:   "Insufficient funds for transaction",
	UnknownFailure:      "Failed to purchase plan",
}

// Message returns the short user-facing text for the category.
func (c ErrorCategory) Message() string {
	if msg, ok := categoryMessages[c]; ok {
		return msg
	}
	return categoryMessages[UnknownFailure]
}

var (
	// ErrUserRejected is returned by signers when the user declines to sign.
	ErrUserRejected = errors.New("user rejected the request")
	// ErrAccountInUse is reported when an instruction creates an account that already exists.
	ErrAccountInUse = errors.New("account already in use")
	// ErrBlockhashExpired is reported when the freshness token expired before confirmation.
	ErrBlockhashExpired = errors.New("block height exceeded")
	// ErrEmptyBatch is returned when there is nothing to submit.
	ErrEmptyBatch = errors.New("batch has no instructions")
)

// Error is a classified purchase failure.
type Error struct {
	Category ErrorCategory
	Stage    Stage
	Err      error
}

func (e *Error) Error() string {
	switch {
	case e.Err == nil && e.Stage == "":
		return string(e.Category)
	case e.Err == nil:
		return fmt.Sprintf("%s: %s", e.Stage, e.Category)
	case e.Stage == "":
		return fmt.Sprintf("%s: %v", e.Category, e.Err)
	default:
		return fmt.Sprintf("%s: %s: %v", e.Stage, e.Category, e.Err)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// CategoryOf returns the category of the first *Error in err's chain.
func CategoryOf(err error) (ErrorCategory, bool) {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Category, true
	}
	return "", false
}
