package service

import (
	"errors"
	"strings"

	"github.com/goodnatureofminers/tierpay/internal/purchase/model"
)

// Classify maps any step failure to exactly one error category.
func Classify(err error) model.ErrorCategory {
	if err == nil {
		return model.UnknownFailure
	}
	if category, ok := model.CategoryOf(err); ok {
		return category
	}
	if errors.Is(err, model.ErrUserRejected) {
		return model.UserRejected
	}
	if errors.Is(err, model.ErrBlockhashExpired) {
		return model.ConfirmationTimeout
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "user rejected"):
		return model.UserRejected
	case strings.Contains(msg, "insufficient funds"), strings.Contains(msg, "insufficient lamports"):
		return model.InsufficientFunds
	default:
		return model.UnknownFailure
	}
}
