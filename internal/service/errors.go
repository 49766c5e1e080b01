package service

import (
	"errors"
	"fmt"

	"connectrpc.com/connect"
	"github.com/shopspring/decimal"

	"github.com/dutaksim/backend/internal/calculator"
	"github.com/dutaksim/backend/internal/money"
	"github.com/dutaksim/backend/internal/storage"
)

var (
	errInvalidRequest   = errors.New("invalid request")
	errSessionNotActive = errors.New("session is not active")
)

// invalidf builds a request validation error.
func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errInvalidRequest, fmt.Sprintf(format, args...))
}

// validateAmount rejects amounts that are not shaped like currency. It runs
// before any arithmetic or formatting touches the value.
func validateAmount(field string, d decimal.Decimal) error {
	if err := money.Validate(d); err != nil {
		return fmt.Errorf("%w: %s: %w", calculator.ErrInputContract, field, err)
	}
	return nil
}

// validateCharges checks every item price and the tip.
func validateCharges(items []Item, tip decimal.Decimal) error {
	for i, item := range items {
		if err := validateAmount(fmt.Sprintf("item %d price", i), item.Price); err != nil {
			return err
		}
	}
	return validateAmount("tip", tip)
}

// toConnectError maps domain and storage errors onto Connect codes.
func toConnectError(err error) *connect.Error {
	var connectErr *connect.Error
	if errors.As(err, &connectErr) {
		return connectErr
	}

	switch {
	case errors.Is(err, errInvalidRequest),
		errors.Is(err, calculator.ErrInputContract),
		errors.Is(err, calculator.ErrZeroParticipantDivision):
		return connect.NewError(connect.CodeInvalidArgument, err)
	case errors.Is(err, calculator.ErrArithmeticInvariant),
		errors.Is(err, errSessionNotActive),
		errors.Is(err, storage.ErrConflict):
		return connect.NewError(connect.CodeFailedPrecondition, err)
	case errors.Is(err, storage.ErrNotFound):
		return connect.NewError(connect.CodeNotFound, err)
	default:
		return connect.NewError(connect.CodeInternal, err)
	}
}
