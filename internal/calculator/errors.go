package calculator

import (
	"errors"
	"fmt"
)

// Error classes. Every specific error below wraps exactly one of them, so
// callers can branch on the class with errors.Is.
var (
	// ErrInputContract means the caller supplied malformed bill data.
	ErrInputContract = errors.New("input contract violation")

	// ErrArithmeticInvariant means a money conservation check failed.
	ErrArithmeticInvariant = errors.New("arithmetic invariant violation")

	// ErrZeroParticipantDivision means an item resolved to an empty split set.
	ErrZeroParticipantDivision = errors.New("item has no participants to split among")
)

var (
	ErrEmptyParticipantSet    = fmt.Errorf("%w: bill must have at least one participant", ErrInputContract)
	ErrPayerNotInParticipants = fmt.Errorf("%w: payer must be one of the participants", ErrInputContract)
	ErrNegativeAmount         = fmt.Errorf("%w: amount cannot be negative", ErrInputContract)
	ErrUnknownParticipant     = fmt.Errorf("%w: participant is not on the bill", ErrInputContract)
	ErrDuplicateParticipant   = fmt.Errorf("%w: participant listed more than once", ErrInputContract)

	ErrConservationViolation = fmt.Errorf("%w: balances do not sum to zero", ErrArithmeticInvariant)
)
