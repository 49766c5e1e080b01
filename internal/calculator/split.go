package calculator

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/dutaksim/backend/internal/money"
)

// Item represents a single line item on the bill.
type Item struct {
	Name  string
	Price decimal.Decimal

	// IsShared splits the item across every bill participant.
	IsShared bool

	// Participants lists who the item is split among when it is not shared.
	// An empty list behaves exactly like IsShared.
	Participants []string
}

// Entry is one participant's amount in a Ledger.
type Entry struct {
	Participant string
	Amount      decimal.Decimal
}

// Ledger is an ordered per-participant amount sheet. The order is part of the
// input: it decides which debtor is matched with which creditor.
type Ledger []Entry

// Get returns the amount recorded for a participant.
func (l Ledger) Get(participant string) (decimal.Decimal, bool) {
	for _, e := range l {
		if e.Participant == participant {
			return e.Amount, true
		}
	}
	return decimal.Zero, false
}

// Total sums every entry.
func (l Ledger) Total() decimal.Decimal {
	total := decimal.Zero
	for _, e := range l {
		total = total.Add(e.Amount)
	}
	return total
}

// ComputeOwedAmounts computes how much each participant owes for the bill's
// items and tip, before anyone has paid anything.
//
// Algorithm:
//   - every participant starts at zero
//   - a shared item (or one with no explicit participants) is divided by the
//     whole roster, otherwise by its own participant list
//   - the tip is divided evenly by the whole roster
//
// Shares are kept at internal precision; the result is not rounded. The
// ledger follows the order of participants.
func ComputeOwedAmounts(items []Item, participants []string, tip decimal.Decimal) (Ledger, error) {
	if len(participants) == 0 {
		return nil, ErrEmptyParticipantSet
	}
	if tip.IsNegative() {
		return nil, fmt.Errorf("tip %s: %w", tip, ErrNegativeAmount)
	}

	index := make(map[string]int, len(participants))
	owed := make(Ledger, len(participants))
	for i, p := range participants {
		if _, dup := index[p]; dup {
			return nil, fmt.Errorf("participant %q: %w", p, ErrDuplicateParticipant)
		}
		index[p] = i
		owed[i] = Entry{Participant: p, Amount: decimal.Zero}
	}

	for i, item := range items {
		if item.Price.IsNegative() {
			return nil, fmt.Errorf("item %d (%s) price %s: %w", i, item.Name, item.Price, ErrNegativeAmount)
		}

		splitAmong, err := itemParticipants(item, participants, index)
		if err != nil {
			return nil, fmt.Errorf("item %d (%s): %w", i, item.Name, err)
		}
		if err := addShares(owed, index, splitAmong, item.Price); err != nil {
			return nil, fmt.Errorf("item %d (%s): %w", i, item.Name, err)
		}
	}

	if tip.IsPositive() {
		if err := addShares(owed, index, participants, tip); err != nil {
			return nil, fmt.Errorf("tip: %w", err)
		}
	}

	return owed, nil
}

// itemParticipants resolves who an item is split among.
func itemParticipants(item Item, all []string, index map[string]int) ([]string, error) {
	if item.IsShared || len(item.Participants) == 0 {
		return all, nil
	}

	seen := make(map[string]bool, len(item.Participants))
	for _, p := range item.Participants {
		if _, ok := index[p]; !ok {
			return nil, fmt.Errorf("%q: %w", p, ErrUnknownParticipant)
		}
		if seen[p] {
			return nil, fmt.Errorf("%q: %w", p, ErrDuplicateParticipant)
		}
		seen[p] = true
	}
	return item.Participants, nil
}

// addShares divides amount evenly across splitAmong and adds each share to
// the running totals.
func addShares(owed Ledger, index map[string]int, splitAmong []string, amount decimal.Decimal) error {
	if len(splitAmong) == 0 {
		return ErrZeroParticipantDivision
	}

	share := money.Split(amount, len(splitAmong))
	for _, p := range splitAmong {
		i := index[p]
		owed[i].Amount = owed[i].Amount.Add(share)
	}
	return nil
}
