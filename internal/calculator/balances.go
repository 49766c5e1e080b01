package calculator

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/dutaksim/backend/internal/money"
)

// Bill represents a bill with the minimal information needed to settle it.
type Bill struct {
	Items        []Item
	Participants []string
	PayerID      string
	Tip          decimal.Decimal
}

// Debt represents a debt from one person to another.
type Debt struct {
	DebtorID   string // Person who owes
	CreditorID string // Person who is owed
	Amount     decimal.Decimal
}

// Settle computes the debts a bill leaves behind: every participant other
// than the payer owes the payer their share.
func Settle(bill Bill) ([]Debt, error) {
	if len(bill.Participants) == 0 {
		return nil, ErrEmptyParticipantSet
	}
	if !contains(bill.Participants, bill.PayerID) {
		return nil, fmt.Errorf("payer %q: %w", bill.PayerID, ErrPayerNotInParticipants)
	}

	owed, err := ComputeOwedAmounts(bill.Items, bill.Participants, bill.Tip)
	if err != nil {
		return nil, err
	}
	return SettleBill(owed, bill.PayerID)
}

// SettleBill turns owed amounts into debts towards a single payer. The payer's
// own share is dropped, and anyone whose share rounds to zero owes nothing.
// Debts follow the ledger order.
func SettleBill(owed Ledger, payerID string) ([]Debt, error) {
	if len(owed) == 0 {
		return nil, ErrEmptyParticipantSet
	}
	if _, ok := owed.Get(payerID); !ok {
		return nil, fmt.Errorf("payer %q: %w", payerID, ErrPayerNotInParticipants)
	}

	debts := make([]Debt, 0, len(owed)-1)
	for _, e := range owed {
		if e.Amount.IsNegative() {
			return nil, fmt.Errorf("owed amount for %q: %w", e.Participant, ErrNegativeAmount)
		}
		if e.Participant == payerID {
			continue
		}
		amount := money.Round(e.Amount)
		if !amount.IsPositive() {
			continue
		}
		debts = append(debts, Debt{
			DebtorID:   e.Participant,
			CreditorID: payerID,
			Amount:     amount,
		})
	}
	return debts, nil
}

// ReduceBalances emits transfers that bring every balance to zero.
// Positive balances are owed money, negative balances owe money.
//
// Algorithm:
//   - split the ledger into debtors and creditors, keeping ledger order
//   - walk both lists with one cursor each, transferring the smaller of the
//     two remaining amounts
//   - advance whichever side reached zero; stop when either side runs out
//
// This emits at most len(debtors)+len(creditors)-1 transfers. Amounts are
// rounded to cents as they are emitted; a transfer that rounds to zero is
// consumed without being emitted.
func ReduceBalances(balances Ledger) ([]Debt, error) {
	seen := make(map[string]bool, len(balances))
	for _, e := range balances {
		if seen[e.Participant] {
			return nil, fmt.Errorf("participant %q: %w", e.Participant, ErrDuplicateParticipant)
		}
		seen[e.Participant] = true
	}

	// The sweep moves equal amounts off both sides, so whatever it leaves
	// behind is exactly this sum.
	if total := balances.Total(); !money.WithinEpsilon(total) {
		return nil, fmt.Errorf("sum is %s: %w", total, ErrConservationViolation)
	}

	var debtors, creditors Ledger
	for _, e := range balances {
		switch {
		case e.Amount.IsNegative():
			debtors = append(debtors, Entry{Participant: e.Participant, Amount: e.Amount.Neg()})
		case e.Amount.IsPositive():
			creditors = append(creditors, e)
		}
	}

	var debts []Debt
	i, j := 0, 0
	for i < len(debtors) && j < len(creditors) {
		debtor := &debtors[i]
		creditor := &creditors[j]

		amount := decimal.Min(debtor.Amount, creditor.Amount)
		if rounded := money.Round(amount); rounded.IsPositive() {
			debts = append(debts, Debt{
				DebtorID:   debtor.Participant,
				CreditorID: creditor.Participant,
				Amount:     rounded,
			})
		}

		debtor.Amount = debtor.Amount.Sub(amount)
		creditor.Amount = creditor.Amount.Sub(amount)

		if debtor.Amount.IsZero() {
			i++
		}
		if creditor.Amount.IsZero() {
			j++
		}
	}

	return debts, nil
}

// NetBalances folds a list of debts into one signed balance per person:
// creditors end up positive, debtors negative. People appear in the order
// they are first seen.
func NetBalances(debts []Debt) Ledger {
	var balances Ledger
	index := make(map[string]int)

	add := func(participant string, amount decimal.Decimal) {
		i, ok := index[participant]
		if !ok {
			i = len(balances)
			index[participant] = i
			balances = append(balances, Entry{Participant: participant, Amount: decimal.Zero})
		}
		balances[i].Amount = balances[i].Amount.Add(amount)
	}

	for _, d := range debts {
		add(d.DebtorID, d.Amount.Neg())
		add(d.CreditorID, d.Amount)
	}
	return balances
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
