package calculator

import (
	"math/rand"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ledger(pairs ...any) Ledger {
	var l Ledger
	for i := 0; i < len(pairs); i += 2 {
		l = append(l, Entry{Participant: pairs[i].(string), Amount: d(pairs[i+1].(string))})
	}
	return l
}

func debt(from, to, amount string) Debt {
	return Debt{DebtorID: from, CreditorID: to, Amount: d(amount)}
}

// assertDebts compares debts by value; decimal equality ignores exponent.
func assertDebts(t *testing.T, want, got []Debt) {
	t.Helper()
	require.Len(t, got, len(want))
	for i := range want {
		assert.Equal(t, want[i].DebtorID, got[i].DebtorID, "debt %d debtor", i)
		assert.Equal(t, want[i].CreditorID, got[i].CreditorID, "debt %d creditor", i)
		assert.True(t, want[i].Amount.Equal(got[i].Amount), "debt %d amount = %s, want %s", i, got[i].Amount, want[i].Amount)
	}
}

func TestSettle(t *testing.T) {
	tests := []struct {
		name string
		bill Bill
		want []Debt
	}{
		{
			name: "payer's own share is not a debt",
			bill: Bill{
				Items: []Item{
					{Name: "Steak", Price: d("100"), Participants: []string{"A"}},
					{Name: "Fish", Price: d("150"), Participants: []string{"B"}},
					{Name: "Wine", Price: d("60"), IsShared: true},
				},
				Participants: []string{"A", "B"},
				PayerID:      "A",
			},
			want: []Debt{debt("B", "A", "180")},
		},
		{
			name: "tip divided across everyone",
			bill: Bill{
				Items:        []Item{{Name: "Dinner", Price: d("300"), IsShared: true}},
				Participants: []string{"A", "B", "C"},
				PayerID:      "A",
				Tip:          d("30"),
			},
			want: []Debt{debt("B", "A", "110"), debt("C", "A", "110")},
		},
		{
			name: "participant with nothing owed is skipped",
			bill: Bill{
				Items:        []Item{{Name: "Beer", Price: d("12"), Participants: []string{"A", "C"}}},
				Participants: []string{"A", "B", "C"},
				PayerID:      "A",
			},
			want: []Debt{debt("C", "A", "6")},
		},
		{
			name: "rounded once per debt",
			bill: Bill{
				Items: []Item{
					{Name: "Cake", Price: d("10"), IsShared: true},
					{Name: "Tea", Price: d("10"), IsShared: true},
				},
				Participants: []string{"A", "B", "C"},
				PayerID:      "C",
			},
			want: []Debt{debt("A", "C", "6.67"), debt("B", "C", "6.67")},
		},
		{
			name: "payer alone owes nothing",
			bill: Bill{
				Items:        []Item{{Name: "Coffee", Price: d("4"), IsShared: true}},
				Participants: []string{"A"},
				PayerID:      "A",
			},
			want: []Debt{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Settle(tt.bill)
			require.NoError(t, err)
			assertDebts(t, tt.want, got)
		})
	}
}

func TestSettle_PayerNotInParticipants(t *testing.T) {
	_, err := Settle(Bill{
		Items:        []Item{{Name: "Dinner", Price: d("50"), IsShared: true}},
		Participants: []string{"A", "B"},
		PayerID:      "Z",
	})
	assert.ErrorIs(t, err, ErrPayerNotInParticipants)
	assert.ErrorIs(t, err, ErrInputContract)
}

func TestSettle_EmptyParticipants(t *testing.T) {
	_, err := Settle(Bill{PayerID: "A"})
	assert.ErrorIs(t, err, ErrEmptyParticipantSet)
}

func TestSettleBill(t *testing.T) {
	t.Run("follows ledger order", func(t *testing.T) {
		got, err := SettleBill(ledger("C", "5", "A", "10", "B", "7.125"), "A")
		require.NoError(t, err)
		assertDebts(t, []Debt{debt("C", "A", "5"), debt("B", "A", "7.13")}, got)
	})

	t.Run("amount rounding to zero is dropped", func(t *testing.T) {
		got, err := SettleBill(ledger("A", "10", "B", "0.004"), "A")
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("payer missing", func(t *testing.T) {
		_, err := SettleBill(ledger("A", "10"), "B")
		assert.ErrorIs(t, err, ErrPayerNotInParticipants)
	})

	t.Run("negative owed amount", func(t *testing.T) {
		_, err := SettleBill(ledger("A", "10", "B", "-1"), "A")
		assert.ErrorIs(t, err, ErrNegativeAmount)
	})

	t.Run("empty ledger", func(t *testing.T) {
		_, err := SettleBill(nil, "A")
		assert.ErrorIs(t, err, ErrEmptyParticipantSet)
	})
}

func TestReduceBalances(t *testing.T) {
	tests := []struct {
		name     string
		balances Ledger
		want     []Debt
	}{
		{
			name:     "single transfer skips settled participant",
			balances: ledger("A", "-50", "B", "0", "C", "50"),
			want:     []Debt{debt("A", "C", "50")},
		},
		{
			name:     "multiple debtors and creditors",
			balances: ledger("A", "-30", "B", "-20", "C", "25", "D", "25"),
			want:     []Debt{debt("A", "C", "25"), debt("A", "D", "5"), debt("B", "D", "20")},
		},
		{
			name:     "equal split",
			balances: ledger("A", "200", "B", "-100", "C", "-100"),
			want:     []Debt{debt("B", "A", "100"), debt("C", "A", "100")},
		},
		{
			name:     "order decides the matching",
			balances: ledger("B", "-20", "A", "-30", "C", "25", "D", "25"),
			want:     []Debt{debt("B", "C", "20"), debt("A", "C", "5"), debt("A", "D", "25")},
		},
		{
			name:     "everyone settled",
			balances: ledger("A", "0", "B", "0"),
			want:     nil,
		},
		{
			name:     "empty sheet",
			balances: nil,
			want:     nil,
		},
		{
			name:     "amounts rounded at emission",
			balances: ledger("A", "-33.333", "B", "-33.333", "C", "66.666"),
			want:     []Debt{debt("A", "C", "33.33"), debt("B", "C", "33.33")},
		},
		{
			name:     "drift within a cent is tolerated",
			balances: ledger("A", "-50.004", "B", "50"),
			want:     []Debt{debt("A", "B", "50")},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ReduceBalances(tt.balances)
			require.NoError(t, err)
			assertDebts(t, tt.want, got)
		})
	}
}

func TestReduceBalances_Errors(t *testing.T) {
	t.Run("conservation violation", func(t *testing.T) {
		_, err := ReduceBalances(ledger("A", "-50", "C", "40"))
		assert.ErrorIs(t, err, ErrConservationViolation)
		assert.ErrorIs(t, err, ErrArithmeticInvariant)
	})

	t.Run("duplicate participant", func(t *testing.T) {
		_, err := ReduceBalances(ledger("A", "-10", "A", "10"))
		assert.ErrorIs(t, err, ErrDuplicateParticipant)
	})
}

// TestReduceBalances_Properties runs the reducer over generated balance
// sheets and checks the guarantees it makes for every valid input.
func TestReduceBalances_Properties(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	names := []string{"A", "B", "C", "D", "E", "F", "G", "H"}

	for run := 0; run < 200; run++ {
		n := 2 + rng.Intn(len(names)-1)
		balances := make(Ledger, n)
		total := decimal.Zero
		for i := 0; i < n-1; i++ {
			amount := decimal.New(rng.Int63n(200000)-100000, -2)
			balances[i] = Entry{Participant: names[i], Amount: amount}
			total = total.Add(amount)
		}
		balances[n-1] = Entry{Participant: names[n-1], Amount: total.Neg()}

		debts, err := ReduceBalances(balances)
		require.NoError(t, err)

		positive, debtors, creditors := decimal.Zero, 0, 0
		for _, e := range balances {
			switch {
			case e.Amount.IsPositive():
				positive = positive.Add(e.Amount)
				creditors++
			case e.Amount.IsNegative():
				debtors++
			}
		}

		paid := decimal.Zero
		for _, debt := range debts {
			assert.NotEqual(t, debt.DebtorID, debt.CreditorID, "self debt")
			assert.True(t, debt.Amount.IsPositive(), "non-positive amount %s", debt.Amount)
			paid = paid.Add(debt.Amount)
		}
		assert.True(t, paid.Sub(positive).Abs().LessThanOrEqual(d("0.01")),
			"transfers sum to %s, creditors are owed %s", paid, positive)
		if debtors+creditors > 0 {
			assert.LessOrEqual(t, len(debts), debtors+creditors-1)
		}

		again, err := ReduceBalances(balances)
		require.NoError(t, err)
		assertDebts(t, debts, again)
	}
}

func TestNetBalances(t *testing.T) {
	debts := []Debt{
		debt("B", "A", "30"),
		debt("C", "A", "20"),
		debt("A", "C", "50"),
	}

	got := NetBalances(debts)
	assertLedgerExact(t, ledger("B", "-30", "A", "0", "C", "30"), got)

	simplified, err := ReduceBalances(got)
	require.NoError(t, err)
	assertDebts(t, []Debt{debt("B", "C", "30")}, simplified)
}

func assertLedgerExact(t *testing.T, want, got Ledger) {
	t.Helper()
	require.Len(t, got, len(want))
	for i := range want {
		assert.Equal(t, want[i].Participant, got[i].Participant)
		assert.True(t, want[i].Amount.Equal(got[i].Amount), "%s = %s, want %s", want[i].Participant, got[i].Amount, want[i].Amount)
	}
}
