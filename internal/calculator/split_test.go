package calculator

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// assertLedger checks amounts after rounding to cents.
func assertLedger(t *testing.T, got Ledger, want map[string]string) {
	t.Helper()
	require.Len(t, got, len(want))
	for participant, amount := range want {
		v, ok := got.Get(participant)
		require.True(t, ok, "missing %s", participant)
		assert.True(t, v.Round(2).Equal(d(amount)), "%s owes %s, want %s", participant, v, amount)
	}
}

func TestComputeOwedAmounts(t *testing.T) {
	tests := []struct {
		name         string
		items        []Item
		participants []string
		tip          decimal.Decimal
		want         map[string]string
	}{
		{
			name: "individual and shared items",
			items: []Item{
				{Name: "Steak", Price: d("100"), Participants: []string{"A"}},
				{Name: "Fish", Price: d("150"), Participants: []string{"B"}},
				{Name: "Wine", Price: d("60"), IsShared: true},
			},
			participants: []string{"A", "B"},
			tip:          decimal.Zero,
			want:         map[string]string{"A": "130", "B": "180"},
		},
		{
			name: "shared item with tip",
			items: []Item{
				{Name: "Dinner", Price: d("300"), IsShared: true},
			},
			participants: []string{"A", "B", "C"},
			tip:          d("30"),
			want:         map[string]string{"A": "110", "B": "110", "C": "110"},
		},
		{
			name: "empty participant list behaves as shared",
			items: []Item{
				{Name: "Pizza", Price: d("20")},
			},
			participants: []string{"A", "B"},
			tip:          decimal.Zero,
			want:         map[string]string{"A": "10", "B": "10"},
		},
		{
			name: "shared flag wins over explicit participants",
			items: []Item{
				{Name: "Salad", Price: d("30"), IsShared: true, Participants: []string{"A"}},
			},
			participants: []string{"A", "B", "C"},
			tip:          decimal.Zero,
			want:         map[string]string{"A": "10", "B": "10", "C": "10"},
		},
		{
			name: "item split among a subset",
			items: []Item{
				{Name: "Beer", Price: d("10"), Participants: []string{"A", "C"}},
			},
			participants: []string{"A", "B", "C"},
			tip:          decimal.Zero,
			want:         map[string]string{"A": "5", "B": "0", "C": "5"},
		},
		{
			name: "thirds keep precision until rounding",
			items: []Item{
				{Name: "Cake", Price: d("10"), IsShared: true},
				{Name: "Tea", Price: d("10"), IsShared: true},
			},
			participants: []string{"A", "B", "C"},
			tip:          decimal.Zero,
			want:         map[string]string{"A": "6.67", "B": "6.67", "C": "6.67"},
		},
		{
			name:         "no items only tip",
			items:        nil,
			participants: []string{"A", "B"},
			tip:          d("5"),
			want:         map[string]string{"A": "2.5", "B": "2.5"},
		},
		{
			name: "zero price item",
			items: []Item{
				{Name: "Water", Price: decimal.Zero, IsShared: true},
			},
			participants: []string{"A"},
			tip:          decimal.Zero,
			want:         map[string]string{"A": "0"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ComputeOwedAmounts(tt.items, tt.participants, tt.tip)
			require.NoError(t, err)
			assertLedger(t, got, tt.want)
		})
	}
}

func TestComputeOwedAmounts_PreservesRosterOrder(t *testing.T) {
	got, err := ComputeOwedAmounts(nil, []string{"C", "A", "B"}, decimal.Zero)
	require.NoError(t, err)

	var order []string
	for _, e := range got {
		order = append(order, e.Participant)
	}
	assert.Equal(t, []string{"C", "A", "B"}, order)
}

func TestComputeOwedAmounts_Errors(t *testing.T) {
	tests := []struct {
		name         string
		items        []Item
		participants []string
		tip          decimal.Decimal
		wantErr      error
	}{
		{
			name:         "no participants",
			items:        []Item{{Name: "Item", Price: d("10"), IsShared: true}},
			participants: nil,
			wantErr:      ErrEmptyParticipantSet,
		},
		{
			name:         "negative price",
			items:        []Item{{Name: "Refund", Price: d("-5"), IsShared: true}},
			participants: []string{"A"},
			wantErr:      ErrNegativeAmount,
		},
		{
			name:         "negative tip",
			participants: []string{"A"},
			tip:          d("-1"),
			wantErr:      ErrNegativeAmount,
		},
		{
			name:         "item participant not on roster",
			items:        []Item{{Name: "Beer", Price: d("5"), Participants: []string{"Z"}}},
			participants: []string{"A", "B"},
			wantErr:      ErrUnknownParticipant,
		},
		{
			name:         "duplicate roster entry",
			participants: []string{"A", "A"},
			wantErr:      ErrDuplicateParticipant,
		},
		{
			name:         "duplicate item participant",
			items:        []Item{{Name: "Beer", Price: d("5"), Participants: []string{"A", "A"}}},
			participants: []string{"A", "B"},
			wantErr:      ErrDuplicateParticipant,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ComputeOwedAmounts(tt.items, tt.participants, tt.tip)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.ErrorIs(t, err, ErrInputContract)
		})
	}
}

func TestAddShares_EmptySplitSet(t *testing.T) {
	err := addShares(Ledger{}, map[string]int{}, nil, d("10"))
	assert.ErrorIs(t, err, ErrZeroParticipantDivision)
}
