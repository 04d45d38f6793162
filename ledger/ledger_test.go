package ledger

import (
	"errors"
	"testing"
)

func TestCreditCumulativeSumsAcrossEvents(t *testing.T) {
	l := New(Policy{Cumulative: true})

	if got := l.Credit("ann", 2); got != 2 {
		t.Fatalf("balance after first credit = %d, want 2", got)
	}
	if got := l.Credit("ann", 1); got != 3 {
		t.Fatalf("balance after second credit = %d, want 3", got)
	}
	if got := l.Balance("ann"); got != 3 {
		t.Fatalf("Balance = %d, want 3", got)
	}
}

func TestCreditNonCumulativeRearmReplacesBankedCredit(t *testing.T) {
	l := New(Policy{Cumulative: false, Rearm: true})

	l.Credit("bob", 1)
	l.Credit("bob", 1)
	if got := l.Balance("bob"); got != 1 {
		t.Fatalf("balance = %d, want 1 (re-armed, not stacked)", got)
	}
}

func TestCreditNonCumulativeNoRearmKeepsExistingCredit(t *testing.T) {
	l := New(Policy{Cumulative: false, Rearm: false})

	l.Grant("bob")
	l.Grant("bob")
	if got := l.Balance("bob"); got != 2 {
		t.Fatalf("granted balance = %d, want 2", got)
	}
	l.Credit("bob", 1)
	if got := l.Balance("bob"); got != 2 {
		t.Fatalf("balance after credit = %d, want 2 (existing credit untouched)", got)
	}

	if got := l.Credit("carol", 1); got != 1 {
		t.Fatalf("fresh supporter balance = %d, want 1", got)
	}
}

func TestDebitSpendsExactlyOne(t *testing.T) {
	l := New(Policy{Cumulative: true})
	l.Credit("ann", 2)

	if err := l.Debit("ann"); err != nil {
		t.Fatalf("Debit: %v", err)
	}
	if got := l.Balance("ann"); got != 1 {
		t.Fatalf("balance after debit = %d, want 1", got)
	}
}

func TestDebitWithoutCreditFailsWithoutMutation(t *testing.T) {
	l := New(Policy{Cumulative: true})

	if err := l.Debit("nobody"); !errors.Is(err, ErrInsufficientCredit) {
		t.Fatalf("Debit err = %v, want ErrInsufficientCredit", err)
	}
	if got := l.Balance("nobody"); got != 0 {
		t.Fatalf("balance = %d, want 0", got)
	}
}

func TestIdentitiesAreCaseInsensitive(t *testing.T) {
	l := New(Policy{Cumulative: true})

	l.Credit("Ann_Marie", 1)
	if got := l.Balance("ann_marie"); got != 1 {
		t.Fatalf("lowercased lookup = %d, want 1", got)
	}
	if err := l.Debit("ANN_MARIE"); err != nil {
		t.Fatalf("uppercased debit: %v", err)
	}
	if got := l.Balance("Ann_Marie"); got != 0 {
		t.Fatalf("balance = %d, want 0", got)
	}
}

func TestResetDropsAllBalances(t *testing.T) {
	l := New(Policy{Cumulative: true})
	l.Credit("ann", 2)
	l.Credit("bob", 1)

	l.Reset()

	if got := l.Balance("ann"); got != 0 {
		t.Fatalf("balance after reset = %d, want 0", got)
	}
	if got := len(l.Snapshot()); got != 0 {
		t.Fatalf("snapshot size after reset = %d, want 0", got)
	}
}

func TestLenCountsTrackedSupporters(t *testing.T) {
	l := New(Policy{Cumulative: true})
	if got := l.Len(); got != 0 {
		t.Fatalf("empty ledger Len = %d, want 0", got)
	}
	l.Credit("ann", 1)
	l.Grant("bob")
	if got := l.Len(); got != 2 {
		t.Fatalf("Len = %d, want 2", got)
	}
	l.Reset()
	if got := l.Len(); got != 0 {
		t.Fatalf("Len after reset = %d, want 0", got)
	}
}

func TestSnapshotSortedByIdentity(t *testing.T) {
	l := New(Policy{Cumulative: true})
	l.Credit("zed", 1)
	l.Credit("Ann", 2)
	l.Credit("bob", 3)

	snap := l.Snapshot()
	want := []Entry{
		{Identity: "ann", Credit: 2},
		{Identity: "bob", Credit: 3},
		{Identity: "zed", Credit: 1},
	}
	if len(snap) != len(want) {
		t.Fatalf("snapshot size = %d, want %d", len(snap), len(want))
	}
	for i := range want {
		if snap[i] != want[i] {
			t.Errorf("snapshot[%d] = %+v, want %+v", i, snap[i], want[i])
		}
	}
}
