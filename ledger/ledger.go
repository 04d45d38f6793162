// Package ledger tracks song-request credits per supporter. Identities are
// case-insensitive Twitch usernames; balances are whole credits and never go
// observably negative.
//
// The ledger carries no lock of its own: every mutation happens inside the
// session's single event timeline (see bot.Session), which already serializes
// access.
package ledger

import (
	"errors"
	"sort"
	"strings"
)

// ErrInsufficientCredit is returned by Debit when the supporter has no credit
// to spend. The caller treats it as a per-event failure, not a fault.
var ErrInsufficientCredit = errors.New("insufficient credit")

// Policy controls how qualifying donation events turn into balance changes.
type Policy struct {
	// Cumulative adds floor(amount/threshold) credits per event. When false a
	// qualifying event is worth exactly one credit.
	Cumulative bool
	// Rearm only matters when Cumulative is false: true re-sets the balance to 1
	// on every qualifying event (a banked credit is replaced, not stacked);
	// false leaves an existing banked credit untouched.
	Rearm bool
}

type Ledger struct {
	policy   Policy
	balances map[string]int
}

func New(policy Policy) *Ledger {
	return &Ledger{policy: policy, balances: make(map[string]int)}
}

func key(identity string) string { return strings.ToLower(identity) }

// Credit applies a parsed donation event worth tokens credits (tokens >= 1;
// the parser never forwards sub-threshold events). Returns the new balance.
func (l *Ledger) Credit(identity string, tokens int) int {
	k := key(identity)
	if l.policy.Cumulative {
		l.balances[k] += tokens
	} else if l.policy.Rearm || l.balances[k] < 1 {
		l.balances[k] = 1
	}
	return l.balances[k]
}

// Debit spends exactly one credit. On ErrInsufficientCredit nothing changes.
func (l *Ledger) Debit(identity string) error {
	k := key(identity)
	if l.balances[k] < 1 {
		return ErrInsufficientCredit
	}
	l.balances[k]--
	return nil
}

// Balance returns the current credit count, zero for unknown identities.
func (l *Ledger) Balance(identity string) int {
	return l.balances[key(identity)]
}

// Grant adds one credit unconditionally (console "give" command).
func (l *Ledger) Grant(identity string) int {
	k := key(identity)
	l.balances[k]++
	return l.balances[k]
}

// Reset drops every balance.
func (l *Ledger) Reset() {
	l.balances = make(map[string]int)
}

// Len returns how many supporters have a tracked balance.
func (l *Ledger) Len() int { return len(l.balances) }

// Entry is one supporter balance in a Snapshot.
type Entry struct {
	Identity string `json:"identity"`
	Credit   int    `json:"credit"`
}

// Snapshot returns all balances sorted by identity, for the tippers dump and
// the web console.
func (l *Ledger) Snapshot() []Entry {
	out := make([]Entry, 0, len(l.balances))
	for id, c := range l.balances {
		out = append(out, Entry{Identity: id, Credit: c})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Identity < out[j].Identity })
	return out
}
