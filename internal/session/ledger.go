package session

import (
	"fmt"
	"strings"

	"github.com/park285/cheese-solo-chess/internal/rules"
)

// Ledger is the displayed move history. Ply() == Len()+1 always holds.
type Ledger struct {
	entries []string
	ply     int
}

func NewLedger() *Ledger {
	return &Ledger{entries: []string{}, ply: 1}
}

// FormatEntry renders one history entry: odd plies open a numbered move
// ("3. Nf3"), even plies close it ("Nc6 -").
func FormatEntry(ply int, notation string) string {
	if ply%2 == 1 {
		return fmt.Sprintf("%d. %s", (ply+1)/2, notation)
	}
	return notation + " -"
}

// Record appends mv at the current ply and advances the ply counter.
func (l *Ledger) Record(mv rules.Move) string {
	entry := FormatEntry(l.ply, mv.SAN)
	l.entries = append(l.entries, entry)
	l.ply++
	return entry
}

// TruncateLastPair drops the last two entries (one ply per side).
func (l *Ledger) TruncateLastPair() error {
	if len(l.entries) < 2 {
		return ErrNothingToTruncate
	}
	l.entries = l.entries[:len(l.entries)-2]
	l.ply -= 2
	return nil
}

func (l *Ledger) Clear() {
	l.entries = []string{}
	l.ply = 1
}

func (l *Ledger) Entries() []string {
	return append([]string(nil), l.entries...)
}

// Text is the display buffer: entries separated by a single space.
func (l *Ledger) Text() string {
	return strings.Join(l.entries, " ")
}

func (l *Ledger) Len() int { return len(l.entries) }

func (l *Ledger) Ply() int { return l.ply }
