// Package journal keeps an append-only audit trail of decision cycles. Cycles
// write to it and never read it back.
package journal

import (
	"encoding/json"
	"fmt"
	"time"
)

// CycleRecord is one decision cycle as journaled.
type CycleRecord struct {
	CycleID     string
	Time        time.Time
	CanTrade    bool
	StateClean  bool
	WalletUSDC  float64
	FreeUSDC    float64
	ReasonCodes []string
	Issues      []string
	// Report is the full JSON decision as printed by the cycle.
	Report json.RawMessage
}

type Journal interface {
	RecordCycle(CycleRecord) error
	Close() error
}

// Nop discards every record.
type Nop struct{}

func (Nop) RecordCycle(CycleRecord) error { return nil }
func (Nop) Close() error                  { return nil }

const (
	KindSQLite = "sqlite"
	KindCSV    = "csv"
	KindNone   = "none"
)

// Open returns the journal of the given kind writing to path.
func Open(kind, path string) (Journal, error) {
	switch kind {
	case KindSQLite:
		return NewSQLite(path)
	case KindCSV:
		return NewCSV(path)
	case KindNone, "":
		return Nop{}, nil
	default:
		return nil, fmt.Errorf("journal: unknown type %q", kind)
	}
}
