// Package reason holds the closed set of codes a preflight decision can
// carry and an insertion-ordered set to accumulate them.
package reason

import (
	"encoding/json"
	"fmt"
)

type Code string

const (
	BookUnverified        Code = "BOOK_UNVERIFIED"
	ExitDepthInsufficient Code = "EXIT_DEPTH_INSUFFICIENT"
	SpreadTooWide         Code = "SPREAD_TOO_WIDE"
	StateDivergence       Code = "STATE_DIVERGENCE"
	PositionMismatch      Code = "POSITION_MISMATCH"
	StaleBook             Code = "STALE_BOOK"
	RiskLimitExceeded     Code = "RISK_LIMIT_EXCEEDED"
	InsufficientData      Code = "INSUFFICIENT_DATA"
	ExecutionDisabled     Code = "EXECUTION_DISABLED"
	UnexitableInventory   Code = "UNEXITABLE_INVENTORY"
)

// All lists every code in declaration order.
var All = []Code{
	BookUnverified,
	ExitDepthInsufficient,
	SpreadTooWide,
	StateDivergence,
	PositionMismatch,
	StaleBook,
	RiskLimitExceeded,
	InsufficientData,
	ExecutionDisabled,
	UnexitableInventory,
}

func (c Code) Valid() bool {
	for _, k := range All {
		if k == c {
			return true
		}
	}
	return false
}

func Parse(s string) (Code, error) {
	c := Code(s)
	if !c.Valid() {
		return "", fmt.Errorf("unknown reason code %q", s)
	}
	return c, nil
}

// Set keeps codes in first-seen order and ignores repeats. The zero value
// is ready to use.
type Set struct {
	codes []Code
	seen  map[Code]struct{}
}

func NewSet(codes ...Code) *Set {
	s := &Set{}
	for _, c := range codes {
		s.Add(c)
	}
	return s
}

// Add appends c unless it is already present. It reports whether c was new.
func (s *Set) Add(c Code) bool {
	if s.seen == nil {
		s.seen = make(map[Code]struct{})
	}
	if _, ok := s.seen[c]; ok {
		return false
	}
	s.seen[c] = struct{}{}
	s.codes = append(s.codes, c)
	return true
}

func (s *Set) Has(c Code) bool {
	if s == nil {
		return false
	}
	_, ok := s.seen[c]
	return ok
}

func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.codes)
}

func (s *Set) Empty() bool { return s.Len() == 0 }

// Codes returns a copy of the codes in insertion order. A nil set has none.
func (s *Set) Codes() []Code {
	if s == nil {
		return []Code{}
	}
	out := make([]Code, len(s.codes))
	copy(out, s.codes)
	return out
}

func (s *Set) Strings() []string {
	if s == nil {
		return []string{}
	}
	out := make([]string, len(s.codes))
	for i, c := range s.codes {
		out[i] = string(c)
	}
	return out
}

// MarshalJSON encodes the set as an array; an empty set is [] not null.
func (s *Set) MarshalJSON() ([]byte, error) {
	if s == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(s.Strings())
}

func (s *Set) UnmarshalJSON(data []byte) error {
	var raw []string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*s = Set{}
	for _, r := range raw {
		c, err := Parse(r)
		if err != nil {
			return err
		}
		s.Add(c)
	}
	return nil
}
