package journal

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

var csvHeader = []string{"cycle_id", "time", "can_trade", "state_clean", "wallet_usdc", "free_usdc", "reason_codes", "issues"}

// CSV appends one row per cycle. The header is written when the file is new
// or empty.
type CSV struct {
	w *csv.Writer
	f *os.File
}

func NewCSV(path string) (*CSV, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("journal: open %s: %w", path, err)
	}
	st, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, err
	}

	w := csv.NewWriter(f)
	if st.Size() == 0 {
		if err := w.Write(csvHeader); err != nil {
			_ = f.Close()
			return nil, err
		}
		w.Flush()
		if err := w.Error(); err != nil {
			_ = f.Close()
			return nil, err
		}
	}

	return &CSV{w: w, f: f}, nil
}

func (j *CSV) RecordCycle(c CycleRecord) error {
	err := j.w.Write([]string{
		c.CycleID,
		c.Time.UTC().Format(time.RFC3339),
		strconv.FormatBool(c.CanTrade),
		strconv.FormatBool(c.StateClean),
		f(c.WalletUSDC),
		f(c.FreeUSDC),
		strings.Join(c.ReasonCodes, "|"),
		strings.Join(c.Issues, "|"),
	})
	if err != nil {
		return err
	}
	j.w.Flush()
	return j.w.Error()
}

func (j *CSV) Close() error {
	j.w.Flush()
	if err := j.w.Error(); err != nil {
		_ = j.f.Close()
		return err
	}
	return j.f.Close()
}

func f(x float64) string {
	return strconv.FormatFloat(x, 'f', 6, 64)
}
