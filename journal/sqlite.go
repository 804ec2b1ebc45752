package journal

import (
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

const listSep = ","

type SQLite struct {
	db *sql.DB
}

func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("journal: open %s: %w", path, err)
	}

	if _, err := db.Exec(Schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("journal: create schema: %w", err)
	}

	return &SQLite{db: db}, nil
}

func (j *SQLite) RecordCycle(c CycleRecord) error {
	report := string(c.Report)
	if report == "" {
		report = "{}"
	}
	_, err := j.db.Exec(`
		INSERT INTO cycles
		(cycle_id, ts, can_trade, state_clean, wallet_usdc, free_usdc, reason_codes, issues, report)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.CycleID, c.Time.UTC(), c.CanTrade, c.StateClean, c.WalletUSDC, c.FreeUSDC,
		strings.Join(c.ReasonCodes, listSep), strings.Join(c.Issues, listSep), report,
	)
	if err != nil {
		return fmt.Errorf("journal: record cycle %s: %w", c.CycleID, err)
	}
	return nil
}

func (j *SQLite) Close() error {
	return j.db.Close()
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, listSep)
}
