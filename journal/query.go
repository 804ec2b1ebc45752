package journal

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
)

var ErrCycleNotFound = errors.New("journal: cycle not found")

const cycleColumns = `cycle_id, ts, can_trade, state_clean, wallet_usdc, free_usdc, reason_codes, issues, report`

type scanner interface {
	Scan(dest ...any) error
}

func scanCycle(s scanner) (CycleRecord, error) {
	var (
		rec           CycleRecord
		codes, issues string
		report        string
	)
	err := s.Scan(
		&rec.CycleID,
		&rec.Time,
		&rec.CanTrade,
		&rec.StateClean,
		&rec.WalletUSDC,
		&rec.FreeUSDC,
		&codes,
		&issues,
		&report,
	)
	if err != nil {
		return CycleRecord{}, err
	}
	rec.ReasonCodes = splitList(codes)
	rec.Issues = splitList(issues)
	rec.Report = json.RawMessage(report)
	return rec, nil
}

// GetCycle returns a single cycle by id.
func (j *SQLite) GetCycle(cycleID string) (CycleRecord, error) {
	row := j.db.QueryRow(`SELECT `+cycleColumns+` FROM cycles WHERE cycle_id = ?`, cycleID)
	rec, err := scanCycle(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return CycleRecord{}, fmt.Errorf("%w: %s", ErrCycleNotFound, cycleID)
		}
		return CycleRecord{}, err
	}
	return rec, nil
}

// ListCycles returns up to limit cycles, newest first. A non-positive limit
// returns everything.
func (j *SQLite) ListCycles(limit int) ([]CycleRecord, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := j.db.Query(`
		SELECT `+cycleColumns+`
		FROM cycles
		ORDER BY ts DESC, cycle_id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []CycleRecord
	for rows.Next() {
		rec, err := scanCycle(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
