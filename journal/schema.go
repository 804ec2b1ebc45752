package journal

const Schema = `
CREATE TABLE IF NOT EXISTS cycles (
	cycle_id TEXT PRIMARY KEY,
	ts DATETIME NOT NULL,
	can_trade INTEGER NOT NULL,
	state_clean INTEGER NOT NULL,
	wallet_usdc REAL NOT NULL,
	free_usdc REAL NOT NULL,
	reason_codes TEXT NOT NULL,
	issues TEXT NOT NULL,
	report TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_cycles_ts ON cycles(ts);
`
