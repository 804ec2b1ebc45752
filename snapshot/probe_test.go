package snapshot

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rustyeddy/polygate/market"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommandProbeParsesStdout(t *testing.T) {
	t.Parallel()

	out := `{"ts": 1700000000, "rows": [{"token_id": "t1", "best_bid_price": 0.5, "best_bid_size": 100, "best_ask_price": "0.51", "best_ask_size": 3, "depth_3ticks_bid": 150, "depth_3ticks_ask": 3, "last_trade_ts": 1699999990}]}`
	p := CommandProbe{Argv: []string{"sh", "-c", "printf '%s' '" + out + "'"}}

	snap, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1700000000), snap.TS)
	require.Len(t, snap.Rows, 1)
	assert.True(t, decimal.RequireFromString("0.51").Equal(snap.Rows[0].BestAskPrice))
	assert.True(t, snap.Rows[0].Quoted())
}

func TestCommandProbeFailures(t *testing.T) {
	t.Parallel()

	_, err := CommandProbe{}.Run(context.Background())
	assert.ErrorIs(t, err, ErrEmptyCommand)

	_, err = CommandProbe{Argv: []string{"sh", "-c", "echo oops >&2; exit 3"}}.Run(context.Background())
	assert.ErrorContains(t, err, "oops")

	_, err = CommandProbe{Argv: []string{"sh", "-c", "echo not-json"}}.Run(context.Background())
	assert.ErrorContains(t, err, "decode")

	_, err = CommandProbe{Argv: []string{"sleep", "5"}, Timeout: 50 * time.Millisecond}.Run(context.Background())
	assert.Error(t, err)
}

func TestWriteAuditOverwrites(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "book_snapshot_latest.json")

	require.NoError(t, WriteAudit(path, market.Snapshot{TS: 1, Rows: []market.BookSnapshotRow{{TokenID: "a"}}}))
	require.NoError(t, WriteAudit(path, market.Snapshot{TS: 2}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var got market.Snapshot
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, int64(2), got.TS)
	assert.Empty(t, got.Rows)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestWriteAuditNoPath(t *testing.T) {
	t.Parallel()

	assert.NoError(t, WriteAudit("", market.Snapshot{}))
}
