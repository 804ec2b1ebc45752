package cycle

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rustyeddy/polygate/broker/fixture"
	"github.com/rustyeddy/polygate/journal"
	"github.com/rustyeddy/polygate/market"
	"github.com/rustyeddy/polygate/pkg/id"
	"github.com/rustyeddy/polygate/preflight"
	"github.com/rustyeddy/polygate/reason"
	"github.com/rustyeddy/polygate/reconcile"
	"github.com/rustyeddy/polygate/snapshot"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Unix(1700000000, 0)

func fixedNow() time.Time { return now }

type recObserver struct {
	mu    sync.Mutex
	calls int
}

func (o *recObserver) Observe(reconcile.State, preflight.Check, time.Duration) {
	o.mu.Lock()
	o.calls++
	o.mu.Unlock()
}

type failingJournal struct{}

func (failingJournal) RecordCycle(journal.CycleRecord) error { return errors.New("disk full") }
func (failingJournal) Close() error                          { return nil }

func newExchange() *fixture.Exchange {
	return fixture.New(fixture.State{
		Collateral: "100000000",
		Tokens:     map[string]string{"tok-yes-0001": "5000000"},
		Orders: []market.OpenOrder{
			{ID: "o1", Status: "LIVE", AssetID: "tok-yes-0001", Side: "BUY", OriginalSize: "10", SizeMatched: "0", Price: "0.5"},
			{ID: "o2", Status: "LIVE", AssetID: "tok-yes-0001", Side: "SELL", OriginalSize: "2", SizeMatched: "0", Price: "0.6"},
		},
		Books: map[string]market.OrderBook{
			"tok-yes-0001": {Bids: []market.PriceLevel{{Price: "0.5", Size: "100"}}},
		},
	})
}

func quotedProbe() snapshot.Probe {
	return snapshot.ProbeFunc(func(ctx context.Context) (market.Snapshot, error) {
		return market.Snapshot{TS: now.Unix(), Rows: []market.BookSnapshotRow{{
			TokenID:        "tok-yes-0001",
			BestBidPrice:   decimal.RequireFromString("0.50"),
			BestBidSize:    decimal.RequireFromString("100"),
			BestAskPrice:   decimal.RequireFromString("0.51"),
			Depth3TicksBid: decimal.RequireFromString("150"),
			LastTradeTS:    now.Unix() - 5,
		}}}, nil
	})
}

func newRunner(t *testing.T, j journal.Journal, obs Observer) *Runner {
	t.Helper()
	eng := reconcile.NewFromExchange(newExchange(), reconcile.Options{Now: fixedNow})
	gate := preflight.NewGate(quotedProbe(), preflight.DefaultThresholds(), preflight.GateOptions{Now: fixedNow})
	return New(eng, gate, Options{Journal: j, Observer: obs, Now: fixedNow})
}

func TestRunProducesReport(t *testing.T) {
	t.Parallel()

	j, err := journal.NewSQLite(filepath.Join(t.TempDir(), "cycles.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = j.Close() })
	obs := &recObserver{}

	rep := newRunner(t, j, obs).Run(context.Background())

	st := rep.ReconcileState
	assert.True(t, st.StateClean)
	assert.True(t, st.WalletUSDC.Equal(decimal.RequireFromString("100")))
	assert.True(t, st.BuyReservedUSDC.Equal(decimal.RequireFromString("5")))
	assert.True(t, st.FreeUSDC.Equal(decimal.RequireFromString("95")))
	assert.Equal(t, []reason.Code{reason.ExecutionDisabled}, rep.PreflightCheck.ReasonCodes.Codes())
	assert.False(t, rep.PreflightCheck.CanTrade)
	assert.Equal(t, 1, obs.calls)

	ts, err := id.Time(rep.CycleID)
	require.NoError(t, err)
	assert.True(t, ts.Equal(now))

	got, err := j.GetCycle(rep.CycleID)
	require.NoError(t, err)
	assert.True(t, got.StateClean)
	assert.Equal(t, []string{"EXECUTION_DISABLED"}, got.ReasonCodes)
	assert.InDelta(t, 95.0, got.FreeUSDC, 1e-9)

	want, err := json.Marshal(rep)
	require.NoError(t, err)
	assert.JSONEq(t, string(want), string(got.Report))
}

func TestReportJSONShape(t *testing.T) {
	t.Parallel()

	rep := newRunner(t, nil, nil).Run(context.Background())
	data, err := json.Marshal(rep)
	require.NoError(t, err)

	var got map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Contains(t, got, "cycle_id")
	assert.Contains(t, got, "reconcile_state")
	assert.Contains(t, got, "preflight_check")

	var st map[string]any
	require.NoError(t, json.Unmarshal(got["reconcile_state"], &st))
	assert.Equal(t, 1.0, st["state_version"])
	assert.Equal(t, 95.0, st["free_usdc"])
}

func TestRunSurvivesJournalFailure(t *testing.T) {
	t.Parallel()

	obs := &recObserver{}
	rep := newRunner(t, failingJournal{}, obs).Run(context.Background())
	assert.NotEmpty(t, rep.CycleID)
	assert.Equal(t, 1, obs.calls)
}

func TestRunsShareNoState(t *testing.T) {
	t.Parallel()

	r := newRunner(t, nil, nil)
	var wg sync.WaitGroup
	reps := make([]Report, 8)
	for i := range reps {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			reps[i] = r.Run(context.Background())
		}(i)
	}
	wg.Wait()

	seen := map[string]bool{}
	for _, rep := range reps {
		assert.False(t, seen[rep.CycleID])
		seen[rep.CycleID] = true
		assert.True(t, rep.ReconcileState.BuyReservedUSDC.Equal(decimal.RequireFromString("5")))
		assert.Equal(t, []string{"EXECUTION_DISABLED"}, rep.PreflightCheck.ReasonCodes.Strings())
	}
}

func TestEveryStopsOnCancel(t *testing.T) {
	t.Parallel()

	r := newRunner(t, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	var got []Report
	done := make(chan struct{})
	go func() {
		defer close(done)
		r.Every(ctx, 5*time.Millisecond, func(rep Report) {
			got = append(got, rep)
			if len(got) == 3 {
				cancel()
			}
		})
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Every did not return after cancel")
	}
	assert.Len(t, got, 3)
}
