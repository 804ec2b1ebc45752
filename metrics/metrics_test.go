package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rustyeddy/polygate/preflight"
	"github.com/rustyeddy/polygate/reason"
	"github.com/rustyeddy/polygate/reconcile"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	srv := httptest.NewServer(m.Handler())
	t.Cleanup(srv.Close)

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(body)
}

func TestObserve(t *testing.T) {
	t.Parallel()

	m := New()
	st := reconcile.State{
		WalletUSDC:      decimal.RequireFromString("100"),
		BuyReservedUSDC: decimal.RequireFromString("25.5"),
		FreeUSDC:        decimal.RequireFromString("74.5"),
		StateClean:      false,
		Issues:          []string{"POSITION_MISMATCH:aaaaaaaaaa", "POSITION_MISMATCH:bbbbbbbbbb"},
	}
	chk := preflight.Check{ReasonCodes: reason.NewSet(reason.StateDivergence, reason.ExecutionDisabled)}

	m.Observe(st, chk, 1500*time.Millisecond)
	m.Observe(st, chk, 200*time.Millisecond)

	body := scrape(t, m)
	assert.Contains(t, body, `polygate_cycles_total{can_trade="false"} 2`)
	assert.Contains(t, body, `polygate_reason_codes_total{code="EXECUTION_DISABLED"} 2`)
	assert.Contains(t, body, `polygate_reason_codes_total{code="STATE_DIVERGENCE"} 2`)
	assert.Contains(t, body, `polygate_reconcile_issues_total{kind="POSITION_MISMATCH"} 4`)
	assert.Contains(t, body, `polygate_wallet_usdc 100`)
	assert.Contains(t, body, `polygate_buy_reserved_usdc 25.5`)
	assert.Contains(t, body, `polygate_free_usdc 74.5`)
	assert.Contains(t, body, `polygate_state_clean 0`)
	assert.Contains(t, body, `polygate_cycle_duration_seconds_count 2`)
	assert.Contains(t, body, `go_goroutines`)
}

func TestInstancesAreIndependent(t *testing.T) {
	t.Parallel()

	a, b := New(), New()
	a.Observe(reconcile.State{StateClean: true}, preflight.Check{CanTrade: true}, time.Second)

	assert.Contains(t, scrape(t, a), `polygate_cycles_total{can_trade="true"} 1`)
	assert.NotContains(t, scrape(t, b), `polygate_cycles_total{`)
}
