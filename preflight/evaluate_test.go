package preflight

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/rustyeddy/polygate/market"
	"github.com/rustyeddy/polygate/reason"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Unix(1700000000, 0)

func d(s string) market.Amount { return decimal.RequireFromString(s) }

func goodRow() *market.BookSnapshotRow {
	return &market.BookSnapshotRow{
		TokenID:        "tok",
		BestBidPrice:   d("0.50"),
		BestBidSize:    d("100"),
		BestAskPrice:   d("0.51"),
		BestAskSize:    d("40"),
		Depth3TicksBid: d("150"),
		LastTradeTS:    now.Unix() - 5,
	}
}

func cleanInput(row *market.BookSnapshotRow) Input {
	return Input{StateClean: true, StateTS: now.Unix(), Row: row}
}

func TestEvaluateHealthyBook(t *testing.T) {
	t.Parallel()

	c := Evaluate(cleanInput(goodRow()), DefaultThresholds(), now)

	assert.Equal(t, int64(5), c.StalenessSeconds)
	assert.True(t, c.SpreadCents.Equal(d("1")), c.SpreadCents.String())
	assert.True(t, c.ExitDepthMultiple.Equal(d("10")))
	assert.True(t, c.Depth3TicksMultiple.Equal(d("15")))
	assert.True(t, c.OrderbookVerification)
	assert.True(t, c.SpreadWithinThreshold)
	assert.True(t, c.ExitDepthSufficient)
	assert.True(t, c.DivergenceResolved)
	assert.True(t, c.StateReconciliationRecent)

	assert.False(t, c.Has(reason.StaleBook))
	assert.False(t, c.Has(reason.SpreadTooWide))
	assert.False(t, c.Has(reason.ExitDepthInsufficient))
	assert.Equal(t, []reason.Code{reason.ExecutionDisabled}, c.ReasonCodes.Codes())
	assert.False(t, c.CanTrade)
}

func TestEvaluateReasons(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input func() Input
		th    func(*Thresholds)
		want  []reason.Code
	}{
		{
			name:  "no book",
			input: func() Input { return cleanInput(nil) },
			want:  []reason.Code{reason.BookUnverified, reason.ExecutionDisabled},
		},
		{
			name: "divergent state without book",
			input: func() Input {
				in := cleanInput(nil)
				in.StateClean = false
				return in
			},
			want: []reason.Code{reason.StateDivergence, reason.BookUnverified, reason.ExecutionDisabled},
		},
		{
			name: "stale wide shallow",
			input: func() Input {
				row := goodRow()
				row.LastTradeTS = now.Unix() - 60
				row.BestAskPrice = d("0.55")
				row.BestBidSize = d("20")
				return cleanInput(row)
			},
			want: []reason.Code{reason.StaleBook, reason.SpreadTooWide, reason.ExitDepthInsufficient, reason.ExecutionDisabled},
		},
		{
			name: "unknown last trade",
			input: func() Input {
				row := goodRow()
				row.LastTradeTS = 0
				return cleanInput(row)
			},
			want: []reason.Code{reason.StaleBook, reason.ExecutionDisabled},
		},
		{
			name: "reconcile issues map to codes once",
			input: func() Input {
				in := cleanInput(goodRow())
				in.StateClean = false
				in.Issues = []string{
					"POSITION_MISMATCH:aaaaaaaaaa",
					"POSITION_MISMATCH:bbbbbbbbbb",
					"UNEXITABLE_INVENTORY:aaaaaaaaaa",
					"BALANCE_UNAVAILABLE:cccccccccc",
					"COLLATERAL_UNAVAILABLE",
					"ORDER_SKIPPED:dddddddddd",
				}
				return in
			},
			want: []reason.Code{
				reason.StateDivergence,
				reason.PositionMismatch,
				reason.UnexitableInventory,
				reason.InsufficientData,
				reason.ExecutionDisabled,
			},
		},
		{
			name: "exposure over limit",
			input: func() Input {
				in := cleanInput(goodRow())
				in.BuyReservedUSDC = d("75.5")
				return in
			},
			th:   func(th *Thresholds) { th.MaxExposureUSD = 50 },
			want: []reason.Code{reason.RiskLimitExceeded, reason.ExecutionDisabled},
		},
		{
			name: "exposure limit unset",
			input: func() Input {
				in := cleanInput(goodRow())
				in.BuyReservedUSDC = d("75.5")
				return in
			},
			want: []reason.Code{reason.ExecutionDisabled},
		},
		{
			name:  "safe mode alone disables",
			input: func() Input { return cleanInput(goodRow()) },
			th: func(th *Thresholds) {
				th.DryRun = false
				th.SafeMode = true
			},
			want: []reason.Code{reason.ExecutionDisabled},
		},
		{
			name:  "non-positive planned size",
			input: func() Input { return cleanInput(goodRow()) },
			th:    func(th *Thresholds) { th.PlannedExitSizeShares = 0 },
			want:  []reason.Code{reason.ExitDepthInsufficient, reason.ExecutionDisabled},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			th := DefaultThresholds()
			if tt.th != nil {
				tt.th(&th)
			}
			c := Evaluate(tt.input(), th, now)
			assert.Equal(t, tt.want, c.ReasonCodes.Codes())
			assert.False(t, c.CanTrade)
		})
	}
}

func TestEvaluateNoBookLeavesNumericsZero(t *testing.T) {
	t.Parallel()

	c := Evaluate(cleanInput(nil), DefaultThresholds(), now)
	assert.False(t, c.OrderbookVerification)
	assert.Zero(t, c.StalenessSeconds)
	assert.True(t, c.SpreadCents.IsZero())
	assert.True(t, c.ExitDepthMultiple.IsZero())
	assert.False(t, c.SpreadWithinThreshold)
	assert.False(t, c.ExitDepthSufficient)
}

func TestEvaluateDepthUsesExactRatio(t *testing.T) {
	t.Parallel()

	// 50/3 is 16.666...; rounded to 8 places it would clear these minimums.
	tests := []struct {
		name     string
		bidSize  string
		depth    string
		exitMin  float64
		depthMin float64
		wantOK   bool
	}{
		{name: "exit just below", bidSize: "50", depth: "300", exitMin: 16.666666667, depthMin: 1, wantOK: false},
		{name: "3ticks just below", bidSize: "300", depth: "50", exitMin: 1, depthMin: 16.666666667, wantOK: false},
		{name: "exactly at minimum", bidSize: "48", depth: "48", exitMin: 16, depthMin: 16, wantOK: true},
		{name: "just above", bidSize: "50", depth: "50", exitMin: 16.666666666, depthMin: 16.666666666, wantOK: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			row := goodRow()
			row.BestBidSize = d(tt.bidSize)
			row.Depth3TicksBid = d(tt.depth)
			th := DefaultThresholds()
			th.PlannedExitSizeShares = 3
			th.DepthExitMultipleMin = tt.exitMin
			th.Depth3TicksMultipleMin = tt.depthMin

			c := Evaluate(cleanInput(row), th, now)
			assert.Equal(t, tt.wantOK, c.ExitDepthSufficient)
			assert.Equal(t, !tt.wantOK, c.Has(reason.ExitDepthInsufficient))
		})
	}
}

func TestEvaluateInvertedBookSpreadFloorsAtZero(t *testing.T) {
	t.Parallel()

	row := goodRow()
	row.BestAskPrice = d("0.49")
	c := Evaluate(cleanInput(row), DefaultThresholds(), now)
	assert.True(t, c.SpreadCents.IsZero())
	assert.True(t, c.SpreadWithinThreshold)
}

func TestEvaluateStaleReconcile(t *testing.T) {
	t.Parallel()

	in := cleanInput(goodRow())
	in.StateTS = now.Unix() - 120
	c := Evaluate(in, DefaultThresholds(), now)
	assert.False(t, c.StateReconciliationRecent)
}

func TestCanTradeOnlyWithoutReasons(t *testing.T) {
	t.Parallel()

	th := DefaultThresholds()
	th.DryRun = false
	c := Evaluate(cleanInput(goodRow()), th, now)
	assert.True(t, c.ReasonCodes.Empty())
	assert.True(t, c.CanTrade)

	for _, row := range []*market.BookSnapshotRow{nil, goodRow()} {
		for _, clean := range []bool{true, false} {
			in := cleanInput(row)
			in.StateClean = clean
			c := Evaluate(in, DefaultThresholds(), now)
			assert.Equal(t, c.ReasonCodes.Empty(), c.CanTrade)
			assert.True(t, c.Has(reason.ExecutionDisabled))
		}
	}
}

func TestCheckJSON(t *testing.T) {
	t.Parallel()

	row := goodRow()
	row.BestBidSize = d("33.333333")
	c := Evaluate(cleanInput(row), DefaultThresholds(), now)

	data, err := json.Marshal(c)
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, false, got["can_trade"])
	assert.Equal(t, []any{"EXIT_DEPTH_INSUFFICIENT", "EXECUTION_DISABLED"}, got["reason_codes"])
	assert.Equal(t, 5.0, got["staleness_seconds"])
	assert.Equal(t, 1.0, got["spread_cents"])
	assert.Equal(t, 3.3333, got["exit_depth_multiple"])
	assert.Equal(t, 15.0, got["depth_3ticks_multiple"])
	assert.Equal(t, 0.0, got["max_exposure_usd"])
	assert.Len(t, got, 14)

	data, err = json.Marshal(Check{})
	require.NoError(t, err)
	assert.Contains(t, string(data), `"reason_codes":[]`)
}
