package preflight

import (
	"strings"
	"time"

	"github.com/rustyeddy/polygate/market"
	"github.com/rustyeddy/polygate/reason"
	"github.com/rustyeddy/polygate/reconcile"
	"github.com/shopspring/decimal"
)

// Thresholds are the operator limits a decision is judged against.
type Thresholds struct {
	PlannedExitSizeShares  float64 `json:"planned_exit_size_shares" yaml:"planned_exit_size_shares"`
	StalenessLimitSeconds  int64   `json:"staleness_limit_seconds" yaml:"staleness_limit_seconds"`
	SpreadLimitCents       float64 `json:"spread_limit_cents" yaml:"spread_limit_cents"`
	DepthExitMultipleMin   float64 `json:"depth_exit_multiple_min" yaml:"depth_exit_multiple_min"`
	Depth3TicksMultipleMin float64 `json:"depth_3ticks_multiple_min" yaml:"depth_3ticks_multiple_min"`

	MaxExposureUSD  float64 `json:"max_exposure_usd" yaml:"max_exposure_usd"`
	MaxLossUSD      float64 `json:"max_loss_usd" yaml:"max_loss_usd"`
	TimeStopSeconds int64   `json:"time_stop_seconds" yaml:"time_stop_seconds"`

	DryRun   bool `json:"dry_run" yaml:"dry_run"`
	SafeMode bool `json:"safe_mode" yaml:"safe_mode"`
}

func DefaultThresholds() Thresholds {
	return Thresholds{
		PlannedExitSizeShares:  10,
		StalenessLimitSeconds:  15,
		SpreadLimitCents:       1,
		DepthExitMultipleMin:   5,
		Depth3TicksMultipleMin: 10,
		DryRun:                 true,
	}
}

// Input is what one evaluation sees. Row is nil when no snapshot row had
// both a bid and an ask, or the snapshot could not be taken.
type Input struct {
	StateClean      bool
	StateTS         int64
	Issues          []string
	BuyReservedUSDC market.Amount
	Row             *market.BookSnapshotRow
}

// InputFrom builds an Input from a reconciliation result.
func InputFrom(st reconcile.State, row *market.BookSnapshotRow) Input {
	return Input{
		StateClean:      st.StateClean,
		StateTS:         st.TS,
		Issues:          st.Issues,
		BuyReservedUSDC: st.BuyReservedUSDC,
		Row:             row,
	}
}

var hundred = decimal.NewFromInt(100)

// Evaluate runs every check independently, so the reason codes explain all
// failing dimensions at once. Only a missing book skips the liquidity checks.
func Evaluate(in Input, th Thresholds, now time.Time) Check {
	codes := reason.NewSet()
	c := Check{
		ReasonCodes:     codes,
		MaxExposureUSD:  th.MaxExposureUSD,
		MaxLossUSD:      th.MaxLossUSD,
		TimeStopSeconds: th.TimeStopSeconds,
	}

	// integrity
	c.StateReconciliationRecent = in.StateTS > 0 && now.Unix()-in.StateTS <= th.StalenessLimitSeconds
	c.DivergenceResolved = in.StateClean
	if !in.StateClean {
		codes.Add(reason.StateDivergence)
	}
	for _, is := range in.Issues {
		kind := reconcile.IssueKind(is)
		switch {
		case kind == reconcile.IssuePositionMismatch:
			codes.Add(reason.PositionMismatch)
		case kind == reconcile.IssueUnexitableInventory:
			codes.Add(reason.UnexitableInventory)
		case strings.HasSuffix(kind, "_UNAVAILABLE"):
			codes.Add(reason.InsufficientData)
		}
	}

	// liquidity
	if in.Row == nil {
		codes.Add(reason.BookUnverified)
	} else {
		row := in.Row
		c.OrderbookVerification = true

		if lts := row.LastTradeTS; lts > 0 {
			c.StalenessSeconds = now.Unix() - lts
		} else {
			c.StalenessSeconds = StalenessUnknown
		}
		if c.StalenessSeconds > th.StalenessLimitSeconds {
			codes.Add(reason.StaleBook)
		}

		c.SpreadCents = decimal.Max(decimal.Zero, row.BestAskPrice.Sub(row.BestBidPrice).Mul(hundred))
		if c.SpreadCents.LessThanOrEqual(decimal.NewFromFloat(th.SpreadLimitCents)) {
			c.SpreadWithinThreshold = true
		} else {
			codes.Add(reason.SpreadTooWide)
		}

		// Sufficiency compares size >= min*planned so a rounded multiple
		// never decides the outcome; the multiples are for display.
		exitMin := decimal.NewFromFloat(th.DepthExitMultipleMin)
		depthMin := decimal.NewFromFloat(th.Depth3TicksMultipleMin)
		exitSize, depthSize := decimal.Zero, decimal.Zero
		planned := decimal.NewFromFloat(th.PlannedExitSizeShares)
		if planned.IsPositive() {
			c.ExitDepthMultiple = row.BestBidSize.DivRound(planned, 8)
			c.Depth3TicksMultiple = row.Depth3TicksBid.DivRound(planned, 8)
			exitSize, depthSize = row.BestBidSize, row.Depth3TicksBid
		} else {
			planned = decimal.NewFromInt(1)
		}
		if exitSize.GreaterThanOrEqual(exitMin.Mul(planned)) &&
			depthSize.GreaterThanOrEqual(depthMin.Mul(planned)) {
			c.ExitDepthSufficient = true
		} else {
			codes.Add(reason.ExitDepthInsufficient)
		}
	}

	// exposure
	if th.MaxExposureUSD > 0 && in.BuyReservedUSDC.GreaterThan(decimal.NewFromFloat(th.MaxExposureUSD)) {
		codes.Add(reason.RiskLimitExceeded)
	}

	// kill switch
	if th.DryRun || th.SafeMode {
		codes.Add(reason.ExecutionDisabled)
	}

	c.CanTrade = codes.Empty()
	return c
}
