// Package preflight turns a reconciliation result and a book snapshot into
// a go/no-go decision that names every failing dimension.
package preflight

import (
	"encoding/json"

	"github.com/rustyeddy/polygate/market"
	"github.com/rustyeddy/polygate/reason"
)

// StalenessUnknown is reported when the representative row has no trade
// time.
const StalenessUnknown = 999999

const displayPlaces = 4

// Check is the audited outcome of one preflight evaluation.
type Check struct {
	CanTrade    bool
	ReasonCodes *reason.Set

	StalenessSeconds    int64
	SpreadCents         market.Amount
	ExitDepthMultiple   market.Amount
	Depth3TicksMultiple market.Amount

	MaxExposureUSD  float64
	MaxLossUSD      float64
	TimeStopSeconds int64

	OrderbookVerification     bool
	ExitDepthSufficient       bool
	SpreadWithinThreshold     bool
	StateReconciliationRecent bool
	DivergenceResolved        bool
}

// Has reports whether the check carries code.
func (c Check) Has(code reason.Code) bool {
	return c.ReasonCodes != nil && c.ReasonCodes.Has(code)
}

type checkJSON struct {
	CanTrade                  bool        `json:"can_trade"`
	ReasonCodes               *reason.Set `json:"reason_codes"`
	StalenessSeconds          int64       `json:"staleness_seconds"`
	SpreadCents               float64     `json:"spread_cents"`
	ExitDepthMultiple         float64     `json:"exit_depth_multiple"`
	Depth3TicksMultiple       float64     `json:"depth_3ticks_multiple"`
	MaxExposureUSD            float64     `json:"max_exposure_usd"`
	MaxLossUSD                float64     `json:"max_loss_usd"`
	TimeStopSeconds           int64       `json:"time_stop_seconds"`
	OrderbookVerification     bool        `json:"orderbook_verification"`
	ExitDepthSufficient       bool        `json:"exit_depth_sufficient"`
	SpreadWithinThreshold     bool        `json:"spread_within_threshold"`
	StateReconciliationRecent bool        `json:"state_reconciliation_recent"`
	DivergenceResolved        bool        `json:"divergence_resolved"`
}

// MarshalJSON rounds the derived numerics to four places.
func (c Check) MarshalJSON() ([]byte, error) {
	codes := c.ReasonCodes
	if codes == nil {
		codes = reason.NewSet()
	}
	return json.Marshal(checkJSON{
		CanTrade:                  c.CanTrade,
		ReasonCodes:               codes,
		StalenessSeconds:          c.StalenessSeconds,
		SpreadCents:               market.Float(c.SpreadCents, displayPlaces),
		ExitDepthMultiple:         market.Float(c.ExitDepthMultiple, displayPlaces),
		Depth3TicksMultiple:       market.Float(c.Depth3TicksMultiple, displayPlaces),
		MaxExposureUSD:            c.MaxExposureUSD,
		MaxLossUSD:                c.MaxLossUSD,
		TimeStopSeconds:           c.TimeStopSeconds,
		OrderbookVerification:     c.OrderbookVerification,
		ExitDepthSufficient:       c.ExitDepthSufficient,
		SpreadWithinThreshold:     c.SpreadWithinThreshold,
		StateReconciliationRecent: c.StateReconciliationRecent,
		DivergenceResolved:        c.DivergenceResolved,
	})
}
