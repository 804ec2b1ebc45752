// Package cycle runs one reconcile then preflight pass and records it.
package cycle

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rustyeddy/polygate/journal"
	"github.com/rustyeddy/polygate/market"
	"github.com/rustyeddy/polygate/pkg/id"
	"github.com/rustyeddy/polygate/preflight"
	"github.com/rustyeddy/polygate/reconcile"
	"go.uber.org/zap"
)

const DefaultInterval = 30 * time.Second

type Reconciler interface {
	Reconcile(ctx context.Context) reconcile.State
}

type Checker interface {
	Check(ctx context.Context, st reconcile.State) preflight.Check
}

// Observer receives every finished cycle, e.g. *metrics.Metrics.
type Observer interface {
	Observe(st reconcile.State, chk preflight.Check, took time.Duration)
}

// Report is the decision object printed and journaled for one cycle.
type Report struct {
	CycleID        string          `json:"cycle_id"`
	ReconcileState reconcile.State `json:"reconcile_state"`
	PreflightCheck preflight.Check `json:"preflight_check"`
}

type Options struct {
	Journal  journal.Journal
	Observer Observer
	Logger   *zap.SugaredLogger
	Now      func() time.Time
}

// Runner holds only collaborators. Each Run builds its state from scratch.
type Runner struct {
	rec  Reconciler
	gate Checker
	jrnl journal.Journal
	obs  Observer
	log  *zap.SugaredLogger
	now  func() time.Time
}

func New(rec Reconciler, gate Checker, opts Options) *Runner {
	r := &Runner{
		rec:  rec,
		gate: gate,
		jrnl: opts.Journal,
		obs:  opts.Observer,
		log:  opts.Logger,
		now:  opts.Now,
	}
	if r.jrnl == nil {
		r.jrnl = journal.Nop{}
	}
	if r.log == nil {
		r.log = zap.NewNop().Sugar()
	}
	if r.now == nil {
		r.now = time.Now
	}
	return r
}

// Run always returns a report. Journal and metrics failures are logged.
func (r *Runner) Run(ctx context.Context) Report {
	start := r.now()
	cycleID := id.NewAt(start)
	log := r.log.With("cycle_id", cycleID)

	st := r.rec.Reconcile(ctx)
	log.Infow("reconciled",
		"state_clean", st.StateClean,
		"wallet_usdc", market.Float(st.WalletUSDC, 2),
		"free_usdc", market.Float(st.FreeUSDC, 2),
		"issues", len(st.Issues),
	)

	chk := r.gate.Check(ctx, st)
	rep := Report{CycleID: cycleID, ReconcileState: st, PreflightCheck: chk}
	took := r.now().Sub(start)
	log.Infow("preflight",
		"can_trade", chk.CanTrade,
		"reason_codes", chk.ReasonCodes.Strings(),
		"took", took,
	)

	r.record(log, start, rep)
	if r.obs != nil {
		r.obs.Observe(st, chk, took)
	}
	return rep
}

func (r *Runner) record(log *zap.SugaredLogger, at time.Time, rep Report) {
	data, err := json.Marshal(rep)
	if err != nil {
		log.Errorw("marshal report", "err", err)
		return
	}
	st := rep.ReconcileState
	err = r.jrnl.RecordCycle(journal.CycleRecord{
		CycleID:     rep.CycleID,
		Time:        at,
		CanTrade:    rep.PreflightCheck.CanTrade,
		StateClean:  st.StateClean,
		WalletUSDC:  market.Float(st.WalletUSDC, market.MicroDecimals),
		FreeUSDC:    market.Float(st.FreeUSDC, market.MicroDecimals),
		ReasonCodes: rep.PreflightCheck.ReasonCodes.Strings(),
		Issues:      st.Issues,
		Report:      data,
	})
	if err != nil {
		log.Errorw("journal cycle", "err", err)
	}
}

// Every runs a cycle immediately and then once per interval until ctx is
// done, handing each report to fn. Cycles never overlap.
func (r *Runner) Every(ctx context.Context, interval time.Duration, fn func(Report)) {
	if interval <= 0 {
		interval = DefaultInterval
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		rep := r.Run(ctx)
		if fn != nil {
			fn(rep)
		}
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
		if ctx.Err() != nil {
			return
		}
	}
}
