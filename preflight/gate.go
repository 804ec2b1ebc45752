package preflight

import (
	"context"
	"time"

	"github.com/rustyeddy/polygate/market"
	"github.com/rustyeddy/polygate/reconcile"
	"github.com/rustyeddy/polygate/snapshot"
	"go.uber.org/zap"
)

type GateOptions struct {
	// AuditPath receives the raw snapshot of every run. Empty disables it.
	AuditPath string
	// Timeout bounds the whole probe run.
	Timeout time.Duration
	Logger  *zap.SugaredLogger
	Now     func() time.Time
}

// Gate takes a book snapshot and evaluates it together with a
// reconciliation result.
type Gate struct {
	probe      snapshot.Probe
	thresholds Thresholds
	auditPath  string
	timeout    time.Duration
	log        *zap.SugaredLogger
	now        func() time.Time
}

func NewGate(probe snapshot.Probe, th Thresholds, opts GateOptions) *Gate {
	g := &Gate{
		probe:      probe,
		thresholds: th,
		auditPath:  opts.AuditPath,
		timeout:    opts.Timeout,
		log:        opts.Logger,
		now:        opts.Now,
	}
	if g.timeout <= 0 {
		g.timeout = snapshot.DefaultTimeout
	}
	if g.log == nil {
		g.log = zap.NewNop().Sugar()
	}
	if g.now == nil {
		g.now = time.Now
	}
	return g
}

func (g *Gate) Thresholds() Thresholds { return g.thresholds }

// Check never fails. A probe error or a snapshot without a two-sided row
// becomes BOOK_UNVERIFIED.
func (g *Gate) Check(ctx context.Context, st reconcile.State) Check {
	if g.thresholds.PlannedExitSizeShares <= 0 {
		g.log.Warnw("planned exit size is not positive; depth multiples forced to 0",
			"planned_exit_size_shares", g.thresholds.PlannedExitSizeShares)
	}
	row := g.representativeRow(ctx)
	return Evaluate(InputFrom(st, row), g.thresholds, g.now())
}

func (g *Gate) representativeRow(ctx context.Context) (out *market.BookSnapshotRow) {
	if g.probe == nil {
		return nil
	}
	defer func() {
		if r := recover(); r != nil {
			g.log.Errorw("book snapshot panicked", "panic", r)
			out = nil
		}
	}()
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	snap, err := g.probe.Run(ctx)
	if err != nil {
		g.log.Warnw("book snapshot failed", "err", err)
		return nil
	}
	if err := snapshot.WriteAudit(g.auditPath, snap); err != nil {
		g.log.Warnw("snapshot audit write failed", "path", g.auditPath, "err", err)
	}
	row, ok := snap.FirstQuoted()
	if !ok {
		g.log.Infow("no two-sided book in snapshot", "rows", len(snap.Rows))
		return nil
	}
	return &row
}
