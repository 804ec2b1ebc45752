package cli

import (
	"fmt"

	"github.com/rustyeddy/polygate/broker"
	"github.com/rustyeddy/polygate/broker/fixture"
	"github.com/rustyeddy/polygate/clob"
	"github.com/rustyeddy/polygate/config"
	"github.com/rustyeddy/polygate/cycle"
	"github.com/rustyeddy/polygate/journal"
	"github.com/rustyeddy/polygate/preflight"
	"github.com/rustyeddy/polygate/reconcile"
	"github.com/rustyeddy/polygate/snapshot"
	"go.uber.org/zap"
)

// sources are the exchange-facing capabilities chosen by configuration.
type sources struct {
	exchange broker.Exchange
	markets  snapshot.MarketLister
	trades   snapshot.TradeSource
}

func buildSources(cfg *config.Config) (sources, error) {
	switch cfg.Exchange.Source {
	case config.SourceFixture:
		ex, err := fixture.Load(cfg.Exchange.FixturePath)
		if err != nil {
			return sources{}, err
		}
		return sources{exchange: ex, markets: ex, trades: ex}, nil
	case config.SourceCLOB:
		c := clob.NewClient(clob.Config{
			BaseURL:       cfg.Exchange.BaseURL,
			Address:       cfg.Exchange.Address,
			Credentials:   cfg.Exchange.Credentials,
			SignatureType: cfg.Exchange.SignatureType,
			Timeout:       cfg.Exchange.TimeoutDuration(),
		})
		g := clob.NewGamma(cfg.Exchange.GammaURL, cfg.Exchange.TimeoutDuration())
		return sources{exchange: c, markets: g, trades: c}, nil
	default:
		return sources{}, fmt.Errorf("unknown exchange source %q", cfg.Exchange.Source)
	}
}

func buildProbe(cfg *config.Config, src sources, log *zap.SugaredLogger) snapshot.Probe {
	sc := cfg.Snapshot
	if sc.Probe == config.ProbeCommand {
		return snapshot.CommandProbe{Argv: sc.Command, Dir: sc.Dir, Timeout: sc.TimeoutDuration()}
	}
	return snapshot.NewCollector(src.markets, src.exchange, src.trades, snapshot.CollectorOptions{
		Keywords:    sc.Keywords,
		MarketLimit: sc.MarketLimit,
		PageDelay:   sc.PageDelayDuration(),
		Concurrency: sc.Concurrency,
		Logger:      log.Named("snapshot"),
	})
}

// buildRunner wires a full decision cycle. The caller closes the journal.
func buildRunner(cfg *config.Config, log *zap.SugaredLogger, obs cycle.Observer) (*cycle.Runner, journal.Journal, error) {
	src, err := buildSources(cfg)
	if err != nil {
		return nil, nil, err
	}
	jrnl, err := journal.Open(cfg.Journal.Type, cfg.Journal.Path)
	if err != nil {
		return nil, nil, err
	}

	eng := reconcile.NewFromExchange(src.exchange, reconcile.Options{
		CallTimeout: cfg.Reconcile.CallTimeoutDuration(),
		Concurrency: cfg.Reconcile.Concurrency,
		Logger:      log.Named("reconcile"),
	})
	gate := preflight.NewGate(buildProbe(cfg, src, log), cfg.Preflight, preflight.GateOptions{
		AuditPath: cfg.Snapshot.AuditPath,
		Timeout:   cfg.Snapshot.TimeoutDuration(),
		Logger:    log.Named("preflight"),
	})
	r := cycle.New(eng, gate, cycle.Options{
		Journal:  jrnl,
		Observer: obs,
		Logger:   log.Named("cycle"),
	})
	return r, jrnl, nil
}
