// Package metrics exposes decision cycle outcomes as Prometheus series.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rustyeddy/polygate/market"
	"github.com/rustyeddy/polygate/preflight"
	"github.com/rustyeddy/polygate/reconcile"
)

const namespace = "polygate"

// Metrics owns a private registry so several instances (and tests) never
// collide on the global one.
type Metrics struct {
	reg *prometheus.Registry

	cycles      *prometheus.CounterVec
	reasonCodes *prometheus.CounterVec
	issues      *prometheus.CounterVec
	walletUSDC  prometheus.Gauge
	freeUSDC    prometheus.Gauge
	reserved    prometheus.Gauge
	stateClean  prometheus.Gauge
	duration    prometheus.Histogram
}

func New() *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		cycles: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cycles_total",
				Help:      "Decision cycles run, by outcome.",
			},
			[]string{"can_trade"},
		),
		reasonCodes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "reason_codes_total",
				Help:      "Reason codes emitted by the preflight gate.",
			},
			[]string{"code"},
		),
		issues: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "reconcile_issues_total",
				Help:      "Reconciliation issues, by kind.",
			},
			[]string{"kind"},
		),
		walletUSDC: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "wallet_usdc",
			Help:      "Collateral balance at the last reconciliation.",
		}),
		freeUSDC: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "free_usdc",
			Help:      "Collateral not reserved by open buy orders.",
		}),
		reserved: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "buy_reserved_usdc",
			Help:      "Collateral reserved by open buy orders.",
		}),
		stateClean: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "state_clean",
			Help:      "1 when the last reconciliation was clean.",
		}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "cycle_duration_seconds",
			Help:      "Wall time of a decision cycle.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 25, 60},
		}),
	}

	m.reg.MustRegister(m.cycles, m.reasonCodes, m.issues)
	m.reg.MustRegister(m.walletUSDC, m.freeUSDC, m.reserved, m.stateClean, m.duration)
	m.reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return m
}

func (m *Metrics) Registry() *prometheus.Registry { return m.reg }

// Handler serves the private registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{Registry: m.reg})
}

// Observe records one finished cycle.
func (m *Metrics) Observe(st reconcile.State, chk preflight.Check, took time.Duration) {
	m.cycles.WithLabelValues(strconv.FormatBool(chk.CanTrade)).Inc()
	if chk.ReasonCodes != nil {
		for _, c := range chk.ReasonCodes.Strings() {
			m.reasonCodes.WithLabelValues(c).Inc()
		}
	}
	for _, is := range st.Issues {
		m.issues.WithLabelValues(reconcile.IssueKind(is)).Inc()
	}

	m.walletUSDC.Set(market.Float(st.WalletUSDC, market.MicroDecimals))
	m.freeUSDC.Set(market.Float(st.FreeUSDC, market.MicroDecimals))
	m.reserved.Set(market.Float(st.BuyReservedUSDC, market.MicroDecimals))
	if st.StateClean {
		m.stateClean.Set(1)
	} else {
		m.stateClean.Set(0)
	}
	m.duration.Observe(took.Seconds())
}
