package health

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics exposes the pipeline counters on the default Prometheus
// registry. It implements strategy.Metrics.
type Metrics struct {
	ticksTotal      prometheus.Counter
	tickFailures    prometheus.Counter
	signalsTotal    *prometheus.CounterVec
	rejectionsTotal *prometheus.CounterVec
	ordersTotal     prometheus.Counter
	exitsTotal      *prometheus.CounterVec
	spotPrice       prometheus.Gauge
	openPositions   prometheus.Gauge
	dayPnL          prometheus.Gauge
}

// NewMetrics registers the collectors. Call once per process.
func NewMetrics() *Metrics {
	return &Metrics{
		ticksTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "trader_ticks_total",
			Help: "Tick evaluations completed.",
		}),
		tickFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "trader_tick_failures_total",
			Help: "Ticks skipped because the spot price was unavailable.",
		}),
		signalsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "trader_signals_total",
			Help: "Signals proposed by the detector.",
		}, []string{"kind"}),
		rejectionsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "trader_signal_rejections_total",
			Help: "Signals dropped before execution.",
		}, []string{"reason"}),
		ordersTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "trader_orders_total",
			Help: "Entry orders filled.",
		}),
		exitsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "trader_exits_total",
			Help: "Positions closed, by exit reason.",
		}, []string{"reason"}),
		spotPrice: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "trader_spot_price",
			Help: "Last observed underlying price.",
		}),
		openPositions: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "trader_open_positions",
			Help: "Currently open positions.",
		}),
		dayPnL: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "trader_day_pnl",
			Help: "Realized P&L for the current session.",
		}),
	}
}

func (m *Metrics) TickProcessed()             { m.ticksTotal.Inc() }
func (m *Metrics) TickFailed()                { m.tickFailures.Inc() }
func (m *Metrics) SignalDetected(kind string) { m.signalsTotal.WithLabelValues(kind).Inc() }
func (m *Metrics) SignalRejected(r string)    { m.rejectionsTotal.WithLabelValues(r).Inc() }
func (m *Metrics) OrderPlaced()               { m.ordersTotal.Inc() }
func (m *Metrics) TradeClosed(reason string)  { m.exitsTotal.WithLabelValues(reason).Inc() }
func (m *Metrics) ObserveSpot(price float64)  { m.spotPrice.Set(price) }
func (m *Metrics) SetOpenPositions(n int)     { m.openPositions.Set(float64(n)) }
func (m *Metrics) SetDayPnL(pnl float64)      { m.dayPnL.Set(pnl) }
