package infrastructure

import (
	"context"
	"math/big"
	"strconv"

	"blocklucky/events"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/shopspring/decimal"
)

// MetricsNamespace prefixes every exported metric
const MetricsNamespace = "blocklucky"

// LotteryMetrics turns committed lottery events into Prometheus series
type LotteryMetrics struct {
	ticketsSold  *prometheus.CounterVec
	purchases    *prometheus.CounterVec
	draws        *prometheus.CounterVec
	prizesPaid   *prometheus.CounterVec
	resets       *prometheus.CounterVec
	withdrawals  *prometheus.CounterVec
	forfeited    *prometheus.CounterVec
	potEther     *prometheus.GaugeVec
	participants *prometheus.GaugeVec
	round        *prometheus.GaugeVec
}

// NewMetricsRegistry returns a registry with the process and Go collectors
func NewMetricsRegistry() *prometheus.Registry {
	r := prometheus.NewRegistry()
	r.MustRegister(
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{
			Namespace: MetricsNamespace,
		}),
		collectors.NewGoCollector(),
	)
	return r
}

// NewLotteryMetrics creates the lottery collectors and registers them on r
func NewLotteryMetrics(r prometheus.Registerer) *LotteryMetrics {
	lotteryLabel := []string{"lottery_id"}
	m := &LotteryMetrics{
		ticketsSold: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: MetricsNamespace,
			Name:      "tickets_sold_total",
			Help:      "Tickets sold across all rounds.",
		}, lotteryLabel),
		purchases: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: MetricsNamespace,
			Name:      "purchases_total",
			Help:      "Purchase transactions by kind.",
		}, []string{"lottery_id", "kind"}),
		draws: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: MetricsNamespace,
			Name:      "draws_total",
			Help:      "Completed draws.",
		}, lotteryLabel),
		prizesPaid: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: MetricsNamespace,
			Name:      "prizes_paid_ether_total",
			Help:      "Ether paid out to winners.",
		}, lotteryLabel),
		resets: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: MetricsNamespace,
			Name:      "resets_total",
			Help:      "Rounds reopened by the owner.",
		}, lotteryLabel),
		withdrawals: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: MetricsNamespace,
			Name:      "emergency_withdrawals_ether_total",
			Help:      "Ether drained by emergency withdrawals.",
		}, lotteryLabel),
		forfeited: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: MetricsNamespace,
			Name:      "forfeited_pot_ether_total",
			Help:      "Undrawn pots cleared by owner resets.",
		}, lotteryLabel),
		potEther: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: MetricsNamespace,
			Name:      "pot_ether",
			Help:      "Current pot of the round.",
		}, lotteryLabel),
		participants: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: MetricsNamespace,
			Name:      "participants",
			Help:      "Distinct participants in the current round.",
		}, lotteryLabel),
		round: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: MetricsNamespace,
			Name:      "round",
			Help:      "Current round number.",
		}, lotteryLabel),
	}

	r.MustRegister(
		m.ticketsSold,
		m.purchases,
		m.draws,
		m.prizesPaid,
		m.resets,
		m.withdrawals,
		m.forfeited,
		m.potEther,
		m.participants,
		m.round,
	)
	return m
}

// Attach subscribes the collectors to every event on the bus
func (m *LotteryMetrics) Attach(bus *events.Bus) {
	bus.SubscribeAll(m.HandleEvent)
}

// HandleEvent updates the series for one committed event
func (m *LotteryMetrics) HandleEvent(_ context.Context, event events.Event) {
	ref := event.Ref()
	id := strconv.FormatInt(ref.LotteryID, 10)
	m.round.WithLabelValues(id).Set(float64(ref.Round))

	switch e := event.(type) {
	case events.TicketPurchasedEvent:
		m.ticketsSold.WithLabelValues(id).Add(float64(e.Quantity))
		m.purchases.WithLabelValues(id, "single").Inc()
		m.participants.WithLabelValues(id).Set(float64(e.NewParticipantCount))
		m.potEther.WithLabelValues(id).Add(toEther(e.TicketPrice))
	case events.TicketsBoughtEvent:
		m.ticketsSold.WithLabelValues(id).Add(float64(e.Quantity))
		m.purchases.WithLabelValues(id, "batch").Inc()
		m.potEther.WithLabelValues(id).Add(toEther(e.TotalPrice))
	case events.LotteryTriggeredEvent:
		m.participants.WithLabelValues(id).Set(float64(e.TotalParticipants))
		m.potEther.WithLabelValues(id).Set(toEther(e.TotalPot))
	case events.WinnerSelectedEvent:
		m.draws.WithLabelValues(id).Inc()
		m.prizesPaid.WithLabelValues(id).Add(toEther(e.Prize))
		m.potEther.WithLabelValues(id).Set(0)
	case events.LotteryResetEvent:
		m.resets.WithLabelValues(id).Inc()
		m.forfeited.WithLabelValues(id).Add(toEther(e.ForfeitedPot))
		m.participants.WithLabelValues(id).Set(0)
		m.potEther.WithLabelValues(id).Set(0)
	case events.EmergencyWithdrawalEvent:
		m.withdrawals.WithLabelValues(id).Add(toEther(e.Amount))
		m.potEther.WithLabelValues(id).Set(0)
	}
}

func toEther(wei *big.Int) float64 {
	if wei == nil {
		return 0
	}
	return decimal.NewFromBigInt(wei, -18).InexactFloat64()
}
