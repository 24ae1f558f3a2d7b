package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	LinkRequestsTotal  *prometheus.CounterVec
	RelinksTotal       *prometheus.CounterVec
	UnlinksTotal       prometheus.Counter
	VerificationsTotal *prometheus.CounterVec
	LedgerWritesTotal  *prometheus.CounterVec
	CooldownHitsTotal  prometheus.Counter
	ActiveLinks        prometheus.Gauge
}

func New() *Metrics {
	return &Metrics{
		LinkRequestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "wikibridge_link_requests_total",
			Help: "Total number of link requests by result",
		}, []string{"result"}),
		RelinksTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "wikibridge_relinks_total",
			Help: "Total number of relink attempts by result",
		}, []string{"result"}),
		UnlinksTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "wikibridge_unlinks_total",
			Help: "Total number of active links removed",
		}),
		VerificationsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "wikibridge_verifications_total",
			Help: "Total number of ownership verifications by outcome",
		}, []string{"outcome"}),
		LedgerWritesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "wikibridge_ledger_writes_total",
			Help: "Total number of ledger writes by status",
		}, []string{"status"}),
		CooldownHitsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "wikibridge_cooldown_hits_total",
			Help: "Total number of requests rejected by the per-identity cooldown",
		}),
		ActiveLinks: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "wikibridge_active_links",
			Help: "Current number of active account links",
		}),
	}
}

func (m *Metrics) ObserveLinkRequest(result string) {
	m.LinkRequestsTotal.WithLabelValues(result).Inc()
}

func (m *Metrics) ObserveRelink(result string) {
	m.RelinksTotal.WithLabelValues(result).Inc()
}

func (m *Metrics) ObserveUnlink() {
	m.UnlinksTotal.Inc()
}

func (m *Metrics) ObserveVerification(outcome string) {
	m.VerificationsTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveLedgerWrite(status string) {
	m.LedgerWritesTotal.WithLabelValues(status).Inc()
}

func (m *Metrics) ObserveCooldownHit() {
	m.CooldownHitsTotal.Inc()
}

func (m *Metrics) SetActiveLinks(count int) {
	m.ActiveLinks.Set(float64(count))
}
