package metrics

import "github.com/prometheus/client_golang/prometheus"

// Rejection reasons reported by the consumption gate.
const (
	RejectNoActivePlan   = "no_active_plan"
	RejectNoBalance      = "insufficient_clips"
	RejectProjectMissing = "project_not_found"
	RejectDuplicateOffer = "duplicate_offer"
	RejectLostRace       = "lost_race"
)

// ClipMetrics counts clip spends and refused applications.
type ClipMetrics struct {
	consumed prometheus.Counter
	rejected *prometheus.CounterVec
}

// NewClipMetrics registers the clip counters on the provided registerer.
func NewClipMetrics(reg prometheus.Registerer) *ClipMetrics {
	if reg == nil {
		return &ClipMetrics{}
	}
	consumed := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "clips_consumed_total",
		Help: "Clips spent on project applications.",
	})
	rejected := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "clip_consumption_rejected_total",
		Help: "Project applications refused by the clip gate.",
	}, []string{"reason"})
	reg.MustRegister(consumed, rejected)
	return &ClipMetrics{consumed: consumed, rejected: rejected}
}

// IncConsumed records one spent clip.
func (c *ClipMetrics) IncConsumed() {
	if c == nil || c.consumed == nil {
		return
	}
	c.consumed.Inc()
}

// IncRejected records a refused application.
func (c *ClipMetrics) IncRejected(reason string) {
	if c == nil || c.rejected == nil {
		return
	}
	c.rejected.WithLabelValues(normalizeLabel(reason)).Inc()
}
