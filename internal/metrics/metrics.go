package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome labels shared by the auth and profile counters.
const (
	OutcomeSuccess          = "success"
	OutcomeInvalidAddress   = "invalid_address"
	OutcomeInvalidRequest   = "invalid_request"
	OutcomeNotFound         = "not_found"
	OutcomeInvalidSignature = "invalid_signature"
	OutcomeMismatch         = "signature_mismatch"
	OutcomeError            = "error"
)

// Metrics holds the Prometheus collectors for the wallet auth flows.
type Metrics struct {
	Challenges     prometheus.Counter
	Verifications  *prometheus.CounterVec
	ProfileUpdates *prometheus.CounterVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Challenges: f.NewCounter(prometheus.CounterOpts{
			Name: "bazaar_auth_challenges_total",
			Help: "Total number of login challenges issued",
		}),
		Verifications: f.NewCounterVec(prometheus.CounterOpts{
			Name: "bazaar_auth_verifications_total",
			Help: "Signature verifications by outcome",
		}, []string{"outcome"}),
		ProfileUpdates: f.NewCounterVec(prometheus.CounterOpts{
			Name: "bazaar_profile_updates_total",
			Help: "Signed profile updates by outcome",
		}, []string{"outcome"}),
	}
}

// IncChallenges counts an issued challenge.
func (m *Metrics) IncChallenges() {
	if m == nil {
		return
	}
	m.Challenges.Inc()
}

// IncVerification counts a verify call with the given outcome.
func (m *Metrics) IncVerification(outcome string) {
	if m == nil {
		return
	}
	m.Verifications.WithLabelValues(outcome).Inc()
}

// IncProfileUpdate counts a profile update with the given outcome.
func (m *Metrics) IncProfileUpdate(outcome string) {
	if m == nil {
		return
	}
	m.ProfileUpdates.WithLabelValues(outcome).Inc()
}
