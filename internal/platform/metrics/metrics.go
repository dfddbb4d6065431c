package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the portal.
type Metrics struct {
	Logins            prometheus.Counter
	LoginFailures     *prometheus.CounterVec
	Logouts           prometheus.Counter
	GuardRedirects    *prometheus.CounterVec
	FormSubmits       *prometheus.CounterVec
	UpstreamDuration  *prometheus.HistogramVec
	UpstreamRetries   prometheus.Counter
	SessionsExpired   prometheus.Counter
	ActiveWorkspaces  prometheus.Gauge
	RateLimitedLogins prometheus.Counter
}

// New creates and registers all metrics on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Logins: f.NewCounter(prometheus.CounterOpts{
			Name: "kyc_portal_logins_total",
			Help: "Successful logins",
		}),
		LoginFailures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "kyc_portal_login_failures_total",
			Help: "Rejected logins by reason (validation, credentials, upstream)",
		}, []string{"reason"}),
		Logouts: f.NewCounter(prometheus.CounterOpts{
			Name: "kyc_portal_logouts_total",
			Help: "Logouts, including repeated idempotent calls",
		}),
		GuardRedirects: f.NewCounterVec(prometheus.CounterOpts{
			Name: "kyc_portal_guard_redirects_total",
			Help: "Navigation guard redirects by reason",
		}, []string{"reason"}),
		FormSubmits: f.NewCounterVec(prometheus.CounterOpts{
			Name: "kyc_portal_form_submits_total",
			Help: "Form submissions by form and outcome",
		}, []string{"form", "outcome"}),
		UpstreamDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "kyc_portal_upstream_request_duration_seconds",
			Help:    "Upstream API call latency including retries",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "status"}),
		UpstreamRetries: f.NewCounter(prometheus.CounterOpts{
			Name: "kyc_portal_upstream_retries_total",
			Help: "Upstream calls retried after a transient failure",
		}),
		SessionsExpired: f.NewCounter(prometheus.CounterOpts{
			Name: "kyc_portal_sessions_expired_total",
			Help: "Sessions cleared because the upstream answered 401",
		}),
		ActiveWorkspaces: f.NewGauge(prometheus.GaugeOpts{
			Name: "kyc_portal_active_workspaces",
			Help: "Browser workspaces currently loaded in memory",
		}),
		RateLimitedLogins: f.NewCounter(prometheus.CounterOpts{
			Name: "kyc_portal_login_rate_limited_total",
			Help: "Login attempts rejected by the per-IP throttle",
		}),
	}
}

// Handler exposes the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

func (m *Metrics) IncrementLogins() {
	if m == nil {
		return
	}
	m.Logins.Inc()
}

func (m *Metrics) IncrementLoginFailure(reason string) {
	if m == nil {
		return
	}
	m.LoginFailures.WithLabelValues(reason).Inc()
}

func (m *Metrics) IncrementLogouts() {
	if m == nil {
		return
	}
	m.Logouts.Inc()
}

func (m *Metrics) IncrementGuardRedirect(reason string) {
	if m == nil {
		return
	}
	m.GuardRedirects.WithLabelValues(reason).Inc()
}

func (m *Metrics) IncrementFormSubmit(form, outcome string) {
	if m == nil {
		return
	}
	m.FormSubmits.WithLabelValues(form, outcome).Inc()
}

func (m *Metrics) ObserveUpstream(method, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.UpstreamDuration.WithLabelValues(method, status).Observe(d.Seconds())
}

func (m *Metrics) IncrementUpstreamRetries() {
	if m == nil {
		return
	}
	m.UpstreamRetries.Inc()
}

func (m *Metrics) IncrementSessionsExpired() {
	if m == nil {
		return
	}
	m.SessionsExpired.Inc()
}

func (m *Metrics) SetActiveWorkspaces(n int) {
	if m == nil {
		return
	}
	m.ActiveWorkspaces.Set(float64(n))
}

func (m *Metrics) IncrementRateLimitedLogins() {
	if m == nil {
		return
	}
	m.RateLimitedLogins.Inc()
}
