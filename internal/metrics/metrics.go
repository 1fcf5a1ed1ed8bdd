// Package metrics exposes Prometheus counters for the authentication flows.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "muscuscope"

type Metrics struct {
	LoginAttempts     *prometheus.CounterVec
	LoginThrottled    *prometheus.CounterVec
	TokensIssued      *prometheus.CounterVec
	TokenRefreshes    *prometheus.CounterVec
	TokenValidations  *prometheus.CounterVec
	LedgerWriteErrors prometheus.Counter
}

// New registers the auth metrics on reg
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		LoginAttempts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "login_attempts_total",
			Help:      "Login attempts by outcome.",
		}, []string{"outcome"}),
		LoginThrottled: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "login_throttled_total",
			Help:      "Login attempts rejected because the IP or login was blocked.",
		}, []string{"scope"}),
		TokensIssued: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tokens_issued_total",
			Help:      "Signed tokens by type.",
		}, []string{"type"}),
		TokenRefreshes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "token_refreshes_total",
			Help:      "Refresh requests by outcome.",
		}, []string{"outcome"}),
		TokenValidations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "token_validations_total",
			Help:      "Token validation results by kind.",
		}, []string{"result"}),
		LedgerWriteErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "login_ledger_write_errors_total",
			Help:      "Failed inserts into the login attempt ledger.",
		}),
	}
}

func (m *Metrics) ObserveLogin(outcome string) {
	if m == nil {
		return
	}
	m.LoginAttempts.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveThrottle(scope string) {
	if m == nil {
		return
	}
	m.LoginThrottled.WithLabelValues(scope).Inc()
}

func (m *Metrics) ObserveIssued(tokenType string) {
	if m == nil {
		return
	}
	m.TokensIssued.WithLabelValues(tokenType).Inc()
}

func (m *Metrics) ObserveRefresh(outcome string) {
	if m == nil {
		return
	}
	m.TokenRefreshes.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveValidation(result string) {
	if m == nil {
		return
	}
	m.TokenValidations.WithLabelValues(result).Inc()
}

func (m *Metrics) ObserveLedgerWriteError() {
	if m == nil {
		return
	}
	m.LedgerWriteErrors.Inc()
}
