// Package metrics defines the Prometheus registry and the instruments for
// authentication and account flows.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "campus_life"

// Registry is the Prometheus registry for all application metrics.
var Registry = prometheus.NewRegistry()

// AppInfo exposes version information as labels; the value is always 1.
var AppInfo = promauto.With(Registry).NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "app_info",
		Help:      "Application version information (always set to 1, version info in labels)",
	},
	[]string{"version", "commit", "build_date"},
)

// LoginsTotal counts login attempts by outcome.
// result: success|invalid_credentials|error
var LoginsTotal = promauto.With(Registry).NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "auth_logins_total",
		Help:      "Total number of login attempts",
	},
	[]string{"result"},
)

// SessionsIssuedTotal counts sessions created, by the flow that created them.
// flow: login|account_setup
var SessionsIssuedTotal = promauto.With(Registry).NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sessions_issued_total",
		Help:      "Total number of sessions issued",
	},
	[]string{"flow"},
)

// SessionsRevokedTotal counts explicit session revocations.
// reason: logout|password_change|password_reset
var SessionsRevokedTotal = promauto.With(Registry).NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sessions_revoked_total",
		Help:      "Total number of sessions revoked",
	},
	[]string{"reason"},
)

// PasswordResetsTotal counts password reset flow transitions.
// stage: requested|confirmed|rejected
var PasswordResetsTotal = promauto.With(Registry).NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "password_resets_total",
		Help:      "Total number of password reset flow transitions",
	},
	[]string{"stage"},
)

// Init registers runtime collectors and sets version information.
func Init(version, commit, buildDate string) {
	Registry.MustRegister(collectors.NewGoCollector())
	Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	AppInfo.WithLabelValues(version, commit, buildDate).Set(1)
}

// Handler serves the registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}
