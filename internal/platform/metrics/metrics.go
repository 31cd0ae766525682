package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	AccountsRegistered prometheus.Counter
	OtpSent            *prometheus.CounterVec
	OtpVerified        prometheus.Counter
	OtpRejected        *prometheus.CounterVec
	Logins             *prometheus.CounterVec
	AccountLockouts    prometheus.Counter
	RequestDuration    *prometheus.HistogramVec
}

// New creates and registers all Prometheus metrics on a fresh registry so
// tests can construct Metrics repeatedly without duplicate registration
// panics. The registry is returned for the /metrics endpoint.
func New() (*Metrics, *prometheus.Registry) {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		AccountsRegistered: factory.NewCounter(prometheus.CounterOpts{
			Name: "greengate_accounts_registered_total",
			Help: "Total accounts that entered the registration flow",
		}),
		OtpSent: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "greengate_otp_sent_total",
			Help: "OTP dispatch attempts by delivery status",
		}, []string{"status"}),
		OtpVerified: factory.NewCounter(prometheus.CounterOpts{
			Name: "greengate_otp_verified_total",
			Help: "Successful OTP verifications",
		}),
		OtpRejected: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "greengate_otp_rejected_total",
			Help: "Rejected OTP verification attempts by reason",
		}, []string{"reason"}),
		Logins: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "greengate_logins_total",
			Help: "Login admissions by result",
		}, []string{"result"}),
		AccountLockouts: factory.NewCounter(prometheus.CounterOpts{
			Name: "greengate_account_lockouts_total",
			Help: "Accounts disabled after exhausting the login budget",
		}),
		RequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "greengate_http_request_duration_seconds",
			Help:    "HTTP request latency by route",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "status"}),
	}, reg
}
