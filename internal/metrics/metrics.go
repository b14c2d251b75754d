package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	PollCount            prometheus.Counter
	MessagesFetched      prometheus.Counter
	AccountsProvisioned  prometheus.Counter
	RequestsDenied       prometheus.Counter
	ParseFailures        prometheus.Counter
	ProvisioningFailures prometheus.Counter
	NotifyFailures       prometheus.Counter
	RunFailures          prometheus.Counter
	ProcessingTime       prometheus.Histogram
}

// NewMetrics creates new Prometheus metrics
func NewMetrics() *Metrics {
	return &Metrics{
		PollCount: promauto.NewCounter(prometheus.CounterOpts{
			Name: "account_provisioner_poll_count",
			Help: "Total number of mailbox poll cycles",
		}),
		MessagesFetched: promauto.NewCounter(prometheus.CounterOpts{
			Name: "account_provisioner_messages_fetched",
			Help: "Total number of candidate messages fetched",
		}),
		AccountsProvisioned: promauto.NewCounter(prometheus.CounterOpts{
			Name: "account_provisioner_accounts_provisioned",
			Help: "Total number of accounts created",
		}),
		RequestsDenied: promauto.NewCounter(prometheus.CounterOpts{
			Name: "account_provisioner_requests_denied",
			Help: "Total number of unauthorized requests denied",
		}),
		ParseFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "account_provisioner_parse_failures",
			Help: "Total number of malformed request messages",
		}),
		ProvisioningFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "account_provisioner_provisioning_failures",
			Help: "Total number of failed provisioning attempts",
		}),
		NotifyFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "account_provisioner_notify_failures",
			Help: "Total number of failed outcome notifications",
		}),
		RunFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "account_provisioner_run_failures",
			Help: "Total number of poll cycles aborted by infrastructure errors",
		}),
		ProcessingTime: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "account_provisioner_processing_duration_seconds",
			Help:    "Time spent processing poll cycles",
			Buckets: prometheus.DefBuckets,
		}),
	}
}
