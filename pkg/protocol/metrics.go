package protocol

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "aacs"

var (
	registry = prometheus.NewRegistry()

	operations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "operations_total",
			Help:      "Number of completed operations by operation and result.",
		},
		[]string{"operation", "result"},
	)
)

func init() {
	registry.MustRegister(operations)
}

// Metrics returns the registry holding the operation counters of every Engine. The result label
// is "ok" for successful operations and the error code name (for example "VerificationFailure")
// otherwise.
func Metrics() *prometheus.Registry {
	return registry
}

func resultLabel(err error) string {
	if err == nil {
		return "ok"
	}
	var protocolErr *Error
	if errors.As(err, &protocolErr) {
		return protocolErr.Code.String()
	}
	return "Failure"
}

func observe(operation string, err error) error {
	operations.WithLabelValues(operation, resultLabel(err)).Inc()
	return err
}
