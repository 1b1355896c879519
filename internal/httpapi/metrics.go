package httpapi

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	operationGift       = "gift"
	operationExchange   = "exchange"
	operationDistribute = "distribute"

	outcomeOK       = "ok"
	outcomeError    = "error"
	outcomeRejected = "rejected"
)

var operationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "points",
	Subsystem: "api",
	Name:      "operations_total",
	Help:      "Ledger operations handled by the HTTP facade, by outcome.",
}, []string{"operation", "outcome"})

func recordOperation(operation string, outcome string) {
	operationsTotal.WithLabelValues(operation, outcome).Inc()
}
