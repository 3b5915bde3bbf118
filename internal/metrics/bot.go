package metrics

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(
		updatesTotal,
		spreadsTotal,
		ledgerOperationsTotal,
	)
}

var (
	updatesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tarolog_updates_total",
			Help: "Incoming Telegram updates by routed kind.",
		},
		[]string{"kind"},
	)

	spreadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tarolog_spreads_total",
			Help: "Tarot spreads by outcome.",
		},
		[]string{"result"},
	)

	ledgerOperationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tarolog_ledger_operations_total",
			Help: "Ledger operations by name and outcome.",
		},
		[]string{"op", "result"},
	)
)

func IncUpdate(kind string) {
	updatesTotal.WithLabelValues(norm(kind)).Inc()
}

func IncSpread(ok bool) {
	spreadsTotal.WithLabelValues(result(ok)).Inc()
}

func IncLedgerOperation(op string, ok bool) {
	ledgerOperationsTotal.WithLabelValues(norm(op), result(ok)).Inc()
}

func result(ok bool) string {
	if ok {
		return "ok"
	}
	return "error"
}

func norm(s string) string {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" {
		return "unknown"
	}
	return s
}
