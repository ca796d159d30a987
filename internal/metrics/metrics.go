// Package metrics exposes Prometheus counters for token operations and the simulated ledger.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	OperationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "spl_operations_total", Help: "Token operations by kind and outcome"},
		[]string{"op", "outcome"},
	)
	AccountsCreatedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "spl_accounts_created_total", Help: "Associated token accounts created by the resolver"},
	)
	RPCRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "simnet_rpc_requests_total", Help: "JSON-RPC requests served by the simulated ledger"},
		[]string{"method"},
	)
	TransactionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "simnet_transactions_total", Help: "Transactions processed by the simulated ledger"},
		[]string{"status"},
	)
)

func init() {
	prometheus.MustRegister(OperationsTotal, AccountsCreatedTotal, RPCRequestsTotal, TransactionsTotal)
}

// Handler returns the promhttp handler for mounting next to other routes.
func Handler() http.Handler { return promhttp.Handler() }

// Serve starts a background /metrics listener; an empty addr disables it.
func Serve(addr string) *http.Server {
	if addr == "" {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() { _ = srv.ListenAndServe() }()
	return srv
}
