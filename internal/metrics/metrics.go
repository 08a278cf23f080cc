package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Métricas de dominio. Viven en un paquete aparte para que auth, chain y los
// services HTTP puedan registrarlas sin importarse entre sí.

var (
	AuthAttempts = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "auth_attempts_total",
		Help: "Intentos de login por wallet según resultado",
	}, []string{"outcome"})

	NoncesIssued = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "nonces_issued_total",
		Help: "Nonces de login emitidos",
	})

	LedgerOperations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_operations_total",
		Help: "Operaciones sobre la cadena de credenciales por resultado",
	}, []string{"op", "result"})

	LedgerEntries = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "ledger_entries",
		Help: "Cantidad de entries en la cadena",
	})

	ChainCalls = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "chain_calls_total",
		Help: "Llamadas isIssuer al contrato por resultado",
	}, []string{"result"}) // result: issuer|not_issuer|error|unconfigured

	ChainCallDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "chain_call_duration_seconds",
		Help:    "Latencia de las llamadas al nodo RPC",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	})
)

// Register registra las métricas de dominio en reg (o el default si es nil).
func Register(reg prometheus.Registerer) error {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	for _, c := range []prometheus.Collector{
		AuthAttempts, NoncesIssued, LedgerOperations, LedgerEntries, ChainCalls, ChainCallDuration,
	} {
		if err := reg.Register(c); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
				return err
			}
		}
	}
	return nil
}

func RecordAuthAttempt(outcome string) { AuthAttempts.WithLabelValues(outcome).Inc() }

func RecordLedgerOp(op string, err error, entries int) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	LedgerOperations.WithLabelValues(op, result).Inc()
	if entries >= 0 {
		LedgerEntries.Set(float64(entries))
	}
}

func RecordChainCall(result string, d time.Duration) {
	ChainCalls.WithLabelValues(result).Inc()
	if d > 0 {
		ChainCallDuration.Observe(d.Seconds())
	}
}
