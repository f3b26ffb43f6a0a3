package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Ops tracks control-plane operation counters through the Prometheus client
// library. They ride along on /metrics behind the hand-written exposition.
type Ops struct {
	operations *prometheus.CounterVec
	uptime     prometheus.GaugeFunc
	startTime  time.Time
}

// NewOps creates and registers the operation metrics
func NewOps(reg prometheus.Registerer) *Ops {
	startTime := time.Now()

	o := &Ops{
		operations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ccc_operations_total",
				Help: "Control operations by name and result",
			},
			[]string{"op", "result"},
		),
		uptime: prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{
				Name: "ccc_uptime_seconds",
				Help: "Seconds since the control core started",
			},
			func() float64 { return time.Since(startTime).Seconds() },
		),
		startTime: startTime,
	}

	reg.MustRegister(o.operations)
	reg.MustRegister(o.uptime)
	return o
}

// Record counts one control operation outcome
func (o *Ops) Record(op, result string) {
	o.operations.WithLabelValues(op, result).Inc()
}
