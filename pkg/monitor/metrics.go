package monitor

import "github.com/prometheus/client_golang/prometheus"

var (
	fetchesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "solareco",
		Subsystem: "monitor",
		Name:      "fetches_total",
		Help:      "Poll iterations by data domain and outcome.",
	}, []string{"domain", "result"})

	reauthsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "solareco",
		Subsystem: "monitor",
		Name:      "reauths_total",
		Help:      "Session recoveries triggered by unauthorized responses.",
	})
)

func init() {
	prometheus.MustRegister(fetchesTotal, reauthsTotal)
}
