package lifecycle

import "github.com/prometheus/client_golang/prometheus"

var (
	trainingsStartedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "modelkeeper",
			Subsystem: "lifecycle",
			Name:      "trainings_started_total",
			Help:      "Training jobs submitted to the remote service",
		},
		[]string{"kind"},
	)

	trainingOutcomesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "modelkeeper",
			Subsystem: "lifecycle",
			Name:      "training_outcomes_total",
			Help:      "Monitored trainings by terminal status",
		},
		[]string{"kind", "status"},
	)

	instancesPrunedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "modelkeeper",
			Subsystem: "lifecycle",
			Name:      "instances_pruned_total",
			Help:      "Instances deleted by retention",
		},
		[]string{"kind"},
	)

	remoteErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "modelkeeper",
			Subsystem: "lifecycle",
			Name:      "remote_errors_total",
			Help:      "Failed calls to the remote service by operation",
		},
		[]string{"kind", "op"},
	)

	cacheHitsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "modelkeeper",
			Subsystem: "lifecycle",
			Name:      "cache_hits_total",
			Help:      "Resolutions answered from the cached current instance",
		},
		[]string{"kind"},
	)
)

func init() {
	prometheus.MustRegister(trainingsStartedTotal, trainingOutcomesTotal, instancesPrunedTotal, remoteErrorsTotal, cacheHitsTotal)
}
