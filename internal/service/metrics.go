package service

import "github.com/prometheus/client_golang/prometheus"

var authzDecisions = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "task_authz_decisions_total",
		Help: "Authorization decisions by action and outcome",
	},
	[]string{"action", "decision"},
)

func init() { prometheus.MustRegister(authzDecisions) }
