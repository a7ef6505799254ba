package syncer

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	pushesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vita_sync_pushes_total",
		Help: "Push cycles by feature and result.",
	}, []string{"feature", "result"})

	pullsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vita_sync_pulls_total",
		Help: "Pull cycles by feature and result.",
	}, []string{"feature", "result"})
)

const (
	resultOK         = "ok"
	resultError      = "error"
	resultSuppressed = "suppressed"
)
