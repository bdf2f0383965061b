package emu2

import (
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	fragmentsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "emu2",
			Subsystem: "reader",
			Name:      "fragments_total",
			Help:      "Fragments assembled from the device, by decode result.",
		},
		[]string{"result"},
	)
	recordsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "emu2",
			Subsystem: "reader",
			Name:      "records_total",
			Help:      "Records decoded and dispatched, by tag.",
		},
		[]string{"tag"},
	)
	commandsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "emu2",
			Subsystem: "writer",
			Name:      "commands_total",
			Help:      "Commands issued to the device.",
		},
		[]string{"name", "success"},
	)
	reconnectsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "emu2",
			Subsystem: "transport",
			Name:      "reconnect_attempts_total",
			Help:      "Transport open attempts made by the read loop after a failure.",
		},
	)
	connectedGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "emu2",
			Subsystem: "transport",
			Name:      "connected",
			Help:      "1 while the transport is connected.",
		},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(fragmentsTotal, recordsTotal, commandsTotal, reconnectsTotal, connectedGauge)
	})
}

func recordFragment(result string) {
	fragmentsTotal.WithLabelValues(result).Inc()
}

func recordRecord(tag string) {
	recordsTotal.WithLabelValues(tag).Inc()
}

func recordCommand(name string, success bool) {
	commandsTotal.WithLabelValues(name, strconv.FormatBool(success)).Inc()
}

func recordReconnect() {
	reconnectsTotal.Inc()
}

func recordState(state State) {
	if state == StateConnected {
		connectedGauge.Set(1)
		return
	}
	connectedGauge.Set(0)
}
