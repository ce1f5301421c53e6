package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/fx"
)

func newRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// Module регистрируем как fx-провайдер.
func Module() fx.Option {
	return fx.Module("metrics",
		fx.Provide(
			newRegistry,
			func(reg *prometheus.Registry) *Recorder { return New(reg) },
		),
	)
}
