package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var registerOnce sync.Once

func collectors() []prometheus.Collector {
	return append(jobCollectors(), chatCollectors()...)
}

// MustRegister attaches the job and chat collectors to reg, or to the
// default registry when reg is nil. Only the first call has any effect.
func MustRegister(reg prometheus.Registerer) {
	registerOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		reg.MustRegister(collectors()...)
	})
}
