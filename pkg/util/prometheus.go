package util

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

// RegisterOrGet registers c with reg and returns it. When an equal collector
// is already registered the existing one is returned, so components can be
// constructed more than once against the same registry. A nil reg disables
// registration.
func RegisterOrGet[T prometheus.Collector](reg prometheus.Registerer, c T) T {
	existing, err := register(reg, c)
	if err != nil {
		panic(err)
	}
	if existing != nil {
		return existing.(T)
	}
	return c
}

// Register registers collectors with reg, ignoring those already registered.
func Register(reg prometheus.Registerer, collectors ...prometheus.Collector) {
	for _, c := range collectors {
		if _, err := register(reg, c); err != nil {
			panic(err)
		}
	}
}

func register(reg prometheus.Registerer, c prometheus.Collector) (prometheus.Collector, error) {
	if reg == nil {
		return nil, nil
	}
	err := reg.Register(c)
	var already prometheus.AlreadyRegisteredError
	if errors.As(err, &already) {
		return already.ExistingCollector, nil
	}
	return nil, err
}
