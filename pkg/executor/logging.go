package executor

import "github.com/rs/zerolog"

// zerologAdapter backs pkg/retry's Logger interface (Debugf/Infof/Warnf/
// Errorf) with zerolog, and is also used directly by the pool and
// controller for the diagnostic points named in spec §4.C/§4.D/§7:
// launch failures, stuck-thread detection, replenishment, and panics
// escaping a user task.
type zerologAdapter struct {
	log zerolog.Logger
}

// newLogger wraps l as this package's Logger. A zero Logger writes
// nothing, matching zerolog's own nop-by-default behavior.
func newLogger(l zerolog.Logger) *zerologAdapter {
	return &zerologAdapter{log: l}
}

func (a *zerologAdapter) Debugf(format string, args ...interface{}) {
	a.log.Debug().Msgf(format, args...)
}

func (a *zerologAdapter) Infof(format string, args ...interface{}) {
	a.log.Info().Msgf(format, args...)
}

func (a *zerologAdapter) Warnf(format string, args ...interface{}) {
	a.log.Warn().Msgf(format, args...)
}

func (a *zerologAdapter) Errorf(format string, args ...interface{}) {
	a.log.Error().Msgf(format, args...)
}
