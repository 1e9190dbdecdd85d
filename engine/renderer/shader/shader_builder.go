package shader

import "log/slog"

// ManagerBuilderOption is a functional option for configuring a Manager.
type ManagerBuilderOption func(*manager)

// WithLogger sets the logger used for build diagnostics. Defaults to common.Logger().
//
// Parameters:
//   - l: the logger to use
//
// Returns:
//   - ManagerBuilderOption: functional option to set the logger
func WithLogger(l *slog.Logger) ManagerBuilderOption {
	return func(m *manager) {
		m.logger = l
	}
}
