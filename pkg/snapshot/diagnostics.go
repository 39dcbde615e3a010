package snapshot

// Diagnostics receives reports about patch misapplication. *zap.SugaredLogger
// satisfies it.
type Diagnostics interface {
	Warnf(format string, args ...any)
}

// NopDiagnostics discards every report.
type NopDiagnostics struct{}

func (NopDiagnostics) Warnf(string, ...any) {}

// DiagnosticsFunc adapts a function to the Diagnostics interface.
type DiagnosticsFunc func(format string, args ...any)

func (f DiagnosticsFunc) Warnf(format string, args ...any) { f(format, args...) }
