package webchat

import (
	"os"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// label prefixes every diagnostic line.
const label = "WebChatContainer"

var (
	debug atomic.Bool

	logger   *zap.Logger
	loggerMu sync.RWMutex
)

// SetEnableDebug turns diagnostics on or off for the whole process. Nothing
// is logged while it is off, warnings included.
func SetEnableDebug(enable bool) {
	debug.Store(enable)
}

// DebugEnabled reports the current SetEnableDebug state.
func DebugEnabled() bool {
	return debug.Load()
}

// SetLogger replaces the sink diagnostics are written to. The debug toggle
// still applies on top of l's own level.
func SetLogger(l *zap.Logger) {
	loggerMu.Lock()
	defer loggerMu.Unlock()
	logger = l
}

// Logger returns the diagnostics logger. By default it writes console lines
// to stdout, which the wasm runtime forwards to the browser console.
func Logger() *zap.Logger {
	loggerMu.RLock()
	l := logger
	loggerMu.RUnlock()
	if l != nil {
		return l
	}

	loggerMu.Lock()
	defer loggerMu.Unlock()
	if logger == nil {
		enc := zap.NewDevelopmentEncoderConfig()
		enc.TimeKey = ""
		logger = zap.New(zapcore.NewCore(
			zapcore.NewConsoleEncoder(enc),
			zapcore.Lock(os.Stdout),
			zapcore.DebugLevel,
		))
	}
	return logger
}

// diag returns a logger gated by the debug toggle and named for cfg's
// namespace. cfg may be nil.
func diag(base *zap.Logger, cfg *Config) *zap.Logger {
	if base == nil {
		base = Logger()
	}
	name := label
	if cfg != nil && cfg.Namespace != "" {
		name += ": Namespace " + cfg.Namespace
	}
	return base.WithOptions(zap.WrapCore(func(c zapcore.Core) zapcore.Core {
		return gatedCore{c}
	})).Named(name)
}

// gatedCore drops every entry while debug is off.
type gatedCore struct {
	zapcore.Core
}

func (g gatedCore) Enabled(l zapcore.Level) bool {
	return debug.Load() && g.Core.Enabled(l)
}

func (g gatedCore) With(fields []zapcore.Field) zapcore.Core {
	return gatedCore{g.Core.With(fields)}
}

func (g gatedCore) Check(e zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if !debug.Load() {
		return ce
	}
	return g.Core.Check(e, ce)
}
