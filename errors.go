package webchat

import "errors"

// Sentinel errors for widget loading and lifecycle operations.
var (
	ErrScriptLoad        = errors.New("webchat: script failed to load")
	ErrEntryPointMissing = errors.New("webchat: creation entry point is not installed")
	ErrHook              = errors.New("webchat: render hook failed")
	ErrUnknownMarker     = errors.New("webchat: unknown script marker state")
	ErrInvalidConfig     = errors.New("webchat: invalid config")
)

// IsScriptLoadError checks if err is a script load failure.
func IsScriptLoadError(err error) bool {
	return errors.Is(err, ErrScriptLoad) || errors.Is(err, ErrUnknownMarker)
}

// IsEntryPointMissing checks if err reports an absent creation entry point.
func IsEntryPointMissing(err error) bool {
	return errors.Is(err, ErrEntryPointMissing)
}
