package domain

import "errors"

var (
	ErrTokenNotFound = errors.New("token not found")
	ErrBotRunning    = errors.New("bot is already running")
	ErrBotNotRunning = errors.New("bot is not running")
)

// ConfigError marks operator-fixable problems: malformed token schema,
// missing trigger pairs, duplicate ids. The controller logs these and
// skips the offending token or cycle; it never crashes on them.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string {
	return "configuration error: " + e.Reason
}

// IsConfigError reports whether err is (or wraps) a ConfigError.
func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}
