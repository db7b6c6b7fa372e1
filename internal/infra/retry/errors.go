package retry

import "errors"

// ErrExhaustedRetries is returned when every attempt failed with a
// transient error; it wraps the last cause.
var ErrExhaustedRetries = errors.New("exhausted retries")
