package chain

import "errors"

// ErrRemoteReadUnavailable marks a failed or empty view call. Callers must
// not derive eligibility from partial data when they see it.
var ErrRemoteReadUnavailable = errors.New("remote_read_unavailable")
