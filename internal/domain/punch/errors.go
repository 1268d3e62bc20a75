package punch

import "errors"

var (
	// ErrDeviceConnection marks the terminal as unreachable. The sync job logs it
	// and retries on the next tick.
	ErrDeviceConnection = errors.New("terminal device unreachable")
	// ErrDeviceNotResumed means the device session could not be resumed after
	// retrieval. The device stays disabled until an operator intervenes.
	ErrDeviceNotResumed = errors.New("terminal device session was not resumed")
)
