package swapchain

import (
	"errors"
	"fmt"
)

// Errors returned by SwapChain operations. Use errors.Is to test for them;
// returned errors may wrap one of these with more context.
var (
	// ErrOccluded reports that the surface is temporarily unusable, for
	// example because the window is minimized. Presenting again later may
	// succeed.
	ErrOccluded = errors.New("swapchain: surface occluded")

	// ErrDeviceReset reports that the device was lost. The swap chain
	// cannot present any more and must be recreated on a new device.
	ErrDeviceReset = errors.New("swapchain: device reset")

	// ErrInvalidArgument reports a rejected argument.
	ErrInvalidArgument = errors.New("swapchain: invalid argument")

	// ErrRecreateFailed reports that the surface could not be recreated.
	ErrRecreateFailed = errors.New("swapchain: surface recreation failed")

	// ErrWindowInvalid reports that the window was destroyed.
	ErrWindowInvalid = errors.New("swapchain: window no longer valid")

	// ErrClosed is returned by operations on a closed swap chain.
	ErrClosed = errors.New("swapchain: closed")
)

// Result is the enumerated outcome of a present.
type Result uint8

// Present results.
const (
	ResultOK Result = iota
	ResultOccluded
	ResultDeviceReset
	ResultFailed
)

// String returns the result name.
func (r Result) String() string {
	switch r {
	case ResultOK:
		return "OK"
	case ResultOccluded:
		return "Occluded"
	case ResultDeviceReset:
		return "DeviceReset"
	case ResultFailed:
		return "Failed"
	default:
		return fmt.Sprintf("Result(%d)", uint8(r))
	}
}

// ResultOf classifies an error returned by Present.
func ResultOf(err error) Result {
	switch {
	case err == nil:
		return ResultOK
	case errors.Is(err, ErrOccluded):
		return ResultOccluded
	case errors.Is(err, ErrDeviceReset):
		return ResultDeviceReset
	default:
		return ResultFailed
	}
}

func invalidArgf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}
