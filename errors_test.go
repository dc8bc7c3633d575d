package swapchain

import (
	"errors"
	"fmt"
	"testing"
)

func TestResultOf(t *testing.T) {
	tests := []struct {
		err  error
		want Result
	}{
		{nil, ResultOK},
		{ErrOccluded, ResultOccluded},
		{fmt.Errorf("present: %w", ErrOccluded), ResultOccluded},
		{ErrDeviceReset, ResultDeviceReset},
		{fmt.Errorf("%w: %w", ErrRecreateFailed, errors.New("boom")), ResultFailed},
		{ErrInvalidArgument, ResultFailed},
	}
	for _, tt := range tests {
		if got := ResultOf(tt.err); got != tt.want {
			t.Errorf("ResultOf(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}

func TestResultString(t *testing.T) {
	if got := ResultDeviceReset.String(); got != "DeviceReset" {
		t.Errorf("String() = %q", got)
	}
	if got := Result(42).String(); got != "Result(42)" {
		t.Errorf("String() = %q", got)
	}
}

func TestInvalidArgf(t *testing.T) {
	err := invalidArgf("latency %d", 17)
	if !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("invalidArgf() = %v, want ErrInvalidArgument", err)
	}
	if got := err.Error(); got != "swapchain: invalid argument: latency 17" {
		t.Errorf("Error() = %q", got)
	}
}
