//go:build windows

package bridge

import (
	"fmt"
	"time"

	"github.com/Microsoft/go-winio"
)

// DefaultAddress is the named pipe the bridge host listens on.
const DefaultAddress = `\\.\pipe\gogpu-swapchain-bridge`

// Dial connects to the bridge host over a named pipe.
func Dial(address string, timeout time.Duration) (*StreamTransport, error) {
	conn, err := winio.DialPipe(address, &timeout)
	if err != nil {
		return nil, fmt.Errorf("bridge: dial pipe %s: %w", address, err)
	}
	return NewStreamTransport(conn), nil
}
