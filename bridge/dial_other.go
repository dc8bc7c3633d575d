//go:build !windows

package bridge

import (
	"fmt"
	"net"
	"time"
)

// DefaultAddress is the unix socket the bridge host listens on.
const DefaultAddress = "/tmp/gogpu-swapchain-bridge.sock"

// Dial connects to the bridge host over a unix socket.
func Dial(address string, timeout time.Duration) (*StreamTransport, error) {
	conn, err := net.DialTimeout("unix", address, timeout)
	if err != nil {
		return nil, fmt.Errorf("bridge: dial socket %s: %w", address, err)
	}
	return NewStreamTransport(conn), nil
}
