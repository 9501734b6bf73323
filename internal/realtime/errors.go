package realtime

import (
	"context"
	"errors"
	"net"
	"strings"
	"syscall"
)

// IsClientGone reports whether a stream write failed because the client went
// away. These are expected on disconnect and are not logged as errors.
func IsClientGone(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) ||
		errors.Is(err, net.ErrClosed) ||
		errors.Is(err, syscall.EPIPE) ||
		errors.Is(err, syscall.ECONNRESET) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, s := range []string{"broken pipe", "connection reset", "client disconnected", "use of closed network connection"} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}
