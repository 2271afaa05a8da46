//go:build linux

package transport

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// PollTimeoutMillis is the data plane's readiness-poll timeout. It
// exists to allow future extensions (signal checking, shutdown); a
// zero-returning poll is a no-op.
const PollTimeoutMillis = 1000

// RawPortSet is the production PortSet: one raw AF_PACKET socket per
// port, each bound to the interface an InterfaceName function resolves
// for that port (e.g. "veth0").
type RawPortSet struct {
	sockets []*RawSocket
}

// InterfaceName is the naming convention OpenRawPortSet resolves a
// logical port into a kernel interface name.
type InterfaceName func(port int) string

// DefaultInterfaceName follows the "veth<p>" convention.
func DefaultInterfaceName(port int) string {
	return fmt.Sprintf("veth%d", port)
}

// OpenRawPortSet opens one raw socket per port in [0, numPorts) using
// nameFn to resolve each port's interface name. Any setup failure
// closes the sockets opened so far and returns immediately; per §4.3
// this is treated as fatal by the caller.
func OpenRawPortSet(numPorts int, nameFn InterfaceName) (*RawPortSet, error) {
	sockets := make([]*RawSocket, 0, numPorts)
	for p := 0; p < numPorts; p++ {
		sock, err := OpenRawSocket(p, nameFn(p))
		if err != nil {
			for _, opened := range sockets {
				opened.Close()
			}
			return nil, err
		}
		sockets = append(sockets, sock)
	}
	return &RawPortSet{sockets: sockets}, nil
}

// NumPorts returns the fixed port count.
func (r *RawPortSet) NumPorts() int {
	return len(r.sockets)
}

// Poll polls every port's socket for readability in a single syscall.
func (r *RawPortSet) Poll() ([]int, error) {
	fds := make([]unix.PollFd, len(r.sockets))
	for i, s := range r.sockets {
		fds[i] = unix.PollFd{Fd: int32(s.FD()), Events: unix.POLLIN}
	}

	_, err := unix.Poll(fds, PollTimeoutMillis)
	if err != nil {
		if err == unix.EINTR {
			return []int{}, nil
		}
		return nil, err
	}

	ready := make([]int, 0, len(fds))
	for i, pfd := range fds {
		if pfd.Revents&unix.POLLIN != 0 {
			ready = append(ready, i)
		}
	}
	return ready, nil
}

// Recv reads one frame from the given port.
func (r *RawPortSet) Recv(port int, buf []byte) (int, error) {
	return r.sockets[port].Recv(buf)
}

// Send writes a frame out through the given port.
func (r *RawPortSet) Send(port int, buf []byte) error {
	return r.sockets[port].Send(buf)
}

// Close closes every port's socket.
func (r *RawPortSet) Close() error {
	var firstErr error
	for _, s := range r.sockets {
		if err := s.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
