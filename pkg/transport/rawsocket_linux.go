//go:build linux

package transport

import (
	"fmt"
	"net"

	"golang.org/x/sys/unix"
)

// htons converts a host-order uint16 to network order, the same
// conversion the kernel expects for the AF_PACKET protocol argument.
func htons(v uint16) uint16 {
	return (v << 8) | (v >> 8)
}

// RawSocket is a raw AF_PACKET socket bound to a single named interface,
// with protocol wildcarded to ETH_P_ALL so every Ethernet type is
// delivered to userspace.
type RawSocket struct {
	port    int
	ifindex int
	fd      int
	closed  bool
}

// OpenRawSocket resolves ifName's kernel interface index and binds a raw
// packet socket to it for logical port. Any setup failure is returned
// wrapped in a TransportError; the caller treats this as fatal.
func OpenRawSocket(port int, ifName string) (*RawSocket, error) {
	fd, err := unix.Socket(unix.AF_PACKET, unix.SOCK_RAW, int(htons(unix.ETH_P_ALL)))
	if err != nil {
		return nil, NewTransportError(fmt.Sprintf("socket: %v", err), port, err)
	}

	link, err := interfaceIndexByName(ifName)
	if err != nil {
		unix.Close(fd)
		return nil, NewTransportError(fmt.Sprintf("resolve interface %s: %v", ifName, err), port, err)
	}

	addr := &unix.SockaddrLinklayer{
		Protocol: htons(unix.ETH_P_ALL),
		Ifindex:  link,
	}
	if err := unix.Bind(fd, addr); err != nil {
		unix.Close(fd)
		return nil, NewTransportError(fmt.Sprintf("bind to %s: %v", ifName, err), port, err)
	}

	return &RawSocket{port: port, ifindex: link, fd: fd}, nil
}

// FD returns the underlying file descriptor, used by the poller to
// build its pollfd set.
func (s *RawSocket) FD() int {
	return s.fd
}

// Recv reads one frame off the socket into buf.
func (s *RawSocket) Recv(buf []byte) (int, error) {
	if s.closed {
		return 0, ErrClosed
	}
	n, _, err := unix.Recvfrom(s.fd, buf, 0)
	if err != nil {
		return 0, NewTransportError(fmt.Sprintf("recv on port %d: %v", s.port, err), s.port, err)
	}
	return n, nil
}

// Send writes a full frame back onto the wire via this port's interface.
func (s *RawSocket) Send(buf []byte) error {
	if s.closed {
		return ErrClosed
	}
	addr := &unix.SockaddrLinklayer{Ifindex: s.ifindex}
	if err := unix.Sendto(s.fd, buf, 0, addr); err != nil {
		return NewTransportError(fmt.Sprintf("send on port %d: %v", s.port, err), s.port, err)
	}
	return nil
}

// Close closes the socket. Close is idempotent.
func (s *RawSocket) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return unix.Close(s.fd)
}

func interfaceIndexByName(name string) (int, error) {
	iface, err := net.InterfaceByName(name)
	if err != nil {
		return 0, err
	}
	return iface.Index, nil
}
