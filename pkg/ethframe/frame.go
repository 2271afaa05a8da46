// Package ethframe parses the fixed Ethernet II header the data plane
// needs to classify and forward a frame: destination MAC, source MAC,
// and EtherType. VLAN tags are never expected on the wire in this
// system (frames are carried untagged); this package does not decode
// 802.1Q headers.
package ethframe

import (
	"encoding/binary"
	"errors"

	"github.com/stella/vlan-bridge/pkg/address"
)

const (
	// MinLength is the minimum byte length of an Ethernet header: two
	// 6-byte MAC addresses plus a 2-byte EtherType.
	MinLength = 2*address.Length + 2

	// MaxFrameLength is the size of the reusable receive buffer the
	// data plane reads each frame into.
	MaxFrameLength = 2048

	dstOffset       = 0
	srcOffset       = address.Length
	etherTypeOffset = 2 * address.Length

	// EtherTypeIPv6 is the EtherType the data plane drops without
	// learning or forwarding.
	EtherTypeIPv6 uint16 = 0x86dd
)

// ErrTooShort is returned when a buffer is shorter than MinLength.
var ErrTooShort = errors.New("ethframe: frame shorter than minimum Ethernet header")

// Frame is a thin, non-copying view over a received (or about-to-be-sent)
// Ethernet frame buffer.
type Frame struct {
	data []byte
}

// Parse validates and wraps buf. buf is not copied; the caller owns its
// lifetime for as long as the returned Frame is used.
func Parse(buf []byte) (Frame, error) {
	if len(buf) < MinLength {
		return Frame{}, ErrTooShort
	}
	return Frame{data: buf}, nil
}

// Destination returns the frame's destination MAC.
func (f Frame) Destination() address.MAC {
	mac, _ := address.FromBytes(f.data[dstOffset : dstOffset+address.Length])
	return mac
}

// Source returns the frame's source MAC.
func (f Frame) Source() address.MAC {
	mac, _ := address.FromBytes(f.data[srcOffset : srcOffset+address.Length])
	return mac
}

// EtherType returns the frame's EtherType field, big-endian.
func (f Frame) EtherType() uint16 {
	return binary.BigEndian.Uint16(f.data[etherTypeOffset : etherTypeOffset+2])
}

// IsIPv6 reports whether the frame's EtherType is IPv6; these frames are
// suppressed entirely (not learned, not forwarded, not logged).
func (f Frame) IsIPv6() bool {
	return f.EtherType() == EtherTypeIPv6
}

// Bytes returns the frame's underlying buffer, exactly as received. The
// data plane sends this unmodified — frames are never rewritten on
// their way through the bridge.
func (f Frame) Bytes() []byte {
	return f.data
}

// Len returns the frame's total byte length.
func (f Frame) Len() int {
	return len(f.data)
}
