package facade

import (
	"crypto/rand"
	"encoding/binary"
	"sync"

	"github.com/stella/vlan-bridge/pkg/address"
	"github.com/stella/vlan-bridge/pkg/switchstate"
)

// Status is the vendor-style return code every facade call reports.
type Status int

const (
	StatusSuccess Status = iota
	StatusFailure
	StatusMandatoryAttributeMissing
	StatusNotSupported
)

// AttributeID names one of the fixed configuration attributes the
// facade's create calls accept.
type AttributeID int

const (
	AttrSwitchFDBEventNotify AttributeID = iota
	AttrVLANID
	AttrVLANMemberVLANHandle
	AttrVLANMemberBridgePortHandle
	AttrVLANMemberTaggingMode
)

// Attribute is one entry in a create call's attribute list. Only the
// field matching ID is meaningful; the others are zero.
type Attribute struct {
	ID       AttributeID
	VLANID   uint16
	Handle   Handle
	Tagged   bool
	Callback FDBEventCallback
}

// FDBEventType distinguishes learning-event kinds. This revision only
// ever emits Learned, per the observed (mirrored) coupling behavior;
// see NotifyMACLearned.
type FDBEventType int

const (
	FDBEventLearned FDBEventType = iota
	FDBEventMoved
)

// FDBEntryType marks a forwarding entry as dynamically learned.
type FDBEntryType int

const (
	FDBEntryDynamic FDBEntryType = iota
	FDBEntryStatic
)

// FDBEvent is the notification the facade delivers to the registered
// callback: event type, the raw MAC in wire order, the encoded VLAN
// handle, and an entry-type marker with the encoded bridge-port handle.
type FDBEvent struct {
	EventType        FDBEventType
	MAC              address.MAC
	VLANHandle       Handle
	EntryType        FDBEntryType
	BridgePortHandle Handle
}

// FDBEventCallback is the single sink for learning events. Its absence
// is permitted and silently disables notifications.
type FDBEventCallback func(event FDBEvent)

// APIFamily selects which function table QueryAPI returns.
type APIFamily int

const (
	APIFamilySwitch APIFamily = iota
	APIFamilyVLAN
)

// SwitchAPI is the function table for switch-lifecycle calls.
type SwitchAPI struct {
	CreateSwitch func(attrs []Attribute) (Handle, Status)
}

// VLANAPI is the function table for VLAN and VLAN-member calls.
type VLANAPI struct {
	CreateVLAN       func(attrs []Attribute) (Handle, Status)
	CreateVLANMember func(attrs []Attribute) (Handle, Status)
}

// Facade is the management-plane entry point: it owns no switch state
// of its own, only a reference to the aggregate it configures, plus
// the one-shot switch identity and the registered notification sink.
type Facade struct {
	mu sync.Mutex

	state *switchstate.State

	switchCreated bool
	switchID      uint64

	fdbCallback FDBEventCallback
}

// New builds a Facade bound to state.
func New(state *switchstate.State) *Facade {
	return &Facade{state: state}
}

func randomUint64() uint64 {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		panic("facade: failed to read random switch id: " + err.Error())
	}
	return binary.BigEndian.Uint64(buf[:])
}

// CreateSwitch is one-shot: the first call allocates a pseudo-random
// 64-bit identifier, stores the learning-event callback if one was
// supplied, and succeeds. Any later call fails without side effect.
func (f *Facade) CreateSwitch(attrs []Attribute) (Handle, Status) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.switchCreated {
		return 0, StatusFailure
	}

	for _, a := range attrs {
		if a.ID == AttrSwitchFDBEventNotify {
			f.fdbCallback = a.Callback
		}
	}

	f.switchID = randomUint64()
	f.switchCreated = true
	return EncodeHandle(ResourceSwitch, f.switchID&resourceIDMask), StatusSuccess
}

// CreateVLAN requires an AttrVLANID attribute; without one it fails
// with StatusMandatoryAttributeMissing. On success it creates the VLAN
// in the bound Switch State and returns an encoded VLAN handle.
func (f *Facade) CreateVLAN(attrs []Attribute) (Handle, Status) {
	var vlanID uint16
	found := false
	for _, a := range attrs {
		if a.ID == AttrVLANID {
			vlanID = a.VLANID
			found = true
			break
		}
	}
	if !found {
		return 0, StatusMandatoryAttributeMissing
	}

	f.state.CreateVLAN(vlanID)
	return EncodeHandle(ResourceVLAN, uint64(vlanID)), StatusSuccess
}

// CreateVLANMember consumes three attributes (VLAN handle, bridge-port
// handle, tagging mode), decodes the two handles down to their
// low-order identifiers, records the membership in the bound Switch
// State, and returns an encoded VLAN-member handle.
func (f *Facade) CreateVLANMember(attrs []Attribute) (Handle, Status) {
	var vlanHandle, portHandle Handle
	var tagged bool

	for _, a := range attrs {
		switch a.ID {
		case AttrVLANMemberVLANHandle:
			vlanHandle = a.Handle
		case AttrVLANMemberBridgePortHandle:
			portHandle = a.Handle
		case AttrVLANMemberTaggingMode:
			tagged = a.Tagged
		}
	}

	vlanID := uint16(vlanHandle.ID())
	portID := int(portHandle.ID())

	f.state.AddVLANMember(vlanID, portID, tagged)

	return EncodeHandle(ResourceVLANMember, portHandle.ID()), StatusSuccess
}

// QueryAPI returns the function table for family, or StatusNotSupported
// for anything else — mirroring a vendor SAI implementation that only
// wires up the families it actually supports.
func (f *Facade) QueryAPI(family APIFamily) (interface{}, Status) {
	switch family {
	case APIFamilySwitch:
		return &SwitchAPI{CreateSwitch: f.CreateSwitch}, StatusSuccess
	case APIFamilyVLAN:
		return &VLANAPI{CreateVLAN: f.CreateVLAN, CreateVLANMember: f.CreateVLANMember}, StatusSuccess
	default:
		return nil, StatusNotSupported
	}
}

// NotifyMACLearned constructs one Learned notification for (vlan, mac,
// port) and invokes the registered callback exactly once. The data
// plane decides when to call this; per the documented (mirrored)
// coupling behavior it does so only on the confirming re-learn branch
// of LearnMAC, not on fresh-insert or move.
func (f *Facade) NotifyMACLearned(vlan uint16, mac address.MAC, port int) {
	f.mu.Lock()
	cb := f.fdbCallback
	f.mu.Unlock()

	if cb == nil {
		return
	}

	cb(FDBEvent{
		EventType:        FDBEventLearned,
		MAC:              mac,
		VLANHandle:       EncodeHandle(ResourceVLAN, uint64(vlan)),
		EntryType:        FDBEntryDynamic,
		BridgePortHandle: EncodeHandle(ResourcePort, uint64(port)),
	})
}
