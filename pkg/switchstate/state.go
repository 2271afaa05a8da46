// Package switchstate is the concurrent in-memory model shared by the
// data plane and the management facade: VLAN membership, the
// forwarding database, and the port-to-PVID map. It performs no I/O
// and knows nothing about sockets, frames, or handles.
package switchstate

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/stella/vlan-bridge/pkg/address"
)

const (
	// MaxVLANID is the largest VLAN identifier this state will accept.
	MaxVLANID = 4095

	// DefaultVLAN is the fallback VLAN a data-plane caller resolves to
	// when an ingress port carries no PVID binding. It is a compile-time
	// constant in this revision; there is no mechanism to configure it.
	DefaultVLAN = 1

	fdbKeyVlanShift = 48
	fdbKeyMacMask   = (uint64(1) << fdbKeyVlanShift) - 1
)

// fdbKey packs a VLAN and MAC into the composite key the forwarding
// database is ordered by: VLAN in the high bits, MAC in the low 48.
type fdbKey uint64

func packFdbKey(vlan uint16, mac address.MAC) fdbKey {
	return fdbKey(uint64(vlan)<<fdbKeyVlanShift | mac.Uint64())
}

func (k fdbKey) vlan() uint16 {
	return uint16(uint64(k) >> fdbKeyVlanShift)
}

func (k fdbKey) mac() address.MAC {
	return address.FromUint64(uint64(k) & fdbKeyMacMask)
}

// FDBEntry is a single snapshot row returned by DumpFDB.
type FDBEntry struct {
	VLAN uint16
	MAC  address.MAC
	Port int
}

// State is the switch's central aggregate: VLAN members, the forwarding
// database, and port PVID bindings, protected by a single
// readers-writer lock. All validation failures below are programming
// errors and panic; an absent key is a normal return value, never an
// error.
type State struct {
	mu sync.RWMutex

	numPorts int
	vlans    map[uint16][]int
	fdb      map[fdbKey]int
	portPVID map[int]uint16
}

// New builds an empty Switch State sized for numPorts logical ports.
func New(numPorts int) *State {
	if numPorts <= 0 {
		panic("switchstate: numPorts must be positive")
	}
	return &State{
		numPorts: numPorts,
		vlans:    make(map[uint16][]int),
		fdb:      make(map[fdbKey]int),
		portPVID: make(map[int]uint16),
	}
}

// NumPorts returns the fixed port count this state was built with.
func (s *State) NumPorts() int {
	return s.numPorts
}

func requireValidVLAN(vlan uint16) {
	if vlan > MaxVLANID {
		panic(fmt.Sprintf("switchstate: vlan %d exceeds max %d", vlan, MaxVLANID))
	}
}

func (s *State) requireValidPort(port int) {
	if port < 0 || port >= s.numPorts {
		panic(fmt.Sprintf("switchstate: port %d out of range [0,%d)", port, s.numPorts))
	}
}

// CreateVLAN is idempotent: it establishes an empty member list for
// vlan if none exists yet, and never shrinks or clears an existing one.
func (s *State) CreateVLAN(vlan uint16) {
	requireValidVLAN(vlan)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.vlans[vlan]; !exists {
		s.vlans[vlan] = nil
	}
}

// AddVLANMember appends port to vlan's member list if vlan already
// exists, and records port's PVID as vlan (last-writer-wins). If vlan
// is unknown the call has no effect and does not create the VLAN.
// tagged is accepted but ignored in this revision.
func (s *State) AddVLANMember(vlan uint16, port int, tagged bool) {
	requireValidVLAN(vlan)
	s.requireValidPort(port)

	s.mu.Lock()
	defer s.mu.Unlock()

	members, exists := s.vlans[vlan]
	if !exists {
		return
	}

	s.vlans[vlan] = append(members, port)
	s.portPVID[port] = vlan
}

// GetVLANMembers returns a snapshot copy of vlan's member list and
// whether vlan is known at all; exists distinguishes a known-empty VLAN
// from an unconfigured one.
func (s *State) GetVLANMembers(vlan uint16) (members []int, exists bool) {
	requireValidVLAN(vlan)

	s.mu.RLock()
	defer s.mu.RUnlock()

	stored, exists := s.vlans[vlan]
	if !exists {
		return nil, false
	}

	members = make([]int, len(stored))
	copy(members, stored)
	return members, true
}

// LearnMAC records the binding between mac and port within vlan. It
// reports a three-way outcome: exactly one of learned, moved, or
// neither is true.
//
//   - no entry for (vlan, mac) → insert, learned=true
//   - existing entry's port equals port → neither (learned=false, moved=false)
//   - existing entry's port differs → overwrite, moved=true
func (s *State) LearnMAC(vlan uint16, mac address.MAC, port int) (learned, moved bool) {
	requireValidVLAN(vlan)
	s.requireValidPort(port)

	s.mu.Lock()
	defer s.mu.Unlock()

	key := packFdbKey(vlan, mac)

	existing, ok := s.fdb[key]
	if !ok {
		s.fdb[key] = port
		return true, false
	}

	if existing != port {
		s.fdb[key] = port
		return false, true
	}

	return false, false
}

// LookupFDB is a read-only point query against the forwarding database.
func (s *State) LookupFDB(vlan uint16, mac address.MAC) (port int, found bool) {
	requireValidVLAN(vlan)

	s.mu.RLock()
	defer s.mu.RUnlock()

	port, found = s.fdb[packFdbKey(vlan, mac)]
	return port, found
}

// DumpFDB returns a snapshot copy of the entire forwarding database.
func (s *State) DumpFDB() []FDBEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := make([]FDBEntry, 0, len(s.fdb))
	for key, port := range s.fdb {
		entries = append(entries, FDBEntry{VLAN: key.vlan(), MAC: key.mac(), Port: port})
	}
	return entries
}

// GetPortPVID is a read-only lookup of a port's configured PVID.
func (s *State) GetPortPVID(port int) (vlan uint16, configured bool) {
	s.requireValidPort(port)

	s.mu.RLock()
	defer s.mu.RUnlock()

	vlan, configured = s.portPVID[port]
	return vlan, configured
}

// TostringFDB renders the forwarding database deterministically, one
// line per entry, ordered by the composite key (VLAN major, MAC minor):
// "vlan=<v> mac=<aa:bb:cc:dd:ee:ff> port=<p>\n".
func (s *State) TostringFDB() string {
	s.mu.RLock()
	keys := make([]fdbKey, 0, len(s.fdb))
	for key := range s.fdb {
		keys = append(keys, key)
	}
	ports := make(map[fdbKey]int, len(s.fdb))
	for k, v := range s.fdb {
		ports[k] = v
	}
	s.mu.RUnlock()

	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	var b strings.Builder
	for _, key := range keys {
		fmt.Fprintf(&b, "vlan=%d mac=%s port=%d\n", key.vlan(), key.mac().String(), ports[key])
	}
	return b.String()
}
