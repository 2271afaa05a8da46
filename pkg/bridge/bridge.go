// Package bridge wires the switch state, management facade, and data
// plane together into a single running instance, and owns the
// lifecycle state machine external callers observe.
package bridge

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/stella/vlan-bridge/pkg/dataplane"
	"github.com/stella/vlan-bridge/pkg/facade"
	"github.com/stella/vlan-bridge/pkg/switchstate"
	"github.com/stella/vlan-bridge/pkg/transport"
)

// Bridge is a single userspace VLAN bridge instance: one Switch State
// aggregate shared by one Facade and one dataplane.Loop.
type Bridge struct {
	id     string
	config *Config
	log    *logrus.Entry

	mu    sync.RWMutex
	state State
	err   error

	switchState *switchstate.State
	facade      *facade.Facade
	ports       transport.PortSet
	loop        *dataplane.Loop

	cancel context.CancelFunc
	done   chan struct{}
}

// New builds a Bridge from config, opening no sockets and starting no
// goroutines yet. ports, when non-nil, is used instead of opening raw
// AF_PACKET sockets — tests inject a transport.LoopbackPortSet here.
func New(config *Config, log *logrus.Logger, ports transport.PortSet) (*Bridge, error) {
	if config.NumPorts <= 0 {
		return nil, errors.New("bridge: num_ports must be positive")
	}

	id := uuid.NewString()
	entry := log.WithField("bridge_id", id)

	state := switchstate.New(config.NumPorts)
	fac := facade.New(state)

	for _, vlan := range config.VLANs {
		state.CreateVLAN(vlan.ID)
		for _, member := range vlan.Members {
			state.AddVLANMember(vlan.ID, member.Port, member.Tagged)
		}
	}

	b := &Bridge{
		id:          id,
		config:      config,
		log:         entry,
		state:       StateStopped,
		switchState: state,
		facade:      fac,
		ports:       ports,
	}
	return b, nil
}

// ID returns the bridge's process-instance identifier, used as a log
// correlation field.
func (b *Bridge) ID() string {
	return b.id
}

// SwitchState exposes the bridge's Switch State aggregate for
// management-plane wiring and inspection.
func (b *Bridge) SwitchState() *switchstate.State {
	return b.switchState
}

// Facade exposes the bridge's management facade.
func (b *Bridge) Facade() *facade.Facade {
	return b.facade
}

// GetState returns the bridge's current lifecycle state.
func (b *Bridge) GetState() State {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.state
}

func (b *Bridge) setState(s State) {
	b.mu.Lock()
	b.state = s
	b.mu.Unlock()
}

// GetError returns the error that moved the bridge into StateError, if
// any.
func (b *Bridge) GetError() error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.err
}

func (b *Bridge) setError(err error) {
	b.mu.Lock()
	b.err = err
	b.state = StateError
	b.mu.Unlock()
}

func (b *Bridge) openPorts() (transport.PortSet, error) {
	if b.ports != nil {
		return b.ports, nil
	}
	return transport.OpenRawPortSet(b.config.NumPorts, b.config.InterfaceName)
}

// StatusReport is a snapshot of the bridge's operational state:
// identity, lifecycle state, last error, and the rendered FDB.
type StatusReport struct {
	ID    string
	State string
	Error string
	FDB   string
}

// Status returns a snapshot suitable for logging or a status endpoint.
func (b *Bridge) Status() StatusReport {
	report := StatusReport{
		ID:    b.id,
		State: b.GetState().String(),
		FDB:   b.switchState.TostringFDB(),
	}
	if err := b.GetError(); err != nil {
		report.Error = err.Error()
	}
	return report
}

func (b *Bridge) String() string {
	return fmt.Sprintf("bridge{id=%s state=%s}", b.id, b.GetState())
}
