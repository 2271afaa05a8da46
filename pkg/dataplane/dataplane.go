// Package dataplane is the single-threaded frame-forwarding loop: it
// polls every port for readability, classifies and learns each
// received frame against the switch state, and emits it to one or
// many egress ports per the forwarding decision.
package dataplane

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/stella/vlan-bridge/pkg/address"
	"github.com/stella/vlan-bridge/pkg/ethframe"
	"github.com/stella/vlan-bridge/pkg/switchstate"
	"github.com/stella/vlan-bridge/pkg/transport"
)

// LearnNotifier is the management-plane sink the loop reports
// confirming re-learns to. It is satisfied by *facade.Facade; the
// dataplane package does not import facade directly so its tests can
// substitute a bare function.
type LearnNotifier interface {
	NotifyMACLearned(vlan uint16, mac address.MAC, port int)
}

// Loop is the bridge's data-plane pipeline bound to a fixed PortSet and
// a single Switch State aggregate.
type Loop struct {
	state    *switchstate.State
	ports    transport.PortSet
	notifier LearnNotifier
	log      *logrus.Entry

	buf []byte
}

// New builds a Loop. notifier may be nil, in which case learning events
// are logged but never reported to the management plane.
func New(state *switchstate.State, ports transport.PortSet, notifier LearnNotifier, log *logrus.Entry) *Loop {
	return &Loop{
		state:    state,
		ports:    ports,
		notifier: notifier,
		log:      log,
		buf:      make([]byte, ethframe.MaxFrameLength),
	}
}

// Run drives RunOnce until ctx is cancelled or a poll fails.
func (l *Loop) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err := l.RunOnce(); err != nil {
			return err
		}
	}
}

// RunOnce performs a single poll/recv/classify/learn/lookup/forward
// pass over every currently-readable port. A poll that reports nothing
// ready is a no-op.
func (l *Loop) RunOnce() error {
	ready, err := l.ports.Poll()
	if err != nil {
		return err
	}

	for _, port := range ready {
		n, err := l.ports.Recv(port, l.buf)
		if err != nil {
			continue
		}
		l.handleFrame(port, l.buf[:n])
	}
	return nil
}

func (l *Loop) handleFrame(ingress int, raw []byte) {
	frame, err := ethframe.Parse(raw)
	if err != nil {
		return
	}

	dst := frame.Destination()
	src := frame.Source()
	etherType := frame.EtherType()

	if frame.IsIPv6() {
		return
	}

	if l.log != nil {
		l.log.WithFields(logrus.Fields{
			"port":      ingress,
			"dmac":      dst.String(),
			"smac":      src.String(),
			"ethertype": etherType,
		}).Debug("rx")
	}

	vlan, configured := l.state.GetPortPVID(ingress)
	if !configured {
		vlan = switchstate.DefaultVLAN
	}

	learned, moved := l.state.LearnMAC(vlan, src, ingress)
	if learned || moved {
		if l.log != nil {
			l.log.WithFields(logrus.Fields{
				"vlan": vlan,
				"mac":  src.String(),
				"port": ingress,
				"move": moved,
			}).Info("learn")
		}
	} else if l.notifier != nil {
		// Mirrors the observed upstream behavior: the management-plane
		// notification fires on the confirming re-learn branch, not on
		// fresh-insert or move.
		l.notifier.NotifyMACLearned(vlan, src, ingress)
	}

	if outPort, found := l.state.LookupFDB(vlan, dst); found && outPort != ingress {
		l.sendTo(outPort, frame.Bytes())
	} else {
		l.flood(vlan, ingress, frame.Bytes())
	}

	if (learned || moved) && l.log != nil {
		l.log.WithField("fdb", l.state.TostringFDB()).Debug("fdb dump")
	}
}

// flood emits raw to every VLAN member port except ingress, or to
// every port except ingress if vlan is not in the VLAN table. A known
// VLAN with no members floods nowhere.
func (l *Loop) flood(vlan uint16, ingress int, raw []byte) {
	members, exists := l.state.GetVLANMembers(vlan)
	if !exists {
		for p := 0; p < l.ports.NumPorts(); p++ {
			if p != ingress {
				l.sendTo(p, raw)
			}
		}
		return
	}

	for _, p := range members {
		if p != ingress {
			l.sendTo(p, raw)
		}
	}
}

func (l *Loop) sendTo(port int, raw []byte) {
	if l.log != nil {
		if frame, err := ethframe.Parse(raw); err == nil {
			l.log.WithFields(logrus.Fields{
				"port":      port,
				"dmac":      frame.Destination().String(),
				"smac":      frame.Source().String(),
				"ethertype": frame.EtherType(),
			}).Debug("tx")
		}
	}
	if err := l.ports.Send(port, raw); err != nil && l.log != nil {
		l.log.WithError(err).WithField("port", port).Debug("send failed")
	}
}
