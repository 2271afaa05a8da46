package bridge

import (
	"context"
	"errors"

	"github.com/stella/vlan-bridge/pkg/dataplane"
)

// Start opens the port transports, wires the data-plane loop, and
// begins forwarding in a background goroutine. Start is not reentrant:
// calling it twice on a running bridge fails.
func (b *Bridge) Start() error {
	if b.GetState() == StateRunning {
		return errors.New("bridge: already running")
	}
	if b.GetState() == StateStopping {
		return errors.New("bridge: still stopping")
	}

	b.setState(StateStarting)
	b.log.Info("starting bridge")

	ports, err := b.openPorts()
	if err != nil {
		b.setError(err)
		return err
	}
	b.ports = ports

	b.loop = dataplane.New(b.switchState, b.ports, b.facade, b.log)

	ctx, cancel := context.WithCancel(context.Background())
	b.cancel = cancel
	b.done = make(chan struct{})

	go func() {
		defer close(b.done)
		if err := b.loop.Run(ctx); err != nil && ctx.Err() == nil {
			b.log.WithError(err).Error("data plane loop exited")
			b.setError(err)
		}
	}()

	b.setState(StateRunning)
	b.log.Info("bridge started")
	return nil
}

// Stop cancels the data-plane loop, waits for it to exit, and closes
// every port transport.
func (b *Bridge) Stop() error {
	if b.GetState() == StateStopped {
		return errors.New("bridge: already stopped")
	}
	if b.GetState() == StateStopping {
		return errors.New("bridge: already stopping")
	}

	b.setState(StateStopping)
	b.log.Info("stopping bridge")

	if b.cancel != nil {
		b.cancel()
	}
	if b.done != nil {
		<-b.done
	}
	if b.ports != nil {
		if err := b.ports.Close(); err != nil {
			b.log.WithError(err).Warn("error closing port transports")
		}
	}

	b.setState(StateStopped)
	b.log.Info("bridge stopped")
	return nil
}
