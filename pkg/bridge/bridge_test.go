package bridge_test

import (
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stella/vlan-bridge/pkg/address"
	"github.com/stella/vlan-bridge/pkg/bridge"
	"github.com/stella/vlan-bridge/pkg/ethframe"
	"github.com/stella/vlan-bridge/pkg/transport"
)

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return log
}

func TestBridgeLifecycleTransitions(t *testing.T) {
	cfg := bridge.DefaultConfig()
	cfg.NumPorts = 3

	ports := transport.NewLoopbackPortSet(3)
	b, err := bridge.New(cfg, testLogger(), ports)
	require.NoError(t, err)

	assert.Equal(t, bridge.StateStopped, b.GetState())

	require.NoError(t, b.Start())
	assert.Equal(t, bridge.StateRunning, b.GetState())

	assert.Error(t, b.Start())

	require.NoError(t, b.Stop())
	assert.Equal(t, bridge.StateStopped, b.GetState())

	assert.Error(t, b.Stop())
}

func TestBridgeForwardsThroughLoopbackPorts(t *testing.T) {
	cfg := bridge.DefaultConfig()
	cfg.NumPorts = 3

	ports := transport.NewLoopbackPortSet(3)
	b, err := bridge.New(cfg, testLogger(), ports)
	require.NoError(t, err)

	require.NoError(t, b.Start())
	defer b.Stop()

	dst, _ := address.FromString("02:00:00:00:00:02")
	src, _ := address.FromString("02:00:00:00:00:01")
	buf := make([]byte, ethframe.MinLength+46)
	copy(buf[0:6], dst.Bytes())
	copy(buf[6:12], src.Bytes())
	buf[12] = 0x08
	buf[13] = 0x00

	ports.InjectRecv(0, buf)

	require.Eventually(t, func() bool {
		return len(ports.SentOn(1)) == 1 && len(ports.SentOn(2)) == 1
	}, time.Second, 5*time.Millisecond)
}
