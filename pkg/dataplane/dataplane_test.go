package dataplane_test

import (
	"testing"

	"github.com/stella/vlan-bridge/pkg/address"
	"github.com/stella/vlan-bridge/pkg/dataplane"
	"github.com/stella/vlan-bridge/pkg/ethframe"
	"github.com/stella/vlan-bridge/pkg/switchstate"
	"github.com/stella/vlan-bridge/pkg/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildFrame(t *testing.T, dst, src string, etherType uint16) []byte {
	t.Helper()
	dstMAC, err := address.FromString(dst)
	require.NoError(t, err)
	srcMAC, err := address.FromString(src)
	require.NoError(t, err)

	buf := make([]byte, ethframe.MinLength+46)
	copy(buf[0:6], dstMAC.Bytes())
	copy(buf[6:12], srcMAC.Bytes())
	buf[12] = byte(etherType >> 8)
	buf[13] = byte(etherType)
	return buf
}

func TestUnicastAfterLearnFloodsWithNoMembersConfigured(t *testing.T) {
	state := switchstate.New(3)
	ports := transport.NewLoopbackPortSet(3)
	loop := dataplane.New(state, ports, nil, nil)

	frame := buildFrame(t, "02:00:00:00:00:02", "02:00:00:00:00:01", 0x0800)
	ports.InjectRecv(0, frame)

	require.NoError(t, loop.RunOnce())

	port, found := state.LookupFDB(1, mustMAC(t, "02:00:00:00:00:01"))
	require.True(t, found)
	assert.Equal(t, 0, port)

	assert.Len(t, ports.SentOn(1), 1)
	assert.Len(t, ports.SentOn(2), 1)
	assert.Empty(t, ports.SentOn(0))
}

func TestMoveReflloodsToRemainingPorts(t *testing.T) {
	state := switchstate.New(3)
	ports := transport.NewLoopbackPortSet(3)
	loop := dataplane.New(state, ports, nil, nil)

	first := buildFrame(t, "02:00:00:00:00:02", "02:00:00:00:00:01", 0x0800)
	ports.InjectRecv(0, first)
	require.NoError(t, loop.RunOnce())

	second := buildFrame(t, "ff:ff:ff:ff:ff:ff", "02:00:00:00:00:01", 0x0800)
	ports.InjectRecv(2, second)
	require.NoError(t, loop.RunOnce())

	port, found := state.LookupFDB(1, mustMAC(t, "02:00:00:00:00:01"))
	require.True(t, found)
	assert.Equal(t, 2, port)

	assert.Len(t, ports.SentOn(0), 1)
	assert.Len(t, ports.SentOn(1), 2)
}

func TestVLANScopedFlood(t *testing.T) {
	state := switchstate.New(4)
	state.CreateVLAN(73)
	state.AddVLANMember(73, 0, false)
	state.AddVLANMember(73, 1, false)
	state.AddVLANMember(73, 3, false)

	ports := transport.NewLoopbackPortSet(4)
	loop := dataplane.New(state, ports, nil, nil)

	frame := buildFrame(t, "02:00:00:00:00:99", "02:00:00:00:00:01", 0x0800)
	ports.InjectRecv(0, frame)
	require.NoError(t, loop.RunOnce())

	assert.Len(t, ports.SentOn(1), 1)
	assert.Len(t, ports.SentOn(3), 1)
	assert.Empty(t, ports.SentOn(2))
}

func TestUnicastHit(t *testing.T) {
	state := switchstate.New(4)
	state.CreateVLAN(73)
	state.AddVLANMember(73, 0, false)
	state.LearnMAC(73, mustMAC(t, "02:00:00:00:00:aa"), 1)

	ports := transport.NewLoopbackPortSet(4)
	loop := dataplane.New(state, ports, nil, nil)

	frame := buildFrame(t, "02:00:00:00:00:aa", "02:00:00:00:00:bb", 0x0800)
	ports.InjectRecv(0, frame)
	require.NoError(t, loop.RunOnce())

	assert.Len(t, ports.SentOn(1), 1)
	assert.Empty(t, ports.SentOn(2))
	assert.Empty(t, ports.SentOn(3))
}

func TestIPv6FramesAreSuppressed(t *testing.T) {
	state := switchstate.New(3)
	ports := transport.NewLoopbackPortSet(3)
	loop := dataplane.New(state, ports, nil, nil)

	frame := buildFrame(t, "33:33:00:00:00:01", "02:00:00:00:00:01", ethframe.EtherTypeIPv6)
	ports.InjectRecv(0, frame)
	require.NoError(t, loop.RunOnce())

	_, found := state.LookupFDB(1, mustMAC(t, "02:00:00:00:00:01"))
	assert.False(t, found)
	assert.Empty(t, ports.SentOn(1))
	assert.Empty(t, ports.SentOn(2))
}

func TestConfirmingRelearnNotifiesButFreshLearnDoesNot(t *testing.T) {
	state := switchstate.New(2)
	ports := transport.NewLoopbackPortSet(2)

	var notifications int
	notifier := notifierFunc(func(vlan uint16, mac address.MAC, port int) {
		notifications++
	})

	loop := dataplane.New(state, ports, notifier, nil)

	frame := buildFrame(t, "02:00:00:00:00:02", "02:00:00:00:00:01", 0x0800)
	ports.InjectRecv(0, frame)
	require.NoError(t, loop.RunOnce())
	assert.Equal(t, 0, notifications)

	ports.InjectRecv(0, frame)
	require.NoError(t, loop.RunOnce())
	assert.Equal(t, 1, notifications)
}

type notifierFunc func(vlan uint16, mac address.MAC, port int)

func (f notifierFunc) NotifyMACLearned(vlan uint16, mac address.MAC, port int) {
	f(vlan, mac, port)
}

func mustMAC(t *testing.T, s string) address.MAC {
	t.Helper()
	m, err := address.FromString(s)
	require.NoError(t, err)
	return m
}
