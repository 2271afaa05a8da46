package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/stella/vlan-bridge/pkg/bridge"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the bridge and block until interrupted",
	RunE:  runBridge,
}

func runBridge(cmd *cobra.Command, args []string) error {
	cfg, err := bridge.LoadConfig(configFile)
	if err != nil {
		return err
	}

	log := logrus.New()
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	log.SetLevel(level)
	log.SetFormatter(&logrus.JSONFormatter{})

	b, err := bridge.New(cfg, log, nil)
	if err != nil {
		return err
	}

	if err := b.Start(); err != nil {
		return err
	}
	log.WithField("bridge_id", b.ID()).Info("vlanbridge running")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	return b.Stop()
}
