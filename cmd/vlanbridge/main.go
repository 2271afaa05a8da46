// Command vlanbridge runs the userspace learning Ethernet bridge.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var configFile string

var rootCmd = &cobra.Command{
	Use:     "vlanbridge",
	Short:   "A userspace learning Ethernet bridge with VLAN awareness",
	Version: "0.1.0",
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "",
		"path to a YAML/JSON/TOML config file (defaults built in if omitted)")

	rootCmd.AddCommand(runCmd)
}
