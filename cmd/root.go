package cmd

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	// Global output flags only
	verbose    bool
	quiet      bool
	deviceName string
)

var rootCmd = &cobra.Command{
	Use:   "fwtrace",
	Short: "Firmware event-trace collector for NPU-class accelerators",
	Long: `fwtrace collects diagnostic event-trace records produced by accelerator
firmware into a shared ring buffer and turns them into a readable,
timestamp-correlated event stream on the host.

Commands:
  enable      Enable firmware event tracing on a device
  disable     Disable firmware event tracing on a device
  status      Show collector state and drain statistics
  watch       Stream decoded trace events from a simulated device`,
	Version: "0.1.0-dev",
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress output except errors")
	rootCmd.PersistentFlags().StringVar(&deviceName, "device", "npu0", "device instance name")
}

// newLogger builds the logger shared by all commands, honoring the global
// output flags.
func newLogger() *logrus.Entry {
	log := logrus.New()
	switch {
	case quiet:
		log.SetLevel(logrus.ErrorLevel)
	case verbose:
		log.SetLevel(logrus.TraceLevel)
	default:
		log.SetLevel(logrus.InfoLevel)
	}
	return logrus.NewEntry(log)
}
