package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/deploymenttheory/go-fwtrace/internal/device"
	"github.com/deploymenttheory/go-fwtrace/internal/trace"
	"github.com/deploymenttheory/go-fwtrace/internal/types"
)

var enableCmd = &cobra.Command{
	Use:   "enable",
	Short: "Enable firmware event tracing",
	RunE: func(cmd *cobra.Command, args []string) error {
		collector, _, err := newCollector()
		if err != nil {
			return err
		}
		collector.SetState(types.TraceEnabled)
		printStatus(collector.Status())
		return nil
	},
}

var disableCmd = &cobra.Command{
	Use:   "disable",
	Short: "Disable firmware event tracing",
	RunE: func(cmd *cobra.Command, args []string) error {
		collector, _, err := newCollector()
		if err != nil {
			return err
		}
		collector.SetState(types.TraceDisabled)
		printStatus(collector.Status())
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show collector state and drain statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		collector, _, err := newCollector()
		if err != nil {
			return err
		}
		printStatus(collector.Status())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(enableCmd, disableCmd, statusCmd, watchCmd)
}

// newCollector builds a collector over the simulated backend configured via
// viper.
func newCollector() (*trace.Collector, *device.SimDevice, error) {
	cfg, err := device.LoadSimConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load device config: %w", err)
	}
	dev := device.NewSimDevice(deviceName, cfg)
	return trace.NewCollector(dev, newLogger()), dev, nil
}

func printStatus(st trace.Status) {
	fmt.Printf("state:           %s\n", st.State)
	if st.State != types.TraceEnabled {
		return
	}
	fmt.Printf("session:         %s\n", st.SessionID)
	fmt.Printf("buffer address:  0x%x\n", st.BufferAddress)
	fmt.Printf("buffer size:     0x%x\n", st.BufferSize)
	fmt.Printf("bytes drained:   %d\n", st.BytesDrained)
	fmt.Printf("records drained: %d\n", st.RecordsDrained)
}
