package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/deploymenttheory/go-fwtrace/internal/device"
	"github.com/deploymenttheory/go-fwtrace/internal/interfaces"
	"github.com/deploymenttheory/go-fwtrace/internal/trace"
	"github.com/deploymenttheory/go-fwtrace/internal/types"
)

var (
	watchCount    int
	watchInterval time.Duration
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Stream decoded trace events from a simulated device",
	Long: `watch enables tracing on the simulated device, drives its firmware model
to produce synthetic records, and prints each decoded event as it is drained.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := device.LoadSimConfig()
		if err != nil {
			return fmt.Errorf("failed to load device config: %w", err)
		}
		dev := device.NewSimDevice(deviceName, cfg)

		events := make(chan interfaces.TraceEvent, watchCount)
		collector := trace.NewCollector(dev, newLogger(),
			trace.WithEventSink(channelSink(events)))

		collector.SetState(types.TraceEnabled)
		if !collector.Enabled() {
			return fmt.Errorf("failed to enable event trace on %s", deviceName)
		}
		defer collector.SetState(types.TraceDisabled)

		fw := dev.Firmware()
		for i := 0; i < watchCount; i++ {
			fw.AdvanceCounter(uint64(watchInterval.Microseconds()) * types.DeviceCounterTicksPerMicrosecond)
			fw.EmitRecord(uint16(i%8), uint64(i)<<32|0xcafe)
			time.Sleep(watchInterval)
		}

		close(events)
		for ev := range events {
			fmt.Printf("[%d][FW] type: 0x%04x payload:0x%016x\n", ev.Timestamp, ev.Type, ev.Payload)
		}
		return nil
	},
}

// channelSink adapts a channel to the TraceEventSink interface. Sends are
// non-blocking; events beyond the channel capacity are dropped, keeping the
// drain path free of backpressure.
type channelSink chan interfaces.TraceEvent

func (s channelSink) ConsumeTraceEvent(ev interfaces.TraceEvent) {
	select {
	case s <- ev:
	default:
	}
}

func init() {
	watchCmd.Flags().IntVarP(&watchCount, "events", "n", 16, "number of synthetic events to produce")
	watchCmd.Flags().DurationVarP(&watchInterval, "interval", "i", 50*time.Millisecond, "delay between synthetic events")
}
