package device

import (
	"fmt"

	"github.com/spf13/viper"
)

// SimConfig holds configuration for the simulated device backend.
type SimConfig struct {
	VendorID     uint16 `mapstructure:"vendor_id"`
	DeviceID     uint16 `mapstructure:"device_id"`
	Revision     uint8  `mapstructure:"revision"`
	IRQLine      int    `mapstructure:"irq_line"`
	BaseAddress  uint64 `mapstructure:"base_address"`
	CounterStart uint64 `mapstructure:"counter_start"`
}

// LoadSimConfig loads simulated-device configuration using Viper.
func LoadSimConfig() (*SimConfig, error) {
	viper.SetConfigName("fwtrace-config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("$HOME/.fwtrace")
	viper.AddConfigPath("/etc/fwtrace")

	// Defaults match the supported silicon so the simulator passes the
	// capability gate out of the box.
	viper.SetDefault("vendor_id", 0x1022)
	viper.SetDefault("device_id", 0x17f0)
	viper.SetDefault("revision", 0x10)
	viper.SetDefault("irq_line", 5)
	viper.SetDefault("base_address", 0x4000000)
	viper.SetDefault("counter_start", 0)

	// Allow environment variables
	viper.SetEnvPrefix("FWTRACE")
	viper.AutomaticEnv()

	// Read config file if it exists
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, we'll use defaults
	}

	var config SimConfig
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	return &config, nil
}
