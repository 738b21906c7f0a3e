package bus

import (
	"fmt"
	"strings"

	"github.com/compcontrol/api/internal/config"
)

// NewBus creates a Bus instance based on the configuration.
func NewBus(cfg *config.Config) (Bus, error) {
	switch strings.ToLower(cfg.BusType) {
	case "memory", "":
		return NewMemoryBus(), nil

	case "kafka":
		brokers := ParseKafkaBrokers(cfg.KafkaBrokers)
		if len(brokers) == 0 {
			return nil, fmt.Errorf("kafka bus selected but kafka_brokers is not configured")
		}

		return NewKafkaBus(KafkaConfig{
			Brokers:       brokers,
			ConsumerGroup: cfg.KafkaGroup,
			ClientID:      "compcontrol-bus",
		})

	default:
		return nil, fmt.Errorf("unknown bus type: %q", cfg.BusType)
	}
}
