// Package kafka wires the telemetry event bus onto Kafka via watermill.
package kafka

import (
	"errors"
	"os"
	"strings"

	"github.com/IBM/sarama"
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-kafka/v3/pkg/kafka"
)

// ErrNoBrokers is returned when KAFKA_BROKERS yields no usable address.
var ErrNoBrokers = errors.New("KAFKA_BROKERS must list at least one broker")

// CreateChannel builds a Kafka publisher/subscriber pair from the
// KAFKA_BROKERS environment variable, a comma-separated host:port list.
func CreateChannel(logger watermill.LoggerAdapter, serviceName string) (*kafka.Publisher, *kafka.Subscriber, error) {
	brokers, err := ParseBrokers(os.Getenv("KAFKA_BROKERS"))
	if err != nil {
		return nil, nil, err
	}

	subscriber, err := kafka.NewSubscriber(subscriberConfig(brokers, serviceName), logger)
	if err != nil {
		return nil, nil, err
	}

	publisher, err := kafka.NewPublisher(publisherConfig(brokers, serviceName), logger)
	if err != nil {
		return nil, nil, err
	}

	return publisher, subscriber, nil
}

// ParseBrokers splits a comma-separated broker list, dropping empty entries
// and surrounding whitespace.
func ParseBrokers(raw string) ([]string, error) {
	parts := strings.Split(raw, ",")
	brokers := make([]string, 0, len(parts))

	for _, broker := range parts {
		if broker = strings.TrimSpace(broker); broker != "" {
			brokers = append(brokers, broker)
		}
	}

	if len(brokers) == 0 {
		return nil, ErrNoBrokers
	}

	return brokers, nil
}

func subscriberConfig(brokers []string, serviceName string) kafka.SubscriberConfig {
	saramaConfig := kafka.DefaultSaramaSubscriberConfig()
	saramaConfig.ClientID = serviceName

	// Telemetry is ephemeral: a consumer joining late only cares about
	// events emitted from now on, not the backlog.
	saramaConfig.Consumer.Offsets.Initial = sarama.OffsetNewest

	return kafka.SubscriberConfig{
		Brokers:               brokers,
		Unmarshaler:           kafka.DefaultMarshaler{},
		OverwriteSaramaConfig: saramaConfig,
		ConsumerGroup:         serviceName + "-telemetry",
		OTELEnabled:           true,
	}
}

func publisherConfig(brokers []string, serviceName string) kafka.PublisherConfig {
	saramaConfig := sarama.NewConfig()
	saramaConfig.ClientID = serviceName
	saramaConfig.Producer.Return.Successes = true
	saramaConfig.Producer.RequiredAcks = sarama.WaitForAll
	saramaConfig.Producer.Compression = sarama.CompressionSnappy

	return kafka.PublisherConfig{
		Brokers:               brokers,
		Marshaler:             kafka.DefaultMarshaler{},
		OverwriteSaramaConfig: saramaConfig,
		OTELEnabled:           true,
	}
}
