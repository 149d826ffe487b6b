package kafka_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/contentline/contentline/pkg/channels/kafka"
)

func TestParseBrokers(t *testing.T) {
	t.Parallel()

	brokers, err := kafka.ParseBrokers("kafka-1:9092, kafka-2:9092 ,,kafka-3:9092")
	require.NoError(t, err)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092", "kafka-3:9092"}, brokers)
}

func TestParseBrokersEmpty(t *testing.T) {
	t.Parallel()

	for _, raw := range []string{"", "  ", ",", " , "} {
		_, err := kafka.ParseBrokers(raw)
		assert.ErrorIs(t, err, kafka.ErrNoBrokers, "raw %q", raw)
	}
}
