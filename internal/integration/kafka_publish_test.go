//go:build integration

package integration_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tckafka "github.com/testcontainers/testcontainers-go/modules/kafka"

	kafkaadapter "github.com/riverwatch/river-gauge-service/internal/adapter/kafka"
	"github.com/riverwatch/river-gauge-service/internal/config"
	"github.com/riverwatch/river-gauge-service/internal/domain"
)

const testCatalogTopic = "test-gauge-catalog"

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// startKafka runs a single-node Kafka broker in a container and returns its
// bootstrap address.
func startKafka(ctx context.Context, t *testing.T) string {
	t.Helper()

	container, err := tckafka.Run(ctx,
		"confluentinc/confluent-local:7.5.0",
		tckafka.WithClusterID("test-cluster"),
	)
	require.NoError(t, err, "start kafka container")
	t.Cleanup(func() {
		require.NoError(t, testcontainers.TerminateContainer(container))
	})

	brokers, err := container.Brokers(ctx)
	require.NoError(t, err, "resolve broker address")
	require.NotEmpty(t, brokers)
	return brokers[0]
}

func createTopic(t *testing.T, broker, topic string) {
	t.Helper()

	conn, err := kafkago.Dial("tcp", broker)
	require.NoError(t, err, "dial broker")
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err)

	controllerConn, err := kafkago.Dial("tcp", fmt.Sprintf("%s:%d", controller.Host, controller.Port))
	require.NoError(t, err, "dial controller")
	defer controllerConn.Close()

	require.NoError(t, controllerConn.CreateTopics(kafkago.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	}))
}

// TestPublishSites verifies the catalog publisher round-trips site records
// through a real broker with the expected keys and headers.
func TestPublishSites(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testCatalogTopic)

	cfg := &config.Config{
		KafkaBrokers: []string{broker},
		KafkaTopic:   testCatalogTopic,
	}

	publisher := kafkaadapter.NewPublisher(cfg, discardLogger())
	t.Cleanup(func() { _ = publisher.Close() })

	sites := []domain.SensorSite{
		{
			ID:         "08158000",
			Name:       "Colorado Rv at Austin",
			Latitude:   30.2444,
			Longitude:  -97.6944,
			RegionCode: "TX",
			Provider:   domain.ProviderUSGS,
		},
		{
			ID:            "AUTX2",
			Name:          "Colorado River at Austin",
			Latitude:      30.27,
			Longitude:     -97.74,
			RegionCode:    "TX",
			Provider:      domain.ProviderNWPS,
			CriticalLevel: 21,
		},
	}

	require.NoError(t, publisher.PublishSites(ctx, sites))

	consumer := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     []string{broker},
		Topic:       testCatalogTopic,
		GroupID:     fmt.Sprintf("test-consumer-%d", time.Now().UnixNano()),
		StartOffset: kafkago.FirstOffset,
	})
	t.Cleanup(func() { _ = consumer.Close() })

	received := make(map[string]domain.SensorSite, len(sites))
	headers := make(map[string]map[string]string, len(sites))
	for len(received) < len(sites) {
		readCtx, readCancel := context.WithTimeout(ctx, 30*time.Second)
		msg, err := consumer.ReadMessage(readCtx)
		readCancel()
		require.NoError(t, err, "read from catalog topic")

		var site domain.SensorSite
		require.NoError(t, json.Unmarshal(msg.Value, &site))
		received[string(msg.Key)] = site

		hs := make(map[string]string, len(msg.Headers))
		for _, h := range msg.Headers {
			hs[h.Key] = string(h.Value)
		}
		headers[string(msg.Key)] = hs
	}

	usgsSite, ok := received["usgs-08158000"]
	require.True(t, ok, "expected usgs site keyed by provider-id")
	assert.Equal(t, "Colorado Rv at Austin", usgsSite.Name)
	assert.Equal(t, "TX", usgsSite.RegionCode)

	nwpsSite, ok := received["nwps-AUTX2"]
	require.True(t, ok, "expected nwps site keyed by provider-id")
	assert.Equal(t, 21.0, nwpsSite.CriticalLevel)

	for key, hs := range headers {
		assert.NotEmpty(t, hs["provider"], "missing provider header on %s", key)
		_, err := time.Parse(time.RFC3339, hs["published_at"])
		assert.NoError(t, err, "invalid published_at header on %s", key)
	}
}
