package engine_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DipoleDigital/MongoDBBackup/internal/engine"
)

func TestChannelReporterPreservesOrder(t *testing.T) {
	reporter := engine.NewChannelReporter(8)

	reporter.Publish(engine.Event{Kind: engine.EventCollectionStarted, Collection: "a"})
	reporter.Publish(engine.Event{Kind: engine.EventCollectionCompleted, Collection: "a"})
	reporter.Publish(engine.Event{Kind: engine.EventRunCompleted})
	reporter.Close()

	var kinds []engine.EventKind
	for event := range reporter.Events() {
		kinds = append(kinds, event.Kind)
	}

	assert.Equal(t, []engine.EventKind{
		engine.EventCollectionStarted,
		engine.EventCollectionCompleted,
		engine.EventRunCompleted,
	}, kinds)
}

func TestChannelReporterNeverBlocks(t *testing.T) {
	reporter := engine.NewChannelReporter(2)

	// No consumer: publishing beyond the buffer must not block.
	for i := 0; i < 10; i++ {
		reporter.Publish(engine.Event{Kind: engine.EventBatchFlushed})
	}
	reporter.Close()

	received := 0
	for range reporter.Events() {
		received++
	}
	require.Equal(t, 2, received)
}
