package engine

import "github.com/DipoleDigital/MongoDBBackup/pkg/logger"

type EventKind string

const (
	EventCollectionStarted   EventKind = "collection_started"
	EventCollectionCompleted EventKind = "collection_completed"
	EventCollectionSkipped   EventKind = "collection_skipped"
	EventCollectionFailed    EventKind = "collection_failed"
	EventBatchFlushed        EventKind = "batch_flushed"
	EventRunCompleted        EventKind = "run_completed"
)

// Event is one progress notification from the engine. Exactly one of
// Summary and Result is set on EventRunCompleted, depending on the run
// direction.
type Event struct {
	Kind       EventKind
	Collection string
	Index      int
	Total      int
	Documents  int64
	Err        error
	Summary    *BackupSummary
	Result     *RestoreResult
}

// Reporter receives engine progress events. Events are advisory: the
// engine's correctness never depends on a reporter being attached, and
// the engine never touches state owned by the reporter.
type Reporter interface {
	Publish(Event)
}

type NopReporter struct{}

func (NopReporter) Publish(Event) {}

// ChannelReporter marshals events onto an ordered channel, so a consumer
// on another goroutine (a UI loop, typically) can drain them on its own
// thread. Publish drops events once the buffer is full rather than
// blocking the engine.
type ChannelReporter struct {
	events chan Event
}

func NewChannelReporter(buffer int) *ChannelReporter {
	if buffer <= 0 {
		buffer = 64
	}
	return &ChannelReporter{events: make(chan Event, buffer)}
}

func (r *ChannelReporter) Events() <-chan Event {
	return r.events
}

func (r *ChannelReporter) Publish(event Event) {
	select {
	case r.events <- event:
	default:
	}
}

// Close releases the channel after the final event has been published.
func (r *ChannelReporter) Close() {
	close(r.events)
}

// LogReporter renders events through the application logger; the default
// for headless CLI runs.
type LogReporter struct {
	Log *logger.Logger
}

func (r *LogReporter) Publish(event Event) {
	switch event.Kind {
	case EventCollectionStarted:
		r.Log.Infof("[%d/%d] processing collection %s", event.Index+1, event.Total, event.Collection)
	case EventCollectionCompleted:
		r.Log.Infof("collection %s done (%d documents)", event.Collection, event.Documents)
	case EventCollectionSkipped:
		r.Log.Infof("collection %s is empty, skipping", event.Collection)
	case EventCollectionFailed:
		r.Log.Errorf("collection %s failed: %v", event.Collection, event.Err)
	case EventBatchFlushed:
		r.Log.Debugf("inserted batch of %d documents into %s", event.Documents, event.Collection)
	case EventRunCompleted:
		switch {
		case event.Summary != nil:
			r.Log.Infof("backup completed: %d/%d collections backed up",
				event.Summary.CollectionsBackedUp, event.Summary.TotalCollections)
		case event.Result != nil:
			r.Log.Infof("restore completed: %d/%d collections restored",
				event.Result.Successes(), len(event.Result.Collections))
		}
	}
}
