package engine_test

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/DipoleDigital/MongoDBBackup/internal/engine"
)

// fakeSource serves documents from memory and can be told to fail a
// collection's stream after a given number of documents.
type fakeSource struct {
	docs      map[string][]bson.D
	failAfter map[string]int
	countErr  map[string]error
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		docs:      make(map[string][]bson.D),
		failAfter: make(map[string]int),
		countErr:  make(map[string]error),
	}
}

func (f *fakeSource) Count(ctx context.Context, collection string) (int64, error) {
	if err := f.countErr[collection]; err != nil {
		return 0, err
	}
	return int64(len(f.docs[collection])), nil
}

func (f *fakeSource) Stream(ctx context.Context, collection string, fn func(bson.D) error) error {
	limit, failing := f.failAfter[collection]
	for i, doc := range f.docs[collection] {
		if failing && i >= limit {
			return fmt.Errorf("cursor error on %s", collection)
		}
		if err := fn(doc); err != nil {
			return err
		}
	}
	return nil
}

// fakeSink accumulates inserted batches in memory and records every
// bulk-insert call.
type fakeSink struct {
	stored    map[string][]interface{}
	batches   map[string][]int
	drops     map[string]int
	insertErr map[string]error
}

func newFakeSink() *fakeSink {
	return &fakeSink{
		stored:    make(map[string][]interface{}),
		batches:   make(map[string][]int),
		drops:     make(map[string]int),
		insertErr: make(map[string]error),
	}
}

func (f *fakeSink) Drop(ctx context.Context, collection string) error {
	f.drops[collection]++
	f.stored[collection] = nil
	return nil
}

func (f *fakeSink) InsertBatch(ctx context.Context, collection string, batch []interface{}) error {
	if err := f.insertErr[collection]; err != nil {
		return err
	}
	f.batches[collection] = append(f.batches[collection], len(batch))
	f.stored[collection] = append(f.stored[collection], batch...)
	return nil
}

func (f *fakeSink) Count(ctx context.Context, collection string) (int64, error) {
	return int64(len(f.stored[collection])), nil
}

// recordingReporter captures the ordered event stream.
type recordingReporter struct {
	events []engine.Event
}

func (r *recordingReporter) Publish(event engine.Event) {
	r.events = append(r.events, event)
}

func (r *recordingReporter) countKind(kind engine.EventKind) int {
	count := 0
	for _, event := range r.events {
		if event.Kind == kind {
			count++
		}
	}
	return count
}

func docN(n int) bson.D {
	return bson.D{{Key: "i", Value: int32(n)}}
}

func makeDocs(n int) []bson.D {
	docs := make([]bson.D, n)
	for i := range docs {
		docs[i] = docN(i)
	}
	return docs
}
