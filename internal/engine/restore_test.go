package engine_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/DipoleDigital/MongoDBBackup/internal/codec"
	"github.com/DipoleDigital/MongoDBBackup/internal/engine"
)

func writeBackupCollection(t *testing.T, root, name string, docs []bson.D) {
	t.Helper()

	dir := filepath.Join(root, name)
	require.NoError(t, os.MkdirAll(dir, 0o755))

	var sb strings.Builder
	for _, doc := range docs {
		line, err := codec.Encode(doc)
		require.NoError(t, err)
		sb.WriteString(line)
		sb.WriteByte('\n')
	}

	require.NoError(t, os.WriteFile(filepath.Join(dir, name+".json"), []byte(sb.String()), 0o644))
}

func appendRawLine(t *testing.T, root, name, line string) {
	t.Helper()

	path := filepath.Join(root, name, name+".json")
	file, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	defer file.Close()

	_, err = file.WriteString(line + "\n")
	require.NoError(t, err)
}

func TestDiscoverCollections(t *testing.T) {
	root := t.TempDir()
	writeBackupCollection(t, root, "users", makeDocs(1))
	writeBackupCollection(t, root, "orders", makeDocs(1))

	// A directory without a matching stream file is not restorable.
	require.NoError(t, os.MkdirAll(filepath.Join(root, "junk"), 0o755))
	// Stray files at the root are ignored.
	require.NoError(t, os.WriteFile(filepath.Join(root, "backup_summary.json"), []byte("{}"), 0o644))

	found, err := engine.DiscoverCollections(root)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"users", "orders"}, found)
}

func TestRestoreBatchBoundary(t *testing.T) {
	root := t.TempDir()
	writeBackupCollection(t, root, "events", makeDocs(2500))

	sink := newFakeSink()
	result, err := engine.Restore(context.Background(), sink, engine.RestoreOptions{
		BackupRoot: root,
		BatchSize:  1000,
	})
	require.NoError(t, err)

	assert.Equal(t, []int{1000, 1000, 500}, sink.batches["events"])

	count, err := sink.Count(context.Background(), "events")
	require.NoError(t, err)
	assert.Equal(t, int64(2500), count)

	outcome := result.Collections["events"]
	assert.True(t, outcome.Succeeded)
	assert.Equal(t, int64(2500), outcome.Inserted)
}

func TestRestoreMalformedLineTolerance(t *testing.T) {
	root := t.TempDir()
	writeBackupCollection(t, root, "users", makeDocs(10))
	appendRawLine(t, root, "users", "{this is not valid extended json")

	sink := newFakeSink()
	result, err := engine.Restore(context.Background(), sink, engine.RestoreOptions{
		BackupRoot: root,
		BatchSize:  1000,
	})
	require.NoError(t, err, "a corrupted line must not fail the collection")

	outcome := result.Collections["users"]
	assert.True(t, outcome.Succeeded)
	assert.Equal(t, int64(10), outcome.Inserted)
	assert.Equal(t, 1, outcome.SkippedLines)
}

func TestRestoreDropIdempotence(t *testing.T) {
	root := t.TempDir()
	writeBackupCollection(t, root, "users", makeDocs(42))

	sink := newFakeSink()
	opts := engine.RestoreOptions{
		BackupRoot:   root,
		DropExisting: true,
		BatchSize:    10,
	}

	_, err := engine.Restore(context.Background(), sink, opts)
	require.NoError(t, err)
	first, err := sink.Count(context.Background(), "users")
	require.NoError(t, err)

	_, err = engine.Restore(context.Background(), sink, opts)
	require.NoError(t, err)
	second, err := sink.Count(context.Background(), "users")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, int64(42), second)
	assert.Equal(t, 2, sink.drops["users"])
}

func TestRestoreBulkInsertFailureIsolation(t *testing.T) {
	root := t.TempDir()
	writeBackupCollection(t, root, "broken", makeDocs(5))
	writeBackupCollection(t, root, "healthy", makeDocs(5))

	sink := newFakeSink()
	sink.insertErr["broken"] = errors.New("E11000 duplicate key error")

	result, err := engine.Restore(context.Background(), sink, engine.RestoreOptions{
		BackupRoot:  root,
		Collections: []string{"broken", "healthy"},
		BatchSize:   2,
	})

	var incomplete *engine.RunIncompleteError
	require.True(t, errors.As(err, &incomplete))
	assert.Equal(t, []string{"broken"}, incomplete.Failed)

	assert.False(t, result.Collections["broken"].Succeeded)
	assert.True(t, result.Collections["healthy"].Succeeded)
	assert.Equal(t, int64(5), result.Collections["healthy"].Inserted)
	assert.False(t, result.OK())
}

func TestRestoreMissingCollectionFileFails(t *testing.T) {
	root := t.TempDir()
	writeBackupCollection(t, root, "present", makeDocs(3))

	sink := newFakeSink()
	result, err := engine.Restore(context.Background(), sink, engine.RestoreOptions{
		BackupRoot:  root,
		Collections: []string{"present", "absent"},
		BatchSize:   100,
	})

	var incomplete *engine.RunIncompleteError
	require.True(t, errors.As(err, &incomplete))
	assert.True(t, result.Collections["present"].Succeeded)
	assert.False(t, result.Collections["absent"].Succeeded)
}

func TestRestoreRoundTripPreservesExtendedTypes(t *testing.T) {
	doc := bson.D{
		{Key: "n", Value: int64(9007199254740993)},
		{Key: "nested", Value: bson.D{{Key: "flag", Value: true}}},
	}

	root := t.TempDir()
	writeBackupCollection(t, root, "typed", []bson.D{doc})

	sink := newFakeSink()
	_, err := engine.Restore(context.Background(), sink, engine.RestoreOptions{
		BackupRoot: root,
		BatchSize:  10,
	})
	require.NoError(t, err)

	require.Len(t, sink.stored["typed"], 1)
	assert.Equal(t, doc, sink.stored["typed"][0])
}

func TestRestoreResultReporting(t *testing.T) {
	root := t.TempDir()
	writeBackupCollection(t, root, "users", makeDocs(3))

	reporter := &recordingReporter{}
	sink := newFakeSink()
	_, err := engine.Restore(context.Background(), sink, engine.RestoreOptions{
		BackupRoot: root,
		BatchSize:  2,
		Reporter:   reporter,
	})
	require.NoError(t, err)

	assert.Equal(t, 1, reporter.countKind(engine.EventCollectionStarted))
	assert.Equal(t, 2, reporter.countKind(engine.EventBatchFlushed))
	assert.Equal(t, 1, reporter.countKind(engine.EventRunCompleted))

	last := reporter.events[len(reporter.events)-1]
	require.NotNil(t, last.Result)
	assert.True(t, last.Result.OK())
}

func TestRestoreMissingBackupRoot(t *testing.T) {
	sink := newFakeSink()
	_, err := engine.Restore(context.Background(), sink, engine.RestoreOptions{
		BackupRoot: filepath.Join(t.TempDir(), "nope"),
	})
	require.Error(t, err)
}
