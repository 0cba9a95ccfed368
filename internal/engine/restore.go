package engine

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/DipoleDigital/MongoDBBackup/internal/codec"
	"github.com/DipoleDigital/MongoDBBackup/pkg/logger"
)

// maxLineBytes caps one encoded document line. MongoDB documents top out
// at 16MB; Extended JSON can roughly double that.
const maxLineBytes = 32 * 1024 * 1024

// RestoreOptions configures one restore run. An empty Collections slice
// restores everything discovered under BackupRoot.
type RestoreOptions struct {
	BackupRoot   string
	Collections  []string
	DropExisting bool
	BatchSize    int
	Reporter     Reporter
	Logger       *logger.Logger
}

// DiscoverCollections scans a backup root for restorable collections:
// subdirectories containing a <name>.json encoded stream.
func DiscoverCollections(backupRoot string) ([]string, error) {
	entries, err := os.ReadDir(backupRoot)
	if err != nil {
		return nil, fmt.Errorf("failed to read backup directory: %w", err)
	}

	var collections []string
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		jsonFile := filepath.Join(backupRoot, entry.Name(), entry.Name()+".json")
		if _, err := os.Stat(jsonFile); err == nil {
			collections = append(collections, entry.Name())
		}
	}

	return collections, nil
}

// Restore decodes and batch-inserts the selected collections from a
// backup directory. Per-line decode failures are logged and skipped; a
// bulk-insert failure marks that collection failed but the run carries
// on. The result always covers every attempted collection.
//
// Like Backup, a partially failed run returns the result together with a
// *RunIncompleteError.
func Restore(ctx context.Context, dst DocumentSink, opts RestoreOptions) (*RestoreResult, error) {
	if opts.BackupRoot == "" {
		return nil, fmt.Errorf("backup root is required")
	}
	if _, err := os.Stat(opts.BackupRoot); err != nil {
		return nil, fmt.Errorf("backup directory not found: %w", err)
	}

	log := opts.Logger
	if log == nil {
		log = logger.NewLogger(false)
	}
	reporter := opts.Reporter
	if reporter == nil {
		reporter = NopReporter{}
	}
	batchSize := opts.BatchSize
	if batchSize <= 0 {
		batchSize = 1000
	}

	collections := opts.Collections
	if len(collections) == 0 {
		discovered, err := DiscoverCollections(opts.BackupRoot)
		if err != nil {
			return nil, err
		}
		if len(discovered) == 0 {
			return nil, fmt.Errorf("no backup collections found in %s", opts.BackupRoot)
		}
		collections = discovered
	}

	result := &RestoreResult{Collections: make(map[string]CollectionOutcome, len(collections))}

	var (
		failed    []string
		cancelErr error
	)

	total := len(collections)
	for i, name := range collections {
		if err := ctx.Err(); err != nil {
			log.Warnf("restore cancelled after %d of %d collections", i, total)
			cancelErr = err
			break
		}

		reporter.Publish(Event{Kind: EventCollectionStarted, Collection: name, Index: i, Total: total})
		log.Infof("restoring collection %s", name)

		outcome := restoreCollection(ctx, dst, opts.BackupRoot, name, opts.DropExisting, batchSize, reporter, log)
		result.Collections[name] = outcome

		if outcome.Succeeded {
			log.Infof("successfully restored %s (%d documents inserted, %d lines skipped)",
				name, outcome.Inserted, outcome.SkippedLines)
			reporter.Publish(Event{Kind: EventCollectionCompleted, Collection: name, Index: i, Total: total, Documents: outcome.Inserted})
		} else {
			log.Errorf("failed to restore %s: %v", name, outcome.Err)
			failed = append(failed, name)
			reporter.Publish(Event{Kind: EventCollectionFailed, Collection: name, Index: i, Total: total, Err: outcome.Err})
		}
	}

	reporter.Publish(Event{Kind: EventRunCompleted, Result: result})

	if cancelErr != nil {
		return result, cancelErr
	}
	if len(failed) > 0 {
		return result, &RunIncompleteError{Succeeded: result.Successes(), Attempted: total, Failed: failed}
	}
	return result, nil
}

func restoreCollection(ctx context.Context, dst DocumentSink, backupRoot, name string, dropExisting bool, batchSize int, reporter Reporter, log *logger.Logger) CollectionOutcome {
	jsonFile := filepath.Join(backupRoot, name, name+".json")

	file, err := os.Open(jsonFile)
	if err != nil {
		return CollectionOutcome{Err: &CollectionError{Collection: name, Op: "restore",
			Err: fmt.Errorf("backup file not found: %w", err)}}
	}
	defer file.Close()

	if dropExisting {
		log.Infof("dropping existing collection %s", name)
		if err := dst.Drop(ctx, name); err != nil {
			return CollectionOutcome{Err: &CollectionError{Collection: name, Op: "restore", Err: err}}
		}
	}

	var outcome CollectionOutcome
	fail := func(err error) CollectionOutcome {
		outcome.Err = &CollectionError{Collection: name, Op: "restore", Err: err}
		return outcome
	}

	batch := make([]interface{}, 0, batchSize)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := dst.InsertBatch(ctx, name, batch); err != nil {
			return err
		}
		outcome.Inserted += int64(len(batch))
		reporter.Publish(Event{Kind: EventBatchFlushed, Collection: name, Documents: int64(len(batch))})
		batch = batch[:0]
		return nil
	}

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Text()
		if line == "" {
			continue
		}

		doc, err := codec.Decode(line)
		if err != nil {
			var malformed *codec.MalformedRecordError
			if errors.As(err, &malformed) {
				log.Errorf("invalid record on line %d of %s: %v", lineNum, name, err)
				outcome.SkippedLines++
				continue
			}
			return fail(err)
		}

		batch = append(batch, doc)
		if len(batch) >= batchSize {
			if err := flush(); err != nil {
				return fail(err)
			}
		}
	}

	if err := scanner.Err(); err != nil {
		return fail(fmt.Errorf("failed to read backup file: %w", err))
	}

	if err := flush(); err != nil {
		return fail(err)
	}

	if count, err := dst.Count(ctx, name); err == nil {
		log.Infof("collection %s now holds %d documents", name, count)
	}

	outcome.Succeeded = true
	return outcome
}
