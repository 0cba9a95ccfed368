package engine

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/DipoleDigital/MongoDBBackup/internal/codec"
	"github.com/DipoleDigital/MongoDBBackup/pkg/logger"
)

// BackupOptions configures one backup run. Collections are processed in
// the order given.
type BackupOptions struct {
	Database    string
	Host        string
	Port        int
	Collections []string
	OutputRoot  string
	Reporter    Reporter
	Logger      *logger.Logger
}

// Backup streams the selected collections into a new run directory under
// OutputRoot and returns the aggregate summary. A failure in one
// collection never aborts the run; the summary is written even when every
// collection failed. Only a failure to create the run directory itself,
// or cancellation, ends the run early — and even cancellation still
// produces a summary for the collections attempted so far.
//
// When some collections failed the summary is returned together with a
// *RunIncompleteError so callers can exit non-zero without losing the
// run record.
func Backup(ctx context.Context, src DocumentSource, opts BackupOptions) (*BackupSummary, error) {
	if opts.Database == "" {
		return nil, fmt.Errorf("database name is required")
	}
	if opts.OutputRoot == "" {
		return nil, fmt.Errorf("output root is required")
	}

	log := opts.Logger
	if log == nil {
		log = logger.NewLogger(false)
	}
	reporter := opts.Reporter
	if reporter == nil {
		reporter = NopReporter{}
	}

	started := time.Now()
	runDir := filepath.Join(opts.OutputRoot, fmt.Sprintf("%s_%s_%s",
		opts.Database, hostToken(opts.Host), started.Format("20060102_150405")))

	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create backup directory: %w", err)
	}

	var (
		succeeded []string
		failed    []string
		cancelErr error
	)

	total := len(opts.Collections)
	for i, name := range opts.Collections {
		if err := ctx.Err(); err != nil {
			log.Warnf("backup cancelled after %d of %d collections", i, total)
			cancelErr = err
			break
		}

		reporter.Publish(Event{Kind: EventCollectionStarted, Collection: name, Index: i, Total: total})

		count, err := src.Count(ctx, name)
		if err != nil {
			collErr := &CollectionError{Collection: name, Op: "backup", Err: err}
			log.Errorf("failed to back up %s: %v", name, err)
			failed = append(failed, name)
			reporter.Publish(Event{Kind: EventCollectionFailed, Collection: name, Index: i, Total: total, Err: collErr})
			continue
		}

		if count == 0 {
			log.Infof("collection %s is empty, skipping", name)
			reporter.Publish(Event{Kind: EventCollectionSkipped, Collection: name, Index: i, Total: total})
			continue
		}

		streamed, err := backupCollection(ctx, src, runDir, opts.Database, name)
		if err != nil {
			collErr := &CollectionError{Collection: name, Op: "backup", Err: err}
			log.Errorf("failed to back up %s: %v", name, err)
			failed = append(failed, name)
			reporter.Publish(Event{Kind: EventCollectionFailed, Collection: name, Index: i, Total: total, Err: collErr})
			continue
		}

		log.Infof("successfully backed up %s (%d documents)", name, streamed)
		succeeded = append(succeeded, name)
		reporter.Publish(Event{Kind: EventCollectionCompleted, Collection: name, Index: i, Total: total, Documents: streamed})
	}

	summary := &BackupSummary{
		BackupTimestamp:     time.Now().Format(time.RFC3339),
		Database:            opts.Database,
		Host:                opts.Host,
		Port:                opts.Port,
		Collections:         append([]string(nil), opts.Collections...),
		CollectionsBackedUp: len(succeeded),
		TotalCollections:    total,
		SuccessfulBackups:   succeeded,
		FailedCollections:   failed,
		OutputDirectory:     runDir,
		Format:              codec.FormatName,
	}

	if err := writeJSONFile(filepath.Join(runDir, "backup_summary.json"), summary); err != nil {
		return summary, fmt.Errorf("failed to write backup summary: %w", err)
	}

	reporter.Publish(Event{Kind: EventRunCompleted, Summary: summary})

	if cancelErr != nil {
		return summary, cancelErr
	}
	if len(failed) > 0 {
		return summary, &RunIncompleteError{Succeeded: len(succeeded), Attempted: total, Failed: failed}
	}
	return summary, nil
}

// backupCollection materializes one collection directory, streams every
// document through the codec into <name>.json, and writes the manifest
// once the stream completed. Returns the number of documents streamed.
func backupCollection(ctx context.Context, src DocumentSource, runDir, database, name string) (streamed int64, err error) {
	collectionDir := filepath.Join(runDir, name)
	if err := os.MkdirAll(collectionDir, 0o755); err != nil {
		return 0, fmt.Errorf("failed to create collection directory: %w", err)
	}

	jsonName := name + ".json"
	file, err := os.Create(filepath.Join(collectionDir, jsonName))
	if err != nil {
		return 0, fmt.Errorf("failed to create backup file: %w", err)
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("failed to close backup file: %w", closeErr)
		}
	}()

	writer := bufio.NewWriter(file)
	err = src.Stream(ctx, name, func(doc bson.D) error {
		line, encErr := codec.Encode(doc)
		if encErr != nil {
			return encErr
		}
		if _, wErr := writer.WriteString(line); wErr != nil {
			return wErr
		}
		if wErr := writer.WriteByte('\n'); wErr != nil {
			return wErr
		}
		streamed++
		return nil
	})
	if err != nil {
		return streamed, err
	}

	if err := writer.Flush(); err != nil {
		return streamed, fmt.Errorf("failed to flush backup file: %w", err)
	}

	manifest := &CollectionManifest{
		Collection:      name,
		Database:        database,
		DocumentCount:   streamed,
		BackupTimestamp: time.Now().Format(time.RFC3339),
		JSONFile:        jsonName,
		Format:          codec.FormatName,
	}

	if err := writeJSONFile(filepath.Join(collectionDir, "metadata.json"), manifest); err != nil {
		return streamed, err
	}

	return streamed, nil
}

func writeJSONFile(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", filepath.Base(path), err)
	}
	return nil
}
