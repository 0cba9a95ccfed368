// Package engine implements the backup and restore transfer engines: it
// streams collections between a database session and the on-disk Extended
// JSON backup layout, isolating per-collection failures and always
// producing a run record.
package engine

import (
	"context"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
)

// DocumentSource is the read side of a database session as the backup
// engine consumes it. gateway.Session satisfies it; tests use in-memory
// fakes.
type DocumentSource interface {
	Count(ctx context.Context, collection string) (int64, error)
	Stream(ctx context.Context, collection string, fn func(bson.D) error) error
}

// DocumentSink is the write side of a database session as the restore
// engine consumes it.
type DocumentSink interface {
	Drop(ctx context.Context, collection string) error
	InsertBatch(ctx context.Context, collection string, batch []interface{}) error
	Count(ctx context.Context, collection string) (int64, error)
}

// CollectionManifest describes one completed collection backup. It is
// written to metadata.json inside the collection's directory and never
// mutated afterwards. DocumentCount is the number of documents actually
// streamed and encoded, not the pre-scan estimate.
type CollectionManifest struct {
	Collection      string `json:"collection"`
	Database        string `json:"database"`
	DocumentCount   int64  `json:"document_count"`
	BackupTimestamp string `json:"backup_timestamp"`
	JSONFile        string `json:"json_file"`
	Format          string `json:"format"`
}

// BackupSummary aggregates a full backup run. It is written to
// backup_summary.json at the run root unconditionally, even when every
// collection failed. SuccessfulBackups lists only collections whose
// stream and manifest both completed.
type BackupSummary struct {
	BackupTimestamp     string   `json:"backup_timestamp"`
	Database            string   `json:"database"`
	Host                string   `json:"host"`
	Port                int      `json:"port"`
	Collections         []string `json:"collections"`
	CollectionsBackedUp int      `json:"collections_backed_up"`
	TotalCollections    int      `json:"total_collections"`
	SuccessfulBackups   []string `json:"successful_backups"`
	FailedCollections   []string `json:"failed_collections"`
	OutputDirectory     string   `json:"output_directory"`
	Format              string   `json:"format"`
}

// CollectionOutcome records what happened to one collection during a
// restore run.
type CollectionOutcome struct {
	Succeeded    bool
	Inserted     int64
	SkippedLines int
	Err          error
}

// RestoreResult maps collection names to per-collection outcomes. The
// run as a whole succeeded only if every attempted collection did.
type RestoreResult struct {
	Collections map[string]CollectionOutcome
}

func (r *RestoreResult) OK() bool {
	for _, outcome := range r.Collections {
		if !outcome.Succeeded {
			return false
		}
	}
	return true
}

func (r *RestoreResult) Successes() int {
	count := 0
	for _, outcome := range r.Collections {
		if outcome.Succeeded {
			count++
		}
	}
	return count
}

func hostToken(host string) string {
	host = strings.TrimSpace(host)
	if host == "" {
		host = "localhost"
	}
	host = strings.ReplaceAll(host, ".", "_")
	return strings.ReplaceAll(host, ":", "_")
}
