// Package app wires the CLI commands to the gateway and the transfer
// engines. Engine runs execute on their own goroutine; progress events
// are marshaled back through an ordered channel and rendered on the
// calling goroutine.
package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/DipoleDigital/MongoDBBackup/internal/config"
	"github.com/DipoleDigital/MongoDBBackup/internal/engine"
	"github.com/DipoleDigital/MongoDBBackup/internal/gateway"
	"github.com/DipoleDigital/MongoDBBackup/pkg/interactive"
	"github.com/DipoleDigital/MongoDBBackup/pkg/logger"
	"github.com/DipoleDigital/MongoDBBackup/pkg/progress"
)

const logFileName = "mongodb_backup.log"

type Service struct{}

func NewService() *Service {
	return &Service{}
}

// BackupParams carries CLI input for one backup run.
type BackupParams struct {
	Collections []string
	OutputDir   string
	Interactive bool
	Verbose     bool
}

// RestoreParams carries CLI input for one restore run.
type RestoreParams struct {
	BackupRoot   string
	Collections  []string
	DropExisting bool
	Force        bool
	Interactive  bool
	Verbose      bool
}

func (s *Service) Backup(cfg *config.Config, params BackupParams) error {
	log := newRunLogger(params.Verbose)
	defer log.Close()

	ctx := context.Background()

	session, err := gateway.Connect(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	defer session.Close(ctx)

	infos, err := session.ListCollections(ctx)
	if err != nil {
		return fmt.Errorf("failed to list collections: %w", err)
	}
	if len(infos) == 0 {
		return fmt.Errorf("no collections found in database %s", session.Database())
	}

	names, err := resolveBackupSelection(infos, params, log)
	if err != nil {
		return err
	}

	outputDir := params.OutputDir
	if outputDir == "" {
		outputDir = cfg.Backup.OutputDir
	}

	log.Infof("starting backup of %d collections from %s", len(names), cfg.ServerLabel())

	channel := engine.NewChannelReporter(128)
	type outcome struct {
		summary *engine.BackupSummary
		err     error
	}
	done := make(chan outcome, 1)

	go func() {
		summary, err := engine.Backup(ctx, session, engine.BackupOptions{
			Database:    session.Database(),
			Host:        cfg.Database.Host,
			Port:        cfg.Database.Port,
			Collections: names,
			OutputRoot:  outputDir,
			Reporter:    channel,
			Logger:      log,
		})
		channel.Close()
		done <- outcome{summary: summary, err: err}
	}()

	render := progress.NewReporter(len(names), "Backing up collections", engine.NopReporter{})
	for event := range channel.Events() {
		render.Publish(event)
	}

	result := <-done
	if result.summary != nil {
		fmt.Println()
		fmt.Printf("Backup saved to: %s\n", result.summary.OutputDirectory)
		fmt.Printf("Collections backed up: %d/%d\n",
			result.summary.CollectionsBackedUp, result.summary.TotalCollections)
	}

	return result.err
}

func (s *Service) Restore(cfg *config.Config, params RestoreParams) error {
	log := newRunLogger(params.Verbose)
	defer log.Close()

	ctx := context.Background()

	names := params.Collections
	discovered, err := engine.DiscoverCollections(params.BackupRoot)
	if err != nil {
		return err
	}
	if len(discovered) == 0 {
		return fmt.Errorf("no backup collections found in %s", params.BackupRoot)
	}

	dropExisting := params.DropExisting
	if params.Interactive {
		selector := interactive.NewCollectionSelector(os.Stdin, os.Stdout)
		if len(names) == 0 {
			names, err = selector.SelectFromNames(discovered)
			if err != nil {
				return err
			}
		}
		if !dropExisting && !params.Force {
			dropExisting = selector.ConfirmDrop()
		}
	}
	if len(names) == 0 {
		names = discovered
	}

	session, err := gateway.Connect(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	defer session.Close(ctx)

	log.Infof("starting restore of %d collections into %s", len(names), session.Database())

	channel := engine.NewChannelReporter(128)
	type outcome struct {
		result *engine.RestoreResult
		err    error
	}
	done := make(chan outcome, 1)

	go func() {
		result, err := engine.Restore(ctx, session, engine.RestoreOptions{
			BackupRoot:   params.BackupRoot,
			Collections:  names,
			DropExisting: dropExisting,
			BatchSize:    cfg.Backup.BatchSize,
			Reporter:     channel,
			Logger:       log,
		})
		channel.Close()
		done <- outcome{result: result, err: err}
	}()

	render := progress.NewReporter(len(names), "Restoring collections", engine.NopReporter{})
	for event := range channel.Events() {
		render.Publish(event)
	}

	result := <-done
	if result.result != nil {
		printRestoreResult(result.result)
	}

	return result.err
}

func (s *Service) ListCollections(cfg *config.Config) error {
	log := logger.NewLogger(false)

	ctx := context.Background()

	session, err := gateway.Connect(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	defer session.Close(ctx)

	infos, err := session.ListCollections(ctx)
	if err != nil {
		return fmt.Errorf("failed to list collections: %w", err)
	}

	fmt.Printf("\nCollections in %s on %s:\n", session.Database(), cfg.ServerLabel())
	fmt.Println(strings.Repeat("=", 60))
	for i, info := range infos {
		count := "n/a"
		if info.Count >= 0 {
			count = strconv.FormatInt(info.Count, 10)
		}
		fmt.Printf("%d. %s (%s documents)\n", i+1, info.Name, count)
	}
	fmt.Printf("\nTotal collections: %d\n", len(infos))
	return nil
}

func resolveBackupSelection(infos []gateway.CollectionInfo, params BackupParams, log *logger.Logger) ([]string, error) {
	if params.Interactive {
		selector := interactive.NewCollectionSelector(os.Stdin, os.Stdout)
		return selector.SelectFromInfos(infos)
	}

	if len(params.Collections) == 0 {
		names := make([]string, len(infos))
		for i, info := range infos {
			names[i] = info.Name
		}
		return names, nil
	}

	known := make(map[string]bool, len(infos))
	for _, info := range infos {
		known[info.Name] = true
	}

	var names []string
	for _, name := range params.Collections {
		if !known[name] {
			log.Warnf("collection %s does not exist in the source database, skipping", name)
			continue
		}
		names = append(names, name)
	}

	if len(names) == 0 {
		return nil, fmt.Errorf("none of the requested collections exist in the source database")
	}

	return names, nil
}

func printRestoreResult(result *engine.RestoreResult) {
	fmt.Println()
	for name, outcome := range result.Collections {
		if outcome.Succeeded {
			fmt.Printf("  ok    %s (%d documents", name, outcome.Inserted)
			if outcome.SkippedLines > 0 {
				fmt.Printf(", %d lines skipped", outcome.SkippedLines)
			}
			fmt.Println(")")
		} else {
			fmt.Printf("  FAIL  %s: %v\n", name, outcome.Err)
		}
	}
	fmt.Printf("\nRestore completed: %d/%d collections restored successfully\n",
		result.Successes(), len(result.Collections))
}

func newRunLogger(verbose bool) *logger.Logger {
	log := logger.NewLogger(verbose)
	if err := log.TeeToFile(logFileName); err != nil {
		log.Warnf("log file unavailable: %v", err)
	}
	return log
}

// IsRunIncomplete tells the CLI whether an engine error is a partial
// failure (run record exists, exit non-zero) rather than a hard abort.
func IsRunIncomplete(err error) bool {
	var incomplete *engine.RunIncompleteError
	return errors.As(err, &incomplete)
}
