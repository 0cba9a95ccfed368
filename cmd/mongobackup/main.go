package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/DipoleDigital/MongoDBBackup/internal/app"
	"github.com/DipoleDigital/MongoDBBackup/internal/config"
	"github.com/DipoleDigital/MongoDBBackup/internal/profiles"
)

var rootCmd = &cobra.Command{
	Use:   "mongobackup",
	Short: "Type-preserving MongoDB collection backup and restore",
	Long: `Exports MongoDB collections to a line-delimited Extended JSON backup
directory and restores such backups into a (possibly different) server,
preserving ObjectIds, dates, numeric subtypes and binary values.`,
}

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Back up collections to an Extended JSON directory",
	RunE:  runBackup,
}

var restoreCmd = &cobra.Command{
	Use:   "restore",
	Short: "Restore collections from a backup directory",
	RunE:  runRestore,
}

var listCmd = &cobra.Command{
	Use:   "list-collections",
	Short: "List collections and document counts",
	RunE:  runListCollections,
}

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Manage saved connection profiles",
}

var profileSaveCmd = &cobra.Command{
	Use:   "save [name]",
	Short: "Save the connection flags as a named profile",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runProfileSave,
}

var profileListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved profiles",
	RunE:  runProfileList,
}

var profileDeleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Delete a saved profile",
	Args:  cobra.ExactArgs(1),
	RunE:  runProfileDelete,
}

var workflowService = app.NewService()

var (
	configPath   string
	profileName  string
	profileDir   string
	host         string
	port         int
	database     string
	username     string
	password     string
	authDatabase string
	verbose      bool

	backupCollections []string
	outputDir         string
	backupInteractive bool

	backupRoot         string
	restoreCollections []string
	dropExisting       bool
	force              bool
	restoreInteractive bool
)

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configPath, "config", "", "Path to a YAML configuration file")
	flags.StringVar(&profileName, "profile", "", "Name of a saved connection profile")
	flags.StringVar(&profileDir, "profile-dir", "", "Directory holding saved profiles")
	flags.StringVar(&host, "host", "", "MongoDB host")
	flags.IntVar(&port, "port", 0, "MongoDB port (default 27017)")
	flags.StringVarP(&database, "database", "d", "", "Database name")
	flags.StringVarP(&username, "username", "u", "", "MongoDB username")
	flags.StringVarP(&password, "password", "p", "", "MongoDB password")
	flags.StringVar(&authDatabase, "auth-database", "", "Authentication database")
	flags.BoolVar(&verbose, "verbose", false, "Enable verbose logging")

	backupCmd.Flags().StringSliceVar(&backupCollections, "collections", nil, "Collections to back up (default: all)")
	backupCmd.Flags().StringVarP(&outputDir, "output", "o", "", "Backup output directory (default ./backups)")
	backupCmd.Flags().BoolVar(&backupInteractive, "interactive", false, "Select collections interactively")

	restoreCmd.Flags().StringVar(&backupRoot, "backup-dir", "", "Backup directory to restore from")
	restoreCmd.Flags().StringSliceVar(&restoreCollections, "collections", nil, "Collections to restore (default: all discovered)")
	restoreCmd.Flags().BoolVar(&dropExisting, "drop", false, "Drop destination collections before restoring")
	restoreCmd.Flags().BoolVar(&force, "force", false, "Skip confirmation prompts")
	restoreCmd.Flags().BoolVar(&restoreInteractive, "interactive", false, "Select collections interactively")
	restoreCmd.MarkFlagRequired("backup-dir")

	profileCmd.AddCommand(profileSaveCmd)
	profileCmd.AddCommand(profileListCmd)
	profileCmd.AddCommand(profileDeleteCmd)

	rootCmd.AddCommand(backupCmd)
	rootCmd.AddCommand(restoreCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(profileCmd)

	cobra.OnInitialize(func() {
		rootCmd.SilenceUsage = true
		rootCmd.SilenceErrors = true
	})
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

// buildConfig resolves the effective config: file or profile first, then
// connection flags layered on top.
func buildConfig() (*config.Config, error) {
	var cfg *config.Config

	switch {
	case configPath != "":
		loaded, err := config.LoadConfig(configPath)
		if err != nil {
			return nil, fmt.Errorf("cannot load config: %w", err)
		}
		cfg = loaded
	case profileName != "":
		manager := profiles.NewManager(profileDir)
		loaded, err := manager.Load(profileName)
		if err != nil {
			return nil, fmt.Errorf("cannot load profile: %w", err)
		}
		cfg = loaded
	default:
		cfg = &config.Config{}
	}

	if host != "" {
		cfg.Database.Host = host
	}
	if port != 0 {
		cfg.Database.Port = port
	}
	if database != "" {
		cfg.Database.Database = database
	}
	if username != "" {
		cfg.Database.Username = username
	}
	if password != "" {
		cfg.Database.Password = password
	}
	if authDatabase != "" {
		cfg.Database.AuthDatabase = authDatabase
	}

	cfg.ApplyDefaults()

	if cfg.Database.Database == "" {
		return nil, fmt.Errorf("database name is required (use --database or a config file)")
	}

	return cfg, nil
}

func runBackup(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig()
	if err != nil {
		return err
	}

	err = workflowService.Backup(cfg, app.BackupParams{
		Collections: backupCollections,
		OutputDir:   outputDir,
		Interactive: backupInteractive,
		Verbose:     verbose,
	})
	if app.IsRunIncomplete(err) {
		fmt.Println(err)
		os.Exit(2)
	}
	return err
}

func runRestore(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig()
	if err != nil {
		return err
	}

	err = workflowService.Restore(cfg, app.RestoreParams{
		BackupRoot:   backupRoot,
		Collections:  restoreCollections,
		DropExisting: dropExisting,
		Force:        force,
		Interactive:  restoreInteractive,
		Verbose:      verbose,
	})
	if app.IsRunIncomplete(err) {
		fmt.Println(err)
		os.Exit(2)
	}
	return err
}

func runListCollections(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig()
	if err != nil {
		return err
	}
	return workflowService.ListCollections(cfg)
}

func runProfileSave(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig()
	if err != nil {
		return err
	}

	alias := ""
	if len(args) > 0 {
		alias = args[0]
	}

	manager := profiles.NewManager(profileDir)
	profile, err := manager.Save(alias, cfg)
	if err != nil {
		return fmt.Errorf("failed to save profile: %w", err)
	}

	fmt.Printf("Saved profile %s (%s)\n", profile.Name, profile.Path)
	return nil
}

func runProfileList(cmd *cobra.Command, args []string) error {
	manager := profiles.NewManager(profileDir)
	list, err := manager.List()
	if err != nil {
		return fmt.Errorf("failed to list profiles: %w", err)
	}

	if len(list) == 0 {
		fmt.Printf("No profiles found in %s\n", manager.Directory())
		return nil
	}

	for _, profile := range list {
		fmt.Printf("%-24s %-30s %s\n", profile.Name, profile.Host, profile.Database)
	}
	return nil
}

func runProfileDelete(cmd *cobra.Command, args []string) error {
	manager := profiles.NewManager(profileDir)
	if err := manager.Delete(args[0]); err != nil {
		return err
	}
	fmt.Printf("Deleted profile %s\n", args[0])
	return nil
}
