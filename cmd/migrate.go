package cmd

import (
	"fmt"
	"slices"
	"sync"

	"github.com/spf13/cobra"
	"gorm.io/gorm/schema"

	"github.com/killallgit/sermon-clips/internal/database"
	"github.com/killallgit/sermon-clips/pkg/config"
)

// migrateCmd represents the migrate command
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database migrations",
	Long: `Manage the Sermon Clips database schema.

The schema is kept in step with the models by GORM AutoMigrate.

Available subcommands:
  up      - Create or update every table
  status  - Show which tables exist`,
}

// migrateUpCmd applies pending migrations
var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Create or update every table",
	RunE:  runMigrateUp,
}

// migrateStatusCmd shows migration status
var migrateStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show migration status",
	RunE:  runMigrateStatus,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.AddCommand(migrateUpCmd)
	migrateCmd.AddCommand(migrateStatusCmd)

	migrateCmd.PersistentFlags().Bool("dry-run", false, "show what would be done without making changes")
}

func openConfiguredDB() (*database.DB, error) {
	cfg, err := config.GetConfig()
	if err != nil {
		return nil, err
	}
	return database.Initialize(cfg.Database.Path, cfg.Database.Verbose)
}

func runMigrateUp(cmd *cobra.Command, args []string) error {
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	out := cmd.OutOrStdout()

	if dryRun {
		fmt.Fprintln(out, "Dry run mode - no changes will be made")
		for _, name := range modelTables() {
			fmt.Fprintf(out, "  would migrate %s\n", name)
		}
		return nil
	}

	db, err := openConfiguredDB()
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.AutoMigrate(); err != nil {
		return err
	}
	fmt.Fprintf(out, "Migrated %d tables\n", len(database.Models()))
	return nil
}

func runMigrateStatus(cmd *cobra.Command, args []string) error {
	db, err := openConfiguredDB()
	if err != nil {
		return err
	}
	defer db.Close()

	present, err := db.Tables()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	pending := 0
	for _, name := range modelTables() {
		state := "ok"
		if !slices.Contains(present, name) {
			state = "missing"
			pending++
		}
		fmt.Fprintf(out, "  %-24s %s\n", name, state)
	}
	if pending > 0 {
		fmt.Fprintf(out, "%d table(s) missing; run 'sermon-clips migrate up'\n", pending)
	} else {
		fmt.Fprintln(out, "Schema is up to date")
	}
	return nil
}

// modelTables returns the table name of every migrated model
func modelTables() []string {
	cache := &sync.Map{}
	names := make([]string, 0, len(database.Models()))
	for _, m := range database.Models() {
		s, err := schema.Parse(m, cache, schema.NamingStrategy{})
		if err != nil {
			names = append(names, fmt.Sprintf("%T", m))
			continue
		}
		names = append(names, s.Table)
	}
	return names
}
