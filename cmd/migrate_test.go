package cmd

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/killallgit/sermon-clips/internal/database"
)

func TestMigrateCommand(t *testing.T) {
	tests := []struct {
		name           string
		args           []string
		expectedOutput string
	}{
		{"migrate command with help", []string{"migrate", "--help"}, "Manage the Sermon Clips database schema"},
		{"migrate up subcommand", []string{"migrate", "up", "--help"}, "Create or update every table"},
		{"migrate status subcommand", []string{"migrate", "status", "--help"}, "Show migration status"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := NewRootCmd()
			buf := new(bytes.Buffer)
			cmd.SetOut(buf)
			cmd.SetErr(buf)
			cmd.SetArgs(tt.args)

			require.NoError(t, cmd.Execute())
			assert.Contains(t, buf.String(), tt.expectedOutput)
		})
	}
}

func TestMigrateCommandSubcommands(t *testing.T) {
	cmd := NewRootCmd()
	migrateCmd, _, err := cmd.Find([]string{"migrate"})
	require.NoError(t, err)

	var names []string
	for _, child := range migrateCmd.Commands() {
		names = append(names, child.Name())
	}
	assert.ElementsMatch(t, []string{"up", "status"}, names)
}

func TestModelTables(t *testing.T) {
	tables := modelTables()
	assert.Len(t, tables, len(database.Models()))
	assert.Contains(t, tables, "sermons")
	assert.Contains(t, tables, "transcript_segments")
	assert.Contains(t, tables, "jobs")

	// Every model table exists after migration
	db, err := database.NewTestDB()
	require.NoError(t, err)
	defer db.Close()
	present, err := db.Tables()
	require.NoError(t, err)
	assert.Subset(t, present, tables)
}
