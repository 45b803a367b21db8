package database

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/killallgit/sermon-clips/internal/models"
)

func TestInitialize(t *testing.T) {
	tests := []struct {
		name   string
		dbPath string
	}{
		{name: "in-memory database", dbPath: ":memory:"},
		{name: "empty path is in-memory", dbPath: ""},
		{name: "file database in nested directory", dbPath: filepath.Join(t.TempDir(), "nested", "test.db")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conn, err := Initialize(tt.dbPath, false)
			require.NoError(t, err)
			defer conn.Close()

			assert.NoError(t, conn.HealthCheck())
		})
	}
}

func TestHealthCheckNil(t *testing.T) {
	var db *DB
	assert.Error(t, db.HealthCheck())
}

func TestAutoMigrateCreatesServiceTables(t *testing.T) {
	db, err := Initialize(":memory:", false)
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, db.AutoMigrate())

	tables, err := db.Tables()
	require.NoError(t, err)
	for _, name := range []string{"sermons", "transcript_segments", "segment_embeddings", "clips", "clip_feedback", "suggestion_runs", "jobs"} {
		assert.Contains(t, tables, name)
	}
}

func TestNewTestDBRoundTrip(t *testing.T) {
	db, err := NewTestDB()
	require.NoError(t, err)
	defer db.Close()

	sermon := models.Sermon{Title: "Grace", Status: models.SermonStatusTranscribed}
	require.NoError(t, db.Create(&sermon).Error)

	emb := models.SegmentEmbedding{SegmentID: 1, SermonID: sermon.ID, Model: "m", Vector: []float32{0.5, -1, 2}}
	require.NoError(t, db.Create(&emb).Error)

	var got models.SegmentEmbedding
	require.NoError(t, db.First(&got, emb.ID).Error)
	assert.Equal(t, []float32{0.5, -1, 2}, got.Vector)
}

func TestTransactionRollback(t *testing.T) {
	db, err := NewTestDB()
	require.NoError(t, err)
	defer db.Close()

	_ = db.Transaction(func(tx *gorm.DB) error {
		require.NoError(t, tx.Create(&models.Sermon{Title: "rolled back"}).Error)
		return assert.AnError
	})

	var count int64
	require.NoError(t, db.Model(&models.Sermon{}).Count(&count).Error)
	assert.Zero(t, count)
}
