package db

import (
	"fmt"

	"gorm.io/gorm"

	types "github.com/yungbote/draftbridge-backend/internal/domain"
)

func AutoMigrateAll(db *gorm.DB) error {
	if err := db.AutoMigrate(types.Models()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return EnsurePipelineIndexes(db)
}

// EnsurePipelineIndexes adds the composite indexes the barrier and
// retrieval queries lean on. Both dialects accept IF NOT EXISTS.
func EnsurePipelineIndexes(db *gorm.DB) error {
	stmts := []string{
		`CREATE INDEX IF NOT EXISTS idx_material_assignment_status ON material (assignment_id, status)`,
		`CREATE INDEX IF NOT EXISTS idx_assignment_course_status ON assignment (course_id, status)`,
		`CREATE INDEX IF NOT EXISTS idx_draft_chunk_rank ON draft_chunk (draft_id, rank)`,
		`CREATE INDEX IF NOT EXISTS idx_job_run_runnable ON job_run (status, created_at)`,
	}
	for _, stmt := range stmts {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("ensure index: %w", err)
		}
	}
	return nil
}

func (s *PostgresService) AutoMigrateAll() error {
	s.log.Info("auto migrating")
	if err := AutoMigrateAll(s.db); err != nil {
		return err
	}
	s.log.Info("auto migrate complete")
	return nil
}
