package database

import (
	"fmt"
	"log"

	"gorm.io/gorm"
)

// AddIndexes adds the lookup indexes the workload queries rely on that are not
// declared on the models (postgres only).
func AddIndexes(db *gorm.DB) error {
	if db.Dialector.Name() != "postgres" {
		return nil
	}

	indexes := []struct {
		table   string
		name    string
		columns string
	}{
		// Active-task recount: organization + assignee + status
		{"tasks", "idx_tasks_org_assignee_status", "organization_id, assignee_id, status"},
		{"tasks", "idx_tasks_created_at", "created_at"},

		{"users", "idx_users_org_role", "organization_id, role"},

		{"task_comments", "idx_task_comments_task_created", "task_id, created_at"},

		{"invites", "idx_invites_org_created", "organization_id, created_at"},
	}

	for _, idx := range indexes {
		// Check if index already exists
		var count int64
		err := db.Raw(`
			SELECT COUNT(*)
			FROM pg_indexes
			WHERE tablename = ? AND indexname = ?
		`, idx.table, idx.name).Scan(&count).Error

		if err != nil {
			return fmt.Errorf("failed to check index %s: %w", idx.name, err)
		}

		if count > 0 {
			log.Printf("Index %s already exists, skipping", idx.name)
			continue
		}

		sql := fmt.Sprintf("CREATE INDEX %s ON %s (%s)", idx.name, idx.table, idx.columns)
		if err := db.Exec(sql).Error; err != nil {
			return fmt.Errorf("failed to create index %s: %w", idx.name, err)
		}

		log.Printf("Created index %s on %s(%s)", idx.name, idx.table, idx.columns)
	}

	return nil
}

// MigrateDatabase runs AutoMigrate followed by the extra indexes.
func MigrateDatabase(db *gorm.DB) error {
	if err := MigrateDB(db); err != nil {
		return err
	}

	if err := AddIndexes(db); err != nil {
		return fmt.Errorf("failed to add indexes: %w", err)
	}

	return nil
}
