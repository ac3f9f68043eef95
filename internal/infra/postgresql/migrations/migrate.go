package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"github.com/kursadbilgin/push-relay/internal/repository"
	"gorm.io/gorm"
)

func Migrate(db *gorm.DB) error {
	m := gormigrate.New(db, gormigrate.DefaultOptions, []*gormigrate.Migration{
		createNotificationJobsTable(),
		createPushEndpointsTable(),
	})

	return m.Migrate()
}

func createNotificationJobsTable() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000001_create_notification_jobs",
		Migrate: func(tx *gorm.DB) error {
			if err := tx.AutoMigrate(&repository.JobModel{}); err != nil {
				return err
			}
			// Partial index serving the dispatcher's pending-batch query.
			indexes := []string{
				`CREATE INDEX IF NOT EXISTS idx_jobs_pending ON notification_jobs (created_at) WHERE status = 'PENDING' AND attempt_count < 10`,
				`CREATE INDEX IF NOT EXISTS idx_jobs_user_id ON notification_jobs (user_id)`,
			}
			for _, sql := range indexes {
				if err := tx.Exec(sql).Error; err != nil {
					return err
				}
			}
			return nil
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Migrator().DropTable(&repository.JobModel{})
		},
	}
}

func createPushEndpointsTable() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000002_create_push_endpoints",
		Migrate: func(tx *gorm.DB) error {
			if err := tx.AutoMigrate(&repository.EndpointModel{}); err != nil {
				return err
			}
			return tx.Exec(`CREATE INDEX IF NOT EXISTS idx_push_endpoints_user_id ON push_endpoints (user_id)`).Error
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Migrator().DropTable(&repository.EndpointModel{})
		},
	}
}
