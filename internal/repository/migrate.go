package repository

import (
	"gorm.io/gorm"

	"quiz-tournament/internal/models"
)

// Answers need two partial indexes: Postgres treats NULL example ids as
// distinct, so a plain unique index would let whole-task answers repeat.
var answerIndexes = []string{
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_answer_example ON answers (team_id, task_id, example_id) WHERE example_id IS NOT NULL`,
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_answer_whole ON answers (team_id, task_id) WHERE example_id IS NULL`,
}

// Migrate creates the schema.
func Migrate(db *gorm.DB) error {
	if err := db.Exec(`CREATE EXTENSION IF NOT EXISTS "uuid-ossp"`).Error; err != nil {
		return err
	}
	if err := db.AutoMigrate(
		&models.Tournament{},
		&models.Block{},
		&models.Task{},
		&models.TaskExample{},
		&models.Team{},
		&models.Answer{},
		&models.BlockStart{},
	); err != nil {
		return err
	}
	for _, stmt := range answerIndexes {
		if err := db.Exec(stmt).Error; err != nil {
			return err
		}
	}
	return nil
}
