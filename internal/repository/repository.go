package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"quiz-tournament/internal/models"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

var ErrNotFound = errors.New("record not found")

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

func bySortOrder(db *gorm.DB) *gorm.DB { return db.Order("sort_order") }

func byPosition(db *gorm.DB) *gorm.DB { return db.Order("position").Order("id") }

// withContent preloads blocks, tasks and examples in display order.
func withContent(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Blocks", bySortOrder).
		Preload("Blocks.Tasks", bySortOrder).
		Preload("Blocks.Tasks.Examples", byPosition)
}

func (r *Repository) ListTournaments(ctx context.Context) ([]models.Tournament, error) {
	var tournaments []models.Tournament
	err := r.db.WithContext(ctx).Order("name").Find(&tournaments).Error
	return tournaments, err
}

// GetTournament returns the tournament with its whole content loaded.
func (r *Repository) GetTournament(ctx context.Context, id uuid.UUID) (*models.Tournament, error) {
	var t models.Tournament
	err := withContent(r.db.WithContext(ctx)).First(&t, "id = ?", id).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &t, nil
}

func (r *Repository) CreateTournament(ctx context.Context, t *models.Tournament) error {
	return r.db.WithContext(ctx).Create(t).Error
}

func (r *Repository) GetBlock(ctx context.Context, id uuid.UUID) (*models.Block, error) {
	var b models.Block
	err := r.db.WithContext(ctx).
		Preload("Tasks", bySortOrder).
		Preload("Tasks.Examples", byPosition).
		First(&b, "id = ?", id).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &b, nil
}

func (r *Repository) GetTask(ctx context.Context, id uuid.UUID) (*models.Task, error) {
	var t models.Task
	err := r.db.WithContext(ctx).Preload("Examples", byPosition).First(&t, "id = ?", id).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &t, nil
}

func (r *Repository) SetTaskImage(ctx context.Context, id uuid.UUID, url string) error {
	res := r.db.WithContext(ctx).Model(&models.Task{}).Where("id = ?", id).Update("image_url", url)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repository) SetBlockImage(ctx context.Context, id uuid.UUID, url string) error {
	res := r.db.WithContext(ctx).Model(&models.Block{}).Where("id = ?", id).Update("image_url", url)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repository) CreateTeam(ctx context.Context, team *models.Team) error {
	return r.db.WithContext(ctx).Create(team).Error
}

func (r *Repository) GetTeam(ctx context.Context, id uuid.UUID) (*models.Team, error) {
	var team models.Team
	if err := r.db.WithContext(ctx).First(&team, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &team, nil
}

// FindTeamsByName may return several teams: names are unique per tournament only.
func (r *Repository) FindTeamsByName(ctx context.Context, name string, tournamentID *uuid.UUID) ([]models.Team, error) {
	q := r.db.WithContext(ctx).Where("name = ?", name)
	if tournamentID != nil {
		q = q.Where("tournament_id = ?", *tournamentID)
	}
	var teams []models.Team
	err := q.Find(&teams).Error
	return teams, err
}

func (r *Repository) ListTeams(ctx context.Context, tournamentID *uuid.UUID) ([]models.Team, error) {
	q := r.db.WithContext(ctx).Order("name").Order("id")
	if tournamentID != nil {
		q = q.Where("tournament_id = ?", *tournamentID)
	}
	var teams []models.Team
	err := q.Find(&teams).Error
	return teams, err
}

// MarkTeamStarted sets started_at only if it is still empty.
func (r *Repository) MarkTeamStarted(ctx context.Context, teamID uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.Team{}).
		Where("id = ? AND started_at IS NULL", teamID).
		Update("started_at", at).Error
}

func (r *Repository) ListTeamAnswers(ctx context.Context, teamID uuid.UUID) ([]models.Answer, error) {
	var answers []models.Answer
	err := r.db.WithContext(ctx).Where("team_id = ?", teamID).Find(&answers).Error
	return answers, err
}

func (r *Repository) ListTournamentAnswers(ctx context.Context, tournamentID uuid.UUID) ([]models.Answer, error) {
	var answers []models.Answer
	err := r.db.WithContext(ctx).
		Select("answers.*").
		Joins("JOIN tasks ON tasks.id = answers.task_id").
		Joins("JOIN blocks ON blocks.id = tasks.block_id").
		Where("blocks.tournament_id = ?", tournamentID).
		Find(&answers).Error
	return answers, err
}

var answerUpdates = clause.AssignmentColumns([]string{"answer_text", "is_correct", "points", "submitted_at"})

// Each conflict target must match one of the partial indexes from Migrate.
var (
	wholeAnswerConflict = clause.OnConflict{
		Columns:     []clause.Column{{Name: "team_id"}, {Name: "task_id"}},
		TargetWhere: clause.Where{Exprs: []clause.Expression{clause.Expr{SQL: "example_id IS NULL"}}},
		DoUpdates:   answerUpdates,
	}
	exampleAnswerConflict = clause.OnConflict{
		Columns:     []clause.Column{{Name: "team_id"}, {Name: "task_id"}, {Name: "example_id"}},
		TargetWhere: clause.Where{Exprs: []clause.Expression{clause.Expr{SQL: "example_id IS NOT NULL"}}},
		DoUpdates:   answerUpdates,
	}
	blockStartConflict = clause.OnConflict{
		Columns:   []clause.Column{{Name: "team_id"}, {Name: "block_id"}},
		DoNothing: true,
	}
)

func upsertWholeAnswers(tx *gorm.DB, rows []models.Answer) *gorm.DB {
	return tx.Clauses(wholeAnswerConflict).Create(&rows)
}

func upsertExampleAnswers(tx *gorm.DB, rows []models.Answer) *gorm.DB {
	return tx.Clauses(exampleAnswerConflict).Create(&rows)
}

func insertBlockStart(tx *gorm.DB, row *models.BlockStart) *gorm.DB {
	return tx.Clauses(blockStartConflict).Create(row)
}

// UpsertAnswers writes all rows in one transaction. A row for the same
// (team, task, example) is overwritten, never duplicated.
func (r *Repository) UpsertAnswers(ctx context.Context, answers []models.Answer) error {
	if len(answers) == 0 {
		return nil
	}
	var whole, perExample []models.Answer
	for _, a := range answers {
		if a.ExampleID == nil {
			whole = append(whole, a)
		} else {
			perExample = append(perExample, a)
		}
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(whole) > 0 {
			if err := upsertWholeAnswers(tx, whole).Error; err != nil {
				return err
			}
		}
		if len(perExample) > 0 {
			if err := upsertExampleAnswers(tx, perExample).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *Repository) ListBlockStarts(ctx context.Context, teamID uuid.UUID) ([]models.BlockStart, error) {
	var starts []models.BlockStart
	err := r.db.WithContext(ctx).Where("team_id = ?", teamID).Find(&starts).Error
	return starts, err
}

// StartBlock inserts the start row unless one exists and returns the stored row.
// created is false when the block had already been started.
func (r *Repository) StartBlock(ctx context.Context, teamID, blockID uuid.UUID, at time.Time) (models.BlockStart, bool, error) {
	db := r.db.WithContext(ctx)
	row := models.BlockStart{TeamID: teamID, BlockID: blockID, StartedAt: at}
	res := insertBlockStart(db, &row)
	if res.Error != nil {
		return models.BlockStart{}, false, res.Error
	}

	var stored models.BlockStart
	err := db.Where("team_id = ? AND block_id = ?", teamID, blockID).First(&stored).Error
	if err != nil {
		return models.BlockStart{}, false, notFound(err)
	}
	return stored, res.RowsAffected == 1, nil
}

// ResetTeam removes the team's answers and block starts. The team itself stays.
func (r *Repository) ResetTeam(ctx context.Context, teamID uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("team_id = ?", teamID).Delete(&models.Answer{}).Error; err != nil {
			return err
		}
		return tx.Where("team_id = ?", teamID).Delete(&models.BlockStart{}).Error
	})
}

// DeleteAnswers removes every answer, or only those of one tournament.
func (r *Repository) DeleteAnswers(ctx context.Context, tournamentID *uuid.UUID) (int64, error) {
	q := r.db.WithContext(ctx)
	if tournamentID != nil {
		q = q.Where("task_id IN (?)",
			r.db.Model(&models.Task{}).Select("tasks.id").
				Joins("JOIN blocks ON blocks.id = tasks.block_id").
				Where("blocks.tournament_id = ?", *tournamentID))
	} else {
		q = q.Where("1 = 1")
	}
	res := q.Delete(&models.Answer{})
	return res.RowsAffected, res.Error
}

// DeleteTeams removes all teams; their answers and block starts go with them
// through the foreign keys.
func (r *Repository) DeleteTeams(ctx context.Context) (int64, error) {
	res := r.db.WithContext(ctx).Where("1 = 1").Delete(&models.Team{})
	return res.RowsAffected, res.Error
}
