package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"quiz-tournament/internal/models"
)

// Store is the persistence the services need. *repository.Repository implements it.
type Store interface {
	ListTournaments(ctx context.Context) ([]models.Tournament, error)
	GetTournament(ctx context.Context, id uuid.UUID) (*models.Tournament, error)
	GetBlock(ctx context.Context, id uuid.UUID) (*models.Block, error)
	GetTask(ctx context.Context, id uuid.UUID) (*models.Task, error)
	SetTaskImage(ctx context.Context, id uuid.UUID, url string) error
	SetBlockImage(ctx context.Context, id uuid.UUID, url string) error

	CreateTeam(ctx context.Context, team *models.Team) error
	GetTeam(ctx context.Context, id uuid.UUID) (*models.Team, error)
	FindTeamsByName(ctx context.Context, name string, tournamentID *uuid.UUID) ([]models.Team, error)
	ListTeams(ctx context.Context, tournamentID *uuid.UUID) ([]models.Team, error)
	MarkTeamStarted(ctx context.Context, teamID uuid.UUID, at time.Time) error
	LinkTelegram(ctx context.Context, teamID uuid.UUID, chatID int64) error
	UnlinkTelegram(ctx context.Context, chatID int64) error
	FindTeamByChat(ctx context.Context, chatID int64) (*models.Team, error)

	ListTeamAnswers(ctx context.Context, teamID uuid.UUID) ([]models.Answer, error)
	ListTournamentAnswers(ctx context.Context, tournamentID uuid.UUID) ([]models.Answer, error)
	UpsertAnswers(ctx context.Context, answers []models.Answer) error

	ListBlockStarts(ctx context.Context, teamID uuid.UUID) ([]models.BlockStart, error)
	StartBlock(ctx context.Context, teamID, blockID uuid.UUID, at time.Time) (models.BlockStart, bool, error)

	ResetTeam(ctx context.Context, teamID uuid.UUID) error
	DeleteAnswers(ctx context.Context, tournamentID *uuid.UUID) (int64, error)
	DeleteTeams(ctx context.Context) (int64, error)
}

// DashboardCache keeps rendered dashboards per tournament.
// A miss is reported as found=false with a nil error. Load returns the
// generation it read; Save for a generation older than the last Invalidate
// must never become visible.
type DashboardCache interface {
	Load(ctx context.Context, tournamentID uuid.UUID, view string, dst any) (gen int64, found bool, err error)
	Save(ctx context.Context, tournamentID uuid.UUID, gen int64, view string, v any) error
	Invalidate(ctx context.Context, tournamentID uuid.UUID) error
}

type noCache struct{}

func (noCache) Load(context.Context, uuid.UUID, string, any) (int64, bool, error) { return 0, false, nil }
func (noCache) Save(context.Context, uuid.UUID, int64, string, any) error         { return nil }
func (noCache) Invalidate(context.Context, uuid.UUID) error                       { return nil }
