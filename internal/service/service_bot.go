package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"quiz-tournament/internal/models"
	"quiz-tournament/internal/timing"
)

// TeamService интерфейс сервиса для команд (HTTP и Telegram)
type TeamService interface {
	Authenticate(ctx context.Context, name, password string, tournamentID *uuid.UUID) (*models.Team, error)
	GetTeam(ctx context.Context, teamID uuid.UUID) (*models.Team, error)
	LinkTelegram(ctx context.Context, teamID uuid.UUID, chatID int64) error
	UnlinkTelegram(ctx context.Context, chatID int64) error
	TeamByChat(ctx context.Context, chatID int64) (*models.Team, error)

	ListTournaments(ctx context.Context) ([]TournamentSummary, error)
	Tournament(ctx context.Context, teamID, tournamentID uuid.UUID) (*TournamentView, error)
	Block(ctx context.Context, teamID, blockID uuid.UUID) (*BlockView, error)
	Task(ctx context.Context, teamID, taskID uuid.UUID) (*TaskView, error)

	SubmitAnswer(ctx context.Context, teamID, taskID uuid.UUID, sub Submission) (*SubmitResult, error)
	StartBlock(ctx context.Context, teamID, blockID uuid.UUID) (*StartResult, error)
}

// TeamServiceImpl имплементация TeamService
type TeamServiceImpl struct {
	store  Store
	cache  DashboardCache
	engine *timing.Engine
}

// NewTeamService создает сервис для команд. cache может быть nil.
func NewTeamService(store Store, cache DashboardCache, clock clockwork.Clock) *TeamServiceImpl {
	if cache == nil {
		cache = noCache{}
	}
	return &TeamServiceImpl{
		store:  store,
		cache:  cache,
		engine: timing.NewEngine(clock),
	}
}

// GenerateTemporaryPassword генерирует временный пароль для команды
func GenerateTemporaryPassword() (string, error) {
	b := make([]byte, 8)
	_, err := rand.Read(b)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b)[:10], nil
}

// Authenticate проверяет название команды и пароль.
// Названия уникальны только внутри турнира, поэтому без tournamentID
// подходящая команда ищется по паролю среди одноимённых.
func (s *TeamServiceImpl) Authenticate(ctx context.Context, name, password string, tournamentID *uuid.UUID) (*models.Team, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, badRequest("team name required")
	}
	if password == "" {
		return nil, badRequest("password required")
	}

	teams, err := s.store.FindTeamsByName(ctx, name, tournamentID)
	if err != nil {
		return nil, err
	}

	var matched []models.Team
	for _, t := range teams {
		if t.CheckPassword(password) {
			matched = append(matched, t)
		}
	}
	switch len(matched) {
	case 0:
		return nil, ErrUnauthorized
	case 1:
		return &matched[0], nil
	default:
		return nil, badRequest("several teams match, tournament_id required")
	}
}

func (s *TeamServiceImpl) GetTeam(ctx context.Context, teamID uuid.UUID) (*models.Team, error) {
	team, err := s.store.GetTeam(ctx, teamID)
	if err != nil {
		return nil, lookupErr(err, "team")
	}
	return team, nil
}

// LinkTelegram связывает чат с командой. Прежняя привязка чата снимается.
func (s *TeamServiceImpl) LinkTelegram(ctx context.Context, teamID uuid.UUID, chatID int64) error {
	if err := s.store.LinkTelegram(ctx, teamID, chatID); err != nil {
		return lookupErr(err, "team")
	}
	log.Info().Str("team_id", teamID.String()).Int64("chat_id", chatID).Msg("telegram chat linked")
	return nil
}

func (s *TeamServiceImpl) UnlinkTelegram(ctx context.Context, chatID int64) error {
	return s.store.UnlinkTelegram(ctx, chatID)
}

func (s *TeamServiceImpl) TeamByChat(ctx context.Context, chatID int64) (*models.Team, error) {
	team, err := s.store.FindTeamByChat(ctx, chatID)
	if err != nil {
		return nil, lookupErr(err, "team for chat")
	}
	return team, nil
}

// teamAndBlock loads both and checks the block belongs to the team's tournament.
func (s *TeamServiceImpl) teamAndBlock(ctx context.Context, teamID, blockID uuid.UUID) (*models.Team, *models.Block, error) {
	team, err := s.GetTeam(ctx, teamID)
	if err != nil {
		return nil, nil, err
	}
	block, err := s.store.GetBlock(ctx, blockID)
	if err != nil {
		return nil, nil, lookupErr(err, "block")
	}
	if block.TournamentID != team.TournamentID {
		return nil, nil, ErrForbidden
	}
	return team, block, nil
}

// ensureStarted records the team's tournament start on first access.
func (s *TeamServiceImpl) ensureStarted(ctx context.Context, team *models.Team) error {
	if team.StartedAt != nil {
		return nil
	}
	now := s.engine.Now()
	if err := s.store.MarkTeamStarted(ctx, team.ID, now); err != nil {
		return err
	}
	// a concurrent request may have won; reread to get the stored value
	fresh, err := s.store.GetTeam(ctx, team.ID)
	if err != nil {
		return lookupErr(err, "team")
	}
	team.StartedAt = fresh.StartedAt
	return nil
}

// progress loads the tournament content plus the team's starts and answers
// and arranges them for the timing engine.
func (s *TeamServiceImpl) progress(ctx context.Context, team *models.Team, tournamentID uuid.UUID) (*models.Tournament, []timing.BlockProgress, error) {
	tournament, err := s.store.GetTournament(ctx, tournamentID)
	if err != nil {
		return nil, nil, lookupErr(err, "tournament")
	}
	starts, err := s.store.ListBlockStarts(ctx, team.ID)
	if err != nil {
		return nil, nil, err
	}
	answers, err := s.store.ListTeamAnswers(ctx, team.ID)
	if err != nil {
		return nil, nil, err
	}
	return tournament, timing.ForTournament(*team, tournament.Blocks, starts, answers), nil
}

var errNoBlock = errors.New("block missing from its tournament")
