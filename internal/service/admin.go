package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"

	"quiz-tournament/internal/models"
)

type AdminService interface {
	CheckCredentials(username, password string) error
	CreateTeam(ctx context.Context, in NewTeam) (*CreatedTeam, error)
	ListTeams(ctx context.Context, tournamentID *uuid.UUID) ([]models.Team, error)
	ResetTeam(ctx context.Context, teamID uuid.UUID) error
	DeleteAnswers(ctx context.Context, tournamentID *uuid.UUID) (int64, error)
	DeleteTeams(ctx context.Context) (int64, error)
	SetTaskImage(ctx context.Context, taskID uuid.UUID, url string) error
	SetBlockImage(ctx context.Context, blockID uuid.UUID, url string) error
}

type AdminServiceImpl struct {
	store        Store
	cache        DashboardCache
	user         string
	passwordHash []byte
}

// NewAdminService takes the admin password as a bcrypt hash.
func NewAdminService(store Store, cache DashboardCache, user, passwordHash string) *AdminServiceImpl {
	if cache == nil {
		cache = noCache{}
	}
	return &AdminServiceImpl{store: store, cache: cache, user: user, passwordHash: []byte(passwordHash)}
}

func (s *AdminServiceImpl) CheckCredentials(username, password string) error {
	if s.user == "" || len(s.passwordHash) == 0 || username != s.user {
		return ErrUnauthorized
	}
	if bcrypt.CompareHashAndPassword(s.passwordHash, []byte(password)) != nil {
		return ErrUnauthorized
	}
	return nil
}

type NewTeam struct {
	Name         string
	Password     string
	TournamentID uuid.UUID
	Member1      string
	Member2      string
	Member3      string
}

// CreatedTeam carries the generated password when none was given.
type CreatedTeam struct {
	Team     *models.Team
	Password string
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func (s *AdminServiceImpl) CreateTeam(ctx context.Context, in NewTeam) (*CreatedTeam, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, badRequest("name required")
	}
	if in.TournamentID == uuid.Nil {
		return nil, badRequest("tournament_id required")
	}
	if _, err := s.store.GetTournament(ctx, in.TournamentID); err != nil {
		return nil, lookupErr(err, "tournament")
	}

	tid := in.TournamentID
	existing, err := s.store.FindTeamsByName(ctx, name, &tid)
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		return nil, fmt.Errorf("%w: team %q already registered for this tournament", ErrConflict, name)
	}

	out := &CreatedTeam{}
	password := in.Password
	if password == "" {
		if password, err = GenerateTemporaryPassword(); err != nil {
			return nil, err
		}
		out.Password = password
	}

	member1 := strings.TrimSpace(in.Member1)
	if member1 == "" {
		member1 = name
	}
	team := &models.Team{
		Name:         name,
		TempPassword: password,
		Member1:      member1,
		Member2:      optional(in.Member2),
		Member3:      optional(in.Member3),
		TournamentID: in.TournamentID,
	}
	if err := s.store.CreateTeam(ctx, team); err != nil {
		return nil, err
	}
	log.Info().Str("team_id", team.ID.String()).Str("tournament_id", tid.String()).Msg("team created")

	s.invalidate(ctx, tid)
	out.Team = team
	return out, nil
}

func (s *AdminServiceImpl) ListTeams(ctx context.Context, tournamentID *uuid.UUID) ([]models.Team, error) {
	return s.store.ListTeams(ctx, tournamentID)
}

// ResetTeam drops the team's answers and block starts.
func (s *AdminServiceImpl) ResetTeam(ctx context.Context, teamID uuid.UUID) error {
	team, err := s.store.GetTeam(ctx, teamID)
	if err != nil {
		return lookupErr(err, "team")
	}
	if err := s.store.ResetTeam(ctx, teamID); err != nil {
		return err
	}
	log.Info().Str("team_id", teamID.String()).Msg("team reset")
	s.invalidate(ctx, team.TournamentID)
	return nil
}

func (s *AdminServiceImpl) DeleteAnswers(ctx context.Context, tournamentID *uuid.UUID) (int64, error) {
	n, err := s.store.DeleteAnswers(ctx, tournamentID)
	if err != nil {
		return 0, err
	}
	log.Info().Int64("deleted", n).Msg("answers deleted")
	if tournamentID != nil {
		s.invalidate(ctx, *tournamentID)
	} else {
		s.invalidateAll(ctx)
	}
	return n, nil
}

func (s *AdminServiceImpl) DeleteTeams(ctx context.Context) (int64, error) {
	n, err := s.store.DeleteTeams(ctx)
	if err != nil {
		return 0, err
	}
	log.Info().Int64("deleted", n).Msg("teams deleted")
	s.invalidateAll(ctx)
	return n, nil
}

func (s *AdminServiceImpl) SetTaskImage(ctx context.Context, taskID uuid.UUID, url string) error {
	return lookupErr(s.store.SetTaskImage(ctx, taskID, url), "task")
}

func (s *AdminServiceImpl) SetBlockImage(ctx context.Context, blockID uuid.UUID, url string) error {
	return lookupErr(s.store.SetBlockImage(ctx, blockID, url), "block")
}

func (s *AdminServiceImpl) invalidate(ctx context.Context, tournamentID uuid.UUID) {
	if err := s.cache.Invalidate(ctx, tournamentID); err != nil {
		log.Warn().Err(err).Str("tournament_id", tournamentID.String()).Msg("dashboard cache invalidation failed")
	}
}

func (s *AdminServiceImpl) invalidateAll(ctx context.Context) {
	tournaments, err := s.store.ListTournaments(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("dashboard cache invalidation skipped")
		return
	}
	for _, t := range tournaments {
		s.invalidate(ctx, t.ID)
	}
}
