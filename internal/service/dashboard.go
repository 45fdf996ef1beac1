package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"quiz-tournament/internal/models"
	"quiz-tournament/internal/scoring"
)

// DashboardService builds the public scoreboards.
type DashboardService interface {
	Leaderboard(ctx context.Context, tournamentID uuid.UUID) (*LeaderboardView, error)
	BlockBoard(ctx context.Context, blockID uuid.UUID) (*BlockBoardView, error)
	Overall(ctx context.Context, tournamentID uuid.UUID) (*OverallView, error)
}

type DashboardServiceImpl struct {
	store Store
	cache DashboardCache
	clock clockwork.Clock
}

func NewDashboardService(store Store, cache DashboardCache, clock clockwork.Clock) *DashboardServiceImpl {
	if cache == nil {
		cache = noCache{}
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &DashboardServiceImpl{store: store, cache: cache, clock: clock}
}

type TournamentRef struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

type BoardTask struct {
	ID     uuid.UUID `json:"id"`
	Order  int       `json:"order"`
	Title  string    `json:"title"`
	Type   string    `json:"type,omitempty"`
	Points *int      `json:"points,omitempty"`
}

type BoardBlock struct {
	ID    uuid.UUID   `json:"id"`
	Name  string      `json:"name"`
	Tasks []BoardTask `json:"tasks,omitempty"`
}

type LeaderboardTeam struct {
	ID       uuid.UUID      `json:"id"`
	Login    string         `json:"login"`
	PerTask  map[string]int `json:"per_task"`
	PerBlock map[string]int `json:"per_block"`
	Total    int            `json:"total"`
	Position string         `json:"position"`
}

type LeaderboardView struct {
	Tournament  TournamentRef     `json:"tournament"`
	Blocks      []BoardBlock      `json:"blocks"`
	Teams       []LeaderboardTeam `json:"teams"`
	GeneratedAt time.Time         `json:"generated_at"`
}

type TeamRow struct {
	TeamID    uuid.UUID `json:"team_id"`
	TeamName  string    `json:"team_name"`
	Member1   string    `json:"member1"`
	Member2   *string   `json:"member2"`
	Member3   *string   `json:"member3"`
	Total     int       `json:"total"`
	RankLabel string    `json:"rank_label"`
}

type CellView struct {
	State  string `json:"state"`
	Points *int   `json:"points"`
}

type BlockBoardRow struct {
	TeamRow
	Cells []CellView `json:"cells"`
}

type BlockBoardView struct {
	Block BoardBlock      `json:"block"`
	Tasks []BoardTask     `json:"tasks"`
	Rows  []BlockBoardRow `json:"rows"`
}

type OverallCellView struct {
	Points   int  `json:"points"`
	Answered bool `json:"answered"`
}

type OverallBoardRow struct {
	TeamRow
	Cells []OverallCellView `json:"cells"`
}

type OverallView struct {
	Tournament TournamentRef     `json:"tournament"`
	Blocks     []BoardBlock      `json:"blocks"`
	Rows       []OverallBoardRow `json:"rows"`
}

const (
	viewLeaderboard = "leaderboard"
	viewOverall     = "overall"
)

func blockView(blockID uuid.UUID) string { return "block:" + blockID.String() }

// cached returns the stored rendering of a view or builds and stores it.
// Cache failures are logged and never fail the request.
func cached[T any](ctx context.Context, cache DashboardCache, tournamentID uuid.UUID, view string, build func() (*T, error)) (*T, error) {
	var hit T
	gen, found, err := cache.Load(ctx, tournamentID, view, &hit)
	if err != nil {
		log.Warn().Err(err).Str("view", view).Msg("dashboard cache read failed")
	}
	if found {
		return &hit, nil
	}
	v, err := build()
	if err != nil {
		return nil, err
	}
	if err := cache.Save(ctx, tournamentID, gen, view, v); err != nil {
		log.Warn().Err(err).Str("view", view).Msg("dashboard cache write failed")
	}
	return v, nil
}

func (s *DashboardServiceImpl) load(ctx context.Context, tournamentID uuid.UUID) (*models.Tournament, []models.Team, []models.Answer, error) {
	tournament, err := s.store.GetTournament(ctx, tournamentID)
	if err != nil {
		return nil, nil, nil, lookupErr(err, "tournament")
	}
	teams, err := s.store.ListTeams(ctx, &tournamentID)
	if err != nil {
		return nil, nil, nil, err
	}
	answers, err := s.store.ListTournamentAnswers(ctx, tournamentID)
	if err != nil {
		return nil, nil, nil, err
	}
	return tournament, teams, answers, nil
}

func (s *DashboardServiceImpl) Leaderboard(ctx context.Context, tournamentID uuid.UUID) (*LeaderboardView, error) {
	return cached(ctx, s.cache, tournamentID, viewLeaderboard, func() (*LeaderboardView, error) {
		tournament, teams, answers, err := s.load(ctx, tournamentID)
		if err != nil {
			return nil, err
		}
		catalog := scoring.NewCatalog(tournament.Blocks)

		view := &LeaderboardView{
			Tournament:  TournamentRef{ID: tournament.ID, Name: tournament.Name},
			Blocks:      boardBlocks(catalog.Blocks(), true),
			Teams:       []LeaderboardTeam{},
			GeneratedAt: s.clock.Now().UTC(),
		}
		for _, ts := range catalog.Leaderboard(teams, answers) {
			lt := LeaderboardTeam{
				ID:       ts.TeamID,
				Login:    ts.Name,
				PerTask:  make(map[string]int, len(ts.PerTask)),
				PerBlock: make(map[string]int, len(ts.PerBlock)),
				Total:    ts.Total,
				Position: ts.Position,
			}
			for id, v := range ts.PerTask {
				lt.PerTask[id.String()] = v
			}
			for id, v := range ts.PerBlock {
				lt.PerBlock[id.String()] = v
			}
			view.Teams = append(view.Teams, lt)
		}
		return view, nil
	})
}

func (s *DashboardServiceImpl) BlockBoard(ctx context.Context, blockID uuid.UUID) (*BlockBoardView, error) {
	block, err := s.store.GetBlock(ctx, blockID)
	if err != nil {
		return nil, lookupErr(err, "block")
	}
	tid := block.TournamentID
	return cached(ctx, s.cache, tid, blockView(blockID), func() (*BlockBoardView, error) {
		teams, err := s.store.ListTeams(ctx, &tid)
		if err != nil {
			return nil, err
		}
		answers, err := s.store.ListTournamentAnswers(ctx, tid)
		if err != nil {
			return nil, err
		}

		view := &BlockBoardView{
			Block: BoardBlock{ID: block.ID, Name: block.Name},
			Rows:  []BlockBoardRow{},
		}
		view.Tasks = boardBlocks(scoring.NewCatalog([]models.Block{*block}).Blocks(), true)[0].Tasks
		for _, r := range scoring.BlockTable(*block, teams, answers) {
			row := BlockBoardRow{TeamRow: teamRow(r.Team, r.Total, r.RankLabel), Cells: make([]CellView, 0, len(r.Cells))}
			for _, c := range r.Cells {
				row.Cells = append(row.Cells, CellView{State: c.State, Points: c.Points})
			}
			view.Rows = append(view.Rows, row)
		}
		return view, nil
	})
}

func (s *DashboardServiceImpl) Overall(ctx context.Context, tournamentID uuid.UUID) (*OverallView, error) {
	return cached(ctx, s.cache, tournamentID, viewOverall, func() (*OverallView, error) {
		tournament, teams, answers, err := s.load(ctx, tournamentID)
		if err != nil {
			return nil, err
		}
		catalog := scoring.NewCatalog(tournament.Blocks)

		view := &OverallView{
			Tournament: TournamentRef{ID: tournament.ID, Name: tournament.Name},
			Blocks:     boardBlocks(catalog.Blocks(), false),
			Rows:       []OverallBoardRow{},
		}
		for _, r := range catalog.OverallTable(teams, answers) {
			row := OverallBoardRow{TeamRow: teamRow(r.Team, r.Total, r.RankLabel), Cells: make([]OverallCellView, 0, len(r.Cells))}
			for _, c := range r.Cells {
				row.Cells = append(row.Cells, OverallCellView{Points: c.Points, Answered: c.Answered})
			}
			view.Rows = append(view.Rows, row)
		}
		return view, nil
	})
}

func boardBlocks(blocks []models.Block, withTasks bool) []BoardBlock {
	out := make([]BoardBlock, 0, len(blocks))
	for _, b := range blocks {
		bb := BoardBlock{ID: b.ID, Name: b.Name}
		if withTasks {
			bb.Tasks = make([]BoardTask, 0, len(b.Tasks))
			for _, t := range b.Tasks {
				points := t.Points
				bb.Tasks = append(bb.Tasks, BoardTask{ID: t.ID, Order: t.Order, Title: t.Title, Type: t.Type, Points: &points})
			}
		}
		out = append(out, bb)
	}
	return out
}

func teamRow(t models.Team, total int, label string) TeamRow {
	name := t.Name
	if name == "" {
		name = "Team #" + t.ID.String()[:8]
	}
	return TeamRow{
		TeamID:    t.ID,
		TeamName:  name,
		Member1:   t.Member1,
		Member2:   t.Member2,
		Member3:   t.Member3,
		Total:     total,
		RankLabel: label,
	}
}
