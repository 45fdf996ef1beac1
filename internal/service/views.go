package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"quiz-tournament/internal/models"
	"quiz-tournament/internal/scoring"
	"quiz-tournament/internal/timing"
)

type TournamentSummary struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Group *string   `json:"group"`
}

type TournamentView struct {
	ID          uuid.UUID         `json:"id"`
	Name        string            `json:"name"`
	Group       *string           `json:"group"`
	ServerTime  time.Time         `json:"server_time"`
	StartedAt   *time.Time        `json:"started_at"`
	State       string            `json:"state"`
	ActiveBlock *ActiveBlockView  `json:"active_block"`
	Blocks      []BlockTimingView `json:"blocks"`
}

type ActiveBlockView struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Order       int       `json:"order"`
	MaxDuration int       `json:"max_duration"`
	ImageURL    *string   `json:"image_url"`
	TimeLeft    *int64    `json:"time_left"`
}

type BlockTimingView struct {
	ID          uuid.UUID  `json:"id"`
	Name        string     `json:"name"`
	Order       int        `json:"order"`
	MaxDuration int        `json:"max_duration"`
	StartedAt   *time.Time `json:"started_at"`
	FinishedAt  *time.Time `json:"finished_at"`
	// StartOffset is seconds from the team's tournament start.
	StartOffset *int64 `json:"start_offset"`
}

type BlockView struct {
	ID          uuid.UUID     `json:"id"`
	Name        string        `json:"name"`
	Order       int           `json:"order"`
	MaxDuration int           `json:"max_duration"`
	ImageURL    *string       `json:"image_url"`
	IsActive    bool          `json:"is_active"`
	IsFinished  bool          `json:"is_finished"`
	TimeLeft    *int64        `json:"time_left"`
	Tasks       []TaskSummary `json:"tasks"`
}

type TaskSummary struct {
	ID     uuid.UUID `json:"id"`
	Title  string    `json:"title"`
	Points int       `json:"points"`
	Order  int       `json:"order"`
	Type   string    `json:"type"`
	Status string    `json:"status"`
}

type TaskView struct {
	ID             uuid.UUID     `json:"id"`
	BlockID        uuid.UUID     `json:"block_id"`
	Title          string        `json:"title"`
	Text           string        `json:"text"`
	Type           string        `json:"type"`
	ImageURL       *string       `json:"image_url"`
	Points         int           `json:"points"`
	Order          int           `json:"order"`
	ExistingAnswer *AnswerView   `json:"existing_answer"`
	Examples       []ExampleView `json:"examples"`
}

type ExampleView struct {
	ID             uuid.UUID   `json:"id"`
	Text           string      `json:"text"`
	Points         *int        `json:"points"`
	ExistingAnswer *AnswerView `json:"existing_answer"`
}

type AnswerView struct {
	AnswerText  string    `json:"answer_text"`
	IsCorrect   bool      `json:"is_correct"`
	Points      *int      `json:"points"`
	SubmittedAt time.Time `json:"submitted_at"`
}

func answerView(a models.Answer) *AnswerView {
	return &AnswerView{AnswerText: a.AnswerText, IsCorrect: a.IsCorrect, Points: a.Points, SubmittedAt: a.SubmittedAt}
}

func (s *TeamServiceImpl) ListTournaments(ctx context.Context) ([]TournamentSummary, error) {
	tournaments, err := s.store.ListTournaments(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]TournamentSummary, 0, len(tournaments))
	for _, t := range tournaments {
		out = append(out, TournamentSummary{ID: t.ID, Name: t.Name, Group: t.Group})
	}
	return out, nil
}

// Tournament returns the team's view of its tournament. The first call marks
// the team as started.
func (s *TeamServiceImpl) Tournament(ctx context.Context, teamID, tournamentID uuid.UUID) (*TournamentView, error) {
	team, err := s.GetTeam(ctx, teamID)
	if err != nil {
		return nil, err
	}
	if team.TournamentID != tournamentID {
		return nil, ErrForbidden
	}
	if err := s.ensureStarted(ctx, team); err != nil {
		return nil, err
	}
	tournament, ps, err := s.progress(ctx, team, tournamentID)
	if err != nil {
		return nil, err
	}

	statuses := s.engine.Statuses(ps)
	view := &TournamentView{
		ID:         tournament.ID,
		Name:       tournament.Name,
		Group:      tournament.Group,
		ServerTime: s.engine.Now(),
		StartedAt:  team.StartedAt,
		State:      timing.TournamentState(statuses),
		Blocks:     make([]BlockTimingView, 0, len(ps)),
	}

	if i, ok := timing.ActiveBlock(statuses); ok && statuses[i].Phase == timing.Running {
		b := ps[i].Block
		left := statuses[i].TimeLeft
		view.ActiveBlock = &ActiveBlockView{
			ID:          b.ID,
			Name:        b.Name,
			Order:       b.Order,
			MaxDuration: b.MaxDuration,
			ImageURL:    b.ImageURL,
			TimeLeft:    timing.TimeLeftSeconds(&left),
		}
	}

	for i, p := range ps {
		st := statuses[i]
		bt := BlockTimingView{
			ID:          p.Block.ID,
			Name:        p.Block.Name,
			Order:       p.Block.Order,
			MaxDuration: p.Block.MaxDuration,
			StartedAt:   st.StartedAt,
			FinishedAt:  st.EndedAt,
		}
		if st.StartedAt != nil && team.StartedAt != nil {
			off := int64(st.StartedAt.Sub(*team.StartedAt) / time.Second)
			bt.StartOffset = &off
		}
		view.Blocks = append(view.Blocks, bt)
	}
	return view, nil
}

// Block returns one block with the team's timing. Tasks are listed only once
// the block has started.
func (s *TeamServiceImpl) Block(ctx context.Context, teamID, blockID uuid.UUID) (*BlockView, error) {
	team, block, err := s.teamAndBlock(ctx, teamID, blockID)
	if err != nil {
		return nil, err
	}
	if err := s.ensureStarted(ctx, team); err != nil {
		return nil, err
	}
	_, ps, err := s.progress(ctx, team, block.TournamentID)
	if err != nil {
		return nil, err
	}
	i, ok := timing.IndexOf(ps, blockID)
	if !ok {
		return nil, errNoBlock
	}
	p := ps[i]
	st := s.engine.Status(p)

	view := &BlockView{
		ID:          p.Block.ID,
		Name:        p.Block.Name,
		Order:       p.Block.Order,
		MaxDuration: p.Block.MaxDuration,
		ImageURL:    p.Block.ImageURL,
		IsActive:    st.Phase == timing.Running,
		IsFinished:  st.Phase == timing.Finished,
		TimeLeft:    timing.TimeLeftSeconds(s.engine.TimeLeft(p)),
		Tasks:       []TaskSummary{},
	}
	if !st.Started() {
		return view, nil
	}
	for _, t := range p.Block.Tasks {
		view.Tasks = append(view.Tasks, TaskSummary{
			ID:     t.ID,
			Title:  t.Title,
			Points: t.Points,
			Order:  t.Order,
			Type:   t.Type,
			Status: scoring.TeamTaskStatus(t, p.Answers),
		})
	}
	return view, nil
}

// Task returns the task with the team's saved answers. Failing to load the
// answers only hides them.
func (s *TeamServiceImpl) Task(ctx context.Context, teamID, taskID uuid.UUID) (*TaskView, error) {
	team, err := s.GetTeam(ctx, teamID)
	if err != nil {
		return nil, err
	}
	task, err := s.store.GetTask(ctx, taskID)
	if err != nil {
		return nil, lookupErr(err, "task")
	}
	block, err := s.store.GetBlock(ctx, task.BlockID)
	if err != nil {
		return nil, lookupErr(err, "block")
	}
	if block.TournamentID != team.TournamentID {
		return nil, ErrForbidden
	}

	view := &TaskView{
		ID:       task.ID,
		BlockID:  task.BlockID,
		Title:    task.Title,
		Text:     task.Text,
		Type:     task.Type,
		ImageURL: task.ImageURL,
		Points:   task.Points,
		Order:    task.Order,
		Examples: make([]ExampleView, 0, len(task.Examples)),
	}

	answers, err := s.store.ListTeamAnswers(ctx, team.ID)
	if err != nil {
		log.Warn().Err(err).Str("team_id", team.ID.String()).Str("task_id", task.ID.String()).Msg("saved answers unavailable")
		answers = nil
	}
	byExample := make(map[uuid.UUID]models.Answer)
	for _, a := range answers {
		if a.TaskID != task.ID {
			continue
		}
		if a.ExampleID == nil {
			view.ExistingAnswer = answerView(a)
		} else {
			byExample[*a.ExampleID] = a
		}
	}
	for _, ex := range task.Examples {
		ev := ExampleView{ID: ex.ID, Text: ex.Text, Points: ex.Points}
		if a, ok := byExample[ex.ID]; ok {
			ev.ExistingAnswer = answerView(a)
		}
		view.Examples = append(view.Examples, ev)
	}
	return view, nil
}
