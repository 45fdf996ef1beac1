package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"quiz-tournament/internal/models"
	"quiz-tournament/internal/repository"
)

// memStore is an in-memory Store for service tests.
type memStore struct {
	mu          sync.Mutex
	tournaments map[uuid.UUID]models.Tournament
	teams       map[uuid.UUID]models.Team
	answers     []models.Answer
	starts      []models.BlockStart
	upserts     int
}

func newMemStore(tournaments ...models.Tournament) *memStore {
	s := &memStore{
		tournaments: make(map[uuid.UUID]models.Tournament),
		teams:       make(map[uuid.UUID]models.Team),
	}
	for _, t := range tournaments {
		s.tournaments[t.ID] = t
	}
	return s
}

func (s *memStore) addTeam(t models.Team) models.Team {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	_ = t.BeforeSave(nil)
	s.teams[t.ID] = t
	return t
}

func (s *memStore) ListTournaments(context.Context) ([]models.Tournament, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Tournament
	for _, t := range s.tournaments {
		out = append(out, t)
	}
	return out, nil
}

func (s *memStore) GetTournament(_ context.Context, id uuid.UUID) (*models.Tournament, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tournaments[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &t, nil
}

func (s *memStore) findBlock(id uuid.UUID) (*models.Block, bool) {
	for _, t := range s.tournaments {
		for i := range t.Blocks {
			if t.Blocks[i].ID == id {
				b := t.Blocks[i]
				return &b, true
			}
		}
	}
	return nil, false
}

func (s *memStore) GetBlock(_ context.Context, id uuid.UUID) (*models.Block, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.findBlock(id)
	if !ok {
		return nil, repository.ErrNotFound
	}
	return b, nil
}

func (s *memStore) GetTask(_ context.Context, id uuid.UUID) (*models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.tournaments {
		for _, b := range t.Blocks {
			for _, task := range b.Tasks {
				if task.ID == id {
					return &task, nil
				}
			}
		}
	}
	return nil, repository.ErrNotFound
}

func (s *memStore) SetTaskImage(context.Context, uuid.UUID, string) error  { return nil }
func (s *memStore) SetBlockImage(context.Context, uuid.UUID, string) error { return nil }

func (s *memStore) CreateTeam(_ context.Context, team *models.Team) error {
	if err := team.BeforeSave(nil); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	team.ID = uuid.New()
	s.teams[team.ID] = *team
	return nil
}

func (s *memStore) GetTeam(_ context.Context, id uuid.UUID) (*models.Team, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.teams[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &t, nil
}

func (s *memStore) FindTeamsByName(_ context.Context, name string, tournamentID *uuid.UUID) ([]models.Team, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Team
	for _, t := range s.teams {
		if t.Name == name && (tournamentID == nil || t.TournamentID == *tournamentID) {
			out = append(out, t)
		}
	}
	return out, nil
}

func (s *memStore) ListTeams(_ context.Context, tournamentID *uuid.UUID) ([]models.Team, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Team
	for _, t := range s.teams {
		if tournamentID == nil || t.TournamentID == *tournamentID {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *memStore) MarkTeamStarted(_ context.Context, teamID uuid.UUID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := s.teams[teamID]
	if t.StartedAt == nil {
		t.StartedAt = &at
		s.teams[teamID] = t
	}
	return nil
}

func (s *memStore) LinkTelegram(_ context.Context, teamID uuid.UUID, chatID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.teams[teamID]
	if !ok {
		return repository.ErrNotFound
	}
	t.TelegramChatID = &chatID
	s.teams[teamID] = t
	return nil
}

func (s *memStore) UnlinkTelegram(_ context.Context, chatID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, t := range s.teams {
		if t.TelegramChatID != nil && *t.TelegramChatID == chatID {
			t.TelegramChatID = nil
			s.teams[id] = t
		}
	}
	return nil
}

func (s *memStore) FindTeamByChat(_ context.Context, chatID int64) (*models.Team, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.teams {
		if t.TelegramChatID != nil && *t.TelegramChatID == chatID {
			return &t, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *memStore) ListTeamAnswers(_ context.Context, teamID uuid.UUID) ([]models.Answer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Answer
	for _, a := range s.answers {
		if a.TeamID == teamID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *memStore) ListTournamentAnswers(_ context.Context, tournamentID uuid.UUID) ([]models.Answer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tasks := make(map[uuid.UUID]bool)
	for _, b := range s.tournaments[tournamentID].Blocks {
		for _, t := range b.Tasks {
			tasks[t.ID] = true
		}
	}
	var out []models.Answer
	for _, a := range s.answers {
		if tasks[a.TaskID] {
			out = append(out, a)
		}
	}
	return out, nil
}

func sameKey(a, b models.Answer) bool {
	if a.TeamID != b.TeamID || a.TaskID != b.TaskID {
		return false
	}
	if a.ExampleID == nil || b.ExampleID == nil {
		return a.ExampleID == nil && b.ExampleID == nil
	}
	return *a.ExampleID == *b.ExampleID
}

func (s *memStore) UpsertAnswers(_ context.Context, answers []models.Answer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.upserts++
	for _, a := range answers {
		replaced := false
		for i := range s.answers {
			if sameKey(s.answers[i], a) {
				a.ID = s.answers[i].ID
				s.answers[i] = a
				replaced = true
				break
			}
		}
		if !replaced {
			a.ID = uuid.New()
			s.answers = append(s.answers, a)
		}
	}
	return nil
}

func (s *memStore) ListBlockStarts(_ context.Context, teamID uuid.UUID) ([]models.BlockStart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.BlockStart
	for _, bs := range s.starts {
		if bs.TeamID == teamID {
			out = append(out, bs)
		}
	}
	return out, nil
}

func (s *memStore) StartBlock(_ context.Context, teamID, blockID uuid.UUID, at time.Time) (models.BlockStart, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, bs := range s.starts {
		if bs.TeamID == teamID && bs.BlockID == blockID {
			return bs, false, nil
		}
	}
	bs := models.BlockStart{ID: uuid.New(), TeamID: teamID, BlockID: blockID, StartedAt: at}
	s.starts = append(s.starts, bs)
	return bs, true, nil
}

func (s *memStore) ResetTeam(_ context.Context, teamID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	answers := s.answers[:0]
	for _, a := range s.answers {
		if a.TeamID != teamID {
			answers = append(answers, a)
		}
	}
	s.answers = answers
	starts := s.starts[:0]
	for _, bs := range s.starts {
		if bs.TeamID != teamID {
			starts = append(starts, bs)
		}
	}
	s.starts = starts
	return nil
}

func (s *memStore) DeleteAnswers(context.Context, *uuid.UUID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := int64(len(s.answers))
	s.answers = nil
	return n, nil
}

func (s *memStore) DeleteTeams(context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := int64(len(s.teams))
	s.teams = make(map[uuid.UUID]models.Team)
	s.answers = nil
	s.starts = nil
	return n, nil
}

func (s *memStore) answerRows() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.answers)
}

func (s *memStore) startRows() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.starts)
}

// countingCache records invalidations and stores views as-is.
type countingCache struct {
	mu          sync.Mutex
	invalidated []uuid.UUID
	loads       int
	gens        map[uuid.UUID]int64
	views       map[string]any
}

func (c *countingCache) Load(_ context.Context, tid uuid.UUID, view string, dst any) (int64, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.loads++
	gen := c.gens[tid]
	v, ok := c.views[tid.String()+view]
	if !ok {
		return gen, false, nil
	}
	switch d := dst.(type) {
	case *LeaderboardView:
		*d = *v.(*LeaderboardView)
	default:
		return gen, false, nil
	}
	return gen, true, nil
}

func (c *countingCache) Save(_ context.Context, tid uuid.UUID, gen int64, view string, v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gens[tid] {
		return nil
	}
	if c.views == nil {
		c.views = make(map[string]any)
	}
	c.views[tid.String()+view] = v
	return nil
}

func (c *countingCache) Invalidate(_ context.Context, tid uuid.UUID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invalidated = append(c.invalidated, tid)
	if c.gens == nil {
		c.gens = make(map[uuid.UUID]int64)
	}
	c.gens[tid]++
	for k := range c.views {
		if len(k) >= 36 && k[:36] == tid.String() {
			delete(c.views, k)
		}
	}
	return nil
}
