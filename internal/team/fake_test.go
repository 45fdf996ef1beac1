package team

import (
	"context"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"

	"quiz-tournament/internal/models"
	"quiz-tournament/internal/service"
)

// fakeTeamService returns canned values and records the calls the tests check.
type fakeTeamService struct {
	team       *models.Team
	password   string
	tournament *service.TournamentView
	block      *service.BlockView
	tasks      map[uuid.UUID]*service.TaskView

	mu          sync.Mutex
	linked      map[int64]uuid.UUID
	submissions []service.Submission
	started     []uuid.UUID
}

func (f *fakeTeamService) Authenticate(_ context.Context, name, password string, _ *uuid.UUID) (*models.Team, error) {
	if f.team == nil || name != f.team.Name || password != f.password {
		return nil, service.ErrUnauthorized
	}
	return f.team, nil
}

func (f *fakeTeamService) GetTeam(_ context.Context, teamID uuid.UUID) (*models.Team, error) {
	if f.team == nil || f.team.ID != teamID {
		return nil, service.ErrNotFound
	}
	return f.team, nil
}

func (f *fakeTeamService) LinkTelegram(_ context.Context, teamID uuid.UUID, chatID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.linked == nil {
		f.linked = make(map[int64]uuid.UUID)
	}
	f.linked[chatID] = teamID
	return nil
}

func (f *fakeTeamService) UnlinkTelegram(_ context.Context, chatID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.linked, chatID)
	return nil
}

func (f *fakeTeamService) TeamByChat(_ context.Context, chatID int64) (*models.Team, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if id, ok := f.linked[chatID]; ok && f.team != nil && f.team.ID == id {
		return f.team, nil
	}
	return nil, service.ErrNotFound
}

func (f *fakeTeamService) ListTournaments(context.Context) ([]service.TournamentSummary, error) {
	if f.tournament == nil {
		return []service.TournamentSummary{}, nil
	}
	return []service.TournamentSummary{{ID: f.tournament.ID, Name: f.tournament.Name}}, nil
}

func (f *fakeTeamService) Tournament(_ context.Context, _, tournamentID uuid.UUID) (*service.TournamentView, error) {
	if f.tournament == nil || f.tournament.ID != tournamentID {
		return nil, service.ErrForbidden
	}
	return f.tournament, nil
}

func (f *fakeTeamService) Block(_ context.Context, _, blockID uuid.UUID) (*service.BlockView, error) {
	if f.block == nil || f.block.ID != blockID {
		return nil, service.ErrNotFound
	}
	return f.block, nil
}

func (f *fakeTeamService) Task(_ context.Context, _, taskID uuid.UUID) (*service.TaskView, error) {
	t, ok := f.tasks[taskID]
	if !ok {
		return nil, service.ErrNotFound
	}
	return t, nil
}

func (f *fakeTeamService) SubmitAnswer(_ context.Context, _, taskID uuid.UUID, sub service.Submission) (*service.SubmitResult, error) {
	if _, ok := f.tasks[taskID]; !ok {
		return nil, service.ErrNotFound
	}
	f.mu.Lock()
	f.submissions = append(f.submissions, sub)
	f.mu.Unlock()

	res := &service.SubmitResult{OK: true}
	if sub.Batch {
		for _, a := range sub.Answers {
			ok := true
			res.Results = append(res.Results, service.ExampleResult{ExampleID: a.ExampleID, IsCorrect: &ok})
		}
		return res, nil
	}
	ok := true
	res.IsCorrect = &ok
	res.AnswerText = sub.Answer
	return res, nil
}

func (f *fakeTeamService) StartBlock(_ context.Context, _, blockID uuid.UUID) (*service.StartResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, id := range f.started {
		if id == blockID {
			return &service.StartResult{OK: true, AlreadyStarted: true}, nil
		}
	}
	f.started = append(f.started, blockID)
	return &service.StartResult{OK: true}, nil
}

// fakeAPI records outgoing messages instead of calling Telegram.
type fakeAPI struct {
	mu   sync.Mutex
	sent []tgbotapi.MessageConfig
}

func (a *fakeAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if msg, ok := c.(tgbotapi.MessageConfig); ok {
		a.mu.Lock()
		a.sent = append(a.sent, msg)
		a.mu.Unlock()
	}
	return tgbotapi.Message{}, nil
}

func (a *fakeAPI) Request(tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (a *fakeAPI) GetUpdatesChan(tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	return make(chan tgbotapi.Update)
}

func (a *fakeAPI) StopReceivingUpdates() {}

func (a *fakeAPI) texts() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]string, 0, len(a.sent))
	for _, m := range a.sent {
		out = append(out, m.Text)
	}
	return out
}

func (a *fakeAPI) last() tgbotapi.MessageConfig {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.sent[len(a.sent)-1]
}
