package service

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"quiz-tournament/internal/models"
	"quiz-tournament/internal/timing"
)

// Submission is a decoded answer payload. Exactly one form is valid per task
// type: Answer for single tasks, Answers (with Batch set) for examples tasks.
type Submission struct {
	Answer  *string
	Answers []ExampleSubmission
	Batch   bool
}

type ExampleSubmission struct {
	ExampleID string
	Answer    string
	// Problem is set by the decoder when the item is malformed; the item is
	// reported back and never stored.
	Problem   string
}

// MaxAnswerLength matches the answer_text column width, in characters.
const MaxAnswerLength = 200

var answerTooLongMsg = fmt.Sprintf("answer longer than %d characters", MaxAnswerLength)

func answerTooLong(s string) bool {
	return utf8.RuneCountInString(s) > MaxAnswerLength
}

type ExampleResult struct {
	ExampleID string `json:"example_id"`
	IsCorrect *bool  `json:"is_correct,omitempty"`
	Points    *int   `json:"points,omitempty"`
	Error     string `json:"error,omitempty"`
}

type BlockRef struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Order int       `json:"order"`
}

type SubmitResult struct {
	OK             bool            `json:"ok"`
	IsCorrect      *bool           `json:"is_correct,omitempty"`
	AnswerText     *string         `json:"answer_text,omitempty"`
	Points         *int            `json:"points,omitempty"`
	Results        []ExampleResult `json:"results,omitempty"`
	BlockCompleted bool            `json:"block_completed,omitempty"`
	NextBlock      *BlockRef       `json:"next_block,omitempty"`
}

type StartResult struct {
	OK             bool      `json:"ok"`
	StartedAt      time.Time `json:"started_at"`
	AlreadyStarted bool      `json:"already_started"`
}

// answerMatches is plain trimmed equality; case and number formatting matter.
func answerMatches(submitted, correct string) bool {
	return strings.TrimSpace(submitted) == strings.TrimSpace(correct)
}

// SubmitAnswer grades and stores the team's answer. The payload shape is
// checked before anything is written; in a batch, bad items are reported in
// Results and the rest are saved together.
func (s *TeamServiceImpl) SubmitAnswer(ctx context.Context, teamID, taskID uuid.UUID, sub Submission) (*SubmitResult, error) {
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

	now := s.engine.Now()
	res := &SubmitResult{OK: true}
	var rows []models.Answer

	if task.HasExamples() {
		if !sub.Batch {
			return nil, badRequest("answers list required for this task")
		}
		rows, res.Results = gradeExamples(team.ID, task, sub.Answers, now)
	} else {
		if sub.Answer == nil {
			return nil, badRequest("answer required")
		}
		if answerTooLong(*sub.Answer) {
			return nil, badRequest(answerTooLongMsg)
		}
		row := gradeSingle(team.ID, task, *sub.Answer, now)
		rows = []models.Answer{row}
		res.IsCorrect = &row.IsCorrect
		res.AnswerText = &row.AnswerText
		res.Points = row.Points
	}

	if err := s.store.UpsertAnswers(ctx, rows); err != nil {
		return nil, err
	}
	log.Info().
		Str("team_id", team.ID.String()).
		Str("task_id", task.ID.String()).
		Int("rows", len(rows)).
		Msg("answers saved")

	if len(rows) > 0 {
		if err := s.cache.Invalidate(ctx, team.TournamentID); err != nil {
			log.Warn().Err(err).Str("tournament_id", team.TournamentID.String()).Msg("dashboard cache invalidation failed")
		}
	}

	// Ответ уже сохранён: ошибка подсказки не должна выглядеть как неудачная отправка
	if err := s.completionHint(ctx, team, block.ID, res); err != nil {
		log.Warn().Err(err).Str("team_id", team.ID.String()).Msg("block completion check failed")
		res.BlockCompleted, res.NextBlock = false, nil
	}
	return res, nil
}

func gradeSingle(teamID uuid.UUID, task *models.Task, answer string, now time.Time) models.Answer {
	correct := ""
	if task.CorrectAnswer != nil {
		correct = *task.CorrectAnswer
	}
	ok := answerMatches(answer, correct)
	points := 0
	if ok {
		points = task.Points
	}
	return models.Answer{
		TeamID:      teamID,
		TaskID:      task.ID,
		AnswerText:  answer,
		IsCorrect:   ok,
		Points:      &points,
		SubmittedAt: now,
	}
}

// gradeExamples validates every item on its own. A repeated example keeps
// the last answer.
func gradeExamples(teamID uuid.UUID, task *models.Task, items []ExampleSubmission, now time.Time) ([]models.Answer, []ExampleResult) {
	examples := make(map[uuid.UUID]models.TaskExample, len(task.Examples))
	for _, ex := range task.Examples {
		examples[ex.ID] = ex
	}

	results := make([]ExampleResult, 0, len(items))
	var rows []models.Answer
	rowOf := make(map[uuid.UUID]int)

	for _, item := range items {
		if item.Problem != "" {
			results = append(results, ExampleResult{ExampleID: item.ExampleID, Error: item.Problem})
			continue
		}
		if strings.TrimSpace(item.ExampleID) == "" {
			results = append(results, ExampleResult{Error: "example_id required"})
			continue
		}
		id, err := uuid.Parse(item.ExampleID)
		ex, known := examples[id]
		if err != nil || !known {
			results = append(results, ExampleResult{ExampleID: item.ExampleID, Error: "example not found"})
			continue
		}
		if answerTooLong(item.Answer) {
			results = append(results, ExampleResult{ExampleID: ex.ID.String(), Error: answerTooLongMsg})
			continue
		}

		ok := answerMatches(item.Answer, ex.CorrectAnswer)
		points := 0
		if ok {
			points = ex.PointValue()
		}
		exID := ex.ID
		row := models.Answer{
			TeamID:      teamID,
			TaskID:      task.ID,
			ExampleID:   &exID,
			AnswerText:  item.Answer,
			IsCorrect:   ok,
			Points:      &points,
			SubmittedAt: now,
		}
		if i, seen := rowOf[exID]; seen {
			rows[i] = row
		} else {
			rowOf[exID] = len(rows)
			rows = append(rows, row)
		}
		results = append(results, ExampleResult{ExampleID: exID.String(), IsCorrect: &ok, Points: &points})
	}
	return rows, results
}

// completionHint reports whether the block is over for the team and which
// block comes next.
func (s *TeamServiceImpl) completionHint(ctx context.Context, team *models.Team, blockID uuid.UUID, res *SubmitResult) error {
	_, ps, err := s.progress(ctx, team, team.TournamentID)
	if err != nil {
		return err
	}
	i, ok := timing.IndexOf(ps, blockID)
	if !ok {
		return errNoBlock
	}
	statuses := s.engine.Statuses(ps)
	if statuses[i].Phase != timing.Finished {
		return nil
	}
	res.BlockCompleted = true
	if next, ok := timing.ActiveBlock(statuses); ok && next != i {
		b := ps[next].Block
		res.NextBlock = &BlockRef{ID: b.ID, Name: b.Name, Order: b.Order}
	}
	return nil
}

// StartBlock starts the team's clock for the block. Repeated and concurrent
// calls keep the first start.
func (s *TeamServiceImpl) StartBlock(ctx context.Context, teamID, blockID uuid.UUID) (*StartResult, error) {
	team, block, err := s.teamAndBlock(ctx, teamID, blockID)
	if err != nil {
		return nil, err
	}
	row, created, err := s.store.StartBlock(ctx, team.ID, block.ID, s.engine.Now())
	if err != nil {
		return nil, err
	}
	if created {
		log.Info().Str("team_id", team.ID.String()).Str("block_id", block.ID.String()).Msg("block started")
	}
	return &StartResult{OK: true, StartedAt: row.StartedAt, AlreadyStarted: !created}, nil
}
