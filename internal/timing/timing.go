// Package timing decides, for one team, where each block of a tournament
// stands: not started, running or finished, and how much time is left.
//
// Everything here is computed from stored records and the current time.
// Nothing is persisted and no timers are scheduled; a block that ran out of
// time is noticed the next time somebody asks.
package timing

import (
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"quiz-tournament/internal/models"
)

type Phase int

const (
	NotStarted Phase = iota
	Running
	Finished
)

func (p Phase) String() string {
	switch p {
	case Running:
		return "running"
	case Finished:
		return "finished"
	default:
		return "not_started"
	}
}

// Tournament-level state as seen by one team.
const (
	StateWaiting  = "waiting"
	StateRunning  = "running"
	StateFinished = "finished"
)

// Status is the resolved timing of one block for one team.
// StartedAt is set for Running and Finished, EndedAt only for Finished,
// TimeLeft is meaningful only while Running.
type Status struct {
	Phase     Phase
	StartedAt *time.Time
	EndedAt   *time.Time
	TimeLeft  time.Duration
}

func (s Status) Started() bool { return s.Phase != NotStarted }

func (s Status) Ended() bool { return s.Phase == Finished }

// BlockProgress is everything needed to time one block for one team.
type BlockProgress struct {
	// Block must have Tasks and their Examples loaded.
	Block models.Block
	// First is true for the lowest-order block of the tournament.
	First         bool
	Start         *models.BlockStart
	TeamStartedAt *time.Time
	// Answers of the team; rows for tasks of other blocks are ignored.
	Answers []models.Answer
}

type Engine struct {
	clock clockwork.Clock
}

func NewEngine(clock clockwork.Clock) *Engine {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Engine{clock: clock}
}

func (e *Engine) Now() time.Time {
	return e.clock.Now().UTC()
}

// StartTime returns when the team's clock for the block began, or nil.
func (e *Engine) StartTime(p BlockProgress) *time.Time {
	if p.Start != nil {
		t := p.Start.StartedAt
		return &t
	}
	return legacyFirstBlockStart(p)
}

// legacyFirstBlockStart keeps teams that never pressed "start block" working:
// their first block is considered started when the team entered the tournament.
// Drop this once no such teams remain.
func legacyFirstBlockStart(p BlockProgress) *time.Time {
	if !p.First || p.TeamStartedAt == nil {
		return nil
	}
	t := *p.TeamStartedAt
	return &t
}

// EndTime returns when the block ended for the team, or nil while it is
// not started or still running.
func (e *Engine) EndTime(p BlockProgress) *time.Time {
	start := e.StartTime(p)
	if start == nil {
		return nil
	}
	if last, ok := completedAt(p); ok {
		return &last
	}
	deadline := start.Add(p.Block.Duration())
	if !e.Now().Before(deadline) {
		return &deadline
	}
	return nil
}

// TimeLeft returns nil if the block has not started, zero once it ended.
func (e *Engine) TimeLeft(p BlockProgress) *time.Duration {
	return e.Status(p).timeLeftPtr()
}

func (s Status) timeLeftPtr() *time.Duration {
	if s.Phase == NotStarted {
		return nil
	}
	d := s.TimeLeft
	return &d
}

// Status resolves the block in one pass. All callers should go through it.
func (e *Engine) Status(p BlockProgress) Status {
	start := e.StartTime(p)
	if start == nil {
		return Status{Phase: NotStarted}
	}
	if end := e.EndTime(p); end != nil {
		return Status{Phase: Finished, StartedAt: start, EndedAt: end}
	}
	left := start.Add(p.Block.Duration()).Sub(e.Now())
	if left < 0 {
		left = 0
	}
	return Status{Phase: Running, StartedAt: start, TimeLeft: left}
}

// Statuses resolves every block; ps must be sorted by block order.
func (e *Engine) Statuses(ps []BlockProgress) []Status {
	out := make([]Status, len(ps))
	for i, p := range ps {
		out[i] = e.Status(p)
	}
	return out
}

// ActiveBlock returns the index of the running block, or else of the first
// block not started yet. ok is false when every block has finished.
func ActiveBlock(statuses []Status) (int, bool) {
	for i, s := range statuses {
		if s.Phase == Running {
			return i, true
		}
	}
	for i, s := range statuses {
		if s.Phase == NotStarted {
			return i, true
		}
	}
	return -1, false
}

// TournamentState reports waiting, running or finished for the team.
func TournamentState(statuses []Status) string {
	if i, ok := ActiveBlock(statuses); ok {
		if statuses[i].Phase == Running {
			return StateRunning
		}
		return StateWaiting
	}
	if len(statuses) == 0 {
		return StateWaiting
	}
	return StateFinished
}

// TimeLeftSeconds rounds up, so a running block never shows zero.
func TimeLeftSeconds(d *time.Duration) *int64 {
	if d == nil {
		return nil
	}
	s := int64(math.Ceil(d.Seconds()))
	return &s
}

// ForTournament builds progress records for every block of a tournament,
// sorted by block order.
func ForTournament(team models.Team, blocks []models.Block, starts []models.BlockStart, answers []models.Answer) []BlockProgress {
	sorted := make([]models.Block, len(blocks))
	copy(sorted, blocks)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Order < sorted[j].Order })

	startByBlock := make(map[uuid.UUID]models.BlockStart, len(starts))
	for _, s := range starts {
		if s.TeamID == team.ID {
			startByBlock[s.BlockID] = s
		}
	}

	out := make([]BlockProgress, len(sorted))
	for i, b := range sorted {
		p := BlockProgress{
			Block:         b,
			First:         i == 0,
			TeamStartedAt: team.StartedAt,
			Answers:       answersForBlock(b, team.ID, answers),
		}
		if s, ok := startByBlock[b.ID]; ok {
			p.Start = &s
		}
		out[i] = p
	}
	return out
}

// IndexOf returns the position of the block in ps.
func IndexOf(ps []BlockProgress, blockID uuid.UUID) (int, bool) {
	for i, p := range ps {
		if p.Block.ID == blockID {
			return i, true
		}
	}
	return -1, false
}

func answersForBlock(b models.Block, teamID uuid.UUID, answers []models.Answer) []models.Answer {
	inBlock := make(map[uuid.UUID]struct{}, len(b.Tasks))
	for _, t := range b.Tasks {
		inBlock[t.ID] = struct{}{}
	}
	var out []models.Answer
	for _, a := range answers {
		if a.TeamID != teamID {
			continue
		}
		if _, ok := inBlock[a.TaskID]; ok {
			out = append(out, a)
		}
	}
	return out
}
