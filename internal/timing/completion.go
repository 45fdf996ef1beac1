package timing

import (
	"time"

	"github.com/google/uuid"

	"quiz-tournament/internal/models"
)

// completedAt reports whether every task of the block has been fully answered
// and, if so, when the latest answer for the block was submitted.
// Correctness does not matter here, only that an answer exists.
func completedAt(p BlockProgress) (time.Time, bool) {
	inBlock := make(map[uuid.UUID]struct{}, len(p.Block.Tasks))
	for _, t := range p.Block.Tasks {
		inBlock[t.ID] = struct{}{}
	}

	whole := make(map[uuid.UUID]struct{})
	perExample := make(map[uuid.UUID]map[uuid.UUID]struct{})
	var last time.Time
	seen := false

	for _, a := range p.Answers {
		if _, ok := inBlock[a.TaskID]; !ok {
			continue
		}
		if !seen || a.SubmittedAt.After(last) {
			last = a.SubmittedAt
			seen = true
		}
		if a.ExampleID == nil {
			whole[a.TaskID] = struct{}{}
			continue
		}
		if perExample[a.TaskID] == nil {
			perExample[a.TaskID] = make(map[uuid.UUID]struct{})
		}
		perExample[a.TaskID][*a.ExampleID] = struct{}{}
	}

	for _, t := range p.Block.Tasks {
		if !taskAnswered(t, whole, perExample[t.ID]) {
			return time.Time{}, false
		}
	}
	return last, seen
}

func taskAnswered(t models.Task, whole map[uuid.UUID]struct{}, examples map[uuid.UUID]struct{}) bool {
	if !t.HasExamples() {
		_, ok := whole[t.ID]
		return ok
	}
	for _, ex := range t.Examples {
		if _, ok := examples[ex.ID]; !ok {
			return false
		}
	}
	return true
}
