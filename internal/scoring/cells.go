package scoring

import (
	"sort"

	"github.com/google/uuid"

	"quiz-tournament/internal/models"
)

// Dashboard cell states.
const (
	CellNoAnswer = "no-answer"
	CellWrong    = "wrong"
	CellPartial  = "partial"
	CellCorrect  = "correct"
)

// Team-facing task statuses.
const (
	StatusNone    = "none"
	StatusRight   = "right"
	StatusWrong   = "wrong"
	StatusPartial = "partial"
)

// Cell is one team's result on one task. Points is nil when nothing was answered.
type Cell struct {
	State  string
	Points *int
}

// ClassifyCell grades a team's answers to a single task.
// answers may contain rows of other tasks; they are skipped.
func ClassifyCell(task models.Task, answers []models.Answer) Cell {
	if !task.HasExamples() {
		a, ok := wholeAnswer(task, answers)
		if !ok {
			return Cell{State: CellNoAnswer}
		}
		pts := AnswerPoints(task, a)
		if a.IsCorrect {
			return Cell{State: CellCorrect, Points: &pts}
		}
		return Cell{State: CellWrong, Points: &pts}
	}

	if len(task.Examples) == 0 {
		return Cell{State: CellNoAnswer}
	}
	byExample := exampleAnswers(task, answers)
	if len(byExample) == 0 {
		return Cell{State: CellNoAnswer}
	}
	correct, pts := 0, 0
	for _, ex := range task.Examples {
		a, ok := byExample[ex.ID]
		if !ok {
			continue
		}
		pts += AnswerPoints(task, a)
		if a.IsCorrect {
			correct++
		}
	}
	switch {
	case correct == len(task.Examples):
		return Cell{State: CellCorrect, Points: &pts}
	case correct > 0:
		return Cell{State: CellPartial, Points: &pts}
	default:
		return Cell{State: CellWrong, Points: &pts}
	}
}

// TeamTaskStatus is the status shown to the team itself. A multi-example task
// stays "none" until every example has an answer.
func TeamTaskStatus(task models.Task, answers []models.Answer) string {
	if !task.HasExamples() {
		a, ok := wholeAnswer(task, answers)
		if !ok {
			return StatusNone
		}
		if a.IsCorrect {
			return StatusRight
		}
		return StatusWrong
	}

	byExample := exampleAnswers(task, answers)
	if len(byExample) == 0 || len(byExample) < len(task.Examples) {
		return StatusNone
	}
	correct := 0
	for _, a := range byExample {
		if a.IsCorrect {
			correct++
		}
	}
	switch {
	case correct == len(task.Examples):
		return StatusRight
	case correct > 0:
		return StatusPartial
	default:
		return StatusWrong
	}
}

// BlockRow is one team's line in a block table.
type BlockRow struct {
	Team      models.Team
	Cells     []Cell
	Total     int
	RankLabel string
}

// BlockTable grades every team on every task of the block and ranks them by
// the block total.
func BlockTable(block models.Block, teams []models.Team, answers []models.Answer) []BlockRow {
	tasks := sortedTasks(block.Tasks)
	byTeam := groupByTeam(answers)

	rows := make([]BlockRow, 0, len(teams))
	for _, team := range teams {
		row := BlockRow{Team: team, Cells: make([]Cell, 0, len(tasks))}
		mine := byTeam[team.ID]
		for _, t := range tasks {
			cell := ClassifyCell(t, mine)
			if cell.Points != nil {
				row.Total += *cell.Points
			}
			row.Cells = append(row.Cells, cell)
		}
		rows = append(rows, row)
	}

	sort.SliceStable(rows, func(i, j int) bool {
		return ranksBefore(rows[i].Total, rows[j].Total, displayName(rows[i].Team), displayName(rows[j].Team), rows[i].Team.ID, rows[j].Team.ID)
	})
	totals := make([]int, len(rows))
	for i := range rows {
		totals[i] = rows[i].Total
	}
	for i, label := range RankLabels(totals) {
		rows[i].RankLabel = label
	}
	return rows
}

// OverallCell is a team's sum for one block.
type OverallCell struct {
	Points   int
	Answered bool
}

type OverallRow struct {
	Team      models.Team
	Cells     []OverallCell
	Total     int
	RankLabel string
}

// OverallTable sums each team's points per block across the tournament.
func (c *Catalog) OverallTable(teams []models.Team, answers []models.Answer) []OverallRow {
	byTeam := groupByTeam(answers)

	rows := make([]OverallRow, 0, len(teams))
	for _, team := range teams {
		row := OverallRow{Team: team, Cells: make([]OverallCell, 0, len(c.blocks))}
		mine := byTeam[team.ID]
		for _, b := range c.blocks {
			var cell OverallCell
			for _, t := range b.Tasks {
				for _, a := range mine {
					if a.TaskID != t.ID || (a.ExampleID != nil) != t.HasExamples() {
						continue
					}
					cell.Answered = true
					cell.Points += AnswerPoints(t, a)
				}
			}
			row.Total += cell.Points
			row.Cells = append(row.Cells, cell)
		}
		rows = append(rows, row)
	}

	sort.SliceStable(rows, func(i, j int) bool {
		return ranksBefore(rows[i].Total, rows[j].Total, displayName(rows[i].Team), displayName(rows[j].Team), rows[i].Team.ID, rows[j].Team.ID)
	})
	totals := make([]int, len(rows))
	for i := range rows {
		totals[i] = rows[i].Total
	}
	for i, label := range RankLabels(totals) {
		rows[i].RankLabel = label
	}
	return rows
}

func wholeAnswer(task models.Task, answers []models.Answer) (models.Answer, bool) {
	for _, a := range answers {
		if a.TaskID == task.ID && a.ExampleID == nil {
			return a, true
		}
	}
	return models.Answer{}, false
}

// exampleAnswers keeps only answers to examples that belong to the task.
func exampleAnswers(task models.Task, answers []models.Answer) map[uuid.UUID]models.Answer {
	known := make(map[uuid.UUID]struct{}, len(task.Examples))
	for _, ex := range task.Examples {
		known[ex.ID] = struct{}{}
	}
	out := make(map[uuid.UUID]models.Answer)
	for _, a := range answers {
		if a.TaskID != task.ID || a.ExampleID == nil {
			continue
		}
		if _, ok := known[*a.ExampleID]; ok {
			out[*a.ExampleID] = a
		}
	}
	return out
}
