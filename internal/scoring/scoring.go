// Package scoring turns stored answers into leaderboards.
package scoring

import (
	"sort"
	"strconv"

	"github.com/google/uuid"

	"quiz-tournament/internal/models"
)

// Catalog indexes a tournament's tasks so answers can be priced and grouped.
type Catalog struct {
	blocks []models.Block
	tasks  map[uuid.UUID]models.Task
}

// NewCatalog expects blocks with Tasks and Examples loaded. Blocks are kept
// in order, tasks within a block too.
func NewCatalog(blocks []models.Block) *Catalog {
	c := &Catalog{
		blocks: sortedBlocks(blocks),
		tasks:  make(map[uuid.UUID]models.Task),
	}
	for i := range c.blocks {
		c.blocks[i].Tasks = sortedTasks(c.blocks[i].Tasks)
		for _, t := range c.blocks[i].Tasks {
			c.tasks[t.ID] = t
		}
	}
	return c
}

func (c *Catalog) Blocks() []models.Block { return c.blocks }

func (c *Catalog) Task(id uuid.UUID) (models.Task, bool) {
	t, ok := c.tasks[id]
	return t, ok
}

// AnswerPoints prices one answer. The stored points value is authoritative;
// rows without one are priced from correctness and the configured value.
func AnswerPoints(task models.Task, a models.Answer) int {
	if a.Points != nil {
		return *a.Points
	}
	if !a.IsCorrect {
		return 0
	}
	if a.ExampleID == nil {
		return task.Points
	}
	for _, ex := range task.Examples {
		if ex.ID == *a.ExampleID {
			return ex.PointValue()
		}
	}
	return 0
}

// TeamScore is one leaderboard line.
type TeamScore struct {
	TeamID   uuid.UUID
	Name     string
	PerTask  map[uuid.UUID]int
	PerBlock map[uuid.UUID]int
	Total    int
	Position string
}

// Leaderboard sums every team's answers per task, per block and in total,
// then ranks the teams.
func (c *Catalog) Leaderboard(teams []models.Team, answers []models.Answer) []TeamScore {
	byTeam := groupByTeam(answers)
	out := make([]TeamScore, 0, len(teams))
	for _, team := range teams {
		s := TeamScore{
			TeamID:   team.ID,
			Name:     displayName(team),
			PerTask:  make(map[uuid.UUID]int),
			PerBlock: make(map[uuid.UUID]int, len(c.blocks)),
		}
		for _, a := range byTeam[team.ID] {
			task, ok := c.tasks[a.TaskID]
			if !ok {
				continue
			}
			s.PerTask[a.TaskID] += AnswerPoints(task, a)
		}
		for _, b := range c.blocks {
			sum := 0
			for _, t := range b.Tasks {
				sum += s.PerTask[t.ID]
			}
			s.PerBlock[b.ID] = sum
		}
		for _, v := range s.PerTask {
			s.Total += v
		}
		out = append(out, s)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return ranksBefore(out[i].Total, out[j].Total, out[i].Name, out[j].Name, out[i].TeamID, out[j].TeamID)
	})
	totals := make([]int, len(out))
	for i := range out {
		totals[i] = out[i].Total
	}
	for i, label := range RankLabels(totals) {
		out[i].Position = label
	}
	return out
}

// RankLabels labels positions for totals already sorted in descending order.
// Equal totals share a label: a lone team gets "n", a tie gets "first-last".
func RankLabels(totals []int) []string {
	labels := make([]string, len(totals))
	for i := 0; i < len(totals); {
		j := i
		for j+1 < len(totals) && totals[j+1] == totals[i] {
			j++
		}
		label := strconv.Itoa(i + 1)
		if j > i {
			label += "-" + strconv.Itoa(j+1)
		}
		for k := i; k <= j; k++ {
			labels[k] = label
		}
		i = j + 1
	}
	return labels
}

func ranksBefore(totalA, totalB int, nameA, nameB string, idA, idB uuid.UUID) bool {
	if totalA != totalB {
		return totalA > totalB
	}
	if nameA != nameB {
		return nameA < nameB
	}
	return idA.String() < idB.String()
}

func displayName(t models.Team) string {
	if t.Name != "" {
		return t.Name
	}
	return "Team #" + t.ID.String()[:8]
}

func groupByTeam(answers []models.Answer) map[uuid.UUID][]models.Answer {
	out := make(map[uuid.UUID][]models.Answer)
	for _, a := range answers {
		out[a.TeamID] = append(out[a.TeamID], a)
	}
	return out
}

func sortedBlocks(blocks []models.Block) []models.Block {
	out := make([]models.Block, len(blocks))
	copy(out, blocks)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out
}

func sortedTasks(tasks []models.Task) []models.Task {
	out := make([]models.Task, len(tasks))
	copy(out, tasks)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out
}
