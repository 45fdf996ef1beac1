// Package seed loads tournament content (blocks, tasks, examples) from YAML.
package seed

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"quiz-tournament/internal/models"
)

type File struct {
	Tournaments []Tournament `yaml:"tournaments"`
}

type Tournament struct {
	Name   string  `yaml:"name"`
	Group  string  `yaml:"group"`
	Blocks []Block `yaml:"blocks"`
}

type Block struct {
	Name     string `yaml:"name"`
	Duration string `yaml:"duration"` // например "10m"
	ImageURL string `yaml:"image_url"`
	Tasks    []Task `yaml:"tasks"`
}

type Task struct {
	Title    string    `yaml:"title"`
	Text     string    `yaml:"text"`
	Type     string    `yaml:"type"`
	Answer   *string   `yaml:"answer"`
	Points   *int      `yaml:"points"`
	ImageURL string    `yaml:"image_url"`
	Examples []Example `yaml:"examples"`
}

type Example struct {
	Text   string `yaml:"text"`
	Answer string `yaml:"answer"`
	Points *int   `yaml:"points"`
}

// Creator is the part of the repository seeding writes through.
type Creator interface {
	ListTournaments(ctx context.Context) ([]models.Tournament, error)
	CreateTournament(ctx context.Context, t *models.Tournament) error
}

func Load(path string) ([]models.Tournament, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a seed document. Order fields follow list order, starting at 1.
func Parse(data []byte) ([]models.Tournament, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse seed: %w", err)
	}
	if len(f.Tournaments) == 0 {
		return nil, errors.New("seed has no tournaments")
	}

	out := make([]models.Tournament, 0, len(f.Tournaments))
	for i, t := range f.Tournaments {
		mt, err := t.model()
		if err != nil {
			return nil, fmt.Errorf("tournament %d: %w", i+1, err)
		}
		out = append(out, mt)
	}
	return out, nil
}

func (t Tournament) model() (models.Tournament, error) {
	name := strings.TrimSpace(t.Name)
	if name == "" {
		return models.Tournament{}, errors.New("name required")
	}
	mt := models.Tournament{Name: name, Group: optional(t.Group)}
	for i, b := range t.Blocks {
		mb, err := b.model(i + 1)
		if err != nil {
			return models.Tournament{}, fmt.Errorf("%s: block %d: %w", name, i+1, err)
		}
		mt.Blocks = append(mt.Blocks, mb)
	}
	return mt, nil
}

func (b Block) model(order int) (models.Block, error) {
	if strings.TrimSpace(b.Name) == "" {
		return models.Block{}, errors.New("name required")
	}
	d, err := time.ParseDuration(b.Duration)
	if err != nil {
		return models.Block{}, fmt.Errorf("bad duration %q: %w", b.Duration, err)
	}
	if d < time.Second || d%time.Second != 0 {
		return models.Block{}, fmt.Errorf("duration %s must be a positive whole number of seconds", d)
	}

	mb := models.Block{
		Name:        strings.TrimSpace(b.Name),
		Order:       order,
		MaxDuration: int(d / time.Second),
		ImageURL:    optional(b.ImageURL),
	}
	for i, t := range b.Tasks {
		mt, err := t.model(i + 1)
		if err != nil {
			return models.Block{}, fmt.Errorf("task %d: %w", i+1, err)
		}
		mb.Tasks = append(mb.Tasks, mt)
	}
	return mb, nil
}

func (t Task) model(order int) (models.Task, error) {
	if strings.TrimSpace(t.Text) == "" {
		return models.Task{}, errors.New("text required")
	}
	kind := t.Type
	if kind == "" {
		kind = models.TaskTypeSingle
		if len(t.Examples) > 0 {
			kind = models.TaskTypeExamples
		}
	}

	mt := models.Task{
		Order:    order,
		Title:    strings.TrimSpace(t.Title),
		Text:     t.Text,
		Type:     kind,
		Points:   1,
		ImageURL: optional(t.ImageURL),
	}
	if t.Points != nil {
		mt.Points = *t.Points
	}

	switch kind {
	case models.TaskTypeSingle:
		if t.Answer == nil {
			return models.Task{}, errors.New("answer required")
		}
		if len(t.Examples) > 0 {
			return models.Task{}, errors.New("single task cannot have examples")
		}
		mt.CorrectAnswer = t.Answer
	case models.TaskTypeExamples:
		for i, e := range t.Examples {
			if strings.TrimSpace(e.Text) == "" {
				return models.Task{}, fmt.Errorf("example %d: text required", i+1)
			}
			mt.Examples = append(mt.Examples, models.TaskExample{
				Position:      i + 1,
				Text:          e.Text,
				CorrectAnswer: e.Answer,
				Points:        e.Points,
			})
		}
	default:
		return models.Task{}, fmt.Errorf("unknown type %q", kind)
	}
	return mt, nil
}

// Apply creates tournaments whose names are not taken yet and returns how many it created.
func Apply(ctx context.Context, repo Creator, tournaments []models.Tournament) (int, error) {
	existing, err := repo.ListTournaments(ctx)
	if err != nil {
		return 0, err
	}
	taken := make(map[string]bool, len(existing))
	for _, t := range existing {
		taken[t.Name] = true
	}

	created := 0
	for i := range tournaments {
		t := &tournaments[i]
		if taken[t.Name] {
			log.Info().Str("tournament", t.Name).Msg("tournament exists, skipped")
			continue
		}
		if err := repo.CreateTournament(ctx, t); err != nil {
			return created, fmt.Errorf("create %q: %w", t.Name, err)
		}
		taken[t.Name] = true
		created++
		log.Info().Str("tournament", t.Name).Str("tournament_id", t.ID.String()).Int("blocks", len(t.Blocks)).Msg("tournament created")
	}
	return created, nil
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
