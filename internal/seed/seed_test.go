package seed

import (
	"context"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"

	"quiz-tournament/internal/models"
)

const doc = `
tournaments:
  - name: Весенний кубок
    group: "5-6"
    blocks:
      - name: Разминка
        duration: 10m
        tasks:
          - title: Умножение
            text: Сколько будет 11*2?
            answer: "22"
            points: 4
          - text: Устный счёт
            examples:
              - {text: "2+2", answer: "4", points: 1}
              - {text: "3+3", answer: "6"}
      - name: Финал
        duration: 300s
        image_url: /uploads/blocks/final.png
        tasks:
          - text: Загадка
            answer: x
`

func str(s string) *string { return &s }
func num(n int) *int       { return &n }

func TestParse(t *testing.T) {
	got, err := Parse([]byte(doc))
	if err != nil {
		t.Fatal(err)
	}
	want := []models.Tournament{{
		Name:  "Весенний кубок",
		Group: str("5-6"),
		Blocks: []models.Block{
			{
				Name: "Разминка", Order: 1, MaxDuration: 600,
				Tasks: []models.Task{
					{Order: 1, Title: "Умножение", Text: "Сколько будет 11*2?", Type: models.TaskTypeSingle, CorrectAnswer: str("22"), Points: 4},
					{Order: 2, Text: "Устный счёт", Type: models.TaskTypeExamples, Points: 1, Examples: []models.TaskExample{
						{Position: 1, Text: "2+2", CorrectAnswer: "4", Points: num(1)},
						{Position: 2, Text: "3+3", CorrectAnswer: "6"},
					}},
				},
			},
			{
				Name: "Финал", Order: 2, MaxDuration: 300, ImageURL: str("/uploads/blocks/final.png"),
				Tasks: []models.Task{
					{Order: 1, Text: "Загадка", Type: models.TaskTypeSingle, CorrectAnswer: str("x"), Points: 1},
				},
			},
		},
	}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Parse mismatch (-want +got):\n%s", diff)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{"empty", `tournaments: []`, "no tournaments"},
		{"no name", `tournaments: [{name: ""}]`, "name required"},
		{"bad duration", "tournaments:\n  - name: A\n    blocks: [{name: B, duration: soon}]", "bad duration"},
		{"fractional duration", "tournaments:\n  - name: A\n    blocks: [{name: B, duration: 1500ms}]", "whole number"},
		{"missing answer", "tournaments:\n  - name: A\n    blocks: [{name: B, duration: 1m, tasks: [{text: q}]}]", "answer required"},
		{"unknown type", "tournaments:\n  - name: A\n    blocks: [{name: B, duration: 1m, tasks: [{text: q, type: essay}]}]", "unknown type"},
		{"not yaml", "tournaments: [", "failed to parse"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("err = %v, want containing %q", err, tt.want)
			}
		})
	}
}

type fakeCreator struct {
	existing []models.Tournament
	created  []string
}

func (f *fakeCreator) ListTournaments(context.Context) ([]models.Tournament, error) {
	return f.existing, nil
}

func (f *fakeCreator) CreateTournament(_ context.Context, t *models.Tournament) error {
	t.ID = uuid.New()
	f.created = append(f.created, t.Name)
	return nil
}

func TestApplySkipsExistingNames(t *testing.T) {
	repo := &fakeCreator{existing: []models.Tournament{{ID: uuid.New(), Name: "Осенний кубок"}}}
	in := []models.Tournament{{Name: "Осенний кубок"}, {Name: "Весенний кубок"}, {Name: "Весенний кубок"}}

	n, err := Apply(context.Background(), repo, in)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("created = %d, want 1", n)
	}
	if diff := cmp.Diff([]string{"Весенний кубок"}, repo.created); diff != "" {
		t.Errorf("created (-want +got):\n%s", diff)
	}
}

func TestParseKeepsZeroPoints(t *testing.T) {
	got, err := Parse([]byte("tournaments:\n  - name: A\n    blocks: [{name: B, duration: 1m, tasks: [{text: q, answer: a, points: 0}, {text: r, answer: b}]}]"))
	if err != nil {
		t.Fatal(err)
	}
	tasks := got[0].Blocks[0].Tasks
	if tasks[0].Points != 0 || tasks[1].Points != 1 {
		t.Errorf("points = %d, %d; want 0, 1", tasks[0].Points, tasks[1].Points)
	}
}
