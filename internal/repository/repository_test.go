package repository

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"quiz-tournament/internal/models"
)

// dryRun builds Postgres statements without a server.
func dryRun(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN: "host=localhost user=quiz dbname=quiz sslmode=disable",
	}), &gorm.Config{DryRun: true, DisableAutomaticPing: true})
	if err != nil {
		t.Fatal(err)
	}
	return db
}

func sqlOf(tx *gorm.DB) string {
	return strings.Join(strings.Fields(tx.Statement.SQL.String()), " ")
}

func TestUpsertWholeAnswersTargetsPartialIndex(t *testing.T) {
	points := 4
	tx := upsertWholeAnswers(dryRun(t), []models.Answer{{
		TeamID: uuid.New(), TaskID: uuid.New(), AnswerText: "22", IsCorrect: true, Points: &points, SubmittedAt: time.Now(),
	}})
	if tx.Error != nil {
		t.Fatal(tx.Error)
	}

	got := sqlOf(tx)
	for _, want := range []string{
		`INSERT INTO "answers"`,
		`ON CONFLICT ("team_id","task_id") WHERE example_id IS NULL DO UPDATE SET ` +
			`"answer_text"="excluded"."answer_text","is_correct"="excluded"."is_correct",` +
			`"points"="excluded"."points","submitted_at"="excluded"."submitted_at"`,
	} {
		if !strings.Contains(got, want) {
			t.Errorf("statement\n%s\nmissing\n%s", got, want)
		}
	}
}

func TestUpsertExampleAnswersTargetsPartialIndex(t *testing.T) {
	ex := uuid.New()
	points := 0
	rows := []models.Answer{
		{TeamID: uuid.New(), TaskID: uuid.New(), ExampleID: &ex, AnswerText: "5", Points: &points, SubmittedAt: time.Now()},
		{TeamID: uuid.New(), TaskID: uuid.New(), ExampleID: &ex, AnswerText: "6", Points: &points, SubmittedAt: time.Now()},
	}
	tx := upsertExampleAnswers(dryRun(t), rows)
	if tx.Error != nil {
		t.Fatal(tx.Error)
	}

	got := sqlOf(tx)
	want := `ON CONFLICT ("team_id","task_id","example_id") WHERE example_id IS NOT NULL DO UPDATE SET "answer_text"="excluded"."answer_text"`
	if !strings.Contains(got, want) {
		t.Errorf("statement\n%s\nmissing\n%s", got, want)
	}
	if strings.Count(got, "INSERT INTO") != 1 {
		t.Errorf("batch should be one statement: %s", got)
	}
}

func TestInsertBlockStartKeepsFirstRow(t *testing.T) {
	row := models.BlockStart{TeamID: uuid.New(), BlockID: uuid.New(), StartedAt: time.Now()}
	tx := insertBlockStart(dryRun(t), &row)
	if tx.Error != nil {
		t.Fatal(tx.Error)
	}

	got := sqlOf(tx)
	for _, want := range []string{
		`INSERT INTO "team_block_starts"`,
		`ON CONFLICT ("team_id","block_id") DO NOTHING`,
	} {
		if !strings.Contains(got, want) {
			t.Errorf("statement\n%s\nmissing\n%s", got, want)
		}
	}
}

func TestAnswerIndexesMatchConflictTargets(t *testing.T) {
	for _, want := range []string{
		"(team_id, task_id) WHERE example_id IS NULL",
		"(team_id, task_id, example_id) WHERE example_id IS NOT NULL",
	} {
		found := false
		for _, stmt := range answerIndexes {
			if strings.HasPrefix(stmt, "CREATE UNIQUE INDEX") && strings.Contains(stmt, want) {
				found = true
			}
		}
		if !found {
			t.Errorf("no unique index on %s", want)
		}
	}
}
