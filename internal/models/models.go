package models

import (
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Типы задач
const (
	TaskTypeSingle   = "single"
	TaskTypeExamples = "examples"
)

type Tournament struct {
	ID     uuid.UUID `gorm:"type:uuid;primary_key;default:uuid_generate_v4()"`
	Name   string    `gorm:"not null"`
	Group  *string   `gorm:"column:group_label;size:32;index"`
	Blocks []Block   `gorm:"constraint:OnDelete:CASCADE"`
}

// Block is an ordered, time-boxed group of tasks within a tournament.
type Block struct {
	ID           uuid.UUID `gorm:"type:uuid;primary_key;default:uuid_generate_v4()"`
	TournamentID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uq_block_order"`
	Name         string    `gorm:"size:64;not null"`
	Order        int       `gorm:"column:sort_order;not null;uniqueIndex:uq_block_order"`
	MaxDuration  int       `gorm:"not null"` // секунды
	ImageURL     *string   `gorm:"size:500"`
	Tasks        []Task    `gorm:"constraint:OnDelete:CASCADE"`
}

func (b Block) Duration() time.Duration {
	return time.Duration(b.MaxDuration) * time.Second
}

type Task struct {
	ID            uuid.UUID     `gorm:"type:uuid;primary_key;default:uuid_generate_v4()"`
	BlockID       uuid.UUID     `gorm:"type:uuid;not null;index"`
	Order         int           `gorm:"column:sort_order;not null"`
	Title         string        `gorm:"size:200"`
	Text          string        `gorm:"not null"`
	Type          string        `gorm:"not null;default:'single'"`
	CorrectAnswer *string       `gorm:"size:200"`
	Points        int           `gorm:"not null"`
	ImageURL      *string       `gorm:"size:500"`
	Examples      []TaskExample `gorm:"constraint:OnDelete:CASCADE"`
}

func (t Task) HasExamples() bool {
	return t.Type == TaskTypeExamples
}

// TaskExample is a sub-item of a multi-part task, scored independently.
type TaskExample struct {
	ID            uuid.UUID `gorm:"type:uuid;primary_key;default:uuid_generate_v4()"`
	TaskID        uuid.UUID `gorm:"type:uuid;not null;index"`
	Position      int       `gorm:"not null;default:0"`
	Text          string    `gorm:"not null"`
	CorrectAnswer string    `gorm:"not null"`
	Points        *int
}

// PointValue returns the example's point value; null means zero.
func (e TaskExample) PointValue() int {
	if e.Points == nil {
		return 0
	}
	return *e.Points
}

type Team struct {
	ID             uuid.UUID `gorm:"type:uuid;primary_key;default:uuid_generate_v4()"`
	Name           string    `gorm:"size:200;not null;uniqueIndex:uq_team_name_tournament"`
	PasswordHash   string    `gorm:"size:255;not null" json:"-"`
	TempPassword   string    `gorm:"-" json:"-"`
	Member1        string    `gorm:"size:100;not null"`
	Member2        *string   `gorm:"size:100"`
	Member3        *string   `gorm:"size:100"`
	TournamentID   uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uq_team_name_tournament"`
	StartedAt      *time.Time
	TelegramChatID *int64 `gorm:"index"`
	CreatedAt      time.Time

	Tournament *Tournament `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}

func (t *Team) BeforeSave(tx *gorm.DB) error {
	if t.TempPassword != "" {
		hashed, err := bcrypt.GenerateFromPassword([]byte(t.TempPassword), bcrypt.DefaultCost)
		if err != nil {
			return err
		}
		t.PasswordHash = string(hashed)
		t.TempPassword = ""
	}
	return nil
}

func (t *Team) CheckPassword(password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(t.PasswordHash), []byte(password)) == nil
}

// Answer is unique on (team, task, example); a NULL example means a whole-task answer.
type Answer struct {
	ID          uuid.UUID  `gorm:"type:uuid;primary_key;default:uuid_generate_v4()"`
	TeamID      uuid.UUID  `gorm:"type:uuid;not null;index"`
	TaskID      uuid.UUID  `gorm:"type:uuid;not null;index"`
	ExampleID   *uuid.UUID `gorm:"type:uuid"`
	AnswerText  string     `gorm:"size:200;not null"`
	IsCorrect   bool       `gorm:"not null;default:false"`
	Points      *int
	SubmittedAt time.Time `gorm:"not null"`

	Team    *Team        `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Task    *Task        `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Example *TaskExample `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}

// BlockStart marks when a team's timer for a block began.
type BlockStart struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key;default:uuid_generate_v4()"`
	TeamID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uq_team_block_start"`
	BlockID   uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uq_team_block_start"`
	StartedAt time.Time `gorm:"not null"`

	Team  *Team  `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Block *Block `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}

func (BlockStart) TableName() string {
	return "team_block_starts"
}

func IntPtr(v int) *int {
	return &v
}
