package repository

import (
	"context"

	"github.com/google/uuid"

	"quiz-tournament/internal/models"
)

// Привязка чатов Telegram к командам

// LinkTelegram привязывает чат к команде. Чат может быть привязан только к одной команде.
func (r *Repository) LinkTelegram(ctx context.Context, teamID uuid.UUID, chatID int64) error {
	db := r.db.WithContext(ctx)
	if err := db.Model(&models.Team{}).
		Where("telegram_chat_id = ? AND id <> ?", chatID, teamID).
		Update("telegram_chat_id", nil).Error; err != nil {
		return err
	}
	res := db.Model(&models.Team{}).Where("id = ?", teamID).Update("telegram_chat_id", chatID)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// UnlinkTelegram отвязывает чат от команды
func (r *Repository) UnlinkTelegram(ctx context.Context, chatID int64) error {
	return r.db.WithContext(ctx).
		Model(&models.Team{}).
		Where("telegram_chat_id = ?", chatID).
		Update("telegram_chat_id", nil).Error
}

// FindTeamByChat находит команду по ID чата
func (r *Repository) FindTeamByChat(ctx context.Context, chatID int64) (*models.Team, error) {
	var team models.Team
	if err := r.db.WithContext(ctx).Where("telegram_chat_id = ?", chatID).First(&team).Error; err != nil {
		return nil, notFound(err)
	}
	return &team, nil
}
