package team

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"quiz-tournament/internal/service"
	"quiz-tournament/internal/timing"
)

const (
	StateStart    = "start"    // Начальное состояние
	StateName     = "name"     // Ввод названия команды
	StatePassword = "password" // Ввод пароля
	StateMenu     = "menu"     // Главное меню
	StateAnswer   = "answer"   // Ввод ответа на задачу
)

// Действия inline-кнопок
const (
	actionState = "state"
	actionBlock = "block"
	actionTask  = "task"
	actionStart = "start"
)

// Сессия чата
type UserSession struct {
	State    string
	TeamName string
	TeamID   uuid.UUID
	TaskID   uuid.UUID

	// Для задач с примерами: примеры по порядку и собранные ответы
	Examples  []service.ExampleView
	Collected []service.ExampleSubmission
}

func (s *UserSession) loggedIn() bool { return s.TeamID != uuid.Nil }

// botAPI is the part of *tgbotapi.BotAPI the bot uses.
type botAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// TelegramBot структура для телеграм бота
type TelegramBot struct {
	api         botAPI
	teamService service.TeamService

	mu       sync.Mutex
	sessions map[int64]*UserSession
}

// NewTelegramBot создает новый экземпляр телеграм бота
func NewTelegramBot(token string, teamService service.TeamService) (*TelegramBot, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	return newTelegramBot(bot, teamService), nil
}

func newTelegramBot(api botAPI, teamService service.TeamService) *TelegramBot {
	return &TelegramBot{
		api:         api,
		teamService: teamService,
		sessions:    make(map[int64]*UserSession),
	}
}

// Start обрабатывает обновления до отмены контекста
func (b *TelegramBot) Start(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := b.api.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			b.handleUpdate(ctx, update)
		}
	}
}

func (b *TelegramBot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.Message != nil:
		b.handleMessage(ctx, update.Message.Chat.ID, update.Message.Text)
	case update.CallbackQuery != nil && update.CallbackQuery.Message != nil:
		// Отвечаем на callback, чтобы убрать часы загрузки
		if _, err := b.api.Request(tgbotapi.NewCallback(update.CallbackQuery.ID, "")); err != nil {
			log.Warn().Err(err).Msg("callback ack failed")
		}
		b.handleCallback(ctx, update.CallbackQuery.Message.Chat.ID, update.CallbackQuery.Data)
	}
}

// session возвращает сессию чата. Новая сессия восстанавливает привязку из БД.
func (b *TelegramBot) session(ctx context.Context, chatID int64) *UserSession {
	b.mu.Lock()
	s, ok := b.sessions[chatID]
	b.mu.Unlock()
	if ok {
		return s
	}

	s = &UserSession{State: StateStart}
	if team, err := b.teamService.TeamByChat(ctx, chatID); err == nil {
		s.TeamID = team.ID
		s.State = StateMenu
	} else if !errors.Is(err, service.ErrNotFound) {
		log.Warn().Err(err).Int64("chat_id", chatID).Msg("chat lookup failed")
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if existing, ok := b.sessions[chatID]; ok {
		return existing
	}
	b.sessions[chatID] = s
	return s
}

func (b *TelegramBot) dropSession(chatID int64) {
	b.mu.Lock()
	delete(b.sessions, chatID)
	b.mu.Unlock()
}

// handleMessage обрабатывает сообщения от пользователя
func (b *TelegramBot) handleMessage(ctx context.Context, chatID int64, text string) {
	text = strings.TrimSpace(text)
	s := b.session(ctx, chatID)

	switch text {
	case "/start":
		if s.loggedIn() {
			s.State = StateMenu
			b.sendMainMenu(chatID)
			return
		}
		b.sendMessage(chatID, "👋 Добро пожаловать!\nВведите название вашей команды:")
		s.State = StateName
		return
	case "/menu":
		if s.loggedIn() {
			s.State = StateMenu
			b.sendMainMenu(chatID)
			return
		}
	case "/logout":
		if err := b.teamService.UnlinkTelegram(ctx, chatID); err != nil {
			log.Warn().Err(err).Int64("chat_id", chatID).Msg("unlink failed")
		}
		b.dropSession(chatID)
		b.sendMessage(chatID, "Вы вышли. Чтобы войти снова, отправьте /start")
		return
	}

	switch s.State {
	case StateName:
		if text == "" {
			b.sendMessage(chatID, "Название не может быть пустым. Введите название команды:")
			return
		}
		s.TeamName = text
		b.sendMessage(chatID, "Введите пароль:")
		s.State = StatePassword

	case StatePassword:
		team, err := b.teamService.Authenticate(ctx, s.TeamName, text, nil)
		if err != nil {
			b.sendMessage(chatID, "Неверное название или пароль. Попробуйте снова.\nВведите название команды:")
			s.State = StateName
			return
		}
		if err := b.teamService.LinkTelegram(ctx, team.ID, chatID); err != nil {
			b.sendMessage(chatID, "Ошибка при привязке Telegram к команде: "+err.Error())
			s.State = StateStart
			return
		}
		s.TeamID = team.ID
		s.State = StateMenu
		b.sendMessage(chatID, fmt.Sprintf("✅ Вы вошли как «%s»", team.Name))
		b.sendMainMenu(chatID)

	case StateAnswer:
		b.collectAnswer(ctx, chatID, s, text)

	case StateMenu:
		b.sendMessage(chatID, "Неизвестная команда. Используйте кнопки меню или отправьте /menu")

	default:
		b.sendMessage(chatID, "Отправьте /start, чтобы войти")
	}
}

// handleCallback обрабатывает нажатия inline-кнопок
func (b *TelegramBot) handleCallback(ctx context.Context, chatID int64, data string) {
	s := b.session(ctx, chatID)
	if !s.loggedIn() {
		b.sendMessage(chatID, "Сначала войдите: /start")
		return
	}

	action, id, err := parseCallback(data)
	if err != nil {
		log.Warn().Err(err).Str("data", data).Msg("bad callback data")
		return
	}

	switch action {
	case actionState:
		b.showState(ctx, chatID, s)
	case actionBlock:
		b.showActiveBlock(ctx, chatID, s)
	case actionTask:
		b.openTask(ctx, chatID, s, id)
	case actionStart:
		res, err := b.teamService.StartBlock(ctx, s.TeamID, id)
		if err != nil {
			b.sendError(chatID, err)
			return
		}
		if res.AlreadyStarted {
			b.sendMessage(chatID, "Блок уже начат")
		} else {
			b.sendMessage(chatID, "⏱ Блок начат. Удачи!")
		}
		b.showActiveBlock(ctx, chatID, s)
	}
}

// parseCallback разбирает данные кнопки вида "action" или "action:uuid"
func parseCallback(data string) (string, uuid.UUID, error) {
	action, rest, hasID := strings.Cut(data, ":")
	switch action {
	case actionState, actionBlock:
		if hasID {
			return "", uuid.Nil, fmt.Errorf("unexpected id in %q", data)
		}
		return action, uuid.Nil, nil
	case actionTask, actionStart:
		id, err := uuid.Parse(rest)
		if err != nil {
			return "", uuid.Nil, fmt.Errorf("bad id in %q: %w", data, err)
		}
		return action, id, nil
	}
	return "", uuid.Nil, fmt.Errorf("unknown action %q", data)
}

func callbackData(action string, id uuid.UUID) string {
	return action + ":" + id.String()
}

func (b *TelegramBot) tournament(ctx context.Context, s *UserSession) (*service.TournamentView, error) {
	team, err := b.teamService.GetTeam(ctx, s.TeamID)
	if err != nil {
		return nil, err
	}
	return b.teamService.Tournament(ctx, s.TeamID, team.TournamentID)
}

func (b *TelegramBot) showState(ctx context.Context, chatID int64, s *UserSession) {
	view, err := b.tournament(ctx, s)
	if err != nil {
		b.sendError(chatID, err)
		return
	}
	msg := tgbotapi.NewMessage(chatID, formatState(view))
	if next := nextBlock(view); next != nil {
		msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Начать блок «"+next.Name+"»", callbackData(actionStart, next.ID)),
		))
	}
	b.send(msg)
}

// nextBlock возвращает блок, который команда может начать, если сейчас ничего не идёт
func nextBlock(view *service.TournamentView) *service.BlockTimingView {
	if view.State != timing.StateWaiting {
		return nil
	}
	for i := range view.Blocks {
		if view.Blocks[i].StartedAt == nil {
			return &view.Blocks[i]
		}
	}
	return nil
}

func (b *TelegramBot) showActiveBlock(ctx context.Context, chatID int64, s *UserSession) {
	view, err := b.tournament(ctx, s)
	if err != nil {
		b.sendError(chatID, err)
		return
	}
	if view.ActiveBlock == nil {
		b.sendMessage(chatID, "Сейчас нет активного блока.\n\n"+formatState(view))
		return
	}
	block, err := b.teamService.Block(ctx, s.TeamID, view.ActiveBlock.ID)
	if err != nil {
		b.sendError(chatID, err)
		return
	}

	var rows [][]tgbotapi.InlineKeyboardButton
	for _, t := range block.Tasks {
		label := fmt.Sprintf("%s %d. %s", statusIcon(t.Status), t.Order, t.Title)
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(label, callbackData(actionTask, t.ID)),
		))
	}
	msg := tgbotapi.NewMessage(chatID, fmt.Sprintf("Блок «%s»\nОсталось: %s", block.Name, formatSeconds(block.TimeLeft)))
	if len(rows) > 0 {
		msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(rows...)
	}
	b.send(msg)
}

func (b *TelegramBot) openTask(ctx context.Context, chatID int64, s *UserSession, taskID uuid.UUID) {
	task, err := b.teamService.Task(ctx, s.TeamID, taskID)
	if err != nil {
		b.sendError(chatID, err)
		return
	}
	s.TaskID = task.ID
	s.Examples = task.Examples
	s.Collected = nil
	s.State = StateAnswer

	b.sendMessage(chatID, formatTask(task))
	if len(task.Examples) > 0 {
		b.sendMessage(chatID, examplePrompt(task.Examples, 0))
	} else {
		b.sendMessage(chatID, "Введите ваш ответ:")
	}
}

// collectAnswer принимает ответ на задачу или на очередной пример
func (b *TelegramBot) collectAnswer(ctx context.Context, chatID int64, s *UserSession, text string) {
	var sub service.Submission
	if len(s.Examples) > 0 {
		i := len(s.Collected)
		s.Collected = append(s.Collected, service.ExampleSubmission{ExampleID: s.Examples[i].ID.String(), Answer: text})
		if i+1 < len(s.Examples) {
			b.sendMessage(chatID, examplePrompt(s.Examples, i+1))
			return
		}
		sub = service.Submission{Batch: true, Answers: s.Collected}
	} else {
		sub = service.Submission{Answer: &text}
	}

	s.State = StateMenu
	s.Examples, s.Collected = nil, nil

	res, err := b.teamService.SubmitAnswer(ctx, s.TeamID, s.TaskID, sub)
	if err != nil {
		b.sendError(chatID, err)
		return
	}
	b.sendMessage(chatID, formatResult(res))
	b.sendMainMenu(chatID)
}

// sendMainMenu отправляет главное меню
func (b *TelegramBot) sendMainMenu(chatID int64) {
	keyboard := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Состояние турнира", actionState),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Задачи текущего блока", actionBlock),
		),
	)
	msg := tgbotapi.NewMessage(chatID, "Главное меню:")
	msg.ReplyMarkup = keyboard
	b.send(msg)
}

func (b *TelegramBot) sendError(chatID int64, err error) {
	switch {
	case errors.Is(err, service.ErrForbidden):
		b.sendMessage(chatID, "Это недоступно вашей команде")
	case errors.Is(err, service.ErrNotFound):
		b.sendMessage(chatID, "Не найдено")
	case errors.Is(err, service.ErrBadRequest):
		b.sendMessage(chatID, "Ошибка: "+err.Error())
	default:
		log.Error().Err(err).Int64("chat_id", chatID).Msg("telegram request failed")
		b.sendMessage(chatID, "Что-то пошло не так, попробуйте позже")
	}
}

// sendMessage отправляет сообщение пользователю
func (b *TelegramBot) sendMessage(chatID int64, text string) {
	b.send(tgbotapi.NewMessage(chatID, text))
}

func (b *TelegramBot) send(msg tgbotapi.MessageConfig) {
	if _, err := b.api.Send(msg); err != nil {
		log.Error().Err(err).Int64("chat_id", msg.ChatID).Msg("error sending message")
	}
}
