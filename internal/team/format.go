package team

import (
	"fmt"
	"strings"

	"quiz-tournament/internal/scoring"
	"quiz-tournament/internal/service"
	"quiz-tournament/internal/timing"
)

// formatSeconds печатает оставшееся время как ММ:СС
func formatSeconds(sec *int64) string {
	if sec == nil {
		return "—"
	}
	v := *sec
	if v < 0 {
		v = 0
	}
	return fmt.Sprintf("%02d:%02d", v/60, v%60)
}

func formatState(view *service.TournamentView) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "🏆 %s\n", view.Name)
	switch view.State {
	case timing.StateRunning:
		if ab := view.ActiveBlock; ab != nil {
			fmt.Fprintf(&sb, "Идёт блок «%s», осталось %s\n", ab.Name, formatSeconds(ab.TimeLeft))
		}
	case timing.StateFinished:
		sb.WriteString("Все блоки завершены. Спасибо за игру!\n")
	default:
		sb.WriteString("Ожидание: начните следующий блок, когда будете готовы\n")
	}

	for _, bt := range view.Blocks {
		mark := "○"
		switch {
		case bt.FinishedAt != nil:
			mark = "✔"
		case bt.StartedAt != nil:
			mark = "▶"
		}
		fmt.Fprintf(&sb, "%s %d. %s\n", mark, bt.Order, bt.Name)
	}
	return strings.TrimRight(sb.String(), "\n")
}

func formatTask(task *service.TaskView) string {
	var sb strings.Builder
	if task.Title != "" {
		fmt.Fprintf(&sb, "%s\n\n", task.Title)
	}
	sb.WriteString(task.Text)
	if task.ImageURL != nil {
		fmt.Fprintf(&sb, "\n\nКартинка: %s", *task.ImageURL)
	}
	if len(task.Examples) == 0 {
		fmt.Fprintf(&sb, "\n\nБаллы: %d", task.Points)
		if a := task.ExistingAnswer; a != nil {
			fmt.Fprintf(&sb, "\nВаш ответ: %s", a.AnswerText)
		}
	}
	return sb.String()
}

func examplePrompt(examples []service.ExampleView, i int) string {
	return fmt.Sprintf("Пример %d/%d: %s", i+1, len(examples), examples[i].Text)
}

func formatResult(res *service.SubmitResult) string {
	var sb strings.Builder
	if res.IsCorrect != nil {
		if *res.IsCorrect {
			sb.WriteString("Правильный ответ! 🎉")
		} else {
			sb.WriteString("Неправильный ответ.")
		}
	}
	if len(res.Results) > 0 {
		correct, failed := 0, 0
		for _, r := range res.Results {
			switch {
			case r.Error != "":
				failed++
			case r.IsCorrect != nil && *r.IsCorrect:
				correct++
			}
		}
		fmt.Fprintf(&sb, "Верно %d из %d", correct, len(res.Results))
		if failed > 0 {
			fmt.Fprintf(&sb, " (не принято: %d)", failed)
		}
	}
	if res.BlockCompleted {
		sb.WriteString("\n\nБлок завершён.")
		if res.NextBlock != nil {
			fmt.Fprintf(&sb, " Следующий: «%s».", res.NextBlock.Name)
		}
	}
	return sb.String()
}

func statusIcon(status string) string {
	switch status {
	case scoring.StatusRight:
		return "✅"
	case scoring.StatusWrong:
		return "❌"
	case scoring.StatusPartial:
		return "🟡"
	default:
		return "▫️"
	}
}
