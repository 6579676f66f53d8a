package generation

import (
	"strings"

	"github.com/yungbote/enemia-backend/internal/domain"
)

func ChatStartPrompt(q *domain.Question, query string) (string, error) {
	_, user, err := Render(PromptChatStart, Input{
		QuestionText:  q.Text,
		Options:       q.OptionsLine(),
		CorrectAnswer: q.CorrectAnswer,
		Explanation:   q.Explanation,
		Query:         query,
	})
	return user, err
}

// ChatContinuePrompt replays history as "Estudante:"/"Tutor:" turns ahead of the new message.
func ChatContinuePrompt(q *domain.Question, history []domain.ChatMessage, message string) (string, error) {
	_, user, err := Render(PromptChatContinue, Input{
		QuestionText:  q.Text,
		Options:       q.OptionsLine(),
		CorrectAnswer: q.CorrectAnswer,
		Explanation:   q.Explanation,
		History:       FormatHistory(history),
		Query:         message,
	})
	return user, err
}

func FormatHistory(history []domain.ChatMessage) string {
	turns := make([]string, 0, len(history))
	for _, m := range history {
		role := "Tutor"
		if m.IsUser {
			role = "Estudante"
		}
		turns = append(turns, role+": "+m.Content)
	}
	return strings.Join(turns, "\n\n")
}
