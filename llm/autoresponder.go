package llm

import (
	"context"
	"log"
	"strings"

	"github.com/egor/omnidesk/models"
)

// historyLimit — сколько последних сообщений диалога уходит в промпт.
const historyLimit = 10

// AutoResponder генерирует ответы от имени поддержки, когда живой оператор
// недоступен или вопрос простой.
type AutoResponder struct {
	client  *Client
	botName string
}

// NewAutoResponder создает новый экземпляр автоответчика
func NewAutoResponder(client *Client) *AutoResponder {
	return &AutoResponder{
		client:  client,
		botName: "상담봇",
	}
}

// Generate генерирует ответ на сообщение клиента с учетом истории диалога.
// Пустая строка без ошибки означает «ответа не будет» (эскалация после sanitize).
func (ar *AutoResponder) Generate(ctx context.Context, userMessage string, history []models.Message) (string, error) {
	prompt := buildHistory(history)

	response, err := ar.client.GenerateResponse(ctx, userMessage, prompt)
	if err != nil {
		return "", err
	}

	clean, escalate := sanitize(response)
	if escalate {
		log.Printf("[llm] ответ модели отбракован фильтром, эскалация оператору")
		return "", nil
	}
	return clean, nil
}

// buildHistory переводит сообщения диалога в формат LLM API.
// История подается от старых к новым, системный промпт первым.
func buildHistory(history []models.Message) []Message {
	if len(history) > historyLimit {
		history = history[len(history)-historyLimit:]
	}

	out := make([]Message, 0, len(history)+1)
	out = append(out, Message{Role: "system", Content: systemPrompt})

	for _, m := range history {
		if strings.TrimSpace(m.Content) == "" {
			continue
		}
		switch m.SenderType {
		case models.SenderCustomer:
			out = append(out, Message{Role: "user", Content: m.Content})
		case models.SenderAgent, models.SenderBot:
			out = append(out, Message{Role: "assistant", Content: m.Content})
		}
	}
	return out
}
