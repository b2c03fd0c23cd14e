package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

// Message — одна реплика в диалоге с моделью.
type Message struct {
	Role    string `json:"role"` // system / user / assistant
	Content string `json:"content"`
}

// Client представляет клиента для взаимодействия с LLM API (OpenAI-совместимый).
type Client struct {
	apiURL string
	model  string
	client *http.Client
}

// ChatCompletionRequest описывает тело POST-запроса к LLM API.
type ChatCompletionRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature,omitempty"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Stream      bool      `json:"stream,omitempty"`
}

// ChatCompletionChoice — один из вариантов ответа от LLM API.
type ChatCompletionChoice struct {
	Index        int     `json:"index"`
	Message      Message `json:"message"`
	FinishReason string  `json:"finish_reason"`
}

// ChatCompletionResponse описывает ответ LLM API.
type ChatCompletionResponse struct {
	ID      string                 `json:"id"`
	Object  string                 `json:"object"`
	Created int64                  `json:"created"`
	Model   string                 `json:"model"`
	Choices []ChatCompletionChoice `json:"choices"`
	Usage   map[string]int         `json:"usage"`
}

// NewClient создаёт новый Client.
// URL берется из LLM_API_URL, модель из LLM_MODEL, таймаут из LLM_API_TIMEOUT (30s по умолчанию).
func NewClient() *Client {
	apiURL := os.Getenv("LLM_API_URL")
	if apiURL == "" {
		apiURL = "http://localhost:11434/v1"
	}

	model := os.Getenv("LLM_MODEL")
	if model == "" {
		model = "gemma"
	}

	timeout := 30 * time.Second
	if t := os.Getenv("LLM_API_TIMEOUT"); t != "" {
		if d, err := time.ParseDuration(t); err == nil {
			timeout = d
		}
	}

	return &Client{
		apiURL: apiURL,
		model:  model,
		client: &http.Client{Timeout: timeout},
	}
}

// GenerateResponse отправляет историю диалога и текущее сообщение в LLM API,
// возвращает текст первого варианта ответа.
func (c *Client) GenerateResponse(ctx context.Context, userMessage string, history []Message) (string, error) {
	// Если истории нет — инициализируем системным сообщением + первым user
	if len(history) == 0 {
		history = []Message{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userMessage},
		}
	} else {
		history = append(history, Message{
			Role:    "user",
			Content: userMessage,
		})
	}

	// Формируем тело запроса
	reqBody := ChatCompletionRequest{
		Model:       c.model,
		Messages:    history,
		Temperature: 0.7,
		MaxTokens:   1000,
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal request body: %w", err)
	}

	// Собираем HTTP-запрос с контекстом
	endpoint := fmt.Sprintf("%s/chat/completions", c.apiURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("create HTTP request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if key := os.Getenv("LLM_API_KEY"); key != "" {
		req.Header.Set("Authorization", "Bearer "+key)
	}

	// Выполняем запрос
	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("LLM API request failed: %w", err)
	}
	defer resp.Body.Close()

	// Обрабатываем код ответа
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("LLM API error: status %d, body: %s", resp.StatusCode, string(body))
	}

	// Декодируем JSON-ответ
	var completion ChatCompletionResponse
	if err := json.NewDecoder(resp.Body).Decode(&completion); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}

	if len(completion.Choices) == 0 {
		return "", fmt.Errorf("LLM API returned no choices")
	}

	return completion.Choices[0].Message.Content, nil
}

// systemPrompt — базовая роль ассистента. Клиенты корейскоязычные,
// поэтому промпт на корейском.
const systemPrompt = "당신은 고객 지원 AI 상담사입니다. " +
	"친절하고 전문적으로 답변하세요. 모르는 내용은 상담원 연결을 제안하세요. " +
	"간결하게 3-5문장으로 답변하세요."
