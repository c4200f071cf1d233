// Package oracle — client.go: клиент OpenAI-совместимого API.
// Говорит по протоколу chat/completions, ответ модели требует в виде
// строгого JSON и разбирает его. Подходит к любому провайдеру,
// совместимому с OpenAI (сам OpenAI, локальный vLLM и т.д.).
package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
)

const (
	scoreSystemPrompt = `You score self-reported acts of kindness. Reply with strict JSON only:
{"intensity": <integer from -1 to 10>, "feedback": "<one or two encouraging sentences>"}
-1 means a harmful act, 0 neutral, 10 exceptionally impactful.`

	suggestSystemPrompt = `You coach people to do more good deeds. Given a week of karma events,
reply with strict JSON only: {"suggestions": ["<short actionable suggestion>", ...]}
Return between 1 and 5 suggestions. If the history is empty, suggest simple starter acts.`
)

// Client — реализация Oracle поверх HTTP.
type Client struct {
	baseURL string
	apiKey  string
	model   string
	http    *http.Client
}

// NewClient создаёт клиента оракула.
// timeout ограничивает ОДИН запрос; ретраи делает слой задач.
func NewClient(baseURL, apiKey, model string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		model:   model,
		http:    &http.Client{Timeout: timeout},
	}
}

// --- формат chat/completions ---

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float32       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// ScoreEvent оценивает одно событие.
func (c *Client) ScoreEvent(ctx context.Context, action, reflection string) (Score, error) {
	user := "Action: " + action
	if reflection != "" {
		user += "\nReflection: " + reflection
	}

	content, err := c.complete(ctx, scoreSystemPrompt, user)
	if err != nil {
		return Score{}, err
	}

	var parsed struct {
		Intensity int    `json:"intensity"`
		Feedback  string `json:"feedback"`
	}
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		return Score{}, fmt.Errorf("оракул вернул не-JSON ответ: %w", err)
	}
	if parsed.Feedback == "" {
		return Score{}, fmt.Errorf("оракул вернул пустую обратную связь")
	}

	return Score{
		Intensity: ClampIntensity(parsed.Intensity),
		Feedback:  parsed.Feedback,
	}, nil
}

// GenerateSuggestions генерирует рекомендации по истории событий.
func (c *Client) GenerateSuggestions(ctx context.Context, userID int64, events []EventSummary) ([]string, error) {
	var sb strings.Builder
	if len(events) == 0 {
		sb.WriteString("No recent events.")
	}
	for _, e := range events {
		sb.WriteString("- ")
		sb.WriteString(e.OccurredAt.Format("2006-01-02"))
		sb.WriteString(": ")
		sb.WriteString(e.Action)
		if e.Reflection != "" {
			sb.WriteString(" (")
			sb.WriteString(e.Reflection)
			sb.WriteString(")")
		}
		if e.Intensity != nil {
			fmt.Fprintf(&sb, " [intensity %d]", *e.Intensity)
		}
		sb.WriteString("\n")
	}

	content, err := c.complete(ctx, suggestSystemPrompt, sb.String())
	if err != nil {
		return nil, err
	}

	var parsed struct {
		Suggestions []string `json:"suggestions"`
	}
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		return nil, fmt.Errorf("оракул вернул не-JSON ответ: %w", err)
	}

	// Пустые строки модель иногда добавляет — отбрасываем
	out := make([]string, 0, len(parsed.Suggestions))
	for _, s := range parsed.Suggestions {
		if strings.TrimSpace(s) != "" {
			out = append(out, strings.TrimSpace(s))
		}
	}

	log.WithFields(log.Fields{
		"user_id": userID,
		"events":  len(events),
		"count":   len(out),
	}).Debug("Оракул сгенерировал рекомендации")

	return out, nil
}

// complete выполняет один запрос chat/completions и возвращает
// содержимое первого ответа модели.
func (c *Client) complete(ctx context.Context, system, user string) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		Temperature: 0.7,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("запрос к оракулу не удался: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("чтение ответа оракула: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("оракул ответил статусом %d: %s", resp.StatusCode, truncate(string(raw), 200))
	}

	var parsed chatResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("разбор ответа оракула: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("оракул не вернул ни одного варианта ответа")
	}

	return strings.TrimSpace(parsed.Choices[0].Message.Content), nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "…"
}
