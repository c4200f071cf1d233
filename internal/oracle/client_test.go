package oracle

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

// completionServer поднимает httptest-сервер, который отдаёт content
// как ответ модели в формате chat/completions.
func completionServer(t *testing.T, content string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("неожиданный путь запроса: %s", r.URL.Path)
		}
		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("тело запроса не разобралось: %v", err)
		}
		if len(req.Messages) != 2 {
			t.Errorf("ожидалось 2 сообщения (system+user), получили %d", len(req.Messages))
		}
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"role": "assistant", "content": content}},
			},
		})
	}))
}

func TestClient_ScoreEvent(t *testing.T) {
	srv := completionServer(t, `{"intensity": 8, "feedback": "Отличный поступок"}`)
	defer srv.Close()

	c := NewClient(srv.URL, "test-key", "test-model", 5*time.Second)
	score, err := c.ScoreEvent(context.Background(), "Помог соседу", "Было приятно")
	if err != nil {
		t.Fatalf("ScoreEvent: %v", err)
	}
	if score.Intensity != 8 {
		t.Errorf("интенсивность = %d, ожидалось 8", score.Intensity)
	}
	if score.Feedback == "" {
		t.Errorf("обратная связь пустая")
	}
}

func TestClient_ScoreEvent_ClampsIntensity(t *testing.T) {
	srv := completionServer(t, `{"intensity": 42, "feedback": "ok"}`)
	defer srv.Close()

	c := NewClient(srv.URL, "", "m", 5*time.Second)
	score, err := c.ScoreEvent(context.Background(), "a", "")
	if err != nil {
		t.Fatalf("ScoreEvent: %v", err)
	}
	if score.Intensity != MaxIntensity {
		t.Errorf("интенсивность вне диапазона не обрезана: %d", score.Intensity)
	}
}

func TestClient_ScoreEvent_RejectsNonJSON(t *testing.T) {
	srv := completionServer(t, `Sure! Here is the score: 8 out of 10.`)
	defer srv.Close()

	c := NewClient(srv.URL, "", "m", 5*time.Second)
	if _, err := c.ScoreEvent(context.Background(), "a", ""); err == nil {
		t.Fatal("ожидалась ошибка на не-JSON ответе модели")
	}
}

func TestClient_GenerateSuggestions(t *testing.T) {
	srv := completionServer(t, `{"suggestions": ["Позвони бабушке", "  ", "Убери мусор во дворе"]}`)
	defer srv.Close()

	c := NewClient(srv.URL, "", "m", 5*time.Second)
	intensity := 7
	got, err := c.GenerateSuggestions(context.Background(), 1, []EventSummary{
		{Action: "Помог соседу", Intensity: &intensity, OccurredAt: time.Now()},
	})
	if err != nil {
		t.Fatalf("GenerateSuggestions: %v", err)
	}
	// Пустые строки отбрасываются
	if len(got) != 2 {
		t.Fatalf("получили %d рекомендаций, ожидалось 2: %v", len(got), got)
	}
}

func TestClient_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", "m", 5*time.Second)
	if _, err := c.ScoreEvent(context.Background(), "a", ""); err == nil {
		t.Fatal("ожидалась ошибка на статусе 429")
	}
}
