package jobs

import (
	"context"
	"errors"
	"testing"
	"time"
)

type fakeUsers struct {
	ids []int64
	err error
}

func (f *fakeUsers) ListIDs(_ context.Context) ([]int64, error) {
	return f.ids, f.err
}

type fakeTrigger struct {
	called []int64
	failOn int64
}

func (f *fakeTrigger) TriggerGeneration(_ context.Context, userID int64) error {
	f.called = append(f.called, userID)
	if userID == f.failOn {
		return errors.New("очередь недоступна")
	}
	return nil
}

type fakeSweeper struct{}

func (fakeSweeper) ReenqueueStale(_ context.Context, _ time.Duration, _ int) (int, error) {
	return 0, nil
}

func TestFanOutSuggestionsCoversAllUsers(t *testing.T) {
	trigger := &fakeTrigger{}
	s := NewScheduler(time.UTC, trigger, fakeSweeper{}, &fakeUsers{ids: []int64{1, 2, 3}}, time.Hour, 100)

	if err := s.fanOutSuggestions(context.Background()); err != nil {
		t.Fatalf("fanOutSuggestions: %v", err)
	}
	if len(trigger.called) != 3 {
		t.Errorf("задачи поставлены %d пользователям, ожидалось 3", len(trigger.called))
	}
}

func TestFanOutSuggestionsContinuesAfterError(t *testing.T) {
	// Ошибка по одному пользователю не должна прерывать обход
	trigger := &fakeTrigger{failOn: 2}
	s := NewScheduler(time.UTC, trigger, fakeSweeper{}, &fakeUsers{ids: []int64{1, 2, 3}}, time.Hour, 100)

	if err := s.fanOutSuggestions(context.Background()); err != nil {
		t.Fatalf("fanOutSuggestions: %v", err)
	}
	if len(trigger.called) != 3 {
		t.Errorf("обход прервался: задачи поставлены %d пользователям, ожидалось 3", len(trigger.called))
	}
}

func TestFanOutSuggestionsListError(t *testing.T) {
	trigger := &fakeTrigger{}
	s := NewScheduler(time.UTC, trigger, fakeSweeper{}, &fakeUsers{err: errors.New("база недоступна")}, time.Hour, 100)

	if err := s.fanOutSuggestions(context.Background()); err == nil {
		t.Error("ожидалась ошибка при недоступном списке пользователей")
	}
	if len(trigger.called) != 0 {
		t.Errorf("задачи не должны ставиться без списка пользователей, поставлено %d", len(trigger.called))
	}
}
