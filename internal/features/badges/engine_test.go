package badges

import (
	"context"
	"sync"
	"testing"
	"time"

	"serotonyl.ru/karma-tracker/internal/common"
	"serotonyl.ru/karma-tracker/internal/events"
)

// fakeRepo — каталог и выдачи в памяти с идемпотентной выдачей.
type fakeRepo struct {
	mu      sync.Mutex
	catalog map[string]*Badge
	awards  map[[2]int64]time.Time // (userID, badgeID) → awarded_at
}

func newFakeRepo() *fakeRepo {
	f := &fakeRepo{
		catalog: make(map[string]*Badge),
		awards:  make(map[[2]int64]time.Time),
	}
	for i, code := range []string{
		CodeFirstEvent, CodeEvents10, CodeEvents50,
		CodeEvents100, CodeFirstSuggestion, CodeTop10,
	} {
		f.catalog[code] = &Badge{ID: int64(i + 1), Code: code, Name: code, Active: true}
	}
	return f
}

func (f *fakeRepo) GetByCode(_ context.Context, code string) (*Badge, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if b, ok := f.catalog[code]; ok {
		return b, nil
	}
	return nil, common.ErrBadgeNotFound
}

func (f *fakeRepo) ListActive(_ context.Context) ([]*Badge, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*Badge
	for _, b := range f.catalog {
		if b.Active {
			out = append(out, b)
		}
	}
	return out, nil
}

func (f *fakeRepo) Award(_ context.Context, userID, badgeID int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := [2]int64{userID, badgeID}
	if _, ok := f.awards[key]; ok {
		return false, nil
	}
	f.awards[key] = time.Now()
	return true, nil
}

func (f *fakeRepo) ListByUser(_ context.Context, userID int64) ([]*Awarded, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*Awarded
	for key, at := range f.awards {
		if key[0] == userID {
			for _, b := range f.catalog {
				if b.ID == key[1] {
					out = append(out, &Awarded{Badge: *b, AwardedAt: at})
				}
			}
		}
	}
	return out, nil
}

func (f *fakeRepo) awardCount(userID int64) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for key := range f.awards {
		if key[0] == userID {
			n++
		}
	}
	return n
}

func TestEngine_AwardsBadgeForSignal(t *testing.T) {
	repo := newFakeRepo()
	engine := NewEngine(repo)

	engine.Handle(events.Signal{Kind: events.FirstEvent, UserID: 1})

	got, _ := engine.ListMyBadges(context.Background(), 1)
	if len(got) != 1 || got[0].Code != CodeFirstEvent {
		t.Fatalf("бейджи пользователя: %v", got)
	}
}

func TestEngine_DuplicateSignalsAwardOnce(t *testing.T) {
	repo := newFakeRepo()
	engine := NewEngine(repo)

	// Два вычисления рейтинга публикуют top10 для одного пользователя
	engine.Handle(events.Signal{Kind: events.Top10Ranked, UserID: 7})
	engine.Handle(events.Signal{Kind: events.Top10Ranked, UserID: 7})

	if n := repo.awardCount(7); n != 1 {
		t.Errorf("выдач: %d, ожидалась ровно 1", n)
	}
}

func TestEngine_ConcurrentDuplicates(t *testing.T) {
	repo := newFakeRepo()
	engine := NewEngine(repo)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			engine.Handle(events.Signal{Kind: events.Milestone10, UserID: 3})
		}()
	}
	wg.Wait()

	if n := repo.awardCount(3); n != 1 {
		t.Errorf("гонка выдала %d записей, ожидалась 1", n)
	}
}

func TestEngine_DistinctKindsDistinctBadges(t *testing.T) {
	repo := newFakeRepo()
	engine := NewEngine(repo)

	engine.Handle(events.Signal{Kind: events.FirstEvent, UserID: 2})
	engine.Handle(events.Signal{Kind: events.FirstSuggestion, UserID: 2})
	engine.Handle(events.Signal{Kind: events.Top10Ranked, UserID: 2})

	if n := repo.awardCount(2); n != 3 {
		t.Errorf("выдач: %d, ожидалось 3", n)
	}
}

func TestEngine_InactiveBadgeNotAwarded(t *testing.T) {
	repo := newFakeRepo()
	repo.catalog[CodeTop10].Active = false
	engine := NewEngine(repo)

	engine.Handle(events.Signal{Kind: events.Top10Ranked, UserID: 1})

	if n := repo.awardCount(1); n != 0 {
		t.Errorf("неактивный бейдж выдан: %d", n)
	}
}

func TestEngine_ViaBus(t *testing.T) {
	repo := newFakeRepo()
	engine := NewEngine(repo)

	bus := events.NewBus()
	engine.Register(bus)

	bus.Publish(events.Signal{Kind: events.Milestone50, UserID: 4})

	if n := repo.awardCount(4); n != 1 {
		t.Errorf("движок не отреагировал на сигнал шины: выдач %d", n)
	}
}
