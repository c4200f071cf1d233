package events

import "testing"

func TestBus_DeliversToAllSubscribers(t *testing.T) {
	bus := NewBus()

	var first, second []Signal
	bus.Subscribe(func(s Signal) { first = append(first, s) })
	bus.Subscribe(func(s Signal) { second = append(second, s) })

	bus.Publish(Signal{Kind: FirstEvent, UserID: 7})
	bus.Publish(Signal{Kind: Top10Ranked, UserID: 7})

	if len(first) != 2 || len(second) != 2 {
		t.Fatalf("подписчики получили %d и %d сигналов, ожидалось по 2", len(first), len(second))
	}
	if first[0].Kind != FirstEvent || first[1].Kind != Top10Ranked {
		t.Errorf("порядок доставки нарушен: %v", first)
	}
}

func TestBus_SubscriberPanicDoesNotStopDelivery(t *testing.T) {
	bus := NewBus()

	bus.Subscribe(func(Signal) { panic("сломанный подписчик") })

	var got []Signal
	bus.Subscribe(func(s Signal) { got = append(got, s) })

	bus.Publish(Signal{Kind: Milestone10, UserID: 1})

	if len(got) != 1 {
		t.Fatalf("второй подписчик не получил сигнал после паники первого")
	}
}

func TestBus_NoSubscribers(t *testing.T) {
	bus := NewBus()
	// Публикация без подписчиков не должна паниковать
	bus.Publish(Signal{Kind: FirstSuggestion, UserID: 1})
}
