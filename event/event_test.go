package event

import "testing"

func TestScheduleFireTime(t *testing.T) {
	q := NewQueue()
	fire := q.Schedule(100, 50, func() uint32 { return 0 })
	if fire != 150 {
		t.Errorf("fire time = %d, want 150", fire)
	}
	next, ok := q.NextFireTime()
	if !ok || next != 150 {
		t.Errorf("NextFireTime() = %d, %v, want 150, true", next, ok)
	}
}

func TestRunDueOrdersByFireTime(t *testing.T) {
	q := NewQueue()
	var order []int

	q.Schedule(0, 30, func() uint32 { order = append(order, 3); return 0 })
	q.Schedule(0, 10, func() uint32 { order = append(order, 1); return 0 })
	q.Schedule(0, 20, func() uint32 { order = append(order, 2); return 0 })

	for now := uint64(0); now <= 30; now++ {
		for {
			if _, ok := q.RunDue(now); !ok {
				break
			}
		}
	}

	want := []int{1, 2, 3}
	if len(order) != len(want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("order = %v, want %v", order, want)
		}
	}
}

func TestTiesBreakByInsertionOrder(t *testing.T) {
	q := NewQueue()
	var order []int

	q.Schedule(0, 10, func() uint32 { order = append(order, 1); return 0 })
	q.Schedule(0, 10, func() uint32 { order = append(order, 2); return 0 })
	q.Schedule(0, 10, func() uint32 { order = append(order, 3); return 0 })

	for {
		if _, ok := q.RunDue(10); !ok {
			break
		}
	}

	want := []int{1, 2, 3}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("order = %v, want %v", order, want)
		}
	}
}

func TestRunDueNotYetDue(t *testing.T) {
	q := NewQueue()
	q.Schedule(0, 100, func() uint32 { return 0 })

	if _, ok := q.RunDue(50); ok {
		t.Error("RunDue fired an event before its scheduled time")
	}
	if _, ok := q.RunDue(100); !ok {
		t.Error("RunDue did not fire an event at its scheduled time")
	}
}

func TestEmptyQueue(t *testing.T) {
	q := NewQueue()
	if _, ok := q.NextFireTime(); ok {
		t.Error("NextFireTime() on empty queue reported a time")
	}
	if _, ok := q.RunDue(1000); ok {
		t.Error("RunDue on empty queue fired something")
	}
}

func TestResetDiscardsEvents(t *testing.T) {
	q := NewQueue()
	q.Schedule(0, 10, func() uint32 { return 0 })
	q.Reset()
	if q.Len() != 0 {
		t.Errorf("Len() after Reset = %d, want 0", q.Len())
	}
}
