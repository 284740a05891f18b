package reader

import (
	"testing"
	"time"
)

func TestManualSchedulerChainedEffectsCascade(t *testing.T) {
	sched := NewManualScheduler()

	var order []string
	sched.Schedule(time.Second, func() {
		order = append(order, "first")
		sched.Schedule(time.Second, func() {
			order = append(order, "second")
			sched.Schedule(time.Second, func() {
				order = append(order, "third")
			})
		})
	})

	// 链式效果到期于 1s/2s/3s，一次推进全部执行
	sched.Advance(3 * time.Second)

	if len(order) != 3 || order[0] != "first" || order[1] != "second" || order[2] != "third" {
		t.Fatalf("order = %v, want [first second third]", order)
	}
}

func TestManualSchedulerChainRespectsDeadline(t *testing.T) {
	sched := NewManualScheduler()

	var order []string
	sched.Schedule(time.Second, func() {
		order = append(order, "first")
		// 以到期时刻 1s 为基准，3s 到期，超出本次推进范围
		sched.Schedule(2*time.Second, func() {
			order = append(order, "second")
		})
	})

	sched.Advance(2 * time.Second)
	if len(order) != 1 {
		t.Fatalf("after first advance order = %v, want [first]", order)
	}

	sched.Advance(time.Second)
	if len(order) != 2 || order[1] != "second" {
		t.Fatalf("after second advance order = %v, want [first second]", order)
	}
}

func TestManualSchedulerOrdering(t *testing.T) {
	sched := NewManualScheduler()

	var order []string
	sched.Schedule(2*time.Second, func() { order = append(order, "late") })
	sched.Schedule(time.Second, func() { order = append(order, "early") })
	sched.Schedule(time.Second, func() { order = append(order, "early-second") })

	sched.Advance(5 * time.Second)

	want := []string{"early", "early-second", "late"}
	for i := range want {
		if i >= len(order) || order[i] != want[i] {
			t.Fatalf("order = %v, want %v", order, want)
		}
	}
}

func TestManualSchedulerCancel(t *testing.T) {
	sched := NewManualScheduler()

	ran := false
	cancel := sched.Schedule(time.Second, func() { ran = true })
	cancel()

	sched.Advance(time.Minute)
	if ran {
		t.Error("canceled effect ran")
	}
}

func TestManualSchedulerStop(t *testing.T) {
	sched := NewManualScheduler()

	ran := false
	sched.Schedule(time.Second, func() { ran = true })
	sched.Stop()

	sched.Advance(time.Minute)
	if ran {
		t.Error("effect ran after Stop")
	}

	// Stop 之后的登记被忽略
	sched.Schedule(time.Second, func() { ran = true })
	sched.Advance(time.Minute)
	if ran {
		t.Error("effect scheduled after Stop ran")
	}
}
