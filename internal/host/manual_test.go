package host_test

import (
	"slices"
	"testing"

	"coopsched/internal/host"
)

func TestManual_OrderByDueThenSubmission(t *testing.T) {
	m := host.NewManual()
	var got []string

	m.ArmAlarm(func() { got = append(got, "alarm-10") }, 10)
	m.RequestTurn(func() { got = append(got, "turn-a") })
	m.ArmAlarm(func() { got = append(got, "alarm-0") }, 0)
	m.RequestTurn(func() { got = append(got, "turn-b") })

	if n := m.RunPending(); n != 3 {
		t.Fatalf("expected 3 entries to run, got %d", n)
	}
	want := []string{"turn-a", "alarm-0", "turn-b"}
	if !slices.Equal(got, want) {
		t.Errorf("mismatch:\n  got:  %v\n  want: %v", got, want)
	}
	if m.Now() != 0 {
		t.Errorf("clock moved while running pending entries: %d", m.Now())
	}

	m.Advance(20)
	if m.Now() != 20 {
		t.Errorf("expected clock at 20, got %d", m.Now())
	}
	if got[len(got)-1] != "alarm-10" {
		t.Errorf("expected alarm-10 to fire, got %v", got)
	}
}

func TestManual_ClockAtAlarmTime(t *testing.T) {
	m := host.NewManual()
	var firedAt int64 = -1
	m.ArmAlarm(func() { firedAt = m.Now() }, 7)

	m.Advance(100)
	if firedAt != 7 {
		t.Errorf("expected alarm to observe time 7, got %d", firedAt)
	}
}

func TestManual_CancelAlarm(t *testing.T) {
	m := host.NewManual()
	fired := false
	id := m.ArmAlarm(func() { fired = true }, 5)

	if m.OutstandingAlarms() != 1 {
		t.Fatalf("expected one alarm, got %d", m.OutstandingAlarms())
	}
	m.CancelAlarm(id)
	m.CancelAlarm(id) // second cancel is a no-op
	m.CancelAlarm(999)

	m.Advance(10)
	if fired {
		t.Error("canceled alarm fired")
	}
	if m.OutstandingAlarms() != 0 {
		t.Errorf("expected no alarms, got %d", m.OutstandingAlarms())
	}
}

func TestManual_SleepDoesNotRun(t *testing.T) {
	m := host.NewManual()
	fired := false
	m.ArmAlarm(func() { fired = true }, 3)

	m.Sleep(10)
	if fired {
		t.Error("Sleep must not run entries")
	}
	if due, ok := m.NextAlarm(); !ok || due != 3 {
		t.Errorf("expected alarm due at 3, got %d, %v", due, ok)
	}

	m.RunPending()
	if !fired {
		t.Error("overdue alarm did not run")
	}
}

func TestManual_TurnCount(t *testing.T) {
	m := host.NewManual()
	m.RequestTurn(func() {})
	m.RequestTurn(func() {})
	if m.OutstandingTurns() != 2 {
		t.Fatalf("expected 2 turns, got %d", m.OutstandingTurns())
	}
	m.RunPending()
	if m.OutstandingTurns() != 0 {
		t.Errorf("expected 0 turns, got %d", m.OutstandingTurns())
	}
}

func TestManual_Step(t *testing.T) {
	m := host.NewManual()
	var got []int
	m.RequestTurn(func() {
		got = append(got, 1)
		m.RequestTurn(func() { got = append(got, 2) })
	})

	if !m.Step() {
		t.Fatal("expected a due entry")
	}
	if !slices.Equal(got, []int{1}) {
		t.Fatalf("expected only the first turn, got %v", got)
	}
	if !m.Step() || m.Step() {
		t.Fatal("expected exactly one more due entry")
	}
}
