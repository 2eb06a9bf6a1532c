package trace_test

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"coopsched/internal/host"
	"coopsched/internal/sched"
	"coopsched/internal/trace"
)

func TestCSV_RecordsRun(t *testing.T) {
	var buf bytes.Buffer
	obs, err := trace.NewCSV(&buf, "run-1")
	if err != nil {
		t.Fatalf("NewCSV: %v", err)
	}

	m := host.NewManual()
	s := sched.New(m, sched.DefaultConfig(), sched.WithObserver(obs))
	s.ScheduleCallback(sched.UserBlockingPriority, func(bool) sched.Step { return sched.Done() })
	m.RunPending()

	if err := obs.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("read back: %v", err)
	}

	want := [][]string{
		{"run_id", "time_ms", "event", "task_id", "priority", "expiration_ms"},
		{"run-1", "0", "Enqueue", "1", "user-blocking", "250"},
		{"run-1", "0", "Dispatch", "1", "user-blocking", "250"},
		{"run-1", "0", "Finish", "1", "user-blocking", "250"},
	}
	if len(rows) != len(want) {
		t.Fatalf("expected %d rows, got %d: %v", len(want), len(rows), rows)
	}
	for i := range want {
		if !slices.Equal(rows[i], want[i]) {
			t.Errorf("row %d mismatch:\n  got:  %v\n  want: %v", i, rows[i], want[i])
		}
	}
}

func TestCreateCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trace.csv")
	obs, err := trace.CreateCSV(path, "run-2")
	if err != nil {
		t.Fatalf("CreateCSV: %v", err)
	}
	obs.OnEvent(sched.StatusEvent{Time: 7, Kind: sched.StatusAlarm})
	if err := obs.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read trace: %v", err)
	}
	if !strings.Contains(string(data), "run-2,7,Alarm,0,none,0") {
		t.Errorf("unexpected trace contents: %q", data)
	}

	if _, err := trace.CreateCSV(filepath.Join(t.TempDir(), "missing", "trace.csv"), "x"); err == nil {
		t.Error("expected an error for a missing directory")
	}
}

func TestPrinter(t *testing.T) {
	var buf bytes.Buffer
	p := trace.NewPrinter(&buf, func() int64 { return 3 })
	p.OnEvent(sched.StatusEvent{Time: 12, Kind: sched.StatusDispatch, TaskID: 4, Priority: sched.LowPriority, ExpirationTime: 10012})
	p.OnEvent(sched.StatusEvent{Time: 15, Kind: sched.StatusAlarm})

	out := buf.String()
	for _, want := range []string{
		"0000012ms = Turn: 000003 [  Dispatch  ] => Task: 0004, priority=low",
		"deadline=10012",
		"0000015ms = Turn: 000003 [   Alarm    ]",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in output:\n%s", want, out)
		}
	}
}
