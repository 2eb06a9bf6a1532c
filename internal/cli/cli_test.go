package cli

import (
	"bytes"
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"coopsched/internal/job"
	"coopsched/internal/sched"
)

const testScenario = `
tasks:
  - name: render
    priority: user-blocking
    units: 3
    unit_ms: 1
  - name: later
    priority: low
    delay_ms: 15
  - name: dropped
    delay_ms: 200
    cancel_after_ms: 5
`

func writeScenario(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scenario.yml")
	if err := os.WriteFile(path, []byte(testScenario), 0o644); err != nil {
		t.Fatalf("write scenario: %v", err)
	}
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	root := NewRootCmd()
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestValidateCmd(t *testing.T) {
	out, err := execute(t, "validate", "--scenario", writeScenario(t))
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	for _, want := range []string{"NAME", "render", "user-blocking", "later", "15ms"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in output:\n%s", want, out)
		}
	}
}

func TestValidateCmd_MissingFile(t *testing.T) {
	if _, err := execute(t, "validate", "--scenario", filepath.Join(t.TempDir(), "nope.yml")); err == nil {
		t.Error("expected an error for a missing scenario")
	}
}

func TestRunCmd_WritesTrace(t *testing.T) {
	csvPath := filepath.Join(t.TempDir(), "trace.csv")
	out, err := execute(t, "run", "--scenario", writeScenario(t), "--csv", csvPath, "--timeout", "10s")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.Contains(out, "2 runs finished") {
		t.Errorf("unexpected summary: %q", out)
	}

	f, err := os.Open(csvPath)
	if err != nil {
		t.Fatalf("open trace: %v", err)
	}
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read trace: %v", err)
	}

	kinds := map[string]int{}
	for _, row := range rows[1:] {
		kinds[row[2]]++
	}
	if kinds["Finish"] < 3 || kinds["Cancel"] != 1 || kinds["Alarm"] == 0 {
		t.Errorf("unexpected event mix: %v", kinds)
	}
}

func TestRunScenario_Timeout(t *testing.T) {
	cfg = sched.DefaultConfig()
	log = zerolog.Nop()

	sc, err := job.ParseScenario([]byte("tasks:\n  - delay_ms: 60000\n"))
	if err != nil {
		t.Fatalf("ParseScenario: %v", err)
	}
	var out bytes.Buffer
	err = runScenario(context.Background(), &out, sc, runOptions{
		timeout:   50 * time.Millisecond,
		pollEvery: 5 * time.Millisecond,
		work:      func(time.Duration) {},
	})
	if err == nil || !strings.Contains(err.Error(), "did not drain") {
		t.Errorf("expected a drain timeout, got %v", err)
	}
}

func TestRunScenario_BadFrameRate(t *testing.T) {
	cfg = sched.DefaultConfig()
	log = zerolog.Nop()

	sc, err := job.ParseScenario([]byte("tasks:\n  - name: a\n"))
	if err != nil {
		t.Fatalf("ParseScenario: %v", err)
	}
	err = runScenario(context.Background(), &bytes.Buffer{}, sc, runOptions{
		timeout:   time.Second,
		pollEvery: 5 * time.Millisecond,
		frameRate: 500,
		work:      func(time.Duration) {},
	})
	if err == nil {
		t.Error("expected an error for an invalid frame rate")
	}
}
