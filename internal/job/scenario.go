package job

import (
	"errors"
	"fmt"
	"os"
	"time"

	yaml "github.com/goccy/go-yaml"
	"github.com/rs/zerolog"

	"coopsched/internal/sched"
)

// ErrInvalidScenario wraps every validation failure.
var ErrInvalidScenario = errors.New("invalid scenario")

// Scenario mirrors a scenario.yml: a list of tasks to submit at start.
type Scenario struct {
	Tasks []TaskSpec `yaml:"tasks"`
}

// TaskSpec describes one submitted task.
type TaskSpec struct {
	Name          string `yaml:"name"`
	Priority      string `yaml:"priority"`        // normal (by default)
	DelayMS       int64  `yaml:"delay_ms"`        // wait before eligible; ignored with cron
	Units         int    `yaml:"units"`           // 1 (by default)
	UnitMS        int64  `yaml:"unit_ms"`         // simulated cost of one unit
	Cron          string `yaml:"cron"`            // resubmit on this schedule
	Repeat        int    `yaml:"repeat"`          // runs for cron tasks, 1 (by default)
	CancelAfterMS int64  `yaml:"cancel_after_ms"` // cancel if still queued by then

	priority sched.PriorityLevel
}

// Scheduler is what a scenario needs to run.
type Scheduler interface {
	Submitter
	Yielder
	CancelCallback(task *sched.Task)
}

// LoadScenario reads and validates a scenario file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario %s: %w", path, err)
	}
	return ParseScenario(data)
}

// ParseScenario decodes and validates YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("parse scenario: %w", err)
	}
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	return &sc, nil
}

// Validate fills defaults and rejects unusable specs.
func (sc *Scenario) Validate() error {
	if len(sc.Tasks) == 0 {
		return fmt.Errorf("%w: no tasks", ErrInvalidScenario)
	}
	seen := make(map[string]bool, len(sc.Tasks))
	for i := range sc.Tasks {
		t := &sc.Tasks[i]
		if t.Name == "" {
			t.Name = fmt.Sprintf("task-%d", i+1)
		}
		if seen[t.Name] {
			return fmt.Errorf("%w: duplicate task name %q", ErrInvalidScenario, t.Name)
		}
		seen[t.Name] = true

		if t.Priority == "" {
			t.Priority = sched.NormalPriority.String()
		}
		p, err := sched.ParsePriority(t.Priority)
		if err != nil || p == sched.NoPriority {
			return fmt.Errorf("%w: task %q: priority %q", ErrInvalidScenario, t.Name, t.Priority)
		}
		t.priority = p

		if t.Units <= 0 {
			t.Units = 1
		}
		if t.UnitMS < 0 || t.DelayMS < 0 || t.CancelAfterMS < 0 {
			return fmt.Errorf("%w: task %q: negative duration", ErrInvalidScenario, t.Name)
		}
		if t.Cron != "" {
			if _, err := NewRecurrence(t.Cron, t.Repeat, p); err != nil {
				return fmt.Errorf("%w: task %q: %v", ErrInvalidScenario, t.Name, err)
			}
			if t.Repeat <= 0 {
				t.Repeat = 1
			}
		}
	}
	return nil
}

// PriorityLevel returns the parsed priority of a validated spec.
func (t TaskSpec) PriorityLevel() sched.PriorityLevel { return t.priority }

// Submit schedules every task of the scenario on s. work performs one unit
// of a task, time.Sleep for real runs. done, if not nil,
// is called with the task name each time a run finishes.
func (sc *Scenario) Submit(s Scheduler, work func(d time.Duration), log zerolog.Logger, done func(name string)) {
	for _, spec := range sc.Tasks {
		newCallback := func() sched.Callback {
			unit := time.Duration(spec.UnitMS) * time.Millisecond
			cb := Chunked(spec.Units, func(int) { work(unit) }, s)
			return Then(cb, func() {
				log.Info().Str("task", spec.Name).Msg("task finished")
				if done != nil {
					done(spec.Name)
				}
			})
		}

		var task *sched.Task
		current := func() *sched.Task { return task }
		if spec.Cron != "" {
			r, _ := NewRecurrence(spec.Cron, spec.Repeat, spec.priority)
			task = r.Start(s, newCallback)
			current = r.Last
		} else {
			var opts []sched.ScheduleOption
			if spec.DelayMS > 0 {
				opts = append(opts, sched.WithDelay(time.Duration(spec.DelayMS)*time.Millisecond))
			}
			task = s.ScheduleCallback(spec.priority, newCallback(), opts...)
		}
		log.Debug().
			Str("task", spec.Name).
			Uint64("task_id", task.ID()).
			Stringer("priority", spec.priority).
			Msg("task submitted")

		if spec.CancelAfterMS > 0 {
			s.ScheduleCallback(sched.ImmediatePriority, func(bool) sched.Step {
				target := current()
				s.CancelCallback(target)
				if target.Canceled() {
					log.Info().Str("task", spec.Name).Msg("task canceled")
				}
				return sched.Done()
			}, sched.WithDelay(time.Duration(spec.CancelAfterMS)*time.Millisecond))
		}
	}
}
