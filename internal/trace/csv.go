// internal/trace/csv.go

package trace

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"coopsched/internal/sched"
)

var csvHeader = []string{"run_id", "time_ms", "event", "task_id", "priority", "expiration_ms"}

// CSV writes one row per scheduler event.
type CSV struct {
	w     *csv.Writer
	c     io.Closer
	runID string
	err   error
}

// NewCSV writes the header to w and returns the observer.
func NewCSV(w io.Writer, runID string) (*CSV, error) {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return nil, fmt.Errorf("write csv header: %w", err)
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return nil, fmt.Errorf("write csv header: %w", err)
	}
	return &CSV{w: cw, runID: runID}, nil
}

// CreateCSV opens path for writing. Close releases the file.
func CreateCSV(path, runID string) (*CSV, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create csv trace: %w", err)
	}
	c, err := NewCSV(f, runID)
	if err != nil {
		f.Close()
		return nil, err
	}
	c.c = f
	return c, nil
}

// OnEvent implements sched.Observer. The first write error is kept and
// later events are dropped.
func (c *CSV) OnEvent(ev sched.StatusEvent) {
	if c.err != nil {
		return
	}
	rec := []string{
		c.runID,
		strconv.FormatInt(ev.Time, 10),
		ev.Kind.String(),
		strconv.FormatUint(ev.TaskID, 10),
		ev.Priority.String(),
		strconv.FormatInt(ev.ExpirationTime, 10),
	}
	if err := c.w.Write(rec); err != nil {
		c.err = err
		return
	}
	c.w.Flush()
	c.err = c.w.Error()
}

// Err returns the first write error, if any.
func (c *CSV) Err() error { return c.err }

// Close flushes and closes the underlying file when CreateCSV opened it.
func (c *CSV) Close() error {
	c.w.Flush()
	if err := c.w.Error(); err != nil && c.err == nil {
		c.err = err
	}
	if c.c != nil {
		if err := c.c.Close(); err != nil {
			return err
		}
	}
	return c.err
}
