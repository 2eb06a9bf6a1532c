// internal/host/manual.go

package host

import (
	"github.com/emirpasic/gods/trees/redblacktree"
)

// Manual is a host with a virtual clock. Nothing happens until the test
// drives it, which makes turn and alarm behaviour fully deterministic.
type Manual struct {
	now   int64
	seq   uint64
	queue *redblacktree.Tree // pending turns and alarms by (due, seq)

	alarms    map[int64]entryKey
	nextAlarm int64
	turns     int
}

type entryKind int

const (
	entryTurn entryKind = iota
	entryAlarm
)

type entry struct {
	kind    entryKind
	alarmID int64
	fn      func()
}

// entryKey is used as a key in the red-black tree.
type entryKey struct {
	due int64
	seq uint64
}

// cmp orders entries by due time, then by insertion.
func cmp(a, b any) int {
	ka, kb := a.(entryKey), b.(entryKey)
	switch {
	case ka.due < kb.due:
		return -1
	case ka.due > kb.due:
		return 1
	case ka.seq < kb.seq:
		return -1
	case ka.seq > kb.seq:
		return 1
	default:
		return 0
	}
}

// NewManual creates a host whose clock reads zero.
func NewManual() *Manual {
	return &Manual{
		queue:  redblacktree.NewWith(cmp),
		alarms: make(map[int64]entryKey),
	}
}

// Now returns the virtual time in milliseconds.
func (m *Manual) Now() int64 { return m.now }

// Sleep moves the clock forward without running anything, standing in for
// a callback that does real work.
func (m *Manual) Sleep(ms int64) {
	if ms > 0 {
		m.now += ms
	}
}

// RequestTurn queues fn to run at the current time.
func (m *Manual) RequestTurn(fn func()) {
	m.put(m.now, entry{kind: entryTurn, fn: fn})
	m.turns++
}

// ArmAlarm queues fn to run delayMs from now.
func (m *Manual) ArmAlarm(fn func(), delayMs int64) int64 {
	if delayMs < 0 {
		delayMs = 0
	}
	m.nextAlarm++
	id := m.nextAlarm
	m.alarms[id] = m.put(m.now+delayMs, entry{kind: entryAlarm, alarmID: id, fn: fn})
	return id
}

// CancelAlarm removes a pending alarm. Unknown or fired ids are ignored.
func (m *Manual) CancelAlarm(id int64) {
	key, ok := m.alarms[id]
	if !ok {
		return
	}
	m.queue.Remove(key)
	delete(m.alarms, id)
}

// OutstandingTurns returns the number of queued turns.
func (m *Manual) OutstandingTurns() int { return m.turns }

// OutstandingAlarms returns the number of armed alarms.
func (m *Manual) OutstandingAlarms() int { return len(m.alarms) }

// NextAlarm returns the due time of the earliest armed alarm.
func (m *Manual) NextAlarm() (int64, bool) {
	found := false
	var due int64
	for _, key := range m.alarms {
		if !found || key.due < due {
			due, found = key.due, true
		}
	}
	return due, found
}

// RunPending runs every entry already due, including entries queued by
// the ones it runs, and returns how many ran.
func (m *Manual) RunPending() int {
	n := 0
	for m.runNext(m.now) {
		n++
	}
	return n
}

// Step runs the earliest entry if it is already due.
func (m *Manual) Step() bool {
	return m.runNext(m.now)
}

// Advance runs everything due within the next ms milliseconds in order,
// moving the clock to each entry's due time as it goes. The clock ends at
// least ms ahead of where it started.
func (m *Manual) Advance(ms int64) int {
	target := m.now + ms
	n := 0
	for m.runNext(target) {
		n++
	}
	if m.now < target {
		m.now = target
	}
	return n
}

func (m *Manual) runNext(limit int64) bool {
	node := m.queue.Left()
	if node == nil {
		return false
	}
	key := node.Key.(entryKey)
	if key.due > limit {
		return false
	}

	e := node.Value.(entry)
	m.queue.Remove(key)
	switch e.kind {
	case entryTurn:
		m.turns--
	case entryAlarm:
		delete(m.alarms, e.alarmID)
	}
	if key.due > m.now {
		m.now = key.due
	}
	e.fn()
	return true
}

func (m *Manual) put(due int64, e entry) entryKey {
	m.seq++
	key := entryKey{due: due, seq: m.seq}
	m.queue.Put(key, e)
	return key
}
