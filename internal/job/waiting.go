package job

import "coopsched/internal/sched"

// Yielder is the part of the scheduler a long running callback polls.
type Yielder interface {
	ShouldYieldToHost() bool
}

// Chunked returns a callback that runs work for units 0..n-1, handing the
// turn back between units once y asks for it. A task that is already past
// its deadline runs to the end without yielding.
func Chunked(n int, work func(i int), y Yielder) sched.Callback {
	next := 0
	var step sched.Callback
	step = func(didTimeout bool) sched.Step {
		for next < n {
			work(next)
			next++
			if next < n && !didTimeout && y.ShouldYieldToHost() {
				return sched.Continue(step)
			}
		}
		return sched.Done()
	}
	return step
}

// Steps returns a callback that runs fn once per turn, n times in total.
func Steps(n int, fn func(i int)) sched.Callback {
	var at func(i int) sched.Callback
	at = func(i int) sched.Callback {
		return func(bool) sched.Step {
			fn(i)
			if i+1 >= n {
				return sched.Done()
			}
			return sched.Continue(at(i + 1))
		}
	}
	return at(0)
}

// Then wraps cb so that done runs after its final step returns.
func Then(cb sched.Callback, done func()) sched.Callback {
	return func(didTimeout bool) sched.Step {
		step := cb(didTimeout)
		if step.Finished() {
			done()
			return step
		}
		return sched.Continue(Then(step.Next(), done))
	}
}
