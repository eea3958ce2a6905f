// This file is part of Gophercard.
//
// Gophercard is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Gophercard is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with Gophercard.  If not, see <https://www.gnu.org/licenses/>.

package debounce

import (
	"sync"
	"time"
)

// Task runs a function a fixed interval after it is triggered.
type Task struct {
	interval time.Duration
	fn       func()

	trigger chan struct{}
	quit    chan struct{}
	done    chan struct{}

	closeOnce sync.Once
}

// NewTask creates and starts a new Task. The function will be run in the
// task's goroutine and never concurrently with itself.
func NewTask(interval time.Duration, fn func()) *Task {
	t := &Task{
		interval: interval,
		fn:       fn,
		trigger:  make(chan struct{}, 1),
		quit:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	go t.run()
	return t
}

// Trigger schedules the function to run. Trigger never blocks and any
// number of calls before the function runs result in the function being run
// once.
func (t *Task) Trigger() {
	select {
	case t.trigger <- struct{}{}:
	default:
	}
}

// Close stops the task. The function is run one last time before Close
// returns, whether or not there is an outstanding trigger. It is safe to call
// Close more than once.
func (t *Task) Close() {
	t.closeOnce.Do(func() {
		close(t.quit)
	})
	<-t.done
}

func (t *Task) run() {
	defer close(t.done)

	// final run on every exit path
	defer t.fn()

	for {
		select {
		case <-t.quit:
			return
		case <-t.trigger:
		}

		if !t.wait() {
			return
		}

		t.fn()
	}
}

// wait for the task interval. triggers that arrive while waiting are
// absorbed into the coming run and do not extend the wait. returns false if
// the task has been closed while waiting.
func (t *Task) wait() bool {
	timer := time.NewTimer(t.interval)
	defer timer.Stop()

	for {
		select {
		case <-t.quit:
			return false
		case <-t.trigger:
		case <-timer.C:
			return true
		}
	}
}
