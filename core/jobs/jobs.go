// Package jobs tracks processes that were stopped while in the foreground.
package jobs

import "sync"

// StatusStopped is the only state a job in the table can be in; resuming a
// job removes it from the table.
const StatusStopped = "Stopped"

// Job is a stopped process that can be resumed or killed later.
type Job struct {
	// ID is assigned by the shell, unique among the jobs in the table.
	ID int
	// PID is the OS process id of the job's last pipeline stage.
	PID int
	// Command is the pipeline text after variable expansion.
	Command string
	// Status is a human readable state label.
	Status string
}

// Table is an ordered, concurrency safe job table. The zero value is ready
// to use.
type Table struct {
	mu   sync.Mutex
	jobs []Job
}

// Add inserts a stopped job and returns it. Its ID is one greater than the
// highest ID currently held, or 1 for an empty table.
func (t *Table) Add(pid int, command string) Job {
	t.mu.Lock()
	defer t.mu.Unlock()

	next := 1
	for _, j := range t.jobs {
		if j.ID >= next {
			next = j.ID + 1
		}
	}

	job := Job{
		ID:      next,
		PID:     pid,
		Command: command,
		Status:  StatusStopped,
	}
	t.jobs = append(t.jobs, job)
	return job
}

// List returns a copy of the jobs in insertion order.
func (t *Table) List() []Job {
	t.mu.Lock()
	defer t.mu.Unlock()

	return append([]Job(nil), t.jobs...)
}

// Len returns the number of jobs held.
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	return len(t.jobs)
}

// PopLast removes and returns the most recently inserted job.
func (t *Table) PopLast() (Job, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if len(t.jobs) == 0 {
		return Job{}, false
	}
	job := t.jobs[len(t.jobs)-1]
	t.jobs = t.jobs[:len(t.jobs)-1]
	return job, true
}

// PopByID removes and returns the job with the given ID.
func (t *Table) PopByID(id int) (Job, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for i, j := range t.jobs {
		if j.ID == id {
			t.jobs = append(t.jobs[:i], t.jobs[i+1:]...)
			return j, true
		}
	}
	return Job{}, false
}

// RemoveByPID drops every job for the given process.
func (t *Table) RemoveByPID(pid int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	kept := t.jobs[:0]
	for _, j := range t.jobs {
		if j.PID != pid {
			kept = append(kept, j)
		}
	}
	t.jobs = kept
}

// Clear empties the table.
func (t *Table) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.jobs = nil
}
