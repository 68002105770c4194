// Package jobs holds the job table: the record of every process group the
// shell started that is still alive.
package jobs

import (
	"errors"
	"fmt"
	"io"
	"sort"
)

// Status is the last observed state of a job.
type Status int

const (
	Running Status = iota
	Stopped
)

func (s Status) String() string {
	switch s {
	case Running:
		return "Running"
	case Stopped:
		return "Stopped"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

var (
	ErrDuplicate = errors.New("job already exists")
	ErrNotFound  = errors.New("job not found")
)

// Job is one process group started by the shell.
type Job struct {
	ID      int
	PID     int
	Status  Status
	Command string
}

// Table maps job ids and process ids to jobs. It is not safe for concurrent
// use; the shell touches it from one goroutine only.
type Table struct {
	jobs []*Job
}

func New() *Table {
	return &Table{}
}

// Insert adds a job. It fails with ErrDuplicate when either the id or the
// pid is already present.
func (t *Table) Insert(id, pid int, status Status, command string) error {
	for _, job := range t.jobs {
		if job.ID == id || job.PID == pid {
			return fmt.Errorf("insert [%d] (%d): %w", id, pid, ErrDuplicate)
		}
	}

	i := sort.Search(len(t.jobs), func(i int) bool { return t.jobs[i].ID > id })
	t.jobs = append(t.jobs, nil)
	copy(t.jobs[i+1:], t.jobs[i:])
	t.jobs[i] = &Job{ID: id, PID: pid, Status: status, Command: command}
	return nil
}

func (t *Table) IDByPID(pid int) (int, bool) {
	if job := t.byPID(pid); job != nil {
		return job.ID, true
	}
	return 0, false
}

func (t *Table) PIDByID(id int) (int, bool) {
	if job := t.byID(id); job != nil {
		return job.PID, true
	}
	return 0, false
}

func (t *Table) SetStatusByPID(pid int, status Status) error {
	job := t.byPID(pid)
	if job == nil {
		return fmt.Errorf("pid %d: %w", pid, ErrNotFound)
	}
	job.Status = status
	return nil
}

func (t *Table) SetStatusByID(id int, status Status) error {
	job := t.byID(id)
	if job == nil {
		return fmt.Errorf("job %d: %w", id, ErrNotFound)
	}
	job.Status = status
	return nil
}

func (t *Table) RemoveByPID(pid int) error {
	return t.remove(func(j *Job) bool { return j.PID == pid }, fmt.Sprintf("pid %d", pid))
}

func (t *Table) RemoveByID(id int) error {
	return t.remove(func(j *Job) bool { return j.ID == id }, fmt.Sprintf("job %d", id))
}

// PrintAll writes one line per job in job id order.
func (t *Table) PrintAll(w io.Writer) error {
	for _, job := range t.jobs {
		if _, err := fmt.Fprintf(w, "[%d] (%d) %s %s\n", job.ID, job.PID, job.Status, job.Command); err != nil {
			return err
		}
	}
	return nil
}

// List returns a snapshot of the table in job id order.
func (t *Table) List() []Job {
	out := make([]Job, 0, len(t.jobs))
	for _, job := range t.jobs {
		out = append(out, *job)
	}
	return out
}

func (t *Table) Len() int {
	return len(t.jobs)
}

// Close drops every record. The table is empty and reusable afterwards.
func (t *Table) Close() error {
	t.jobs = nil
	return nil
}

func (t *Table) byPID(pid int) *Job {
	for _, job := range t.jobs {
		if job.PID == pid {
			return job
		}
	}
	return nil
}

func (t *Table) byID(id int) *Job {
	for _, job := range t.jobs {
		if job.ID == id {
			return job
		}
	}
	return nil
}

func (t *Table) remove(match func(*Job) bool, what string) error {
	for i, job := range t.jobs {
		if match(job) {
			t.jobs = append(t.jobs[:i], t.jobs[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("%s: %w", what, ErrNotFound)
}
