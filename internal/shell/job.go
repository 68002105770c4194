package shell

import (
	"fmt"

	"golang.org/x/sys/unix"
	"sh33/internal/jobs"
)

// Processes is the part of the process API job control relies on.
type Processes interface {
	Wait4(pid int, ws *unix.WaitStatus, options int) (int, error)
	Kill(pid int, sig unix.Signal) error
}

type sysProcesses struct{}

func (sysProcesses) Wait4(pid int, ws *unix.WaitStatus, options int) (int, error) {
	return unix.Wait4(pid, ws, options, nil)
}

func (sysProcesses) Kill(pid int, sig unix.Signal) error {
	return unix.Kill(pid, sig)
}

// transition is what a wait status says happened to a child.
type transition int

const (
	transitionNone transition = iota
	transitionStopped
	transitionContinued
	transitionSignaled
	transitionExited
)

func classify(ws unix.WaitStatus) transition {
	switch {
	case ws.Stopped():
		return transitionStopped
	case ws.Continued():
		return transitionContinued
	case ws.Signaled():
		return transitionSignaled
	case ws.Exited():
		return transitionExited
	default:
		return transitionNone
	}
}

// wait is wait4 restarted on EINTR.
func (s *Shell) wait(pid, options int) (int, unix.WaitStatus, error) {
	var ws unix.WaitStatus
	for {
		wpid, err := s.procs.Wait4(pid, &ws, options)
		if err == unix.EINTR {
			continue
		}
		return wpid, ws, err
	}
}

func (s *Shell) addBackgroundJob(pid int, command string) {
	id, ok := s.insertJob(pid, jobs.Running, command)
	if ok {
		fmt.Fprintf(s.stderr, "[%d] (%d)\n", id, pid)
	}
}

// waitForeground blocks until the child launched in the foreground stops or
// ends. The child claimed the terminal itself; the shell takes it back on
// every way out.
func (s *Shell) waitForeground(pid int, command string) error {
	owner := s.adoptTerminal(pid)
	defer owner.Release()

	_, ws, err := s.wait(pid, unix.WUNTRACED)
	if err != nil {
		return &FatalError{Op: "wait", Err: err}
	}
	s.settleForeground(pid, ws, command)
	return nil
}

// settleForeground applies a status seen by a blocking wait on one child.
func (s *Shell) settleForeground(pid int, ws unix.WaitStatus, command string) {
	switch classify(ws) {
	case transitionStopped:
		if id, ok := s.markStopped(pid, command); ok {
			fmt.Fprintf(s.stderr, "[%d] (%d) suspended by signal %d\n", id, pid, ws.StopSignal())
		}
	case transitionSignaled:
		s.forget(pid)
		fmt.Fprintf(s.stderr, "(%d) terminated by signal %d\n", pid, ws.Signal())
	case transitionContinued:
		if id, ok := s.markRunning(pid, command); ok {
			fmt.Fprintf(s.stderr, "[%d] (%d) resumed\n", id, pid)
		}
	case transitionExited:
		s.forget(pid)
	}
}

// settleBackground applies a status found by the reaper. Children that were
// never in the table are reported under the orphan counter.
func (s *Shell) settleBackground(pid int, ws unix.WaitStatus) {
	switch classify(ws) {
	case transitionStopped:
		if id, ok := s.markStopped(pid, s.lastCommand); ok {
			fmt.Fprintf(s.stderr, "[%d] (%d) suspended by signal %d\n", id, pid, ws.StopSignal())
		}
	case transitionSignaled:
		fmt.Fprintf(s.stderr, "[%d] (%d) terminated by signal %d\n", s.reportID(pid), pid, ws.Signal())
		s.forget(pid)
	case transitionContinued:
		if id, ok := s.markRunning(pid, s.lastCommand); ok {
			fmt.Fprintf(s.stderr, "[%d] (%d) resumed\n", id, pid)
		}
	case transitionExited:
		fmt.Fprintf(s.stderr, "[%d] (%d) terminated with exit status %d\n", s.reportID(pid), pid, ws.ExitStatus())
		s.forget(pid)
	}
}

// reportID is the job id of pid, or the next orphan number when pid has no
// job.
func (s *Shell) reportID(pid int) int {
	if id, ok := s.jobs.IDByPID(pid); ok {
		return id
	}
	id := s.nextOrphanID
	s.nextOrphanID++
	return id
}

func (s *Shell) markStopped(pid int, command string) (int, bool) {
	if id, ok := s.jobs.IDByPID(pid); ok {
		_ = s.jobs.SetStatusByPID(pid, jobs.Stopped)
		return id, true
	}
	return s.insertJob(pid, jobs.Stopped, command)
}

func (s *Shell) markRunning(pid int, command string) (int, bool) {
	if id, ok := s.jobs.IDByPID(pid); ok {
		_ = s.jobs.SetStatusByPID(pid, jobs.Running)
		return id, true
	}
	return s.insertJob(pid, jobs.Running, command)
}

// insertJob records pid under the next job id. Ids are consumed only by
// successful inserts and never handed out twice.
func (s *Shell) insertJob(pid int, status jobs.Status, command string) (int, bool) {
	id := s.nextJobID
	if err := s.jobs.Insert(id, pid, status, command); err != nil {
		fmt.Fprintf(s.stderr, "add job error: %v\n", err)
		return -1, false
	}
	s.nextJobID++
	return id, true
}

// forget drops pid's job if it has one.
func (s *Shell) forget(pid int) {
	if _, ok := s.jobs.IDByPID(pid); ok {
		_ = s.jobs.RemoveByPID(pid)
	}
}
