package shell

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"
	"sh33/internal/jobs"
)

var (
	errSyntax         = errors.New("syntax error")
	errMissingOperand = errors.New("missing operand")
)

func (s *Shell) executeBuiltin(args []string) (bool, error) {
	switch args[0] {
	case "cd":
		return true, s.changeDirectory(args[1:])
	case "ln":
		return true, s.link(args[1:])
	case "rm":
		return true, s.remove(args[1:])
	case "exit":
		return true, errExit
	case "jobs":
		return true, s.jobs.PrintAll(s.stdout)
	case "fg":
		return true, s.foregroundJob(args[1:])
	case "bg":
		return true, s.backgroundJob(args[1:])
	default:
		return false, nil
	}
}

func (s *Shell) changeDirectory(args []string) error {
	if len(args) != 1 {
		return errSyntax
	}
	if err := os.Chdir(args[0]); err != nil {
		return fmt.Errorf("cd: %w", err)
	}
	return nil
}

func (s *Shell) link(args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("ln: %w", errMissingOperand)
	}
	if err := unix.Link(args[0], args[1]); err != nil {
		return fmt.Errorf("ln: %s: %w", args[1], err)
	}
	return nil
}

func (s *Shell) remove(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("rm: %w", errMissingOperand)
	}
	if err := unix.Unlink(args[0]); err != nil {
		return fmt.Errorf("rm: %s: %w", args[0], err)
	}
	return nil
}

// foregroundJob resumes a job and waits on it as if it had been started in
// the foreground.
func (s *Shell) foregroundJob(args []string) error {
	id, err := parseJobID("fg", args)
	if err != nil {
		return err
	}
	pid, ok := s.jobs.PIDByID(id)
	if !ok {
		return jobs.ErrNotFound
	}

	if err := s.procs.Kill(-pid, unix.SIGCONT); err != nil {
		return fmt.Errorf("fg: %w", err)
	}
	owner := s.acquireTerminal(pid)
	defer owner.Release()

	_, ws, err := s.wait(pid, unix.WUNTRACED)
	if errors.Is(err, unix.ECHILD) {
		// Reaped behind our back; the job is gone.
		s.forget(pid)
		return fmt.Errorf("fg: %w", err)
	}
	if err != nil {
		return &FatalError{Op: "wait", Err: err}
	}
	s.settleForeground(pid, ws, "")
	return nil
}

// backgroundJob resumes a stopped job without waiting for it.
func (s *Shell) backgroundJob(args []string) error {
	id, err := parseJobID("bg", args)
	if err != nil {
		return err
	}
	pid, ok := s.jobs.PIDByID(id)
	if !ok {
		return jobs.ErrNotFound
	}

	if err := s.procs.Kill(-pid, unix.SIGCONT); err != nil {
		return fmt.Errorf("bg: %w", err)
	}
	return s.jobs.SetStatusByPID(pid, jobs.Running)
}

// parseJobID accepts "%N" and, as a convenience, a bare "N".
func parseJobID(name string, args []string) (int, error) {
	if len(args) != 1 {
		return 0, fmt.Errorf("%s: %w", name, errSyntax)
	}
	id, err := strconv.Atoi(strings.TrimPrefix(args[0], "%"))
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%s: %s: invalid job id", name, args[0])
	}
	return id, nil
}
