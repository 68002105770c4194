package shell

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"syscall"

	"golang.org/x/sys/unix"
	"sh33/internal/parser"
)

// launch starts cmd as the leader of a new process group and returns its
// pid. Foreground children on a terminal take the terminal before exec.
//
// Only resource exhaustion while creating the process is fatal to the shell;
// a program that cannot be opened or exec'd fails just this command.
func (s *Shell) launch(cmd *parser.Command) (int, error) {
	stdio, err := openRedirects(cmd, s.config.FileMode())
	if err != nil {
		return 0, err
	}
	defer stdio.Close()

	attr := &syscall.SysProcAttr{Setpgid: true}
	if !cmd.Background && s.term.Interactive() {
		attr.Foreground = true
		attr.Ctty = s.term.Fd()
	}

	c := &exec.Cmd{
		Path:        resolveProgram(cmd.Program),
		Args:        cmd.Args,
		Stdin:       stdio.in,
		Stdout:      stdio.out,
		Stderr:      os.Stderr,
		SysProcAttr: attr,
	}
	if err := c.Start(); err != nil {
		if attr.Foreground {
			// The child takes the terminal before exec, so a failed exec
			// leaves it with a group that no longer exists.
			s.reclaimTerminal()
		}
		if errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.ENOMEM) {
			return 0, &FatalError{Op: "fork", Err: err}
		}
		return 0, fmt.Errorf("%s: %w", cmd.Program, osError(err))
	}

	pid := c.Process.Pid
	// The job-control paths reap the child with wait4 directly.
	_ = c.Process.Release()
	return pid, nil
}

// resolveProgram looks names without a slash up in $PATH. An unknown name
// is returned as is so that exec fails with the OS error for it.
func resolveProgram(program string) string {
	if strings.Contains(program, "/") {
		return program
	}
	if path, err := exec.LookPath(program); err == nil {
		return path
	}
	return program
}

// osError strips the "fork/exec <path>" wrapper off a start failure.
func osError(err error) error {
	var errno syscall.Errno
	if errors.As(err, &errno) {
		return errno
	}
	return err
}

type childStdio struct {
	in, out *os.File
	opened  []*os.File
}

// Close releases the shell's copies of redirect targets. The child keeps its
// own descriptors.
func (c *childStdio) Close() {
	for _, f := range c.opened {
		f.Close()
	}
}

// openRedirects opens the files that become the child's fd 0 and fd 1. The
// shell's own descriptors are left alone.
func openRedirects(cmd *parser.Command, perm os.FileMode) (*childStdio, error) {
	stdio := &childStdio{in: os.Stdin, out: os.Stdout}

	if cmd.InputFile != "" {
		f, err := os.OpenFile(cmd.InputFile, os.O_RDONLY, 0)
		if err != nil {
			return nil, fmt.Errorf("open failed: %w", err)
		}
		stdio.in = f
		stdio.opened = append(stdio.opened, f)
	}

	if cmd.OutputFile != "" {
		flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
		if cmd.Append {
			flags = os.O_WRONLY | os.O_CREATE | os.O_APPEND
		}
		f, err := os.OpenFile(cmd.OutputFile, flags, perm)
		if err != nil {
			stdio.Close()
			return nil, fmt.Errorf("open failed: %w", err)
		}
		stdio.out = f
		stdio.opened = append(stdio.opened, f)
	}

	return stdio, nil
}
