package shell

import (
	"fmt"

	"golang.org/x/sys/unix"
	"golang.org/x/term"
)

// Terminal is the controlling terminal whose foreground process group the
// shell hands to children and takes back.
type Terminal interface {
	// Interactive is false when stdin is not a terminal; every handoff is
	// then skipped.
	Interactive() bool
	Fd() int
	// ShellGroup is the shell's own process group.
	ShellGroup() int
	SetForeground(pgid int) error
}

type tty struct {
	fd          int
	interactive bool
	pgid        int
}

func newTTY(fd int) *tty {
	return &tty{
		fd:          fd,
		interactive: term.IsTerminal(fd),
		pgid:        unix.Getpgrp(),
	}
}

func (t *tty) Interactive() bool { return t.interactive }
func (t *tty) Fd() int           { return t.fd }
func (t *tty) ShellGroup() int   { return t.pgid }

// SetForeground is tcsetpgrp. The shell may be a background group when it
// calls this, so SIGTTOU is ignored for the duration of the call.
func (t *tty) SetForeground(pgid int) error {
	if !t.interactive {
		return nil
	}
	return ignoringTTOU(func() error {
		return unix.IoctlSetPointerInt(t.fd, unix.TIOCSPGRP, pgid)
	})
}

// ownership is a process group's hold on the terminal. Release gives the
// terminal back to the shell and is safe to call more than once, so callers
// defer it right after acquiring.
type ownership struct {
	shell    *Shell
	pgid     int
	released bool
}

// acquireTerminal makes pgid the foreground group.
func (s *Shell) acquireTerminal(pgid int) *ownership {
	// A group that is already gone cannot take the terminal; the wait that
	// follows reports what happened to it.
	_ = s.term.SetForeground(pgid)
	return &ownership{shell: s, pgid: pgid}
}

// adoptTerminal records that pgid claimed the terminal on its own, which a
// foreground child does before exec.
func (s *Shell) adoptTerminal(pgid int) *ownership {
	return &ownership{shell: s, pgid: pgid}
}

func (o *ownership) Release() {
	if o.released {
		return
	}
	o.released = true
	o.shell.reclaimTerminal()
}

// reclaimTerminal makes the shell's group the foreground group again.
func (s *Shell) reclaimTerminal() {
	if err := s.term.SetForeground(s.term.ShellGroup()); err != nil {
		fmt.Fprintf(s.stderr, "tcsetpgrp: %v\n", err)
	}
}
