package shell

import (
	"os/signal"

	"golang.org/x/sys/unix"
)

// setupSignalHandling keeps terminal-generated SIGINT and SIGTSTP from
// killing or stopping the shell. The signals are caught rather than ignored:
// a forked child starts with every caught signal back at its default, while
// an ignored one would stay ignored across exec.
func (s *Shell) setupSignalHandling() {
	signal.Notify(s.signalChan, unix.SIGINT, unix.SIGTSTP)
	go s.handleSignals()
}

func (s *Shell) stopSignalHandling() {
	signal.Stop(s.signalChan)
	close(s.signalChan)
}

func (s *Shell) handleSignals() {
	for range s.signalChan {
	}
}

// ignoringTTOU runs fn with SIGTTOU ignored. tcsetpgrp from a background
// group raises SIGTTOU, and a caught SIGTTOU makes the call restart forever.
// The disposition goes back to default afterwards so children launched later
// do not inherit SIG_IGN.
func ignoringTTOU(fn func() error) error {
	signal.Ignore(unix.SIGTTOU)
	defer signal.Reset(unix.SIGTTOU)
	return fn()
}

// reapChildren drains every pending child state change without blocking and
// brings the job table in line with it. Children are matched by pid, so this
// also catches foreground children that changed state after their wait
// returned.
func (s *Shell) reapChildren() {
	for {
		pid, ws, err := s.wait(-1, unix.WNOHANG|unix.WUNTRACED|unix.WCONTINUED)
		if err != nil || pid <= 0 {
			// ECHILD: nothing left to reap.
			return
		}
		s.settleBackground(pid, ws)
	}
}
