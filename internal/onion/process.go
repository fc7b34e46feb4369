// Onionfront - onion service front-end with supervised tor lifecycle
// Copyright 2026 Onionfront contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/onionfront/onionfront

package onion

import (
	"context"
	"fmt"
	"os/exec"
)

// Process is a handle to one running helper process. Exactly one may exist
// at a time under the supervisor, which is its sole owner.
type Process interface {
	// Wait blocks until the process exits and reaps it. Returns nil on a
	// zero exit status.
	Wait() error

	// Kill forcibly terminates the process. The caller must still Wait to
	// reap it.
	Kill() error
}

// Launcher spawns helper processes. It is a narrow capability interface so
// the supervisor can be tested against a fake process.
type Launcher interface {
	Start(name string, args ...string) (Process, error)
}

// CommandRunner runs a short-lived command and returns its stdout. A
// non-zero exit status is reported as an error.
type CommandRunner interface {
	Output(ctx context.Context, name string, args ...string) ([]byte, error)
}

// ExecLauncher is the production Launcher backed by os/exec.
type ExecLauncher struct{}

type execProcess struct {
	cmd *exec.Cmd
}

// Start spawns the command. The child's stdout and stderr are discarded;
// tor logs through its own configuration.
func (ExecLauncher) Start(name string, args ...string) (Process, error) {
	cmd := exec.Command(name, args...)
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("starting %s: %w", name, err)
	}
	return &execProcess{cmd: cmd}, nil
}

func (p *execProcess) Wait() error {
	return p.cmd.Wait()
}

func (p *execProcess) Kill() error {
	return p.cmd.Process.Kill()
}

// ExecRunner is the production CommandRunner backed by os/exec.
type ExecRunner struct{}

func (ExecRunner) Output(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}
