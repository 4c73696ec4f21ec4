package session

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"

	"github.com/lixenwraith/tngame/terminal"
)

// SizeEnv carries the negotiated size to a relayed child as "{cols}x{rows}"
const SizeEnv = "TN_TERM_SIZE"

// Process is a running child attached to a relay
type Process interface {
	Stdin() io.WriteCloser
	Stdout() io.Reader
	// Kill terminates the child and everything it started; safe to call more than once
	Kill() error
	// Wait reaps the child; call once, after Kill or after stdout reached EOF
	Wait() error
}

// Spawner starts a child sized for the client terminal
type Spawner interface {
	Spawn(ctx context.Context, size terminal.Size) (Process, error)
}

// SizeValue formats size for SizeEnv
func SizeValue(size terminal.Size) string {
	return fmt.Sprintf("%dx%d", size.Cols, size.Rows)
}

// ParseSizeValue reverses SizeValue
func ParseSizeValue(v string) (terminal.Size, error) {
	colsField, rowsField, ok := strings.Cut(v, "x")
	if !ok {
		return terminal.Size{}, fmt.Errorf("%s %q: want {cols}x{rows}", SizeEnv, v)
	}
	cols, err := strconv.Atoi(colsField)
	if err != nil || cols < 1 {
		return terminal.Size{}, fmt.Errorf("%s %q: bad columns", SizeEnv, v)
	}
	rows, err := strconv.Atoi(rowsField)
	if err != nil || rows < 1 {
		return terminal.Size{}, fmt.Errorf("%s %q: bad rows", SizeEnv, v)
	}
	return terminal.Size{Rows: rows, Cols: cols}, nil
}

// ExecSpawner runs an external command in its own process group
type ExecSpawner struct {
	Command string
	Args    []string
	Env     []string  // Added to the inherited environment
	Stderr  io.Writer // nil discards the child's stderr
}

// Spawn starts the command with SizeEnv set
func (e *ExecSpawner) Spawn(ctx context.Context, size terminal.Size) (Process, error) {
	cmd := exec.Command(e.Command, e.Args...)
	cmd.Env = append(append(os.Environ(), e.Env...), SizeEnv+"="+SizeValue(size))
	cmd.Stderr = e.Stderr
	setProcessGroup(cmd)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start %s: %w", e.Command, err)
	}
	return &execProcess{cmd: cmd, stdin: stdin, stdout: stdout}, nil
}

type execProcess struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout io.Reader

	killOnce sync.Once
	killErr  error
}

func (p *execProcess) Stdin() io.WriteCloser { return p.stdin }
func (p *execProcess) Stdout() io.Reader     { return p.stdout }

func (p *execProcess) Kill() error {
	p.killOnce.Do(func() {
		p.killErr = killProcessGroup(p.cmd)
	})
	return p.killErr
}

func (p *execProcess) Wait() error {
	return p.cmd.Wait()
}
