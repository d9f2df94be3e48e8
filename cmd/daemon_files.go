package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"
)

// daemonRuntime is written next to the pid file while a daemon runs.
type daemonRuntime struct {
	PID       int       `json:"pid"`
	Addr      string    `json:"addr"`
	StartedAt time.Time `json:"started_at"`
	Targets   []string  `json:"targets"`
}

// daemonFiles manages the pid file and its runtime sidecar.
type daemonFiles struct {
	pidPath string
}

func (f daemonFiles) runtimePath() string { return f.pidPath + ".json" }

var errNoDaemon = errors.New("daemon is not running")

// current returns the running daemon. A pid file left by a dead process is
// removed and reported as errNoDaemon.
func (f daemonFiles) current() (daemonRuntime, error) {
	//nolint:gosec // daemon pid path is configured by the local user
	data, err := os.ReadFile(f.pidPath)
	if errors.Is(err, os.ErrNotExist) {
		return daemonRuntime{}, errNoDaemon
	}
	if err != nil {
		return daemonRuntime{}, err
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return daemonRuntime{}, fmt.Errorf("invalid pid in %s", f.pidPath)
	}
	if !processAlive(pid) {
		f.clear()
		return daemonRuntime{}, errNoDaemon
	}

	rt := daemonRuntime{PID: pid}
	//nolint:gosec // sidecar lives next to the pid file
	if data, err := os.ReadFile(f.runtimePath()); err == nil {
		_ = json.Unmarshal(data, &rt)
		rt.PID = pid
	}
	return rt, nil
}

// claim fails when another daemon is alive, otherwise records rt.
func (f daemonFiles) claim(rt daemonRuntime) error {
	if running, err := f.current(); err == nil {
		return fmt.Errorf("daemon already running (pid %d)", running.PID)
	} else if !errors.Is(err, errNoDaemon) {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(f.pidPath), 0o750); err != nil {
		return fmt.Errorf("create daemon directory: %w", err)
	}
	if err := os.WriteFile(f.pidPath, []byte(strconv.Itoa(rt.PID)+"\n"), 0o600); err != nil {
		return err
	}
	data, err := json.MarshalIndent(rt, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(f.runtimePath(), append(data, '\n'), 0o600)
}

func (f daemonFiles) clear() {
	_ = os.Remove(f.pidPath)
	_ = os.Remove(f.runtimePath())
}

func processAlive(pid int) bool {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	err = proc.Signal(syscall.Signal(0))
	return err == nil || errors.Is(err, syscall.EPERM)
}

// childArgs turns the current invocation into the detached child's.
func childArgs(args []string) []string {
	out := make([]string, 0, len(args)+1)
	for _, a := range args {
		if a == "--detach" || strings.HasPrefix(a, "--detach=") {
			continue
		}
		out = append(out, a)
	}
	return append(out, "--child")
}
