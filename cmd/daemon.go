package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/theirongolddev/moneyshape/internal/cli"
	"github.com/theirongolddev/moneyshape/internal/config"
	"github.com/theirongolddev/moneyshape/internal/daemon"
	"github.com/theirongolddev/moneyshape/internal/logging"
)

var (
	flagDaemonAddr         string
	flagDaemonDir          string
	flagDaemonDetach       bool
	flagDaemonPIDFile      string
	flagDaemonLogFile      string
	flagDaemonEventsBuffer int
	flagDaemonChild        bool
)

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Keep boards settled in the background and serve HTTP/SSE status",
	RunE:  runDaemon,
}

var daemonStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show daemon process and board status",
	RunE:  runDaemonStatus,
}

var daemonStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running daemon",
	RunE:  runDaemonStop,
}

func init() {
	daemonCmd.PersistentFlags().StringVar(&flagDaemonAddr, "addr", "", "HTTP listen address (default from config)")
	daemonCmd.PersistentFlags().StringVar(&flagDaemonPIDFile, "pid-file", filepath.Join(config.DataDir(), "moneyshaped.pid"), "PID file path")
	daemonCmd.PersistentFlags().StringVar(&flagDaemonLogFile, "log-file", filepath.Join(config.DataDir(), "moneyshaped.log"), "Log file path for detached mode")
	daemonCmd.PersistentFlags().IntVar(&flagDaemonEventsBuffer, "events-buffer", 0, "Max in-memory events retained (default from config)")

	daemonCmd.Flags().StringVar(&flagDaemonDir, "dir", "", "Keep every board in this directory settled")
	daemonCmd.Flags().BoolVar(&flagDaemonDetach, "detach", false, "Run daemon as a background process")
	daemonCmd.Flags().BoolVar(&flagDaemonChild, "child", false, "Internal: mark detached child process")
	_ = daemonCmd.Flags().MarkHidden("child")

	daemonCmd.AddCommand(daemonStatusCmd, daemonStopCmd)
	rootCmd.AddCommand(daemonCmd)
}

func daemonAddr(cfg config.Config) string {
	if flagDaemonAddr != "" {
		return flagDaemonAddr
	}
	return cfg.Daemon.Addr
}

func runDaemon(_ *cobra.Command, _ []string) error {
	switch {
	case flagDaemonDetach && flagDaemonChild:
		return errors.New("invalid daemon launch mode")
	case flagDaemonDetach:
		return startDetached()
	}
	return runDaemonForeground()
}

func startDetached() error {
	files := daemonFiles{pidPath: flagDaemonPIDFile}
	if rt, err := files.current(); err == nil {
		return fmt.Errorf("daemon already running (pid %d)", rt.PID)
	}

	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("resolve executable: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(flagDaemonLogFile), 0o750); err != nil {
		return fmt.Errorf("create daemon log directory: %w", err)
	}
	//nolint:gosec // daemon log path is configured by the local user
	logf, err := os.OpenFile(flagDaemonLogFile, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o600)
	if err != nil {
		return fmt.Errorf("open daemon log file: %w", err)
	}
	defer func() { _ = logf.Close() }()

	child := exec.Command(exe, childArgs(os.Args[1:])...) //nolint:gosec // re-runs the current invocation
	child.Stdout = logf
	child.Stderr = logf
	child.Env = os.Environ()
	if err := child.Start(); err != nil {
		return fmt.Errorf("start detached daemon: %w", err)
	}

	cfg, _ := config.Load()
	fmt.Printf("  Started daemon (pid %d)\n", child.Process.Pid)
	fmt.Printf("  Status: http://%s/v1/status\n", daemonAddr(cfg))
	fmt.Printf("  Log: %s\n", flagDaemonLogFile)
	return nil
}

func runDaemonForeground() error {
	e, err := setup(true)
	if err != nil {
		return err
	}
	defer e.close()

	targets, err := e.watchTargets(flagDaemonDir)
	if err != nil {
		return err
	}
	addr := daemonAddr(e.cfg)

	files := daemonFiles{pidPath: flagDaemonPIDFile}
	rt := daemonRuntime{PID: os.Getpid(), Addr: addr, StartedAt: time.Now(), Targets: targets}
	if err := files.claim(rt); err != nil {
		return err
	}
	defer files.clear()

	buffer := e.cfg.Daemon.EventsBuffer
	if flagDaemonEventsBuffer > 0 {
		buffer = flagDaemonEventsBuffer
	}
	log := logging.Component(e.log, "daemon")
	svc := daemon.New(daemon.Config{
		Targets:      targets,
		Addr:         addr,
		EventsBuffer: buffer,
		Debounce:     time.Duration(e.cfg.Daemon.DebounceMS) * time.Millisecond,
		Pipeline:     e.pipelineOptions(),
	}, log)

	fmt.Printf("  moneyshape daemon listening on http://%s\n", addr)
	fmt.Printf("  Watching %s\n", strings.Join(targets, ", "))
	fmt.Printf("  Stop with: moneyshape daemon stop --pid-file %s\n", flagDaemonPIDFile)
	log.Info("daemon started", zap.String("addr", addr), zap.Strings("targets", targets))

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := svc.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func runDaemonStatus(_ *cobra.Command, _ []string) error {
	rt, err := daemonFiles{pidPath: flagDaemonPIDFile}.current()
	if errors.Is(err, errNoDaemon) {
		fmt.Println("  Daemon: not running")
		return nil
	}
	if err != nil {
		return err
	}
	if rt.Addr == "" {
		cfg, _ := config.Load()
		rt.Addr = daemonAddr(cfg)
	}

	fmt.Printf("  Daemon PID: %d\n", rt.PID)
	fmt.Printf("  Address: http://%s\n", rt.Addr)
	if !rt.StartedAt.IsZero() {
		fmt.Printf("  Started: %s\n", rt.StartedAt.Local().Format(time.RFC3339))
	}

	st, err := fetchStatus(rt.Addr)
	if err != nil {
		fmt.Printf("  API status: %v\n", err)
		return nil
	}

	if st.LastSyncAt.IsZero() {
		fmt.Println("  Last sync: pending")
	} else {
		fmt.Printf("  Last sync: %s (%d syncs)\n", st.LastSyncAt.Local().Format(time.RFC3339), st.SyncCount)
	}
	if st.LastError != "" {
		fmt.Printf("  Last error: %s\n", st.LastError)
	}
	if len(st.Boards) == 0 {
		return nil
	}
	fmt.Println()
	fmt.Print(cli.RenderTable(cli.Table{
		Headers: []string{"Board", "Passes", "Gaps", "Synced"},
		Rows:    daemonBoardRows(st.Boards),
	}))
	return nil
}

func fetchStatus(addr string) (daemon.Status, error) {
	var st daemon.Status
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "http://"+addr+"/v1/status", nil)
	if err != nil {
		return st, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return st, fmt.Errorf("unreachable (%w)", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return st, fmt.Errorf("HTTP %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		return st, fmt.Errorf("malformed response (%w)", err)
	}
	return st, nil
}

func daemonBoardRows(boards []daemon.Board) [][]string {
	rows := make([][]string, 0, len(boards))
	for _, b := range boards {
		gaps := formatNumber(int64(len(b.Gaps)))
		if b.Error != "" {
			gaps = "error: " + b.Error
		}
		rows = append(rows, []string{
			b.Name,
			formatNumber(int64(b.Passes)),
			gaps,
			b.SyncedAt.Local().Format(time.Kitchen),
		})
	}
	return rows
}

func runDaemonStop(_ *cobra.Command, _ []string) error {
	files := daemonFiles{pidPath: flagDaemonPIDFile}
	rt, err := files.current()
	if err != nil {
		return err
	}

	proc, err := os.FindProcess(rt.PID)
	if err != nil {
		return fmt.Errorf("find daemon process: %w", err)
	}
	if err := proc.Signal(syscall.SIGTERM); err != nil {
		return fmt.Errorf("signal daemon process: %w", err)
	}

	tick := time.NewTicker(150 * time.Millisecond)
	defer tick.Stop()
	deadline := time.After(8 * time.Second)
	for {
		select {
		case <-tick.C:
			if !processAlive(rt.PID) {
				files.clear()
				fmt.Printf("  Stopped daemon (pid %d)\n", rt.PID)
				return nil
			}
		case <-deadline:
			return fmt.Errorf("daemon (pid %d) did not exit in time", rt.PID)
		}
	}
}
