package cli

import (
	"fmt"
	"os"
	"os/exec"
	"strconv"
)

const daemonEnv = "IRCCD_DAEMON"

func isDaemonChild() bool {
	return os.Getenv(daemonEnv) == "1"
}

// daemonize starts a detached copy of the current command line and returns
// its pid. The child sees daemonEnv and runs in the foreground.
func daemonize() (int, error) {
	exe, err := os.Executable()
	if err != nil {
		return 0, fmt.Errorf("failed to locate executable: %w", err)
	}

	cmd := exec.Command(exe, os.Args[1:]...)
	cmd.Env = append(os.Environ(), daemonEnv+"=1")
	cmd.Stdin = nil
	cmd.Stdout = nil
	cmd.Stderr = nil
	cmd.SysProcAttr = detachAttr()

	if err := cmd.Start(); err != nil {
		return 0, fmt.Errorf("failed to fork: %w", err)
	}
	pid := cmd.Process.Pid
	cmd.Process.Release()
	return pid, nil
}

func writePIDFile(path string) error {
	return os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())+"\n"), 0644)
}
