package activation

import (
	"fmt"
	"os/exec"

	"go.uber.org/zap"

	"github.com/anon-safe/safe-launcher/internal/infrastructure/logging"
)

// ExecSpawner starts applications as OS processes. Each child is reaped
// by a background goroutine; its exit is only logged.
type ExecSpawner struct {
	log *logging.Logger
}

// NewExecSpawner creates a process spawner
func NewExecSpawner(log *logging.Logger) *ExecSpawner {
	return &ExecSpawner{log: log.Component("spawner")}
}

// Spawn implements Spawner
func (s *ExecSpawner) Spawn(path string, args []string) error {
	cmd := exec.Command(path, args...)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start %s: %w", path, err)
	}

	pid := cmd.Process.Pid
	s.log.Debug("process started", zap.String("path", path), zap.Int("pid", pid))

	go func() {
		err := cmd.Wait()
		s.log.Debug("process exited", zap.String("path", path), zap.Int("pid", pid), zap.Error(err))
	}()
	return nil
}
