package scanner

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sync"
)

// DefaultCommand запускает zbarcam в режиме вывода сырых строк без окна.
var DefaultCommand = []string{"zbarcam", "--raw", "--nodisplay", "/dev/video0"}

// ExecCamera получает распознанные коды от внешнего процесса-декодера,
// который печатает по одному содержимому на строку.
type ExecCamera struct {
	command []string

	mu      sync.Mutex
	cmd     *exec.Cmd
	stopped bool
}

// NewExecCamera создаёт камеру поверх команды декодера.
func NewExecCamera(command []string) *ExecCamera {
	if len(command) == 0 {
		command = DefaultCommand
	}
	return &ExecCamera{command: command}
}

// Start запускает процесс декодера. Процесс не привязан к ctx: его время
// жизни ограничивает только Stop.
func (c *ExecCamera) Start(_ context.Context, onDecode func(string), onError func(error)) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cmd != nil {
		return errors.New("camera already started")
	}

	cmd := exec.Command(c.command[0], c.command[1:]...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start decoder: %w", err)
	}

	c.cmd = cmd
	c.stopped = false

	go func() {
		sc := bufio.NewScanner(stdout)
		for sc.Scan() {
			onDecode(sc.Text())
		}
		waitErr := cmd.Wait()

		c.mu.Lock()
		stopped := c.stopped
		if c.cmd == cmd {
			c.cmd = nil
		}
		c.mu.Unlock()

		if !stopped {
			if waitErr == nil {
				waitErr = errors.New("decoder exited")
			}
			onError(waitErr)
		}
	}()

	return nil
}

// Stop завершает процесс декодера. Процесс дожидается читающая горутина,
// поэтому Stop можно вызывать из onDecode.
func (c *ExecCamera) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cmd == nil || c.stopped {
		return nil
	}
	c.stopped = true
	cmd := c.cmd
	c.cmd = nil

	if err := cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return fmt.Errorf("kill decoder: %w", err)
	}
	return nil
}
