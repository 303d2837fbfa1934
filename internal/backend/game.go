package backend

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/sirupsen/logrus"
)

// gameExecutable is the launch target relative to the game directory.
const gameExecutable = "Binaries/Tera.exe"

// GameStatusValue reports whether the game is running or mid-launch.
func (c *Client) GameStatusValue(ctx context.Context) (bool, error) {
	c.launchMu.Lock()
	defer c.launchMu.Unlock()
	return c.isRunning || c.isLaunching, nil
}

// ResetLaunchState clears the launch latch after a failed launch so the UI
// can try again.
func (c *Client) ResetLaunchState(ctx context.Context) error {
	c.launchMu.Lock()
	defer c.launchMu.Unlock()
	c.isLaunching = false
	return nil
}

// LaunchGame starts the game process with the mirrored auth material and
// supervises it in the background. The call returns once the process has
// been handed off; status travels back via events.
func (c *Client) LaunchGame(ctx context.Context) error {
	c.launchMu.Lock()
	if c.isLaunching {
		c.launchMu.Unlock()
		return ErrAlreadyLaunching
	}
	if c.isRunning {
		c.launchMu.Unlock()
		return ErrAlreadyRunning
	}
	c.isLaunching = true
	c.launchMu.Unlock()

	fail := func(err error) error {
		c.launchMu.Lock()
		c.isLaunching = false
		c.launchMu.Unlock()
		return err
	}

	c.authMu.Lock()
	auth := c.auth
	c.authMu.Unlock()

	gamePath, err := c.GamePath()
	if err != nil {
		return fail(err)
	}
	exePath := filepath.Join(gamePath, filepath.FromSlash(gameExecutable))
	if _, err := os.Stat(exePath); err != nil {
		return fail(fmt.Errorf("game executable not found at %s: %w", exePath, err))
	}

	lang := c.Language()
	cmd := exec.Command(exePath,
		fmt.Sprintf("-AccountName=%d", auth.UserNo),
		"-CharacterCount="+auth.CharacterCount,
		"-Ticket="+auth.AuthKey,
		"-Lang="+lang,
	)
	cmd.Dir = filepath.Dir(exePath)

	if err := cmd.Start(); err != nil {
		return fail(fmt.Errorf("failed to start game process: %w", err))
	}

	c.launchMu.Lock()
	c.isRunning = true
	c.launchMu.Unlock()
	c.emitter.emit(GameStatusChanged{Running: true})
	logrus.Infof("game process started (pid %d)", cmd.Process.Pid)

	go c.superviseGame(cmd)
	return nil
}

// superviseGame waits for the game process to exit and restores launch
// state, emitting the exit events the UI listens for.
func (c *Client) superviseGame(cmd *exec.Cmd) {
	err := cmd.Wait()
	if err != nil {
		c.emitter.emit(GameStatus{Message: fmt.Sprintf("Game exited with error: %v", err)})
		logrus.Warnf("game exited with error: %v", err)
	} else {
		c.emitter.emit(GameStatus{Message: "Game exited normally"})
		logrus.Info("game exited normally")
	}

	c.emitter.emit(GameEnded{})

	c.launchMu.Lock()
	c.isRunning = false
	c.isLaunching = false
	c.launchMu.Unlock()
	c.emitter.emit(GameStatusChanged{Running: false})
}
