package browser

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
)

// ProcessKiller clears what a crashed Chromium leaves behind for one profile directory.
type ProcessKiller interface {
	ClearLocks(profileDir string) error
	KillOrphans(ctx context.Context, profileDir string) error
}

var singletonFiles = []string{"SingletonLock", "SingletonSocket", "SingletonCookie"}

type osKiller struct{}

func NewProcessKiller() ProcessKiller { return osKiller{} }

func (osKiller) ClearLocks(profileDir string) error {
	if profileDir == "" {
		return nil
	}
	var errs []error
	for _, name := range singletonFiles {
		// SingletonLock is a symlink that dangles once its owner dies; Remove unlinks it either way
		if err := os.Remove(filepath.Join(profileDir, name)); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (osKiller) KillOrphans(ctx context.Context, profileDir string) error {
	if profileDir == "" {
		return nil
	}
	err := exec.CommandContext(ctx, "pkill", "-f", "user-data-dir="+profileDir).Run()
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && exitErr.ExitCode() == 1 {
		// no process matched
		return nil
	}
	return err
}
