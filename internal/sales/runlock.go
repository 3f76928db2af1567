package sales

import (
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	ierr "github.com/farxc/accurate-sales-etl/internal/errors"
)

const lockFileName = ".sales-etl.lock"

// runLock keeps two runs from writing the same staged files.
type runLock struct {
	lockFile *flock.Flock
}

func newRunLock(stagingDir string) (*runLock, error) {
	if err := os.MkdirAll(stagingDir, 0o755); err != nil {
		return nil, ierr.WithError(err).
			WithMessagef("create staging dir %s", stagingDir).
			Mark(ierr.ErrSystem)
	}
	return &runLock{lockFile: flock.New(filepath.Join(stagingDir, lockFileName))}, nil
}

func (l *runLock) TryLock() error {
	locked, err := l.lockFile.TryLock()
	if err != nil {
		return ierr.WithError(err).
			WithMessage("acquire run lock").
			Mark(ierr.ErrSystem)
	}
	if !locked {
		return ierr.NewErrorf("another run holds %s", l.lockFile.Path()).
			WithHint("Wait for the running job to finish; windows share the staging directory").
			Mark(ierr.ErrAlreadyRunning)
	}
	return nil
}

func (l *runLock) Unlock() error {
	return l.lockFile.Unlock()
}
