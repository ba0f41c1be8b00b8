package script

import (
	"errors"
	"fmt"
	"os"

	"github.com/gamekit-labs/ccbuild/internal/platform"
	cp "github.com/otiai10/copy"
	"github.com/sirupsen/logrus"
)

// Suffix is appended to a directory name to form its backup location.
const Suffix = "-backup"

// State is the lifecycle of a Backup.
type State int

const (
	Clean State = iota
	BackedUp
	Compiled
	Restored
)

func (s State) String() string {
	switch s {
	case Clean:
		return "clean"
	case BackedUp:
		return "backed-up"
	case Compiled:
		return "compiled"
	case Restored:
		return "restored"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Backup is a pristine copy of a script tree.
type Backup struct {
	Dir   string
	Path  string
	state State
}

// NewBackup copies dir to dir+Suffix, replacing any stale backup left by an
// interrupted run.
func NewBackup(dir string) (*Backup, error) {
	b := &Backup{Dir: dir, Path: dir + Suffix}

	if err := platform.RemovePath(b.Path); err != nil {
		return nil, fmt.Errorf("removing stale backup %s: %w", b.Path, err)
	}
	if err := cp.Copy(dir, b.Path); err != nil {
		platform.RemovePath(b.Path)
		return nil, fmt.Errorf("backing up %s: %w", dir, err)
	}
	b.state = BackedUp
	logrus.Debugf("backed up %s", dir)
	return b, nil
}

// State returns the current lifecycle state.
func (b *Backup) State() State { return b.state }

// MarkCompiled records that the working tree now holds compiled output.
func (b *Backup) MarkCompiled() error {
	if b.state != BackedUp {
		return fmt.Errorf("backup of %s: cannot mark compiled in state %s", b.Dir, b.state)
	}
	b.state = Compiled
	return nil
}

// Restore deletes the working tree and moves the backup back into place.
// Restoring twice is a no-op.
func (b *Backup) Restore() error {
	switch b.state {
	case Restored:
		return nil
	case Clean:
		return errors.New("restore called before backup")
	}

	if err := platform.RemovePath(b.Dir); err != nil {
		return fmt.Errorf("removing compiled tree %s: %w", b.Dir, err)
	}
	if err := os.Rename(b.Path, b.Dir); err != nil {
		// Rename may fail across filesystems; fall back to copying.
		if copyErr := cp.Copy(b.Path, b.Dir); copyErr != nil {
			return fmt.Errorf("restoring %s: %w (original rename error: %v)", b.Dir, copyErr, err)
		}
		platform.RemovePath(b.Path)
	}
	b.state = Restored
	logrus.Debugf("restored %s", b.Dir)
	return nil
}

// WithBackup backs up every dir, runs fn, then restores all of them on every
// exit path. Restore failures are joined with fn's error. Empty entries in
// dirs are skipped.
func WithBackup(dirs []string, fn func(backups []*Backup) error) (err error) {
	var backups []*Backup
	defer func() {
		for i := len(backups) - 1; i >= 0; i-- {
			if rerr := backups[i].Restore(); rerr != nil {
				err = errors.Join(err, rerr)
			}
		}
	}()

	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		b, berr := NewBackup(dir)
		if berr != nil {
			return berr
		}
		backups = append(backups, b)
	}
	return fn(backups)
}
