//go:build !windows

package backup

import (
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"syscall"
)

// openFileNoFollow opens path with O_NOFOLLOW so a symlink in the final
// component is refused. O_CLOEXEC prevents FD leaks across exec.
func openFileNoFollow(path string, flag int, perm os.FileMode) (*os.File, error) {
	fd, err := syscall.Open(path, flag|syscall.O_NOFOLLOW|syscall.O_CLOEXEC, uint32(perm))
	if err != nil {
		if stderrors.Is(err, syscall.ELOOP) {
			return nil, fmt.Errorf("cannot write to symlink %s", path)
		}
		return nil, err
	}
	return os.NewFile(uintptr(fd), path), nil
}

func openFileNoFollowRead(path string) (*os.File, error) {
	fd, err := syscall.Open(path, syscall.O_RDONLY|syscall.O_NOFOLLOW|syscall.O_CLOEXEC, 0)
	if err != nil {
		if stderrors.Is(err, syscall.ELOOP) {
			return nil, fmt.Errorf("cannot read from symlink %s", path)
		}
		if stderrors.Is(err, syscall.ENOENT) {
			return nil, fmt.Errorf("backup %s: %w", filepath.Base(path), os.ErrNotExist)
		}
		return nil, err
	}
	return os.NewFile(uintptr(fd), path), nil
}
