//go:build linux

package device

import (
	"fmt"
	"os"
	"unsafe"

	"golang.org/x/sys/unix"
)

// Size returns the capacity of the file or block device at path.
func Size(path string) (int64, error) {
	fd, err := unix.Open(path, unix.O_RDONLY|unix.O_CLOEXEC, 0)
	if err != nil {
		return 0, fmt.Errorf("open %s: %w", path, err)
	}
	defer unix.Close(fd)

	var stat unix.Stat_t
	if err := unix.Fstat(fd, &stat); err != nil {
		return 0, fmt.Errorf("stat %s: %w", path, err)
	}

	switch stat.Mode & unix.S_IFMT {
	case unix.S_IFREG:
		return stat.Size, nil
	case unix.S_IFBLK:
		return blockDeviceSize(fd, path)
	default:
		return 0, fmt.Errorf("%s: %w: not a block device", path, ErrSizeUnknown)
	}
}

func blockDeviceSize(fd int, path string) (int64, error) {
	var size uint64

	_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(fd), unix.BLKGETSIZE64, uintptr(unsafe.Pointer(&size)))
	if errno != 0 {
		return 0, fmt.Errorf("query size of %s: %w", path, os.NewSyscallError("ioctl", errno))
	}

	return int64(size), nil
}
