//go:build linux || darwin || freebsd || netbsd || openbsd

package region

import "golang.org/x/sys/unix"

func mapShared(size int) ([]byte, bool, func([]byte) error, error) {
	buf, err := unix.Mmap(
		-1, 0, size,
		unix.PROT_READ|unix.PROT_WRITE,
		unix.MAP_SHARED|unix.MAP_ANON,
	)
	if err != nil {
		return nil, false, nil, err
	}

	return buf, true, unix.Munmap, nil
}
