//go:build linux

package bytebuf

import "golang.org/x/sys/unix"

// syscallReadv issues a vectored read via the readv(2) syscall.
func syscallReadv(fd int, iovs [][]byte) (int, error) {
	n, err := unix.Readv(fd, iovs)
	if err != nil {
		return n, err
	}
	return n, nil
}
