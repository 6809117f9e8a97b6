//go:build linux

package httpd

import (
	"os"

	"golang.org/x/sys/unix"
)

// mmapFile maps f's contents read-only, the way AddContent mmaps the
// static file straight into the response's second iovec.
func mmapFile(f *os.File, size int64) ([]byte, error) {
	return unix.Mmap(int(f.Fd()), 0, int(size), unix.PROT_READ, unix.MAP_PRIVATE)
}

// munmapFile releases a region returned by mmapFile.
func munmapFile(data []byte) error {
	return unix.Munmap(data)
}
