//go:build !linux

package httpd

import (
	"fmt"
	"os"
)

// mmapFile is unavailable outside Linux in this build; the reactor this
// package serves only runs on Linux.
func mmapFile(f *os.File, size int64) ([]byte, error) {
	return nil, fmt.Errorf("httpd: mmap requires linux")
}

// munmapFile is a no-op outside Linux since mmapFile never succeeds there.
func munmapFile(data []byte) error { return nil }
