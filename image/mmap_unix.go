//go:build linux || darwin
// +build linux darwin

package image

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// MappedImage is an Image backed by a memory-mapped file (spec §4.A: "the
// loader ... retains a view over the bytecode/state tail (zero-copy against
// a memory-mapped or embedded blob)"). Close unmaps the file; the returned
// *Image must not be used afterward.
type MappedImage struct {
	*Image
	data []byte
}

// LoadFile mmaps path read-only and parses it in place, avoiding a copy of
// the (potentially large) bytecode region.
func LoadFile(path string) (*MappedImage, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	size := info.Size()
	if size == 0 {
		return nil, fmt.Errorf("cannot map empty image file %s", path)
	}

	data, err := unix.Mmap(int(f.Fd()), 0, int(size), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("mmap %s: %w", path, err)
	}

	img, err := Load(data)
	if err != nil {
		unix.Munmap(data)
		return nil, err
	}
	return &MappedImage{Image: img, data: data}, nil
}

// Close unmaps the underlying file.
func (m *MappedImage) Close() error {
	return unix.Munmap(m.data)
}
