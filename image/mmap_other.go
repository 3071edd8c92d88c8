//go:build !linux && !darwin
// +build !linux,!darwin

package image

import "os"

// MappedImage is an Image loaded from a plain read, on platforms without a
// mmap binding wired in (spec §4.A allows "memory-mapped or embedded blob";
// this is the embedded-blob fallback).
type MappedImage struct {
	*Image
	data []byte
}

// LoadFile reads path fully into memory and parses it. Not zero-copy, but
// functionally equivalent to the unix mmap path.
func LoadFile(path string) (*MappedImage, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	img, err := Load(data)
	if err != nil {
		return nil, err
	}
	return &MappedImage{Image: img, data: data}, nil
}

// Close is a no-op on this platform; there is no mapping to release.
func (m *MappedImage) Close() error { return nil }
