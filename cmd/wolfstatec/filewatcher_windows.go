//go:build windows

package main

import "fmt"

// FileWatcher on Windows is an unimplemented stub: there is no inotify or
// kqueue equivalent wired up here, so watch mode refuses outright rather
// than silently falling back to polling.
type FileWatcher struct{}

func NewFileWatcher(onChange func(string)) (*FileWatcher, error) {
	return nil, fmt.Errorf("watch mode is not supported on windows")
}

func (fw *FileWatcher) AddFile(path string) error {
	return fmt.Errorf("watch mode is not supported on windows")
}

func (fw *FileWatcher) Watch() {}

func (fw *FileWatcher) Close() error { return nil }
