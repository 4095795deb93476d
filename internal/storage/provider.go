// Package storage reads and replaces files in the directory holding the
// note corpus.
package storage

// Provider gives access to files under one directory. Paths are relative
// to that directory and may not escape it.
type Provider interface {
	Read(path string) ([]byte, error)
	// Write replaces path in one step: readers see the old or the new
	// content, never a mix.
	Write(path string, content []byte) error
	Abs(path string) (string, error)
}
