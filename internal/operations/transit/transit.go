// Package transit manages the local temporary file an object passes through
// when it is copied between accounts.
package transit

import (
	stderrors "errors"
	"fmt"
	"io"

	"github.com/go-git/go-billy/v5"

	"github.com/input-output-hk/catalyst-forge-libs/aws/s3role/errors"
)

// FilePrefix prefixes every temporary file name.
const FilePrefix = "s3role-transit-"

// File is a temporary file scoped to one copy. Release must be called on every path.
type File struct {
	fs       billy.Filesystem
	file     billy.File
	name     string
	closed   bool
	released bool
}

// Create makes a new temporary file in dir on fs, creating dir if needed.
func Create(fs billy.Filesystem, dir string) (*File, error) {
	if dir != "" {
		if err := fs.MkdirAll(dir, 0o700); err != nil {
			return nil, errors.NewError("createTempFile", err).WithMessage(dir)
		}
	}

	f, err := fs.TempFile(dir, FilePrefix)
	if err != nil {
		return nil, errors.NewError("createTempFile", err).WithMessage(dir)
	}

	return &File{fs: fs, file: f, name: f.Name()}, nil
}

// Name returns the file's path on its filesystem.
func (t *File) Name() string {
	return t.name
}

// Writer returns the file as a seekable sink.
func (t *File) Writer() io.WriteSeeker {
	return t.file
}

// Reader rewinds the file and returns it for reading.
func (t *File) Reader() (io.ReadSeeker, error) {
	if _, err := t.file.Seek(0, io.SeekStart); err != nil {
		return nil, errors.NewError("readTempFile", err).WithMessage(t.name)
	}
	return t.file, nil
}

// Release closes and removes the file. It is safe to call more than once;
// only the first call does any work.
func (t *File) Release() error {
	if t.released {
		return nil
	}
	t.released = true

	var closeErr error
	if !t.closed {
		t.closed = true
		closeErr = t.file.Close()
	}

	removeErr := t.fs.Remove(t.name)
	if closeErr == nil && removeErr == nil {
		return nil
	}
	return errors.NewError("releaseTempFile", stderrors.Join(closeErr, removeErr)).
		WithMessage(fmt.Sprintf("temp file %s", t.name))
}
