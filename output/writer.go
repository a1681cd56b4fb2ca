// Package output persists decoded images to disk atomically.
package output

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/petal-labs/imagine/core"
)

// FileMode is the permission of written images.
const FileMode fs.FileMode = 0o644

// Writer writes image payloads to their final path via a temporary file in
// the same directory, so a destination is either fully written or untouched.
type Writer struct {
	fs      FS
	newName func() string
}

// Option configures a Writer.
type Option func(*Writer)

// WithFS replaces the filesystem, mainly for tests.
func WithFS(fsys FS) Option {
	return func(w *Writer) {
		if fsys != nil {
			w.fs = fsys
		}
	}
}

// WithNameFunc replaces the generator of file names used when the
// destination is a directory.
func WithNameFunc(fn func() string) Option {
	return func(w *Writer) {
		if fn != nil {
			w.newName = fn
		}
	}
}

// NewWriter creates a Writer on the OS filesystem.
func NewWriter(opts ...Option) *Writer {
	w := &Writer{fs: OSFS{}, newName: uniqueName}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// uniqueName returns image-<8 hex characters>.
func uniqueName() string {
	return "image-" + uuid.NewString()[:8]
}

// Write persists p at dest and returns the final path.
//
// If dest is an existing directory a unique file name is chosen inside it.
// The extension matching p's MIME type is appended unless dest already has
// one. Failures before the first byte is written return a WriteError with
// reason path_not_writable; later failures remove the temporary file and
// return io_failure.
func (w *Writer) Write(p core.ImagePayload, dest string) (string, error) {
	if err := p.Validate(); err != nil {
		return "", err
	}
	ext, _ := core.ExtensionForMIME(p.MIMEType)

	base, err := w.resolveBase(dest)
	if err != nil {
		return "", err
	}
	return w.writeFile(p.Data, withExtension(base, ext))
}

// WriteAll persists every payload. A single payload behaves like Write;
// several are numbered name-1.ext, name-2.ext and so on. On failure the
// paths written so far are returned with the error.
func (w *Writer) WriteAll(payloads []core.ImagePayload, dest string) ([]string, error) {
	switch len(payloads) {
	case 0:
		return nil, &core.DecodeError{Reason: core.DecodeMissingField, Message: "no images to write"}
	case 1:
		path, err := w.Write(payloads[0], dest)
		if err != nil {
			return nil, err
		}
		return []string{path}, nil
	}

	for _, p := range payloads {
		if err := p.Validate(); err != nil {
			return nil, err
		}
	}

	base, err := w.resolveBase(dest)
	if err != nil {
		return nil, err
	}
	stem, fixedExt := base, filepath.Ext(base)
	if fixedExt != "" {
		stem = strings.TrimSuffix(base, fixedExt)
	}

	paths := make([]string, 0, len(payloads))
	for i, p := range payloads {
		ext := fixedExt
		if ext == "" {
			ext, _ = core.ExtensionForMIME(p.MIMEType)
		}
		path, err := w.writeFile(p.Data, fmt.Sprintf("%s-%d%s", stem, i+1, ext))
		if err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// resolveBase turns dest into a file path that may still lack an extension.
func (w *Writer) resolveBase(dest string) (string, error) {
	if dest == "" {
		dest = "."
	}
	info, err := w.fs.Stat(dest)
	switch {
	case err == nil && info.IsDir():
		return filepath.Join(dest, w.newName()), nil
	case err != nil && !errors.Is(err, fs.ErrNotExist):
		return "", &core.WriteError{Reason: core.WritePathNotWritable, Path: dest, Err: err}
	case strings.HasSuffix(dest, string(os.PathSeparator)) || strings.HasSuffix(dest, "/"):
		return "", &core.WriteError{Reason: core.WritePathNotWritable, Path: dest, Err: fs.ErrNotExist}
	}
	return dest, nil
}

func withExtension(path, ext string) string {
	if filepath.Ext(path) != "" {
		return path
	}
	return path + ext
}

func (w *Writer) writeFile(data []byte, path string) (string, error) {
	dir := filepath.Dir(path)
	info, err := w.fs.Stat(dir)
	if err != nil {
		return "", &core.WriteError{Reason: core.WritePathNotWritable, Path: path, Err: err}
	}
	if !info.IsDir() {
		return "", &core.WriteError{Reason: core.WritePathNotWritable, Path: path,
			Err: fmt.Errorf("%s is not a directory", dir)}
	}
	if existing, err := w.fs.Stat(path); err == nil && existing.IsDir() {
		return "", &core.WriteError{Reason: core.WritePathNotWritable, Path: path,
			Err: fmt.Errorf("%s is a directory", path)}
	}

	tmp, err := w.fs.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return "", &core.WriteError{Reason: core.WritePathNotWritable, Path: path, Err: err}
	}
	tmpName := tmp.Name()

	fail := func(err error, closed bool) (string, error) {
		if !closed {
			_ = tmp.Close()
		}
		_ = w.fs.Remove(tmpName)
		return "", &core.WriteError{Reason: core.WriteIOFailure, Path: path, Err: err}
	}

	n, err := tmp.Write(data)
	if err == nil && n < len(data) {
		err = io.ErrShortWrite
	}
	if err != nil {
		return fail(fmt.Errorf("write temp file: %w", err), false)
	}
	if err := tmp.Sync(); err != nil {
		return fail(fmt.Errorf("sync temp file: %w", err), false)
	}
	if err := tmp.Close(); err != nil {
		return fail(fmt.Errorf("close temp file: %w", err), true)
	}
	if err := w.fs.Chmod(tmpName, FileMode); err != nil {
		return fail(fmt.Errorf("chmod temp file: %w", err), true)
	}
	if err := w.fs.Rename(tmpName, path); err != nil {
		return fail(fmt.Errorf("rename temp file: %w", err), true)
	}
	return path, nil
}
