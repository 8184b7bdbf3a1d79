// Package archive packs a generated icon set into a single ZIP file,
// optionally AES-256 encrypted, for hand-off to the packaging step.
package archive

import (
	"context"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/alexmullins/zip"
	"github.com/pkg/errors"
)

// Common errors
var (
	ErrNoFiles       = errors.New("no files provided for archiving")
	ErrInvalidOutput = errors.New("invalid output path")
	ErrDuplicateName = errors.New("duplicate archive entry")
)

// ProgressCallback is called after each entry is written
type ProgressCallback func(done, total int, name string)

// Config holds archive configuration
type Config struct {
	// OutputPath is the full path for the output ZIP file
	OutputPath string

	// Password enables AES-256 encryption of every entry when non-empty
	Password string

	// OnProgress is called to report progress
	OnProgress ProgressCallback
}

// Entry is one file to place in the archive
type Entry struct {
	Name string
	Data []byte
}

// Result describes a written archive
type Result struct {
	OutputPath       string
	FilesArchived    int
	Encrypted        bool
	TotalSize        int64
	ArchiveSize      int64
	CompressionRatio float64
}

// Archiver writes icon sets to ZIP files
type Archiver struct {
	config Config
}

// NewArchiver creates a new Archiver with the given config
func NewArchiver(config Config) (*Archiver, error) {
	if strings.TrimSpace(config.OutputPath) == "" {
		return nil, ErrInvalidOutput
	}
	return &Archiver{config: config}, nil
}

// Write stores entries in the archive. On any failure, including
// cancellation, the partial file is removed.
func (a *Archiver) Write(ctx context.Context, entries []Entry) (result *Result, err error) {
	if len(entries) == 0 {
		return nil, ErrNoFiles
	}

	seen := make(map[string]bool, len(entries))
	var totalSize int64
	for _, e := range entries {
		name := normalizeName(e.Name)
		if name == "" {
			return nil, errors.Wrapf(ErrInvalidOutput, "empty entry name")
		}
		if seen[name] {
			return nil, errors.Wrap(ErrDuplicateName, name)
		}
		seen[name] = true
		totalSize += int64(len(e.Data))
	}

	if err := os.MkdirAll(filepath.Dir(a.config.OutputPath), 0755); err != nil {
		return nil, errors.Wrap(err, "create output directory")
	}

	f, err := os.Create(a.config.OutputPath)
	if err != nil {
		return nil, errors.Wrap(err, "create archive")
	}
	zw := zip.NewWriter(f)

	defer func() {
		if err != nil {
			zw.Close()
			f.Close()
			os.Remove(a.config.OutputPath)
		}
	}()

	for i, e := range entries {
		if err := ctx.Err(); err != nil {
			return nil, errors.Wrap(err, "archiving cancelled")
		}
		name := normalizeName(e.Name)
		if err := a.addEntry(zw, name, e.Data); err != nil {
			return nil, err
		}
		if a.config.OnProgress != nil {
			a.config.OnProgress(i+1, len(entries), name)
		}
	}

	if err := zw.Close(); err != nil {
		return nil, errors.Wrap(err, "finalize archive")
	}
	if err := f.Close(); err != nil {
		return nil, errors.Wrap(err, "close archive")
	}

	info, err := os.Stat(a.config.OutputPath)
	if err != nil {
		return nil, errors.Wrap(err, "stat archive")
	}

	result = &Result{
		OutputPath:    a.config.OutputPath,
		FilesArchived: len(entries),
		Encrypted:     a.config.Password != "",
		TotalSize:     totalSize,
		ArchiveSize:   info.Size(),
	}
	if totalSize > 0 {
		result.CompressionRatio = float64(result.ArchiveSize) / float64(totalSize)
	}
	return result, nil
}

func (a *Archiver) addEntry(zw *zip.Writer, name string, data []byte) error {
	var (
		w   io.Writer
		err error
	)
	if a.config.Password != "" {
		w, err = zw.Encrypt(name, a.config.Password)
	} else {
		w, err = zw.Create(name)
	}
	if err != nil {
		return errors.Wrapf(err, "create archive entry %s", name)
	}

	if _, err := w.Write(data); err != nil {
		return errors.Wrapf(err, "write archive entry %s", name)
	}
	return nil
}

// ReadAll opens an archive and returns every entry's contents by name.
// password is used only for encrypted entries.
func ReadAll(archivePath, password string) (map[string][]byte, error) {
	r, err := zip.OpenReader(archivePath)
	if err != nil {
		return nil, errors.Wrap(err, "open archive")
	}
	defer r.Close()

	out := make(map[string][]byte, len(r.File))
	for _, f := range r.File {
		if f.IsEncrypted() {
			f.SetPassword(password)
		}
		rc, err := f.Open()
		if err != nil {
			return nil, errors.Wrapf(err, "open entry %s", f.Name)
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, errors.Wrapf(err, "read entry %s", f.Name)
		}
		out[f.Name] = data
	}
	return out, nil
}

// normalizeName converts separators to "/" and strips leading slashes.
func normalizeName(name string) string {
	name = strings.ReplaceAll(name, `\`, "/")
	name = path.Clean("/" + name)
	return strings.TrimPrefix(name, "/")
}
