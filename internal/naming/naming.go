// Package naming derives output file names for captures.
package naming

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// TimestampLayout formats capture times as YYYY-MM-DD_HH.MM.SS.
const TimestampLayout = "2006-01-02_15.04.05"

// MaxNoteVariants is the number of note-based names tried before falling back
// to the timestamped name.
const MaxNoteVariants = 100

// ExistsFunc reports whether a file exists at path.
type ExistsFunc func(path string) bool

// FileExists is the ExistsFunc backed by the file system.
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil || !errors.Is(err, fs.ErrNotExist)
}

// Timestamped returns "<dir>/<model>_<YYYY-MM-DD_HH.MM.SS>.<ext>".
func Timestamped(dir, model string, ts time.Time, ext string) string {
	return filepath.Join(dir, model+"_"+ts.Format(TimestampLayout)+"."+ext)
}

// FromNote returns the first free name among "<note>.<ext>", "<note>_2.<ext>"
// up to "<note>_100.<ext>" in dir, with spaces in the note replaced by
// underscores. The second result is false when every candidate exists.
func FromNote(dir, note, ext string, exists ExistsFunc) (string, bool) {
	base := sanitize(note)
	if base == "" {
		return "", false
	}

	for i := 1; i <= MaxNoteVariants; i++ {
		name := base
		if i > 1 {
			name += "_" + strconv.Itoa(i)
		}

		path := filepath.Join(dir, name+"."+ext)
		if !exists(path) {
			return path, true
		}
	}

	return "", false
}

// Build picks the output path of a capture: a note-based name when a note is
// given and a free variant exists, the timestamped name otherwise.
func Build(dir, model string, ts time.Time, ext, note string, exists ExistsFunc) string {
	if exists == nil {
		exists = FileExists
	}

	if note != "" {
		if path, ok := FromNote(dir, note, ext, exists); ok {
			return path
		}
	}

	return Timestamped(dir, model, ts, ext)
}

func sanitize(note string) string {
	note = strings.TrimSpace(note)
	note = strings.ReplaceAll(note, " ", "_")

	return strings.Map(func(r rune) rune {
		if r == '/' || r == '\\' || r == os.PathSeparator {
			return '_'
		}

		return r
	}, note)
}
