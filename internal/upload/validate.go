package upload

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrInvalidFile is returned when a file fails pre-upload validation.
var ErrInvalidFile = errors.New("upload: invalid file")

// DefaultMaxUploadBytes is the default upload size ceiling (500 MiB).
const DefaultMaxUploadBytes = 500 * 1024 * 1024

// acceptedExtensions is the set of video container formats the backend can
// extract frames from.
var acceptedExtensions = map[string]bool{
	".mp4":  true,
	".avi":  true,
	".mov":  true,
	".mkv":  true,
	".webm": true,
}

// FileInfo describes a validated local video file.
type FileInfo struct {
	// Path is the absolute or caller-relative path to the file.
	Path string
	// Name is the base file name.
	Name string
	// SizeBytes is the file size.
	SizeBytes int64
}

// validateFile performs the pure, synchronous pre-upload checks: the file
// exists, carries an accepted video extension, and is within the size
// ceiling. No network is touched here.
func validateFile(path string, maxBytes int64) (FileInfo, error) {
	info, err := os.Stat(path)
	if err != nil {
		return FileInfo{}, fmt.Errorf("%w: %v", ErrInvalidFile, err)
	}
	if info.IsDir() {
		return FileInfo{}, fmt.Errorf("%w: %s is a directory", ErrInvalidFile, path)
	}

	ext := strings.ToLower(filepath.Ext(path))
	if !acceptedExtensions[ext] {
		return FileInfo{}, fmt.Errorf("%w: unsupported format %q (accepted: mp4, avi, mov, mkv, webm)", ErrInvalidFile, ext)
	}

	if info.Size() > maxBytes {
		return FileInfo{}, fmt.Errorf("%w: file is %d bytes, maximum is %d", ErrInvalidFile, info.Size(), maxBytes)
	}

	return FileInfo{
		Path:      path,
		Name:      filepath.Base(path),
		SizeBytes: info.Size(),
	}, nil
}
