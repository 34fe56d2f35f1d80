package util

import (
	"errors"
	"net/url"
	"strings"
)

var (
	ErrNoFilename = errors.New("cannot extract valid filename")
)

// unsafeFilenameChars are stripped from titles before they become filenames.
const unsafeFilenameChars = `/\:*?"<>|`

// SanitizeFilename makes s safe to use as a single path component.
func SanitizeFilename(s string) string {
	mapped := strings.Map(func(r rune) rune {
		if strings.ContainsRune(unsafeFilenameChars, r) {
			return '_'
		}
		if r < 0x20 {
			return -1
		}
		return r
	}, s)
	mapped = strings.TrimSpace(mapped)
	// Don't allow "filenames" that are just ".", "..", etc.
	if strings.ReplaceAll(mapped, ".", "") == "" {
		return ""
	}
	return mapped
}

// FilenameFromURL extracts the final path segment of a URL for use as a filename.
func FilenameFromURL(u *url.URL) (string, error) {
	if u == nil {
		return "", ErrNoFilename
	}
	path := strings.Trim(u.Path, "/")
	if path == "" {
		return "", ErrNoFilename
	}
	pathElements := strings.Split(path, "/")
	filename := SanitizeFilename(pathElements[len(pathElements)-1])
	if filename == "" {
		return "", ErrNoFilename
	}
	return filename, nil
}
