package store

import (
	"errors"
	"strings"
	"unicode/utf8"
)

const MaxLabelLength = 255

var ErrInvalidLabel = errors.New("invalid label name")

func NormalizeLabel(in string) string {
	return strings.TrimSpace(in)
}

// ValidateLabel normalizes in and checks it fits the label_name column and
// is safe to use as a single archive path segment.
func ValidateLabel(in string) (string, error) {
	label := NormalizeLabel(in)
	if label == "" {
		return "", errors.Join(ErrInvalidLabel, errors.New("label name cannot be empty"))
	}
	if !utf8.ValidString(label) {
		return "", errors.Join(ErrInvalidLabel, errors.New("label name must be valid UTF-8"))
	}
	if utf8.RuneCountInString(label) > MaxLabelLength {
		return "", errors.Join(ErrInvalidLabel, errors.New("label name is longer than 255 characters"))
	}
	// Labels become archive folder and file names.
	if strings.ContainsAny(label, `/\`) || label == "." || label == ".." {
		return "", errors.Join(ErrInvalidLabel, errors.New("label name cannot contain path separators or be a relative path"))
	}
	return label, nil
}
