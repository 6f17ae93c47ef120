// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package validate checks caller input before any network call is made.
// Every failure is an *errs.Error of KindValidation.
package validate

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/pdiddy/pharma-extractor/internal/errs"
	"github.com/pdiddy/pharma-extractor/pkg/types"
)

// Input limits.
const (
	MinQueryLength  = 2
	MaxQueryLength  = 1000
	MaxFilenameLen  = 255
	MinMaxResults   = 1
	MaxMaxResults   = 10000
	forbiddenQuery  = "<>\"'&\x00"
	forbiddenInName = `<>:"|?*`
)

// Query returns the trimmed query or a validation error.
func Query(q string) (string, error) {
	const op = "validate.query"

	q = strings.TrimSpace(q)
	if q == "" {
		return "", errs.New(errs.KindValidation, op, "query must not be empty")
	}
	n := utf8.RuneCountInString(q)
	if n < MinQueryLength {
		return "", errs.New(errs.KindValidation, op, "query must be at least %d characters", MinQueryLength)
	}
	if n > MaxQueryLength {
		return "", errs.New(errs.KindValidation, op, "query exceeds %d characters", MaxQueryLength)
	}
	if i := strings.IndexAny(q, forbiddenQuery); i >= 0 {
		return "", errs.New(errs.KindValidation, op, "query contains forbidden character %q", q[i])
	}
	return q, nil
}

// Filename checks an output path. The parent directory must exist or be
// creatable; it is not created here.
func Filename(path string) error {
	const op = "validate.filename"

	if strings.TrimSpace(path) == "" {
		return errs.New(errs.KindValidation, op, "output filename must not be empty")
	}
	if len(path) > MaxFilenameLen {
		return errs.New(errs.KindValidation, op, "output filename exceeds %d characters", MaxFilenameLen)
	}

	base := filepath.Base(path)
	if base == "." || base == string(filepath.Separator) || strings.HasSuffix(path, string(filepath.Separator)) {
		return errs.New(errs.KindValidation, op, "output path %q names a directory", path)
	}
	for _, r := range base {
		if unicode.IsControl(r) {
			return errs.New(errs.KindValidation, op, "output filename contains a control character")
		}
	}
	if strings.ContainsAny(base, forbiddenInName) {
		return errs.New(errs.KindValidation, op, "output filename %q contains one of %s", base, forbiddenInName)
	}
	ext := filepath.Ext(base)
	if ext == "" || ext == base {
		return errs.New(errs.KindValidation, op, "output filename %q has no extension", base)
	}

	if err := creatableDir(filepath.Dir(path)); err != nil {
		return errs.Wrap(errs.KindValidation, op, err, "output directory for %q is not usable", path)
	}
	return nil
}

// creatableDir walks up from dir to the nearest existing ancestor, which
// must be a directory.
func creatableDir(dir string) error {
	for {
		info, err := os.Stat(dir)
		if err == nil {
			if !info.IsDir() {
				return fmt.Errorf("%s is not a directory", dir)
			}
			return nil
		}
		if !os.IsNotExist(err) {
			return err
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return err
		}
		dir = parent
	}
}

// Format parses a case-insensitive output format name.
func Format(s string) (types.OutputFormat, error) {
	switch types.OutputFormat(strings.ToLower(strings.TrimSpace(s))) {
	case types.OutputCSV:
		return types.OutputCSV, nil
	case types.OutputJSON:
		return types.OutputJSON, nil
	}
	return "", errs.New(errs.KindValidation, "validate.format", "unsupported output format %q (want csv or json)", s)
}

// MaxResults checks the fetch limit.
func MaxResults(n int) error {
	if n < MinMaxResults || n > MaxMaxResults {
		return errs.New(errs.KindValidation, "validate.max_results",
			"max results must be between %d and %d, got %d", MinMaxResults, MaxMaxResults, n)
	}
	return nil
}
