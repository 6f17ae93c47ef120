// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package output serializes assembled article records to CSV or JSON files
// and writes the YAML run summary. File-system failures are reported as
// *errs.Error of KindOutput.
package output

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdiddy/pharma-extractor/internal/errs"
	"github.com/pdiddy/pharma-extractor/pkg/types"
)

// Header is the CSV column order.
var Header = []string{
	"PubmedID",
	"Title",
	"Publication Date",
	"Non-academicAuthor(s)",
	"CompanyAffiliation(s)",
	"Corresponding Author Email",
}

// ListSeparator joins multi-valued CSV cells.
const ListSeparator = "; "

// Write dispatches on format.
func Write(records []types.ArticleRecord, path string, format types.OutputFormat) error {
	switch format {
	case types.OutputJSON:
		return WriteJSON(records, path)
	case types.OutputCSV, "":
		return WriteCSV(records, path)
	}
	return errs.New(errs.KindOutput, "output.write", "unsupported format %q", format)
}

// WriteCSV writes records with a header row. An empty slice still produces
// a file containing the header.
func WriteCSV(records []types.ArticleRecord, path string) error {
	const op = "output.csv"

	var buf bytes.Buffer
	if err := EncodeCSV(&buf, records); err != nil {
		return errs.Wrap(errs.KindOutput, op, err, "encoding CSV")
	}
	return writeFile(op, path, buf.Bytes())
}

// EncodeCSV writes the CSV form of records to w.
func EncodeCSV(w io.Writer, records []types.ArticleRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return err
	}
	for _, r := range records {
		row := []string{
			r.PMID,
			r.Title,
			r.PublicationDate,
			strings.Join(r.NonAcademicAuthors, ListSeparator),
			strings.Join(r.CompanyAffiliations, ListSeparator),
			r.CorrespondingEmail,
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteJSON writes records as an indented JSON array; an empty slice is
// written as [].
func WriteJSON(records []types.ArticleRecord, path string) error {
	const op = "output.json"

	var buf bytes.Buffer
	if err := EncodeJSON(&buf, records); err != nil {
		return errs.Wrap(errs.KindOutput, op, err, "encoding JSON")
	}
	return writeFile(op, path, buf.Bytes())
}

// EncodeJSON writes the JSON form of records to w. Nil lists are emitted
// as empty arrays.
func EncodeJSON(w io.Writer, records []types.ArticleRecord) error {
	out := make([]types.ArticleRecord, len(records))
	for i, r := range records {
		if r.NonAcademicAuthors == nil {
			r.NonAcademicAuthors = []string{}
		}
		if r.CompanyAffiliations == nil {
			r.CompanyAffiliations = []string{}
		}
		out[i] = r
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

// ReadCSV parses a file produced by WriteCSV. List cells are split on ";"
// and trimmed.
func ReadCSV(path string) ([]types.ArticleRecord, error) {
	const op = "output.read_csv"

	f, err := os.Open(path)
	if err != nil {
		return nil, errs.Wrap(errs.KindOutput, op, err, "opening %s", path)
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, errs.Wrap(errs.KindDataProcessing, op, err, "parsing %s", path)
	}
	if len(rows) == 0 {
		return nil, errs.New(errs.KindDataProcessing, op, "%s has no header row", path)
	}
	if !equalHeader(rows[0]) {
		return nil, errs.New(errs.KindDataProcessing, op, "%s has unexpected header %q", path, rows[0])
	}

	records := make([]types.ArticleRecord, 0, len(rows)-1)
	for _, row := range rows[1:] {
		records = append(records, types.ArticleRecord{
			PMID:                row[0],
			Title:               row[1],
			PublicationDate:     row[2],
			NonAcademicAuthors:  splitList(row[3]),
			CompanyAffiliations: splitList(row[4]),
			CorrespondingEmail:  row[5],
		})
	}
	return records, nil
}

func equalHeader(row []string) bool {
	if len(row) != len(Header) {
		return false
	}
	for i := range row {
		if strings.TrimSpace(row[i]) != Header[i] {
			return false
		}
	}
	return true
}

func splitList(cell string) []string {
	var out []string
	for _, part := range strings.Split(cell, ";") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// writeFile writes data to path, creating missing parent directories. The
// data goes to a temporary sibling first so a failed write never leaves a
// truncated result behind.
func writeFile(op, path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errs.Wrap(errs.KindOutput, op, err, "creating directory %s", dir)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return errs.Wrap(errs.KindOutput, op, err, "writing %s", path)
	}
	tmpName := tmp.Name()
	cleanup := func(err error) error {
		tmp.Close()
		os.Remove(tmpName)
		return errs.Wrap(errs.KindOutput, op, err, "writing %s", path)
	}

	if _, err := tmp.Write(data); err != nil {
		return cleanup(err)
	}
	if err := tmp.Chmod(0o644); err != nil {
		return cleanup(err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return errs.Wrap(errs.KindOutput, op, err, "writing %s", path)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return errs.Wrap(errs.KindOutput, op, fmt.Errorf("renaming into place: %w", err), "writing %s", path)
	}
	return nil
}
