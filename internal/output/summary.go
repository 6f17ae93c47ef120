// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package output

import (
	"fmt"
	"os"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/pharma-extractor/internal/errs"
	"github.com/pdiddy/pharma-extractor/pkg/types"
)

// Summary is the on-disk record of one run: what was asked, how much came
// back, and which entries were dropped along the way.
type Summary struct {
	RunID     string                `yaml:"run_id"`
	Query     SummaryQuery          `yaml:"query"`
	Counts    SummaryCounts         `yaml:"counts"`
	Dropped   []types.DroppedRecord `yaml:"dropped,omitempty"`
	Output    string                `yaml:"output"`
	Timestamp time.Time             `yaml:"timestamp"`
}

// SummaryQuery stores the request parameters.
type SummaryQuery struct {
	Term       string `yaml:"term"`
	MaxResults int    `yaml:"max_results"`
	Format     string `yaml:"format"`
}

// SummaryCounts stores result statistics.
type SummaryCounts struct {
	Matched  int `yaml:"matched"`
	Fetched  int `yaml:"fetched"`
	Parsed   int `yaml:"parsed"`
	Dropped  int `yaml:"dropped"`
	Industry int `yaml:"industry"`
}

// WriteSummary saves s as YAML.
func WriteSummary(path string, s Summary) error {
	const op = "output.summary"

	data, err := yaml.Marshal(&s)
	if err != nil {
		return errs.Wrap(errs.KindOutput, op, err, "marshaling run summary")
	}
	return writeFile(op, path, data)
}

// ReadSummary loads a previously written run summary.
func ReadSummary(path string) (*Summary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading run summary: %w", err)
	}
	var s Summary
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parsing run summary: %w", err)
	}
	return &s, nil
}
