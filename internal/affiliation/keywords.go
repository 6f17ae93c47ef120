// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package affiliation

import (
	"fmt"
	"os"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/pharma-extractor/pkg/types"
)

// Keywords holds the two ordered keyword lists. Academic terms are checked
// first and win on conflict.
type Keywords struct {
	Academic    []string `yaml:"academic"`
	NonAcademic []string `yaml:"non_academic"`
}

var defaultAcademic = []string{
	"university", "universities", "college", "school", "institute", "institut",
	"instituto", "istituto",
	"academy", "hospital", "medical center", "medical centre", "health center",
	"health centre", "clinic", "laboratory", "department", "dept", "faculty",
	"professor", "lecturer", "phd", "student", "researcher", "postdoc",
	"postdoctoral", "fellow", "graduate", "polytechnic", "library",
	"conservatory", "universidad", "universidade", "université", "universite",
	"universität", "universitat", "università", "universita", "universiteit",
	"hochschule", "faculté", "facultad", "centre hospitalier", "hôpital",
	"ospedale", "klinikum", "charité",
}

var defaultNonAcademic = []string{
	"pharma", "pharmaceutical", "pharmaceuticals", "biopharma",
	"biopharmaceutical", "biopharmaceuticals", "biotech", "biotechnology",
	"biotherapeutics", "therapeutics", "biosciences", "laboratories",
	"corporation", "company", "inc", "incorporated", "ltd", "limited", "llc",
	"gmbh", "ag", "s.a.", "plc", "co.", "corp", "medical device",
	"medical devices", "diagnostics", "cro", "contract research organization",
	"contract research organisation", "consulting", "consultancy",
}

// DefaultKeywords returns copies of the built-in keyword lists.
func DefaultKeywords() Keywords {
	return Keywords{
		Academic:    append([]string(nil), defaultAcademic...),
		NonAcademic: append([]string(nil), defaultNonAcademic...),
	}
}

// LoadKeywords reads a YAML keyword file. A list missing from the file is
// returned empty; callers decide whether to fall back to defaults.
func LoadKeywords(path string) (Keywords, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Keywords{}, fmt.Errorf("reading keyword file: %w", err)
	}
	var kw Keywords
	if err := yaml.Unmarshal(data, &kw); err != nil {
		return Keywords{}, fmt.Errorf("parsing keyword file %s: %w", path, err)
	}
	return kw, nil
}

// KeywordsFromConfig resolves the effective keyword lists: defaults, then
// the keyword file, then lists set directly in configuration. Each layer
// replaces a list only when it provides a non-empty one.
func KeywordsFromConfig(cfg types.ClassifierConfig) (Keywords, error) {
	kw := DefaultKeywords()

	if cfg.KeywordsFile != "" {
		fromFile, err := LoadKeywords(cfg.KeywordsFile)
		if err != nil {
			return Keywords{}, err
		}
		kw = overlay(kw, fromFile)
	}

	return overlay(kw, Keywords{
		Academic:    cfg.AcademicKeywords,
		NonAcademic: cfg.NonAcademicKeywords,
	}), nil
}

func overlay(base, top Keywords) Keywords {
	if len(top.Academic) > 0 {
		base.Academic = top.Academic
	}
	if len(top.NonAcademic) > 0 {
		base.NonAcademic = top.NonAcademic
	}
	return base
}
