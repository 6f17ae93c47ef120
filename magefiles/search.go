//go:build mage

package main

import (
	"path/filepath"
	"regexp"
	"strings"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

var unsafeName = regexp.MustCompile(`[^a-z0-9]+`)

// Search builds the CLI and runs a PubMed query, writing CSV results and a
// run summary under output/. Usage: mage search "acne AND pharmaceutical".
func Search(query string) error {
	mg.SerialDeps(Init, Build)

	name := strings.Trim(unsafeName.ReplaceAllString(strings.ToLower(query), "-"), "-")
	if name == "" {
		name = "results"
	}
	if len(name) > 60 {
		name = name[:60]
	}
	return sh.RunV(filepath.Join(binDir, binName), query,
		"--file", filepath.Join(outDir, name+".csv"),
		"--summary", filepath.Join(outDir, name+".summary.yaml"))
}
