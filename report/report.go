// Package report locates and parses the JSON build reports that list
// the artifact URLs of a CI build.
package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

var (
	ErrUnknownBuild = errors.New("unknown build name")
	ErrUnknownCheck = errors.New("unknown check name")
)

// Report is the part of a build report this module reads.
type Report struct {
	BuildURLs []string `json:"build_urls"`
}

// Read parses the report at path.
func Read(path string) (Report, error) {
	f, err := os.Open(path)
	if err != nil {
		return Report{}, fmt.Errorf("opening report: %w", err)
	}
	defer f.Close()

	var r Report
	if err := json.NewDecoder(f).Decode(&r); err != nil {
		return Report{}, fmt.Errorf("decoding report %s: %w", path, err)
	}

	return r, nil
}

// CheckTable maps CI check names to the build they depend on.
type CheckTable map[string]BuildName

// RequiredBuildName returns the build needed by check. A check missing
// from the table that is itself a known build name maps to that build.
func (t CheckTable) RequiredBuildName(check string) (BuildName, error) {
	if name, ok := t[check]; ok {
		return name, nil
	}

	if _, ok := BuildToReport[BuildName(check)]; ok {
		return BuildName(check), nil
	}

	return "", fmt.Errorf("%w: %q", ErrUnknownCheck, check)
}
