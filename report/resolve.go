package report

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Resolver finds the artifact URLs of a build.
type Resolver struct {
	// RepoRoot is the repository checkout holding ci/tmp.
	RepoRoot string
	Logger   *slog.Logger
}

// WellKnownPath is where a build job of the current run leaves its report.
func (r *Resolver) WellKnownPath(name BuildName) (string, error) {
	file, ok := BuildToReport[name]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownBuild, name)
	}

	return filepath.Join(r.RepoRoot, "ci", "tmp", file), nil
}

// BuildURLs returns the artifact URLs for name.
//
// The report at [Resolver.WellKnownPath] wins whenever it exists, even
// when it lists nothing. Otherwise the first file under reportsPath named
// *_<name>.json is used. Walk order is unspecified. When no report is
// found the result is empty and the error nil.
func (r *Resolver) BuildURLs(name BuildName, reportsPath string) ([]string, error) {
	logger := r.logger()

	wellKnown, err := r.WellKnownPath(name)
	if err != nil {
		return nil, err
	}

	if info, err := os.Stat(wellKnown); err == nil && info.Mode().IsRegular() {
		rep, err := Read(wellKnown)
		if err != nil {
			return nil, err
		}
		if len(rep.BuildURLs) == 0 {
			logger.Warn("empty build_urls in report", "path", wellKnown)
		}
		return rep.BuildURLs, nil
	}

	found, err := scan(reportsPath, "_"+string(name)+".json", logger)
	if err != nil {
		return nil, err
	}

	if found == "" {
		logger.Warn("a build report is not found", "build", name, "reports_path", reportsPath)
		return []string{}, nil
	}

	logger.Info("found build report json", "path", found, "build", name)

	rep, err := Read(found)
	if err != nil {
		return nil, err
	}
	if len(rep.BuildURLs) == 0 {
		logger.Warn("empty build_urls in report", "path", found)
	}

	return rep.BuildURLs, nil
}

func (r *Resolver) logger() *slog.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return slog.Default()
}

// isRegular accepts regular files and symlinks resolving to one.
func isRegular(path string, d fs.DirEntry) bool {
	if d.Type().IsRegular() {
		return true
	}
	if d.Type()&fs.ModeSymlink == 0 {
		return false
	}

	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// scan walks root for the first regular file, or symlink to one, whose
// name ends with suffix. Symlinked directories are not descended into.
// Unreadable directories are skipped.
func scan(root, suffix string, logger *slog.Logger) (string, error) {
	var found string

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			logger.Info("skipping unreadable path", "path", path, "error", err)
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}

		if !strings.HasSuffix(d.Name(), suffix) || !isRegular(path, d) {
			return nil
		}

		found = path
		return fs.SkipAll
	})
	if err != nil && !errors.Is(err, fs.SkipAll) {
		return "", fmt.Errorf("scanning %s: %w", root, err)
	}

	return found, nil
}
