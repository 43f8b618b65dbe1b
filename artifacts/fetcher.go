// Package artifacts downloads the files listed in CI build reports.
package artifacts

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/adamwoolhether/artifetch/client/download"
	"github.com/adamwoolhether/artifetch/report"
)

const (
	// DefaultMasterBaseURL hosts the rolling master builds.
	DefaultMasterBaseURL = "https://clickhouse-builds.s3.us-east-1.amazonaws.com"
	// DefaultBinaryName is the main executable produced by a build.
	DefaultBinaryName = "clickhouse"

	// directReport, when present in the reports directory, overrides build name lookup.
	directReport = "artifact_report.json"
)

var (
	ErrNoBuildURLs         = errors.New("no build URLs found")
	ErrUnsupportedPlatform = errors.New("unsupported platform")
	ErrNoFileName          = errors.New("url has no file name")
)

// Downloader fetches a single URL to a local path.
// [*client.Client] satisfies it.
type Downloader interface {
	DownloadFile(ctx context.Context, rawURL, destPath string, opts ...download.Option) error
}

// BuildNamer maps a CI check to the build it needs.
// [report.CheckTable] satisfies it.
type BuildNamer interface {
	RequiredBuildName(check string) (report.BuildName, error)
}

// Fetcher resolves and downloads build artifacts.
type Fetcher struct {
	dl            Downloader
	names         BuildNamer
	resolver      *report.Resolver
	logger        *slog.Logger
	platform      Platform
	masterBaseURL string
	binaryName    string
	dlOpts        []download.Option
}

// New builds a Fetcher. names may be nil when only report directories
// holding artifact_report.json or master builds are used.
func New(dl Downloader, names BuildNamer, resolver *report.Resolver, optFns ...Option) (*Fetcher, error) {
	if dl == nil {
		return nil, errors.New("downloader must not be nil")
	}
	if resolver == nil {
		return nil, errors.New("resolver must not be nil")
	}

	f := &Fetcher{
		dl:            dl,
		names:         names,
		resolver:      resolver,
		logger:        slog.Default(),
		platform:      HostPlatform(),
		masterBaseURL: DefaultMasterBaseURL,
		binaryName:    DefaultBinaryName,
	}

	for _, opt := range optFns {
		if err := opt(f); err != nil {
			return nil, fmt.Errorf("applying fetcher option: %w", err)
		}
	}

	return f, nil
}

// DownloadBuilds downloads every URL accepted by match into resultDir.
func (f *Fetcher) DownloadBuilds(ctx context.Context, resultDir string, urls []string, match Filter) error {
	for _, u := range urls {
		if !match(u) {
			continue
		}

		name := fileName(u)
		if name == "" || name == "." || name == ".." {
			return &download.Error{URL: u, Detail: "deriving local path", Err: ErrNoFileName}
		}
		f.logger.Info("will download", "file", name, "result_path", resultDir)

		if err := f.dl.DownloadFile(ctx, u, filepath.Join(resultDir, name), f.dlOpts...); err != nil {
			return err
		}
	}

	return nil
}

// DownloadBuildsFilter resolves the URLs for check and downloads the
// ones accepted by match. Finding no URLs at all is an error.
func (f *Fetcher) DownloadBuildsFilter(ctx context.Context, check, reportsPath, resultDir string, match Filter) error {
	urls, err := f.checkURLs(check, reportsPath)
	if err != nil {
		return err
	}

	f.logger.Info("the build report contains the next urls", "check", check, "urls", urls)

	if len(urls) == 0 {
		return &download.Error{Detail: "check " + check, Err: ErrNoBuildURLs}
	}

	return f.DownloadBuilds(ctx, resultDir, urls, match)
}

// DownloadAllDebPackages fetches the .deb packages of check's build.
func (f *Fetcher) DownloadAllDebPackages(ctx context.Context, check, reportsPath, resultDir string) error {
	return f.DownloadBuildsFilter(ctx, check, reportsPath, resultDir, HasSuffix(debSuffix))
}

// DownloadUnitTests fetches the unit test bundle.
func (f *Fetcher) DownloadUnitTests(ctx context.Context, check, reportsPath, resultDir string) error {
	return f.DownloadBuildsFilter(ctx, check, reportsPath, resultDir, HasSuffix(unitTestsBundle))
}

// DownloadBinary fetches the main executable.
func (f *Fetcher) DownloadBinary(ctx context.Context, check, reportsPath, resultDir string) error {
	return f.DownloadBuildsFilter(ctx, check, reportsPath, resultDir, HasSuffix(f.binaryName))
}

// DownloadPerformanceBuild fetches the performance test archive.
func (f *Fetcher) DownloadPerformanceBuild(ctx context.Context, check, reportsPath, resultDir string) error {
	return f.DownloadBuildsFilter(ctx, check, reportsPath, resultDir, HasSuffix(performanceSuffix))
}

// DownloadFuzzers fetches fuzzer binaries with their dictionaries,
// options and seed corpora.
func (f *Fetcher) DownloadFuzzers(ctx context.Context, check, reportsPath, resultDir string) error {
	return f.DownloadBuildsFilter(ctx, check, reportsPath, resultDir, HasSuffix(fuzzerSuffixes...))
}

// MasterURL is the rolling master build for the fetcher's platform.
func (f *Fetcher) MasterURL(full bool) (string, error) {
	arch, err := f.platform.masterArch()
	if err != nil {
		return "", err
	}

	u := fmt.Sprintf("%s/master/%s/%s", strings.TrimRight(f.masterBaseURL, "/"), arch, f.binaryName)
	if full {
		u += "-full"
	}

	return u, nil
}

// DownloadMaster fetches the latest master build of the main executable.
// Unsupported platforms fail before any request is made.
func (f *Fetcher) DownloadMaster(ctx context.Context, resultDir string, full bool) error {
	u, err := f.MasterURL(full)
	if err != nil {
		return &download.Error{Detail: "master build", Err: err}
	}

	return f.dl.DownloadFile(ctx, u, filepath.Join(resultDir, f.binaryName), f.dlOpts...)
}

// BinaryURL returns the first URL of check's build pointing at the main
// executable, ignoring any query string.
func (f *Fetcher) BinaryURL(check, reportsPath string) (string, bool, error) {
	name, err := f.buildName(check)
	if err != nil {
		return "", false, err
	}

	urls, err := f.resolver.BuildURLs(name, reportsPath)
	if err != nil {
		return "", false, err
	}

	f.logger.Info("the build report contains the next urls", "build", name, "urls", urls)

	for _, u := range urls {
		path, _, _ := strings.Cut(u, "?")
		if strings.HasSuffix(path, f.binaryName) {
			return u, true, nil
		}
	}

	return "", false, nil
}

// URLs resolves the artifact URLs for check.
func (f *Fetcher) URLs(check, reportsPath string) ([]string, error) {
	return f.checkURLs(check, reportsPath)
}

func (f *Fetcher) checkURLs(check, reportsPath string) ([]string, error) {
	direct := filepath.Join(reportsPath, directReport)

	info, err := os.Stat(direct)
	switch {
	case err == nil && info.Mode().IsRegular():
		rep, err := report.Read(direct)
		if err != nil {
			return nil, err
		}
		return rep.BuildURLs, nil
	case err != nil && !errors.Is(err, fs.ErrNotExist):
		return nil, fmt.Errorf("checking %s: %w", direct, err)
	}

	name, err := f.buildName(check)
	if err != nil {
		return nil, err
	}

	return f.resolver.BuildURLs(name, reportsPath)
}

func (f *Fetcher) buildName(check string) (report.BuildName, error) {
	if f.names == nil {
		return "", fmt.Errorf("%w: %q: no check table configured", report.ErrUnknownCheck, check)
	}

	return f.names.RequiredBuildName(check)
}
