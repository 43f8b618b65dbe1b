package main

import (
	"context"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/adamwoolhether/artifetch/artifacts"
)

// reportFlags are shared by every command reading build reports.
type reportFlags struct {
	check   string
	reports string
}

func (f *reportFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.check, "check", "", "CI check name from the config's checks table, or a build name such as package_release")
	cmd.Flags().StringVar(&f.reports, "reports", ".", "Directory holding build reports")
}

type downloadFunc func(f *artifacts.Fetcher, ctx context.Context, check, reports, result string) error

var downloadKinds = map[string]downloadFunc{
	"all": func(f *artifacts.Fetcher, ctx context.Context, check, reports, result string) error {
		return f.DownloadBuildsFilter(ctx, check, reports, result, artifacts.All)
	},
	"deb":         (*artifacts.Fetcher).DownloadAllDebPackages,
	"unit-tests":  (*artifacts.Fetcher).DownloadUnitTests,
	"binary":      (*artifacts.Fetcher).DownloadBinary,
	"performance": (*artifacts.Fetcher).DownloadPerformanceBuild,
	"fuzzers":     (*artifacts.Fetcher).DownloadFuzzers,
}

func kindNames() []string {
	names := make([]string, 0, len(downloadKinds))
	for k := range downloadKinds {
		names = append(names, k)
	}
	slices.Sort(names)
	return names
}

func newDownloadCommand(a *app) *cobra.Command {
	var (
		rf     reportFlags
		result string
	)

	cmd := &cobra.Command{
		Use:   "download <kind>",
		Short: "Download the artifacts of a check's build",
		Long:  "Download the artifacts of a check's build. Kinds: " + strings.Join(kindNames(), ", "),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fn, ok := downloadKinds[args[0]]
			if !ok {
				return fmt.Errorf("unknown kind %q, want one of %s", args[0], strings.Join(kindNames(), ", "))
			}

			if err := os.MkdirAll(result, 0o755); err != nil {
				return fmt.Errorf("creating result dir: %w", err)
			}

			return fn(a.toolkit.Fetcher, cmd.Context(), rf.check, rf.reports, result)
		},
	}

	rf.register(cmd)
	cmd.Flags().StringVar(&result, "result", ".", "Directory to download into")

	return cmd
}

func newMasterCommand(a *app) *cobra.Command {
	var (
		result string
		full   bool
	)

	cmd := &cobra.Command{
		Use:   "master",
		Short: "Download the latest master build for this host",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := os.MkdirAll(result, 0o755); err != nil {
				return fmt.Errorf("creating result dir: %w", err)
			}

			return a.toolkit.Fetcher.DownloadMaster(cmd.Context(), result, full)
		},
	}

	cmd.Flags().StringVar(&result, "result", ".", "Directory to download into")
	cmd.Flags().BoolVar(&full, "full", false, "Fetch the full (non-stripped) build")

	return cmd
}
