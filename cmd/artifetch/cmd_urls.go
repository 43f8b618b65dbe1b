package main

import (
	"fmt"
	"io"
	"net/http"

	"github.com/spf13/cobra"
)

func newURLsCommand(a *app) *cobra.Command {
	var rf reportFlags

	cmd := &cobra.Command{
		Use:   "urls",
		Short: "Print the artifact URLs of a check's build",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			urls, err := a.toolkit.Fetcher.URLs(rf.check, rf.reports)
			if err != nil {
				return err
			}

			for _, u := range urls {
				fmt.Fprintln(cmd.OutOrStdout(), u)
			}
			return nil
		},
	}

	rf.register(cmd)

	return cmd
}

func newBinaryURLCommand(a *app) *cobra.Command {
	var rf reportFlags

	cmd := &cobra.Command{
		Use:   "binary-url",
		Short: "Print the URL of the main executable of a check's build",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			u, ok, err := a.toolkit.Fetcher.BinaryURL(rf.check, rf.reports)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("no binary url for check %q", rf.check)
			}

			fmt.Fprintln(cmd.OutOrStdout(), u)
			return nil
		},
	}

	rf.register(cmd)

	return cmd
}

func newAPIGetCommand(a *app) *cobra.Command {
	var accept string

	cmd := &cobra.Command{
		Use:   "api-get <url>",
		Short: "GET a code-hosting API endpoint, authenticating only when needed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			header := http.Header{}
			if accept != "" {
				header.Set("Accept", accept)
			}

			resp, err := a.toolkit.API.Get(cmd.Context(), args[0], header)
			if err != nil {
				return err
			}
			defer resp.Body.Close()

			_, err = io.Copy(cmd.OutOrStdout(), resp.Body)
			return err
		},
	}

	cmd.Flags().StringVar(&accept, "accept", "application/vnd.github+json", "Accept header sent with the request")

	return cmd
}
