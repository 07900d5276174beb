package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/djskncxm/DuckRequest/internal/metrics"
	"github.com/djskncxm/DuckRequest/internal/version"
	"github.com/djskncxm/DuckRequest/pkg/crawler"
	"github.com/djskncxm/DuckRequest/pkg/logger"
)

// 命令行共用的参数
type cliOptions struct {
	configFile string
	request    requestFlags
	jsonOutput bool
	stats      bool
	metrics    bool
}

func newCrawler(opts *cliOptions, stderr io.Writer, m metrics.Client) (*crawler.Crawler, error) {
	return crawler.New(crawler.Config{
		ConfigPath: opts.configFile,
		LogOutput:  stderr,
		Metrics:    m,
	})
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	opts := &cliOptions{}

	rootCmd := &cobra.Command{
		Use:           "duckreq",
		Short:         "Normalize and send HTTP requests",
		Long:          "duckreq normalizes loose request arguments into a request descriptor and can dispatch it over HTTP(S)",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)
	rootCmd.PersistentFlags().StringVar(&opts.configFile, "config", "", "YAML setting file")

	normalizeCmd := &cobra.Command{
		Use:   "normalize <url>",
		Short: "Print the request descriptor built from the arguments",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runNormalize(opts, args[0], stdout, stderr)
		},
	}
	opts.request.bind(normalizeCmd)
	normalizeCmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "print the descriptor as JSON")

	fetchCmd := &cobra.Command{
		Use:   "fetch <url>...",
		Short: "Send the requests and print one status line per url",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runFetch(ctx, opts, args, stdout, stderr)
		},
	}
	opts.request.bind(fetchCmd)
	fetchCmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "print results as JSON lines")
	fetchCmd.Flags().BoolVar(&opts.stats, "stats", false, "print dispatch statistics to stderr")
	fetchCmd.Flags().BoolVar(&opts.metrics, "metrics", false, "print prometheus metrics to stderr")

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print the version number of duckreq",
		Run: func(_ *cobra.Command, _ []string) {
			v := version.GetVersion()
			fmt.Fprintf(stdout, "version: %s (git commit: %s) built on %s\n", v.Version, v.GitCommit, v.BuildDate)
		},
	}

	rootCmd.AddCommand(normalizeCmd, fetchCmd, versionCmd)
	return rootCmd
}

// run 执行命令，失败时写默认日志并返回退出码
func run(args []string, stdout, stderr io.Writer) int {
	rootCmd := newRootCmd(stdout, stderr)
	rootCmd.SetArgs(args)
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		logger.WithError(err).Error("duckreq 执行失败")
		return 1
	}
	return 0
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}
