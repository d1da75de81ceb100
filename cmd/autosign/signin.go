package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/tiebatools/autosign/internal/config"
	"github.com/tiebatools/autosign/internal/observability"
	"github.com/tiebatools/autosign/internal/signer"
)

// signInConfig holds flags for the signin command.
type signInConfig struct {
	jsonOutput bool
	watch      bool
}

// NewSignInCmd creates the signin subcommand.
func NewSignInCmd() *cobra.Command {
	flags := &signInConfig{}

	cmd := &cobra.Command{
		Use:   "signin",
		Short: "Check in to every followed forum",
		Long: `Check in to every forum the account follows. Each check-in is
retried with exponential backoff and the run produces a per-forum report.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSignIn(cmd, flags)
		},
	}

	cmd.Flags().BoolVar(&flags.jsonOutput, "json", false, "output the report as JSON")
	cmd.Flags().BoolVar(&flags.watch, "watch", false, "reload the config file on change so a rotated credential is picked up")

	return cmd
}

func runSignIn(cmd *cobra.Command, flags *signInConfig) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if a.cfg.MetricsListen != "" {
		ms := observability.NewMetricsServer(a.cfg.MetricsListen, a.logger)
		ms.Start()
		defer func() { _ = ms.Stop() }()
	}

	source := signer.Static(a.credential)
	if flags.watch {
		if configFile == "" {
			return fmt.Errorf("--watch requires --config")
		}
		watcher, err := config.NewWatcher(configFile, nil, config.WithLogger(a.logger))
		if err != nil {
			return err
		}
		if err := watcher.Start(ctx); err != nil {
			return err
		}
		defer func() { _ = watcher.Stop() }()
		source = watchedCredential(watcher, a.credential)
	}

	runner := signer.New(a.client, signer.Config{
		Concurrency:   a.cfg.Signer.Concurrency,
		RatePerSecond: a.cfg.Signer.RatePerSecond,
		Burst:         a.cfg.Signer.Burst,
	}, a.logger)

	report, err := runner.Run(ctx, source)
	if err != nil {
		return err
	}

	if err := printReport(cmd, report, flags.jsonOutput); err != nil {
		return err
	}

	if report.Failed > 0 {
		return fmt.Errorf("%d of %d check-ins failed", report.Failed, report.Total)
	}
	return nil
}

// watchedCredential re-resolves the credential from the watcher's last good
// config on every request, falling back to the startup credential.
func watchedCredential(watcher *config.Watcher, fallback string) signer.CredentialSource {
	return func() string {
		if cfg := watcher.LastConfig(); cfg != nil {
			if cred, err := cfg.ResolveCredential(); err == nil {
				return cred
			}
		}
		return fallback
	}
}

func printReport(cmd *cobra.Command, report *signer.Report, asJSON bool) error {
	if asJSON {
		data, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return err
		}
		cmd.Println(string(data))
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
	fmt.Fprintln(w, "FORUM\tOUTCOME\tCODE\tDETAIL")
	for _, res := range report.Results {
		detail := res.ServerMsg
		if res.Err != nil {
			detail = res.Err.Error()
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", res.Forum, res.Outcome, res.ServerCode, detail)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	cmd.Printf("\n%d signed, %d already signed, %d failed (of %d)\n",
		report.Signed, report.AlreadySigned, report.Failed, report.Total)
	return nil
}
