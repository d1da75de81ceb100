package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

// forumsConfig holds flags for the forums command.
type forumsConfig struct {
	jsonOutput bool
}

// NewForumsCmd creates the forums subcommand.
func NewForumsCmd() *cobra.Command {
	flags := &forumsConfig{}

	cmd := &cobra.Command{
		Use:   "forums",
		Short: "List the forums the account follows",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runForums(cmd, flags)
		},
	}

	cmd.Flags().BoolVar(&flags.jsonOutput, "json", false, "output the forum list as JSON")

	return cmd
}

func runForums(cmd *cobra.Command, flags *forumsConfig) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	forums, err := a.client.ListForums(ctx, a.credential)
	if err != nil {
		return err
	}

	if flags.jsonOutput {
		data, err := json.MarshalIndent(forums, "", "  ")
		if err != nil {
			return err
		}
		cmd.Println(string(data))
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tLEVEL\tSIGNED TODAY")
	for _, f := range forums {
		fmt.Fprintf(w, "%d\t%s\t%d\t%t\n", f.ForumID, f.ForumName, f.LevelID, f.IsSign != 0)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	cmd.Printf("\n%d forums\n", len(forums))
	return nil
}
