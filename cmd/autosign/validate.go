package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// NewValidateCmd creates the validate subcommand.
func NewValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the session credential",
		Long:  `Validate the session credential against the platform and print the account identity.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runValidate(cmd)
		},
	}
}

func runValidate(cmd *cobra.Command) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	info, err := a.client.Authenticate(ctx, a.credential)
	if err != nil {
		return err
	}

	cmd.Printf("credential valid: user_id=%s device_id=%s\n", info.UserID, info.DeviceID)
	return nil
}
