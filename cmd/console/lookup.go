package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"vehicle-bot/internal/integrations/lookup"
	"vehicle-bot/internal/usecase"
)

var lookupCmd = &cobra.Command{
	Use:   "lookup <registration-number>",
	Short: "Look up one vehicle and print the summary",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		identifier := strings.TrimSpace(args[0])
		if identifier == "" {
			return errors.New("registration number must not be empty")
		}
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		client, err := lookup.NewClientFromConfig(cfg.Lookup)
		if err != nil {
			return err
		}
		rec, err := client.Lookup(cmd.Context(), identifier)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), usecase.FormatVehicle(rec.Vehicle))
		return nil
	},
}
