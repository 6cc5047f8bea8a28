package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/dig"

	"delivery-simulator/internal/app"
	"delivery-simulator/internal/config"
)

type containerFactory func(ctx context.Context, cfg *config.Config) (*dig.Container, error)

func defaultContainer(ctx context.Context, cfg *config.Config) (*dig.Container, error) {
	return app.NewContainerBuilder().Build(ctx, cfg)
}

func newRootCmd() (*cobra.Command, error) {
	cfg, err := config.Load(".env")
	if err != nil {
		return nil, err
	}
	return buildRootCmd(&cfg, defaultContainer), nil
}

func buildRootCmd(cfg *config.Config, newContainer containerFactory) *cobra.Command {
	container := func(cmd *cobra.Command) (*dig.Container, error) {
		return newContainer(cmd.Context(), cfg)
	}

	runCmd := func(cmd *cobra.Command, _ []string) error {
		c, err := container(cmd)
		if err != nil {
			return err
		}
		return app.Run(c)
	}

	root := &cobra.Command{
		Use:           "simulator",
		Short:         "Simulates the order lifecycle of a food delivery service",
		Long:          `simulator seeds a delivery database and keeps moving orders through created, in_delivery and delivered, assigning idle couriers along the way.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return cfg.Validate()
		},
		RunE: runCmd,
	}
	config.BindFlags(root.PersistentFlags(), cfg)

	root.AddCommand(
		&cobra.Command{
			Use:   "run",
			Short: "Seed the database and run the simulation until interrupted",
			RunE:  runCmd,
		},
		&cobra.Command{
			Use:   "seed",
			Short: "Seed empty reference tables and exit",
			RunE: func(cmd *cobra.Command, _ []string) error {
				c, err := container(cmd)
				if err != nil {
					return err
				}
				res, err := app.Seed(c)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), res)
			},
		},
		&cobra.Command{
			Use:   "cycle",
			Short: "Run a single simulation cycle and print its report",
			RunE: func(cmd *cobra.Command, _ []string) error {
				c, err := container(cmd)
				if err != nil {
					return err
				}
				report, err := app.Cycle(c)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), report)
			},
		},
		&cobra.Command{
			Use:   "stats",
			Short: "Print order and courier counts",
			RunE: func(cmd *cobra.Command, _ []string) error {
				c, err := container(cmd)
				if err != nil {
					return err
				}
				snap, err := app.Stats(c)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), snap)
			},
		},
	)
	return root
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	return nil
}
