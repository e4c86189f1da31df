package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/daysim/daysim/pkg/config"
	"github.com/daysim/daysim/pkg/population"
	"github.com/daysim/daysim/pkg/registry"
	"github.com/daysim/daysim/pkg/simulation"
)

var validateCmd = &cobra.Command{
	Use:   "validate-config",
	Short: "Check the configuration, population and model registry",
	Long: `Load the configuration, read and validate the population, and resolve the
model registry without simulating anything.

Examples:
  daysim validate-config -c daysim.yaml`,
	RunE: runValidate,
}

var initConfigCmd = &cobra.Command{
	Use:   "init-config [path]",
	Short: "Write the default configuration as YAML",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runInitConfig,
}

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List the model bound to every model slot",
	RunE:  runModels,
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if _, err := simulation.PolicyFor(cfg.Simulation.Region); err != nil {
		return err
	}
	pop, err := population.Load(cmd.Context(), cfg.Input)
	if err != nil {
		return err
	}
	reg, err := registry.NewDefault(pop.Parcels.IDs())
	if err != nil {
		return err
	}
	if _, err := reg.Resolve(); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "configuration ok: %d households, %d persons, %d parcels, %d models bound\n",
		len(pop.Households), pop.Persons(), len(pop.Parcels), len(reg.Names()))
	return nil
}

func runInitConfig(cmd *cobra.Command, args []string) error {
	path := "daysim.yaml"
	if len(args) == 1 {
		path = args[0]
	}
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s already exists", path)
	}
	if err := config.Default().Save(path); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
	return nil
}

func runModels(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	pop, err := population.Load(cmd.Context(), cfg.Input)
	if err != nil {
		return err
	}
	reg, err := registry.NewDefault(pop.Parcels.IDs())
	if err != nil {
		return err
	}
	for _, name := range reg.Names() {
		fmt.Fprintln(cmd.OutOrStdout(), name)
	}
	return nil
}
