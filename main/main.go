// Command signup-sequencer accepts Semaphore identity commitments, submits
// them to the contract and serves inclusion proofs.
package main

import (
	"fmt"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/nnsW3/signup-sequencer/app"
)

const appName = "signup-sequencer"

func main() {
	root := &cobra.Command{
		Use:   appName,
		Short: "Semaphore identity sequencer.",
		Long: `Semaphore identity sequencer.

Accepts identity commitments over HTTP, inserts them into the Semaphore
contract and serves inclusion proofs against the mined and the latest
identity tree.`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringP("config", "c", app.DefaultConfigFile, "Path to the config file")
	root.AddCommand(newInitCommand(), newRunCommand())

	if err := root.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(-1)
	}
}

func newInitCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a configuration file for " + appName + ".",
		Long:  `Create a configuration file for ` + appName + ` with default settings.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			file, _ := cmd.Flags().GetString("config")
			force, _ := cmd.Flags().GetBool("force")
			if _, err := os.Stat(file); err == nil && !force {
				return errors.Errorf("%s already exists, use --force to overwrite", file)
			}
			if err := app.DefaultConfig().Save(file); err != nil {
				return err
			}
			fmt.Println("Config written to", file)
			return nil
		},
	}
	cmd.Flags().BoolP("force", "f", false, "Overwrite an existing config file")
	return cmd
}

func newRunCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run a " + appName + " instance.",
		Long: `Run a ` + appName + ` instance.

This will look for the config file with the default name
in the current directory if not specified differently.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			file, _ := cmd.Flags().GetString("config")
			return run(file)
		},
	}
}
