package command

import (
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/ctrtrace/tracecore/internal/config"
	"github.com/ctrtrace/tracecore/internal/logging"
)

var (
	opt        = config.Defaults()
	configPath string
)

// Root builds the top-level "tracecore" cobra command with its three
// subcommands wired in (SPEC_FULL.md §6).
func Root() *cobra.Command {
	root := &cobra.Command{
		Use:   "tracecore",
		Short: "trace a command's filesystem behavior and emit a minimal container image",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Flags given on the command line win over the config file:
			// remember them, merge the file, then apply them again.
			explicit := map[string]string{}
			cmd.Flags().Visit(func(f *pflag.Flag) { explicit[f.Name] = f.Value.String() })
			if err := config.LoadFile(&opt, configPath); err != nil {
				return err
			}
			for name, value := range explicit {
				if err := cmd.Flags().Set(name, value); err != nil {
					return err
				}
			}
			logging.SetVerbose(opt.Verbose)
			logging.SetFormat(opt.LogFormat)
			return nil
		},
	}
	config.BindFlags(root.PersistentFlags(), &opt, &configPath)

	root.AddCommand(traceCommand, dumpCSVCommand, warningsCommand)
	return root
}
