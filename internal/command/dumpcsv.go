package command

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/ctrtrace/tracecore/internal/backend"
)

var csvOutFile string

var dumpCSVCommand = &cobra.Command{
	Use:   "dump-csv -- <command> [args...]",
	Short: "trace a command and emit only the CSV dump, to stdout or --out-file",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		result, err := trace(args, opt.Verbose)
		if err != nil {
			return err
		}

		w := cmd.OutOrStdout()
		if csvOutFile != "" {
			f, err := os.Create(csvOutFile)
			if err != nil {
				return err
			}
			defer f.Close()
			w = f
		}
		return backend.CSV(result.Global.Store, w)
	},
}

func init() {
	dumpCSVCommand.Flags().StringVar(&csvOutFile, "out-file", "", "write CSV to this path instead of stdout")
}
