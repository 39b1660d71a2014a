package command

import (
	"github.com/spf13/cobra"
)

var warningsCommand = &cobra.Command{
	Use:   "warnings -- <command> [args...]",
	Short: "trace a command and print only the accumulated syscall warnings",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		result, err := trace(args, opt.Verbose)
		if err != nil {
			return err
		}
		for _, msg := range result.Global.Warnings.Messages() {
			cmd.Println(msg)
		}
		return nil
	},
}
