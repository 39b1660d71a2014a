package command

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ctrtrace/tracecore/internal/backend"
)

var traceCommand = &cobra.Command{
	Use:   "trace -- <command> [args...]",
	Short: "trace a command to completion and emit a Dockerfile plus a side-band image archive",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		result, err := trace(args, opt.Verbose)
		if err != nil {
			return err
		}

		if err := os.MkdirAll(opt.OutDir, 0o755); err != nil {
			return err
		}

		dockerfile, err := backend.Dockerfile(result.Global.Store, backend.Options{BaseImage: opt.BaseImage, RunID: result.RunID})
		if err != nil {
			return err
		}
		if err := os.WriteFile(filepath.Join(opt.OutDir, "Dockerfile"), []byte(dockerfile), 0o644); err != nil {
			return err
		}

		f, err := os.Create(filepath.Join(opt.OutDir, "image.tar.zst"))
		if err != nil {
			return err
		}
		defer f.Close()
		if err := backend.Archive(result.Global.Store, f); err != nil {
			return err
		}

		cmd.Println("exit code:", result.Code)
		return nil
	},
}
