package cmd

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/neplg/neplg2/pkg/neplg2"
)

var checkCmd = &cobra.Command{
	Use:   "check [flags] entry_file",
	Short: "typecheck and move-check a NEPL entry module without emitting an artifact.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		setVerbose(cmd)

		entry := args[0]
		opts, cfg := loadOptions(cmd)

		srcMap, diags := neplg2.CheckFS(filepath.Dir(entry), filepath.Base(entry), cfg, opts)

		reportDiagnostics(srcMap, diags)

		if diags.HasErrors() {
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(checkCmd)
}
