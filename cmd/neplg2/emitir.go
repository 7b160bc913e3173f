package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/neplg/neplg2/internal/diag"
	"github.com/neplg/neplg2/pkg/neplg2"
)

var emitIRCmd = &cobra.Command{
	Use:   "emit-ir [flags] entry_file",
	Short: "compile a NEPL entry module to restricted LLVM-IR text (forces target=llvm).",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		setVerbose(cmd)

		entry := args[0]
		opts, cfg := loadOptions(cmd)
		opts.Target = "llvm" // this subcommand always forces the llvm-ir target

		art, srcMap, diags := neplg2.CompileFS(filepath.Dir(entry), filepath.Base(entry), cfg, opts)

		reportDiagnostics(srcMap, diags)

		if diags.HasErrors() {
			os.Exit(1)
		}

		output := GetString(cmd, "output")

		if err := os.WriteFile(output, []byte(art.IR), 0o644); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}

		diag.Log().Infof("wrote %s", output)
	},
}

func init() {
	rootCmd.AddCommand(emitIRCmd)
	emitIRCmd.Flags().StringP("output", "o", "a.ll", "output IR text path")
}
