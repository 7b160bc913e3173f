package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/neplg/neplg2/internal/diag"
	"github.com/neplg/neplg2/pkg/neplg2"
)

var compileCmd = &cobra.Command{
	Use:   "compile [flags] entry_file",
	Short: "compile a NEPL entry module to a wasm or llvm-ir artifact.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		setVerbose(cmd)

		entry := args[0]
		opts, cfg := loadOptions(cmd)

		art, srcMap, diags := neplg2.CompileFS(filepath.Dir(entry), filepath.Base(entry), cfg, opts)

		reportDiagnostics(srcMap, diags)

		if diags.HasErrors() {
			os.Exit(1)
		}

		output := GetString(cmd, "output")

		switch art.Kind {
		case neplg2.ArtifactWasm:
			if err := os.WriteFile(output, art.Wasm, 0o644); err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(1)
			}
		case neplg2.ArtifactLLVMIR:
			if err := os.WriteFile(output, []byte(art.IR), 0o644); err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(1)
			}
		}

		diag.Log().Infof("wrote %s", output)
	},
}

func init() {
	rootCmd.AddCommand(compileCmd)
	compileCmd.Flags().StringP("output", "o", "a.wasm", "output artifact path")
}
