// Package cmd is the neplg2 command-line front end: a thin spf13/cobra
// tree over pkg/neplg2, generalizing go-corset's pkg/cmd (Version var
// settable via -ldflags, falling back to runtime/debug.ReadBuildInfo,
// a --version flag on the root command) from Corset's asm/mir/air
// schema-stack flags to NEPL's target/profile compile options.
package cmd

import (
	"fmt"
	"os"
	"runtime/debug"

	"github.com/spf13/cobra"

	"github.com/neplg/neplg2/internal/diag"
)

// Version is filled in via -ldflags at release-build time; empty under
// a plain "go build"/"go install".
var Version string

var rootCmd = &cobra.Command{
	Use:   "neplg2",
	Short: "A compiler for the NEPL language.",
	Long:  "A compiler for NEPL, a small indentation-sensitive prefix-notation language lowering to WebAssembly.",
	Run: func(cmd *cobra.Command, args []string) {
		if GetFlag(cmd, "version") {
			fmt.Print("neplg2 ")

			switch {
			case Version != "":
				fmt.Print(Version)
			default:
				if info, ok := debug.ReadBuildInfo(); ok {
					fmt.Print(info.Main.Version)
				} else {
					fmt.Print("(unknown version)")
				}
			}

			fmt.Println()
		}
	},
}

// Execute runs the root command; called once by the module root's main.go.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.Flags().Bool("version", false, "report the version of this executable")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "increase logging verbosity")
	rootCmd.PersistentFlags().String("target", "", "compile target: wasm, wasi, or llvm (default: module's #target, else wasm)")
	rootCmd.PersistentFlags().String("profile", "", "compile profile: debug or release (default: host debug-assertion flag)")
	rootCmd.PersistentFlags().String("stdlib", "", "root path the \"std/\" import prefix resolves against (default: neplg2.toml's stdlib, else \"std\")")
	rootCmd.PersistentFlags().String("config", "neplg2.toml", "project file supplying defaults for unset flags")
}

func setVerbose(cmd *cobra.Command) {
	diag.SetVerbose(GetFlag(cmd, "verbose"))
}
