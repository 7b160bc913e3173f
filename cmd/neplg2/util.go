package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/neplg/neplg2/pkg/config"
	"github.com/neplg/neplg2/pkg/diag"
	"github.com/neplg/neplg2/pkg/neplg2"
	"github.com/neplg/neplg2/pkg/source"
)

// GetFlag gets an expected bool flag, generalizing go-corset's
// pkg/cmd/util.go helper of the same name/shape.
func GetFlag(cmd *cobra.Command, flag string) bool {
	r, err := cmd.Flags().GetBool(flag)
	if err != nil {
		fmt.Println(err)
		os.Exit(2)
	}

	return r
}

// GetString gets an expected string flag.
func GetString(cmd *cobra.Command, flag string) string {
	r, err := cmd.Flags().GetString(flag)
	if err != nil {
		fmt.Println(err)
		os.Exit(2)
	}

	return r
}

// loadOptions builds the library's Options/CompilationConfig from this
// invocation's flags, falling back to the project file named by
// --config for any flag left at its empty/unset value (spec §5: a
// config-file default never overrides a flag the caller actually
// passed, it only changes where an unset flag's default comes from).
// A missing or unparsable project file is silently treated as "no
// overrides" — neplg2.toml is optional, not a prerequisite.
func loadOptions(cmd *cobra.Command) (neplg2.Options, neplg2.CompilationConfig) {
	file, _ := config.LoadPath(GetString(cmd, "config"))

	target := GetString(cmd, "target")
	if target == "" {
		target = file.Target
	}

	profile := GetString(cmd, "profile")
	if profile == "" {
		profile = file.Profile
	}

	verbose := GetFlag(cmd, "verbose")
	if !verbose {
		verbose = file.Verbose
	}

	stdlib := GetString(cmd, "stdlib")
	if stdlib == "" {
		stdlib = file.Stdlib
	}

	if stdlib == "" {
		stdlib = "std"
	}

	return neplg2.Options{Target: target, Profile: profile, Verbose: verbose},
		neplg2.CompilationConfig{StdlibRoot: stdlib}
}

// reportDiagnostics prints every accumulated diagnostic to stderr as
// "severity: path:line:col: code: message", one per line.
func reportDiagnostics(srcMap *source.Map, diags *diag.Set) {
	for _, d := range diags.Items() {
		loc := "<no source map>"
		if srcMap != nil {
			loc = srcMap.Describe(d.Primary.Span)
		}

		fmt.Fprintf(os.Stderr, "%s: %s: %s: %s\n", d.Severity, loc, d.Code, d.Message)

		for _, sec := range d.Secondary {
			secLoc := "<no source map>"
			if srcMap != nil {
				secLoc = srcMap.Describe(sec.Span)
			}

			fmt.Fprintf(os.Stderr, "    %s: %s\n", secLoc, sec.Message)
		}
	}
}
