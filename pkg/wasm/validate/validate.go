// Package validate runs the "conformant validator" spec §4.9/§7 require
// after byte emission: "any validation failure is converted to a
// diagnostic referencing the offending function when possible". Grounded
// on wippyai-wasm-runtime/engine's WazeroEngine, which compiles emitted
// bytes through wazero.Runtime.CompileModule the same way — here used
// purely for its validation side effect (a successfully compiled module
// is a valid one), never to instantiate or run it.
package validate

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"github.com/tetratelabs/wazero"

	"github.com/neplg/neplg2/pkg/diag"
	"github.com/neplg/neplg2/pkg/source"
)

// FuncSpans maps a wasm function index (declared functions only, after
// any imported functions) back to the HIR function that emitted it, so
// a validator failure can be reported at that function's span rather
// than only at the module as a whole.
type FuncSpans func(funcIdx int) (name string, sp source.Span, ok bool)

var funcIdxPattern = regexp.MustCompile(`function\[(\d+)\]`)

// Validate compiles wasmBytes with wazero and reports a single
// CodeValidation diagnostic on failure. The module is never
// instantiated: compilation alone is what wazero's own validator runs.
func Validate(ctx context.Context, wasmBytes []byte, spans FuncSpans, fallback source.Span, diags *diag.Set) {
	runtime := wazero.NewRuntime(ctx)
	defer runtime.Close(ctx)

	compiled, err := runtime.CompileModule(ctx, wasmBytes)
	if err != nil {
		msg := strings.TrimSpace(err.Error())
		sp := fallback

		if spans != nil {
			if m := funcIdxPattern.FindStringSubmatch(msg); m != nil {
				if idx, convErr := strconv.Atoi(m[1]); convErr == nil {
					if name, fnSp, ok := spans(idx); ok {
						sp = fnSp
						msg = name + ": " + msg
					}
				}
			}
		}

		diags.Add(diag.New(diag.CodeValidation, sp, "wasm module rejected by validator: "+msg))
		return
	}

	compiled.Close(ctx)
}
