package main

import (
	"fmt"
	"os"
	"slices"

	"github.com/consensys/bavard"
)

// opSpec is one kind-polymorphic intrinsic's three instruction
// variants, named after pkg/wasm/opcode's Op constants.
type opSpec struct {
	Name             string
	F32, U8, Signed string
}

//go:generate go run main.go
func main() {
	bgen := bavard.NewBatchGenerator("", 2026, "neplg2")

	ops := []opSpec{
		{Name: "add", F32: "OpF32Add", U8: "OpI32Add", Signed: "OpI32Add"},
		{Name: "sub", F32: "OpF32Sub", U8: "OpI32Sub", Signed: "OpI32Sub"},
		{Name: "mul", F32: "OpF32Mul", U8: "OpI32Mul", Signed: "OpI32Mul"},
		{Name: "div", F32: "OpF32Div", U8: "OpI32DivU", Signed: "OpI32DivS"},
		{Name: "rem", F32: "OpUnreachable", U8: "OpI32RemU", Signed: "OpI32RemS"},
		{Name: "eq", F32: "OpF32Eq", U8: "OpI32Eq", Signed: "OpI32Eq"},
		{Name: "ne", F32: "OpF32Ne", U8: "OpI32Ne", Signed: "OpI32Ne"},
		{Name: "lt", F32: "OpF32Lt", U8: "OpI32LtU", Signed: "OpI32LtS"},
		{Name: "le", F32: "OpF32Le", U8: "OpI32LeU", Signed: "OpI32LeS"},
		{Name: "gt", F32: "OpF32Gt", U8: "OpI32GtU", Signed: "OpI32GtS"},
		{Name: "ge", F32: "OpF32Ge", U8: "OpI32GeU", Signed: "OpI32GeS"},
	}

	slices.SortFunc(ops, func(a, b opSpec) int {
		if a.Name < b.Name {
			return -1
		}

		if a.Name > b.Name {
			return 1
		}

		return 0
	})

	cfg := struct{ Ops []opSpec }{Ops: ops}

	assertNoError(bgen.Generate(cfg, "wasminsn", "templates",
		bavard.Entry{
			File:      "../table.go",
			Templates: []string{"table.go.tmpl"},
		},
	))
}

func assertNoError(err error) {
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
