// Package opcode names the WebAssembly binary constants pkg/wasm needs:
// value types, section ids, and instruction opcodes. Byte values are fixed
// by the WASM 1.0 spec and copied verbatim; the constant names and the
// subset kept are trimmed to what this compiler's codegen and its raw
// #wasm: assembler actually emit (spec §4.9) — grounded on
// wippyai-wasm-runtime's wat/internal/ast/constants.go and
// wat/internal/opcode/opcode.go, which enumerate the full instruction set
// for a general-purpose wat assembler. NEPL's primitive types are
// I32/U8/Bool (all i32-represented), F32, Unit, Never and Str (one i32
// pointer to a length-prefixed byte block, not a pointer/length pair),
// so every i64/f64 opcode that
// table carries is dropped here: nothing in this front end can ever
// produce an i64 or f64 value to feed one.
package opcode

// ValType is a WASM value type byte, used in signatures and block types.
type ValType byte

const (
	ValI32       ValType = 0x7F
	ValF32       ValType = 0x7D
	ValFuncref   ValType = 0x70
	ValExternref ValType = 0x6F
)

// BlockTypeEmpty marks a block/loop/if with no result.
const BlockTypeEmpty byte = 0x40

// External kind bytes, used in the import and export sections.
const (
	KindFunc   byte = 0
	KindTable  byte = 1
	KindMemory byte = 2
	KindGlobal byte = 3
)

// Section ids, in the fixed order they must appear in a module.
const (
	SectionCustom byte = 0
	SectionType   byte = 1
	SectionImport byte = 2
	SectionFunc   byte = 3
	SectionTable  byte = 4
	SectionMemory byte = 5
	SectionGlobal byte = 6
	SectionExport byte = 7
	SectionStart  byte = 8
	SectionElem   byte = 9
	SectionCode   byte = 10
	SectionData   byte = 11
)

// FuncTypeMarker prefixes a type section entry's function type.
const FuncTypeMarker byte = 0x60

// Limits flags for a memory/table's limits encoding.
const (
	LimitsNoMax  byte = 0x00
	LimitsHasMax byte = 0x01
)

// Op is a WASM instruction opcode.
type Op byte

const (
	OpUnreachable Op = 0x00
	OpNop         Op = 0x01
	OpBlock       Op = 0x02
	OpLoop        Op = 0x03
	OpIf          Op = 0x04
	OpElse        Op = 0x05
	OpEnd         Op = 0x0B
	OpBr          Op = 0x0C
	OpBrIf        Op = 0x0D
	OpBrTable     Op = 0x0E
	OpReturn      Op = 0x0F
	OpCall        Op = 0x10
	OpDrop        Op = 0x1A
	OpSelect      Op = 0x1B

	OpLocalGet  Op = 0x20
	OpLocalSet  Op = 0x21
	OpLocalTee  Op = 0x22
	OpGlobalGet Op = 0x23
	OpGlobalSet Op = 0x24

	OpI32Load    Op = 0x28
	OpF32Load    Op = 0x2A
	OpI32Load8S  Op = 0x2C
	OpI32Load8U  Op = 0x2D
	OpI32Load16S Op = 0x2E
	OpI32Load16U Op = 0x2F
	OpI32Store   Op = 0x36
	OpF32Store   Op = 0x38
	OpI32Store8  Op = 0x3A
	OpI32Store16 Op = 0x3B

	OpMemorySize Op = 0x3F
	OpMemoryGrow Op = 0x40

	OpI32Const Op = 0x41
	OpF32Const Op = 0x43

	OpI32Eqz  Op = 0x45
	OpI32Eq   Op = 0x46
	OpI32Ne   Op = 0x47
	OpI32LtS  Op = 0x48
	OpI32LtU  Op = 0x49
	OpI32GtS  Op = 0x4A
	OpI32GtU  Op = 0x4B
	OpI32LeS  Op = 0x4C
	OpI32LeU  Op = 0x4D
	OpI32GeS  Op = 0x4E
	OpI32GeU  Op = 0x4F

	OpF32Eq Op = 0x5B
	OpF32Ne Op = 0x5C
	OpF32Lt Op = 0x5D
	OpF32Gt Op = 0x5E
	OpF32Le Op = 0x5F
	OpF32Ge Op = 0x60

	OpI32Clz    Op = 0x67
	OpI32Ctz    Op = 0x68
	OpI32Popcnt Op = 0x69
	OpI32Add    Op = 0x6A
	OpI32Sub    Op = 0x6B
	OpI32Mul    Op = 0x6C
	OpI32DivS   Op = 0x6D
	OpI32DivU   Op = 0x6E
	OpI32RemS   Op = 0x6F
	OpI32RemU   Op = 0x70
	OpI32And    Op = 0x71
	OpI32Or     Op = 0x72
	OpI32Xor    Op = 0x73
	OpI32Shl    Op = 0x74
	OpI32ShrS   Op = 0x75
	OpI32ShrU   Op = 0x76
	OpI32Rotl   Op = 0x77
	OpI32Rotr   Op = 0x78

	OpF32Abs     Op = 0x8B
	OpF32Neg     Op = 0x8C
	OpF32Ceil    Op = 0x8D
	OpF32Floor   Op = 0x8E
	OpF32Trunc   Op = 0x8F
	OpF32Nearest Op = 0x90
	OpF32Sqrt    Op = 0x91
	OpF32Add     Op = 0x92
	OpF32Sub     Op = 0x93
	OpF32Mul     Op = 0x94
	OpF32Div     Op = 0x95
	OpF32Min     Op = 0x96
	OpF32Max     Op = 0x97
	OpF32Copysign Op = 0x98

	OpI32TruncF32S Op = 0xA8
	OpI32TruncF32U Op = 0xA9
	OpF32ConvertI32S Op = 0xB2
	OpF32ConvertI32U Op = 0xB3

	OpI32Extend8S  Op = 0xC0
	OpI32Extend16S Op = 0xC1
)

// ImmKind is the shape of the immediate operand an instruction reads
// after its opcode byte, for the raw #wasm: text assembler.
type ImmKind int

const (
	ImmNone ImmKind = iota
	ImmU32          // local.get/set, br, call, global.get/set
	ImmI32          // i32.const
	ImmF32          // f32.const
	ImmBlock        // block/loop/if's block type
	ImmMemarg       // loads/stores: align, offset
)

// Info is one named instruction's encoding shape, as used by the raw
// #wasm: block assembler (spec §4.9 "a minimal assembler translates
// these to binary opcodes").
type Info struct {
	Op      Op
	Operands int // stack operands consumed, -1 if variable (br_table, call)
	Imm     ImmKind
}

// Lookup resolves a raw #wasm: mnemonic (e.g. "i32.add", "local.get") to
// its encoding. Structural instructions that open or close a block
// (block/loop/if/else/end) are not looked up through this table — the
// assembler recognizes them by keyword directly, since they also carry
// nested instruction lines rather than a flat immediate.
func Lookup(name string) (Info, bool) {
	info, ok := table[name]
	return info, ok
}

var table = map[string]Info{
	"unreachable": {OpUnreachable, 0, ImmNone},
	"nop":         {OpNop, 0, ImmNone},
	"return":      {OpReturn, -1, ImmNone},
	"drop":        {OpDrop, 1, ImmNone},
	"select":      {OpSelect, 3, ImmNone},

	"br":    {OpBr, -1, ImmU32},
	"br_if": {OpBrIf, -1, ImmU32},
	"call":  {OpCall, -1, ImmU32},

	"local.get":  {OpLocalGet, 0, ImmU32},
	"local.set":  {OpLocalSet, 1, ImmU32},
	"local.tee":  {OpLocalTee, 1, ImmU32},
	"global.get": {OpGlobalGet, 0, ImmU32},
	"global.set": {OpGlobalSet, 1, ImmU32},

	"i32.const": {OpI32Const, 0, ImmI32},
	"f32.const": {OpF32Const, 0, ImmF32},

	"i32.load":     {OpI32Load, 1, ImmMemarg},
	"f32.load":     {OpF32Load, 1, ImmMemarg},
	"i32.load8_s":  {OpI32Load8S, 1, ImmMemarg},
	"i32.load8_u":  {OpI32Load8U, 1, ImmMemarg},
	"i32.load16_s": {OpI32Load16S, 1, ImmMemarg},
	"i32.load16_u": {OpI32Load16U, 1, ImmMemarg},
	"i32.store":    {OpI32Store, 2, ImmMemarg},
	"f32.store":    {OpF32Store, 2, ImmMemarg},
	"i32.store8":   {OpI32Store8, 2, ImmMemarg},
	"i32.store16":  {OpI32Store16, 2, ImmMemarg},

	"memory.size": {OpMemorySize, 0, ImmNone},
	"memory.grow": {OpMemoryGrow, 1, ImmNone},

	"i32.eqz":  {OpI32Eqz, 1, ImmNone},
	"i32.eq":   {OpI32Eq, 2, ImmNone},
	"i32.ne":   {OpI32Ne, 2, ImmNone},
	"i32.lt_s": {OpI32LtS, 2, ImmNone},
	"i32.lt_u": {OpI32LtU, 2, ImmNone},
	"i32.gt_s": {OpI32GtS, 2, ImmNone},
	"i32.gt_u": {OpI32GtU, 2, ImmNone},
	"i32.le_s": {OpI32LeS, 2, ImmNone},
	"i32.le_u": {OpI32LeU, 2, ImmNone},
	"i32.ge_s": {OpI32GeS, 2, ImmNone},
	"i32.ge_u": {OpI32GeU, 2, ImmNone},

	"f32.eq": {OpF32Eq, 2, ImmNone},
	"f32.ne": {OpF32Ne, 2, ImmNone},
	"f32.lt": {OpF32Lt, 2, ImmNone},
	"f32.gt": {OpF32Gt, 2, ImmNone},
	"f32.le": {OpF32Le, 2, ImmNone},
	"f32.ge": {OpF32Ge, 2, ImmNone},

	"i32.clz":    {OpI32Clz, 1, ImmNone},
	"i32.ctz":    {OpI32Ctz, 1, ImmNone},
	"i32.popcnt": {OpI32Popcnt, 1, ImmNone},
	"i32.add":    {OpI32Add, 2, ImmNone},
	"i32.sub":    {OpI32Sub, 2, ImmNone},
	"i32.mul":    {OpI32Mul, 2, ImmNone},
	"i32.div_s":  {OpI32DivS, 2, ImmNone},
	"i32.div_u":  {OpI32DivU, 2, ImmNone},
	"i32.rem_s":  {OpI32RemS, 2, ImmNone},
	"i32.rem_u":  {OpI32RemU, 2, ImmNone},
	"i32.and":    {OpI32And, 2, ImmNone},
	"i32.or":     {OpI32Or, 2, ImmNone},
	"i32.xor":    {OpI32Xor, 2, ImmNone},
	"i32.shl":    {OpI32Shl, 2, ImmNone},
	"i32.shr_s":  {OpI32ShrS, 2, ImmNone},
	"i32.shr_u":  {OpI32ShrU, 2, ImmNone},
	"i32.rotl":   {OpI32Rotl, 2, ImmNone},
	"i32.rotr":   {OpI32Rotr, 2, ImmNone},

	"f32.abs":      {OpF32Abs, 1, ImmNone},
	"f32.neg":      {OpF32Neg, 1, ImmNone},
	"f32.ceil":     {OpF32Ceil, 1, ImmNone},
	"f32.floor":    {OpF32Floor, 1, ImmNone},
	"f32.trunc":    {OpF32Trunc, 1, ImmNone},
	"f32.nearest":  {OpF32Nearest, 1, ImmNone},
	"f32.sqrt":     {OpF32Sqrt, 1, ImmNone},
	"f32.add":      {OpF32Add, 2, ImmNone},
	"f32.sub":      {OpF32Sub, 2, ImmNone},
	"f32.mul":      {OpF32Mul, 2, ImmNone},
	"f32.div":      {OpF32Div, 2, ImmNone},
	"f32.min":      {OpF32Min, 2, ImmNone},
	"f32.max":      {OpF32Max, 2, ImmNone},
	"f32.copysign": {OpF32Copysign, 2, ImmNone},

	"i32.trunc_f32_s":   {OpI32TruncF32S, 1, ImmNone},
	"i32.trunc_f32_u":   {OpI32TruncF32U, 1, ImmNone},
	"f32.convert_i32_s": {OpF32ConvertI32S, 1, ImmNone},
	"f32.convert_i32_u": {OpF32ConvertI32U, 1, ImmNone},

	"i32.extend8_s":  {OpI32Extend8S, 1, ImmNone},
	"i32.extend16_s": {OpI32Extend16S, 1, ImmNone},
}

// MemargNaturalAlign gives the natural (maximum useful) alignment
// exponent for a load/store opcode, used by the assembler/codegen when a
// raw line or a struct-layout access omits an explicit alignment.
func MemargNaturalAlign(op Op) uint32 {
	switch op {
	case OpI32Load, OpI32Store:
		return 2
	case OpF32Load, OpF32Store:
		return 2
	case OpI32Load16S, OpI32Load16U, OpI32Store16:
		return 1
	default:
		return 0
	}
}
