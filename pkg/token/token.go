// Package token defines the lexical token kinds produced by pkg/lexer.
package token

import "github.com/neplg/neplg2/pkg/source"

// Kind identifies the lexical category of a Token.
type Kind int

const (
	// Invalid marks a token the lexer could not classify; an error is
	// recorded but lexing continues (spec §4.2).
	Invalid Kind = iota
	EOF

	// Synthetic offside-rule tokens.
	Indent
	Dedent
	Newline

	// Identifiers and literals.
	Ident
	IntLit
	FloatLit
	BoolLit
	StringLit

	// Punctuation.
	LParen    // (
	RParen    // )
	LBracket  // [
	RBracket  // ]
	LAngle    // <
	RAngle    // >
	Colon     // :
	Comma     // ,
	Semicolon // ;
	Dot       // .
	Amp       // &
	Star      // *
	Pipe      // |>
	Arrow     // ->
	ColonColon // ::
	At        // @
	Eq        // =

	// Keywords.
	KwFn
	KwLet
	KwMut
	KwSet
	KwIf
	KwThen
	KwElse
	KwWhile
	KwMatch
	KwEnum
	KwStruct
	KwTrait
	KwImpl
	KwPub
	KwAs
	KwTuple

	// Directive and raw-block headers.
	Directive // any "#name" token; the directive keyword is in Text
	RawWasmHeader
	RawLLVMIRHeader
	MLStrHeader
)

var names = map[Kind]string{
	Invalid: "invalid", EOF: "eof", Indent: "indent", Dedent: "dedent",
	Newline: "newline", Ident: "ident", IntLit: "int", FloatLit: "float",
	BoolLit: "bool", StringLit: "string", LParen: "(", RParen: ")",
	LBracket: "[", RBracket: "]", LAngle: "<", RAngle: ">", Colon: ":",
	Comma: ",", Semicolon: ";", Dot: ".", Amp: "&", Star: "*", Pipe: "|>",
	Arrow: "->", ColonColon: "::", At: "@", Eq: "=", KwFn: "fn", KwLet: "let",
	KwMut: "mut", KwSet: "set", KwIf: "if", KwThen: "then", KwElse: "else",
	KwWhile: "while", KwMatch: "match", KwEnum: "enum", KwStruct: "struct",
	KwTrait: "trait", KwImpl: "impl", KwPub: "pub", KwAs: "as",
	KwTuple: "Tuple", Directive: "directive",
	RawWasmHeader: "#wasm:", RawLLVMIRHeader: "#llvmir:", MLStrHeader: "mlstr:",
}

func (k Kind) String() string {
	if n, ok := names[k]; ok {
		return n
	}

	return "unknown"
}

// Keywords maps reserved identifier text to its keyword Kind.
var Keywords = map[string]Kind{
	"fn": KwFn, "let": KwLet, "mut": KwMut, "set": KwSet, "if": KwIf,
	"then": KwThen, "else": KwElse, "while": KwWhile, "match": KwMatch,
	"enum": KwEnum, "struct": KwStruct, "trait": KwTrait, "impl": KwImpl,
	"pub": KwPub, "as": KwAs, "Tuple": KwTuple,
}

// Token is a single lexical token with its precise source span.
type Token struct {
	Kind Kind
	Span source.Span
	Text string // raw text for Ident/literals/directives; "" otherwise
}

// RawLine is one captured line of a raw embedded block (#wasm:,
// #llvmir:, mlstr:). Indent is the line's indentation relative to the
// block's base indent (header indent + one unit), in source columns,
// preserved exactly as spec §4.2/§9 require.
type RawLine struct {
	Span    source.Span
	Indent  int
	Text    string
}
