// Package ast defines NEPL's abstract syntax tree, produced by pkg/parser
// from the token stream. Following spec §9 ("Prefix-expression
// flatness"), a prefix-expression line is kept as a flat ordered list of
// Item values rather than a tree; arity resolution is deferred to
// pkg/typecheck.
package ast

import "github.com/neplg/neplg2/pkg/source"

// Node is implemented by every AST type that carries a source location.
type Node interface {
	Span() source.Span
}

// Module is the merged result of the source loader (spec §4.1): one
// logical compilation unit assembled from an entry file plus every
// transitively imported/included file.
type Module struct {
	IndentWidth int
	Directives  []Directive
	Root        *Block
}

// Block is an ordered sequence of statements, introduced either by the
// module root or a colon-terminated statement (spec §4.3).
type Block struct {
	Stmts []Stmt
	Sp    source.Span
}

// Span implements Node.
func (b *Block) Span() source.Span { return b.Sp }

// Stmt is implemented by every top-level or block-level statement kind.
type Stmt interface {
	Node
	stmt()
}
