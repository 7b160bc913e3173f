// Package diag defines the renderer-agnostic diagnostic data model
// produced by every compiler stage. Nothing in this package knows how to
// print a diagnostic to a terminal; that is an external-collaborator
// concern (see spec §1).
package diag

import (
	"fmt"

	"github.com/neplg/neplg2/pkg/source"
)

// Severity classifies a Diagnostic. Any Error in a Set fails
// compilation; Warning is informational only.
type Severity int

const (
	// Error severities always fail compilation.
	Error Severity = iota
	// Warning severities are informational.
	Warning
)

func (s Severity) String() string {
	if s == Warning {
		return "warning"
	}

	return "error"
}

// Code loosely classifies a Diagnostic by compiler stage and failure
// kind, per spec §7. It is optional: zero value means "uncoded".
type Code string

// Recognized diagnostic codes, grouped by the stage that raises them.
const (
	CodeBadIndent          Code = "lex/bad-indent"
	CodeUnterminatedLit    Code = "lex/unterminated-literal"
	CodeBadEscape          Code = "lex/bad-escape"
	CodeUnexpectedToken    Code = "parse/unexpected-token"
	CodeMissingBlockColon  Code = "parse/missing-block-colon"
	CodeStrayRawHeader     Code = "parse/stray-raw-header"
	CodeBadDirective       Code = "parse/bad-directive"
	CodeUnknownName        Code = "resolve/unknown-name"
	CodeAmbiguousName      Code = "resolve/ambiguous-name"
	CodeVisibilityViolated Code = "resolve/visibility-violation"
	CodeDuplicateDef       Code = "resolve/duplicate-definition"
	CodeDuplicateReexport  Code = "resolve/duplicate-reexport"
	CodeUnknownAlias       Code = "resolve/unknown-alias"
	CodeTypeMismatch       Code = "type/mismatch"
	CodeUnresolvedOverload Code = "type/unresolved-overload"
	CodeArityMismatch      Code = "type/arity-mismatch"
	CodeNonExhaustiveMatch Code = "type/non-exhaustive-match"
	CodeEffectViolation    Code = "type/effect-violation"
	CodeMutabilityViolated Code = "type/mutability-violation"
	CodeGenericSyntax      Code = "type/generic-parameter-syntax"
	CodeMultipleTarget     Code = "type/multiple-target"
	CodeUseOfMoved         Code = "move/use-of-moved-value"
	CodeMoveBehindRef      Code = "move/move-behind-reference"
	CodeUnsupportedConstr  Code = "codegen/unsupported-construct"
	CodeRawBodyConflict    Code = "codegen/raw-body-conflict"
	CodeValidation         Code = "validation/rejected"
	CodeCircularImport     Code = "loader/circular-import"
	CodeMissingSource      Code = "loader/missing-source"
)

// Label attaches an explanatory message to one span. A Diagnostic's
// Primary label is where the problem was detected; Secondary labels
// point at related locations (e.g. where a value was moved).
type Label struct {
	Span    source.Span
	Message string
}

// Diagnostic is one structured compiler message, per spec §7.
type Diagnostic struct {
	Severity  Severity
	Code      Code
	Message   string
	Primary   Label
	Secondary []Label
}

// New constructs an error-severity Diagnostic with only a primary label.
func New(code Code, span source.Span, message string) Diagnostic {
	return Diagnostic{
		Severity: Error,
		Code:     code,
		Message:  message,
		Primary:  Label{Span: span, Message: message},
	}
}

// Newf is New with fmt-style formatting.
func Newf(code Code, span source.Span, format string, args ...any) Diagnostic {
	return New(code, span, fmt.Sprintf(format, args...))
}

// WithSecondary returns a copy of d with an additional secondary label.
func (d Diagnostic) WithSecondary(span source.Span, message string) Diagnostic {
	d.Secondary = append(d.Secondary, Label{Span: span, Message: message})
	return d
}

// AsWarning returns a copy of d with Warning severity.
func (d Diagnostic) AsWarning() Diagnostic {
	d.Severity = Warning
	return d
}
