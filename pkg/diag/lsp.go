package diag

import (
	"go.lsp.dev/protocol"

	"github.com/neplg/neplg2/pkg/source"
)

// Range converts a Span into an LSP-shaped protocol.Range using m to
// resolve line/column positions. This is a convenience for embedders
// (the playground, an editor integration) that already speak
// LSP-flavoured positions; this package itself never sends or receives
// LSP messages and does not depend on go.lsp.dev/jsonrpc2.
func Range(m *source.Map, span source.Span) protocol.Range {
	if span.IsDummy() {
		return protocol.Range{}
	}

	f := m.Get(span.File)
	if f == nil {
		return protocol.Range{}
	}

	start := f.PositionAt(span.Start)
	end := f.PositionAt(span.End)

	return protocol.Range{
		Start: protocol.Position{Line: uint32(start.Line - 1), Character: uint32(start.Column - 1)},
		End:   protocol.Position{Line: uint32(end.Line - 1), Character: uint32(end.Column - 1)},
	}
}

// ToLSPDiagnostic converts a Diagnostic into a protocol.Diagnostic,
// threading secondary labels through as related information.
func ToLSPDiagnostic(m *source.Map, d Diagnostic) protocol.Diagnostic {
	sev := protocol.DiagnosticSeverityError
	if d.Severity == Warning {
		sev = protocol.DiagnosticSeverityWarning
	}

	related := make([]protocol.DiagnosticRelatedInformation, 0, len(d.Secondary))

	for _, lbl := range d.Secondary {
		f := m.Get(lbl.Span.File)

		var uri protocol.URI
		if f != nil {
			uri = protocol.URI(f.Path())
		}

		related = append(related, protocol.DiagnosticRelatedInformation{
			Location: protocol.Location{URI: uri, Range: Range(m, lbl.Span)},
			Message:  lbl.Message,
		})
	}

	return protocol.Diagnostic{
		Range:              Range(m, d.Primary.Span),
		Severity:           sev,
		Code:               string(d.Code),
		Message:            d.Message,
		RelatedInformation: related,
	}
}
