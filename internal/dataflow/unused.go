package dataflow

import (
	"fmt"

	"github.com/blendsdk/blend65/internal/source"
	"github.com/blendsdk/blend65/internal/symbols"
)

// UnusedDeclarations reports W_UNUSED_VARIABLE / W_UNUSED_FUNCTION for
// every symbol that the resolver never marked IsUsed. Exported symbols
// are never flagged — their use may be in another module, and imports
// have already been use-checked at the import site, not the declaration
// site.
func UnusedDeclarations(mt *symbols.ModuleTable, sink *source.Sink) {
	for _, scope := range mt.AllScopes {
		for _, sym := range scope.All() {
			if sym.IsExported || sym.IsUsed {
				continue
			}
			switch sym.Kind {
			case symbols.KindVariable, symbols.KindConst, symbols.KindParameter:
				sink.Add(source.New(source.Warning, source.WarnUnusedVariable, sym.Span,
					fmt.Sprintf("%q is never used", sym.Name)))
			case symbols.KindFunction:
				if sym.Name == "main" {
					continue // main is the program entry point even when unexported-then-wrapped
				}
				sink.Add(source.New(source.Warning, source.WarnUnusedFunction, sym.Span,
					fmt.Sprintf("function %q is never called", sym.Name)))
			case symbols.KindImport:
				sink.Add(source.New(source.Warning, source.WarnUnusedImport, sym.Span,
					fmt.Sprintf("imported %q is never used", sym.Name)))
			}
		}
	}
}
