package symbols

import (
	"fmt"

	"github.com/blendsdk/blend65/internal/ast"
	"github.com/blendsdk/blend65/internal/source"
	"github.com/blendsdk/blend65/internal/token"
	"github.com/blendsdk/blend65/internal/types"
)

// ModuleTable is the output of resolving one module: its global scope plus
// the subset of symbols it exports, keyed by name for the module
// coordinator's cross-module linking pass.
type ModuleTable struct {
	Name      string
	Global    *Scope
	Exports   map[string]*Symbol
	AllScopes []*Scope // every scope opened while resolving this module, in creation order
}

// Resolver performs two-pass per-module resolution: pass one declares
// every top-level name (so forward references between functions/globals
// work regardless of source order), pass two walks statement bodies,
// opening a nested scope per block and resolving every identifier against
// the scope chain.
type Resolver struct {
	types   *types.Table
	planner *MemoryPlanner
	sink    *source.Sink

	nextScopeID int
	curScopes   []*Scope // reset at the start of each ResolveModule call
}

// NewResolver creates a Resolver sharing a type table and memory planner
// across every module in a compilation, so interned types and arena
// reservations are consistent program-wide.
func NewResolver(t *types.Table, planner *MemoryPlanner, sink *source.Sink) *Resolver {
	return &Resolver{types: t, planner: planner, sink: sink}
}

func (r *Resolver) newScope(parent *Scope) *Scope {
	s := NewScope(r.nextScopeID, parent)
	r.nextScopeID++
	r.curScopes = append(r.curScopes, s)
	return s
}

// ResolveModule runs both passes over mod and returns its ModuleTable.
// Cross-module import symbols are declared here as unresolved stubs;
// LinkImports fills them in once every module in the program has been
// resolved.
func (r *Resolver) ResolveModule(mod *ast.Module) *ModuleTable {
	r.curScopes = nil
	global := r.newScope(nil)
	mt := &ModuleTable{Name: mod.Name, Global: global, Exports: make(map[string]*Symbol)}

	r.declarePass(mod, global, mt)
	r.resolvePass(mod, global)

	mt.AllScopes = r.curScopes
	return mt
}

// declarePass is pass one: every top-level declaration is entered into the
// global scope before any body is walked, so mutual recursion and
// out-of-order references resolve correctly.
func (r *Resolver) declarePass(mod *ast.Module, global *Scope, mt *ModuleTable) {
	for _, d := range mod.Decls {
		r.declareTopLevel(d, global, mt, false)
	}
}

func (r *Resolver) declareTopLevel(d ast.Decl, global *Scope, mt *ModuleTable, exported bool) {
	switch n := d.(type) {
	case *ast.Export:
		r.declareTopLevel(n.Inner, global, mt, true)
	case *ast.Import:
		sym := &Symbol{Name: n.Name, ScopeID: global.ID, Kind: KindImport, Span: n.Span(), OwningModule: n.Module}
		r.declareOrDuplicate(global, sym)
	case *ast.Variable:
		r.declareVariable(n, global, exported, mt)
	case *ast.Const:
		r.declareConst(n, global, exported, mt)
	case *ast.TypeAlias:
		target := r.resolveTypeExpr(n.Type, global)
		id := r.types.Alias(n.Name, target)
		sym := &Symbol{Name: n.Name, ScopeID: global.ID, Kind: KindType, TypeID: id, Span: n.Span(), IsExported: exported}
		r.declareOrDuplicate(global, sym)
		r.exportIfNeeded(mt, sym)
	case *ast.Enum:
		names := make([]string, len(n.Members))
		for i, m := range n.Members {
			names[i] = m.Name
		}
		enumID := r.types.Enum(n.Name, names)
		sym := &Symbol{Name: n.Name, ScopeID: global.ID, Kind: KindEnum, TypeID: enumID, Span: n.Span(), IsExported: exported}
		r.declareOrDuplicate(global, sym)
		r.exportIfNeeded(mt, sym)
		for i, m := range n.Members {
			msym := &Symbol{Name: n.Name + "." + m.Name, ScopeID: global.ID, Kind: KindEnumMember, TypeID: enumID, Span: m.Span(), EnumOrdinal: i}
			r.declareOrDuplicate(global, msym)
		}
	case *ast.MapDecl:
		r.declareMap(n, global, exported, mt)
	case *ast.Function:
		r.declareFunction(n, global, exported, mt)
	}
}

func (r *Resolver) declareOrDuplicate(scope *Scope, sym *Symbol) *Symbol {
	if existing, ok := scope.Declare(sym); !ok {
		r.sink.Add(source.New(source.Error, source.ErrDuplicateDeclaration, sym.Span,
			fmt.Sprintf("%q is already declared", sym.Name)).
			WithRelated(existing.Span, fmt.Sprintf("previous declaration of %q", sym.Name)))
		return existing
	}
	return sym
}

func (r *Resolver) exportIfNeeded(mt *ModuleTable, sym *Symbol) {
	if sym.IsExported {
		mt.Exports[sym.Name] = sym
	}
}

func (r *Resolver) declareVariable(n *ast.Variable, scope *Scope, exported bool, mt *ModuleTable) {
	tid := r.resolveTypeExpr(n.Type, scope)
	storage := storageFromAST(n.Storage)

	sym := &Symbol{Name: n.Name, ScopeID: scope.ID, Kind: KindVariable, TypeID: tid, Storage: storage, Span: n.Span(), IsExported: exported}

	if storage != StorageNone {
		sz := r.sizeOf(tid)
		region, diag := r.planner.PlaceVariable(n.Name, storage, sz, sym.MapFixedAddr, sym.HasFixedAddr, n.Span())
		if diag != nil {
			r.sink.Add(*diag)
		} else {
			sym.MapFixedAddr = region.Start
		}
	}

	r.declareOrDuplicate(scope, sym)
	r.exportIfNeeded(mt, sym)
}

func (r *Resolver) declareConst(n *ast.Const, scope *Scope, exported bool, mt *ModuleTable) {
	tid := r.resolveTypeExpr(n.Type, scope)
	sym := &Symbol{Name: n.Name, ScopeID: scope.ID, Kind: KindConst, TypeID: tid, Span: n.Span(), IsExported: exported}
	r.declareOrDuplicate(scope, sym)
	r.exportIfNeeded(mt, sym)
}

func (r *Resolver) declareMap(n *ast.MapDecl, global *Scope, exported bool, mt *ModuleTable) {
	switch n.Form {
	case ast.MapSimple, ast.MapRange:
		tid := r.resolveTypeExpr(n.Type, global)
		sz := r.sizeOf(tid)
		if n.Form == ast.MapRange {
			sz = rangeLength(n.Address)
		}
		addr := literalAddress(n.Address.At)
		if n.Form == ast.MapRange {
			addr = literalAddress(n.Address.From)
		}
		sym := &Symbol{
			Name: n.Name, ScopeID: global.ID, Kind: KindVariable, TypeID: tid, Storage: StorageMap,
			Span: n.Span(), IsExported: exported, HasFixedAddr: true, MapFixedAddr: addr,
		}
		if _, diag := r.planner.PlaceVariable(n.Name, StorageMap, sz, addr, true, n.Span()); diag != nil {
			r.sink.Add(*diag)
		}
		r.declareOrDuplicate(global, sym)
		r.exportIfNeeded(mt, sym)
	case ast.MapSequentialStruct, ast.MapLayoutStruct:
		cursor := 0
		if n.Form == ast.MapLayoutStruct {
			for _, f := range n.Fields {
				if f.Address != nil {
					cursor = literalAddress(f.Address.At)
					break
				}
			}
		}
		for _, f := range n.Fields {
			ftid := r.resolveTypeExpr(f.Type, global)
			fsz := r.sizeOf(ftid)
			addr := cursor
			if f.Address != nil {
				addr = literalAddress(f.Address.At)
			}
			fullName := n.Name + "." + f.Name
			fsym := &Symbol{
				Name: fullName, ScopeID: global.ID, Kind: KindMapField, TypeID: ftid, Storage: StorageMap,
				Span: f.Span(), HasFixedAddr: true, MapFixedAddr: addr,
			}
			if _, diag := r.planner.PlaceVariable(fullName, StorageMap, fsz, addr, true, f.Span()); diag != nil {
				r.sink.Add(*diag)
			}
			r.declareOrDuplicate(global, fsym)
			cursor = addr + fsz
		}
		groupSym := &Symbol{Name: n.Name, ScopeID: global.ID, Kind: KindMapField, Span: n.Span(), IsExported: exported}
		r.declareOrDuplicate(global, groupSym)
		r.exportIfNeeded(mt, groupSym)
	}
}

func (r *Resolver) declareFunction(n *ast.Function, global *Scope, exported bool, mt *ModuleTable) {
	paramIDs := make([]types.ID, len(n.Params))
	for i, p := range n.Params {
		paramIDs[i] = r.resolveTypeExpr(p.Type, global)
	}
	retID := r.types.Void()
	if n.ReturnType != nil {
		retID = r.resolveTypeExpr(n.ReturnType, global)
	}
	fnType := r.types.Function(paramIDs, retID, n.IsCallback)

	sym := &Symbol{Name: n.Name, ScopeID: global.ID, Kind: KindFunction, TypeID: fnType, Span: n.Span(), IsExported: exported}

	if existing, ok := global.LookupLocal(n.Name); ok && existing.Kind == KindFunction && n.Body != nil {
		// Forward-declaration redefinition: allowed exactly once.
		global.Replace(sym)
	} else {
		r.declareOrDuplicate(global, sym)
	}
	r.exportIfNeeded(mt, sym)
}

func storageFromAST(s ast.StorageClass) Storage {
	switch s {
	case ast.StorageZP:
		return StorageZP
	case ast.StorageRAM:
		return StorageRAM
	case ast.StorageData:
		return StorageData
	case ast.StorageMap:
		return StorageMap
	default:
		return StorageNone
	}
}

// literalAddress extracts the address from a constant-folded `at`
// expression. The full constant-folding pass belongs to the dataflow
// suite and the IL builder; here we only need the common case of a bare
// integer literal (`@map vic at $D020: byte;`). Anything more elaborate
// yields address zero; no later pass reports it.
func literalAddress(e ast.Expr) int {
	if lit, ok := e.(*ast.Literal); ok && lit.Kind == ast.LitInt {
		return int(lit.Int)
	}
	return 0
}

func rangeLength(addr *ast.MapAddress) int {
	if addr == nil {
		return 1
	}
	from := literalAddress(addr.From)
	to := literalAddress(addr.To)
	if to < from {
		return 1
	}
	return to - from + 1
}

// resolveTypeExpr resolves a syntactic TypeExpr to an interned types.ID,
// looking named types up against the module's global scope (primitives
// first, then locally declared aliases/enums).
func (r *Resolver) resolveTypeExpr(te ast.TypeExpr, scope *Scope) types.ID {
	switch t := te.(type) {
	case *ast.NamedType:
		switch t.Name {
		case "byte":
			return r.types.Byte()
		case "word":
			return r.types.Word()
		case "bool":
			return r.types.Bool()
		case "void":
			return r.types.Void()
		case "address":
			return r.types.Address()
		default:
			if sym, ok := scope.Lookup(t.Name); ok && (sym.Kind == KindType || sym.Kind == KindEnum) {
				return sym.TypeID
			}
			r.sink.Add(source.New(source.Error, source.ErrUndefinedIdentifier, t.Span(),
				fmt.Sprintf("undefined type %q", t.Name)))
			return r.types.Void()
		}
	case *ast.ArrayType:
		elem := r.resolveTypeExpr(t.Elem, scope)
		size := literalAddress(t.Size)
		return r.types.Array(elem, size)
	default:
		return r.types.Void()
	}
}

// sizeOf returns a type's size in bytes on a 6502 target: 1 for byte/bool,
// 2 for word/address/function-pointer, element*count for arrays.
func (r *Resolver) sizeOf(id types.ID) int {
	ty := r.types.Get(r.types.Resolve(id))
	if ty == nil {
		return 0
	}
	switch ty.Kind {
	case types.KindByte, types.KindBool:
		return 1
	case types.KindWord, types.KindAddress, types.KindFunction:
		return 2
	case types.KindEnum:
		return 1 // enums are byte-backed
	case types.KindArray:
		return r.sizeOf(ty.Elem) * ty.Size
	case types.KindString:
		return ty.StrLen
	default:
		return 0
	}
}

// resolvePass is pass two: walk every function body, opening a child scope
// per block, resolving identifiers, and flagging uses of undeclared names.
func (r *Resolver) resolvePass(mod *ast.Module, global *Scope) {
	for _, d := range mod.Decls {
		r.resolveDeclBody(d, global)
	}
}

func (r *Resolver) resolveDeclBody(d ast.Decl, global *Scope) {
	switch n := d.(type) {
	case *ast.Export:
		r.resolveDeclBody(n.Inner, global)
	case *ast.Function:
		if n.Body == nil {
			return
		}
		fnScope := r.newScope(global)
		for _, p := range n.Params {
			fnScope.Declare(&Symbol{Name: p.Name, ScopeID: fnScope.ID, Kind: KindParameter, Span: p.Span()})
		}
		r.resolveBlock(n.Body, fnScope)
	}
}

func (r *Resolver) resolveBlock(b *ast.Block, parent *Scope) *Scope {
	scope := r.newScope(parent)
	for _, s := range b.Stmts {
		r.resolveStmt(s, scope)
	}
	return scope
}

func (r *Resolver) resolveStmt(s ast.Stmt, scope *Scope) {
	switch n := s.(type) {
	case *ast.Block:
		r.resolveBlock(n, scope)
	case *ast.VarDeclStmt:
		tid := r.resolveTypeExpr(n.Decl.Type, scope)
		sym := &Symbol{Name: n.Decl.Name, ScopeID: scope.ID, Kind: KindVariable, TypeID: tid, Span: n.Decl.Span()}
		r.declareOrDuplicate(scope, sym)
		if n.Decl.Init != nil {
			r.resolveExpr(n.Decl.Init, scope)
		}
	case *ast.ConstDeclStmt:
		tid := r.resolveTypeExpr(n.Decl.Type, scope)
		sym := &Symbol{Name: n.Decl.Name, ScopeID: scope.ID, Kind: KindConst, TypeID: tid, Span: n.Decl.Span()}
		r.declareOrDuplicate(scope, sym)
		if n.Decl.Init != nil {
			r.resolveExpr(n.Decl.Init, scope)
		}
	case *ast.ExprStmt:
		r.resolveExpr(n.X, scope)
	case *ast.Assign:
		r.resolveExpr(n.LHS, scope)
		r.resolveExpr(n.RHS, scope)
	case *ast.If:
		r.resolveExpr(n.Cond, scope)
		r.resolveBlock(n.Then, scope)
		if n.Else != nil {
			r.resolveStmt(n.Else, scope)
		}
	case *ast.While:
		r.resolveExpr(n.Cond, scope)
		r.resolveBlock(n.Body, scope)
	case *ast.DoWhile:
		r.resolveBlock(n.Body, scope)
		r.resolveExpr(n.Cond, scope)
	case *ast.For:
		loopScope := r.newScope(scope)
		loopScope.Declare(&Symbol{Name: n.Var, ScopeID: loopScope.ID, Kind: KindVariable, TypeID: r.types.Byte(), Span: n.Span()})
		r.resolveExpr(n.From, scope)
		r.resolveExpr(n.Limit, scope)
		if n.Step != nil {
			r.resolveExpr(n.Step, scope)
		}
		r.resolveBlock(n.Body, loopScope)
	case *ast.Switch:
		r.resolveExpr(n.Subject, scope)
		for _, c := range n.Cases {
			for _, v := range c.Values {
				r.resolveExpr(v, scope)
			}
			caseScope := r.newScope(scope)
			for _, cs := range c.Body {
				r.resolveStmt(cs, caseScope)
			}
		}
	case *ast.Return:
		if n.Value != nil {
			r.resolveExpr(n.Value, scope)
		}
	}
}

func (r *Resolver) resolveExpr(e ast.Expr, scope *Scope) {
	switch n := e.(type) {
	case *ast.Identifier:
		if _, ok := scope.Lookup(n.Name); !ok {
			r.sink.Add(source.New(source.Error, source.ErrUndefinedIdentifier, n.Span(),
				fmt.Sprintf("undefined identifier %q", n.Name)))
		}
	case *ast.Call:
		// Intrinsics and the byte()/word() casts are declared in no scope;
		// the type checker recognizes them by name.
		ident, isIdent := n.Callee.(*ast.Identifier)
		if !isIdent || !(token.Intrinsics[ident.Name] || ident.Name == "byte" || ident.Name == "word") {
			r.resolveExpr(n.Callee, scope)
		}
		for _, a := range n.Args {
			r.resolveExpr(a, scope)
		}
	case *ast.Index:
		r.resolveExpr(n.Base, scope)
		r.resolveExpr(n.Index, scope)
	case *ast.Member:
		r.resolveExpr(n.Base, scope)
		// n.Name is resolved against the base's member set by the type
		// checker, which has the aggregate's field list in hand.
	case *ast.Unary:
		r.resolveExpr(n.X, scope)
	case *ast.Binary:
		r.resolveExpr(n.LHS, scope)
		r.resolveExpr(n.RHS, scope)
	case *ast.Ternary:
		r.resolveExpr(n.Cond, scope)
		r.resolveExpr(n.Then, scope)
		r.resolveExpr(n.Else, scope)
	case *ast.ArrayLiteral:
		for _, el := range n.Elems {
			r.resolveExpr(el, scope)
		}
	case *ast.AddressOf:
		r.resolveExpr(n.Operand, scope)
	}
}

// LinkImports resolves every module's Import symbols against the export
// tables of the modules it imports from, producing E_UNRESOLVED_IMPORT for
// names that don't exist in the target module's export set. This is the
// hook the module coordinator's graph calls once every module in a program
// has been through ResolveModule.
func LinkImports(modules map[string]*ModuleTable, sink *source.Sink) {
	for _, mt := range modules {
		for _, sym := range mt.Global.All() {
			if sym.Kind != KindImport {
				continue
			}
			target, ok := modules[sym.OwningModule]
			if !ok {
				sink.Add(source.New(source.Error, source.ErrUnresolvedImport, sym.Span,
					fmt.Sprintf("module %q not found", sym.OwningModule)))
				continue
			}
			exported, ok := target.Exports[sym.Name]
			if !ok {
				sink.Add(source.New(source.Error, source.ErrUnresolvedImport, sym.Span,
					fmt.Sprintf("%q is not exported by module %q", sym.Name, sym.OwningModule)))
				continue
			}
			sym.TypeID = exported.TypeID
			sym.Kind = exported.Kind
			sym.Storage = exported.Storage
			sym.MapFixedAddr = exported.MapFixedAddr
			sym.HasFixedAddr = exported.HasFixedAddr
		}
	}
}
