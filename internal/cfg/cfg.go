// Package cfg builds one basic-block control-flow graph per function body:
// entry/exit markers, loop-header/back-edge detection, and unreachable-code
// marking. The dataflow suite and the IL generator both walk this graph
// rather than the raw AST.
//
// Block construction follows the same successor-discovery shape as
// chriskillpack-bbcdisasm's branchTargets pass in bbcdisasm.go: that pass
// walks a linear instruction stream and records which addresses are
// jumped to, to know where disassembly must re-synchronize; here the walk
// is over AST statements instead of decoded instructions, and "jumped to"
// becomes "begins a new block" (loop bodies, branch arms, statements after
// a branch).
package cfg

import (
	"github.com/blendsdk/blend65/internal/ast"
)

// BlockKind classifies why a block exists, used by the dataflow suite's
// loop analysis and by diagnostics.
type BlockKind int

const (
	BlockEntry BlockKind = iota
	BlockExit
	BlockOrdinary
	BlockLoopHeader
	BlockLoopBody
)

// Block is one straight-line run of statements with a single entry and a
// single set of successors.
type Block struct {
	ID         int
	Kind       BlockKind
	Stmts      []ast.Stmt
	Succ       []*Block
	Pred       []*Block
	Reachable  bool
	IsBackEdge map[*Block]bool // Succ[i] -> true when that edge is a loop back-edge
}

func newBlock(id int, kind BlockKind) *Block {
	return &Block{ID: id, Kind: kind, IsBackEdge: make(map[*Block]bool)}
}

func (b *Block) addSucc(to *Block) {
	b.Succ = append(b.Succ, to)
	to.Pred = append(to.Pred, b)
}

// Graph is one function's control-flow graph.
type Graph struct {
	Entry  *Block
	Exit   *Block
	Blocks []*Block
}

// builder holds the mutable state threaded through Build's recursive
// descent: the current block being appended to, and the function's single
// shared exit block every `return` eventually reaches.
type builder struct {
	g       *Graph
	nextID  int
	exit    *Block
	// loopExits/loopHeaders track the innermost enclosing loop for break/continue.
	loopHeaders []*Block
	loopExits   []*Block
}

func (b *builder) newBlock(kind BlockKind) *Block {
	blk := newBlock(b.nextID, kind)
	b.nextID++
	b.g.Blocks = append(b.g.Blocks, blk)
	return blk
}

// Build constructs the CFG for one function body.
func Build(body *ast.Block) *Graph {
	g := &Graph{}
	b := &builder{g: g}
	g.Entry = b.newBlock(BlockEntry)
	g.Exit = b.newBlock(BlockExit)
	b.exit = g.Exit

	cur := g.Entry
	cur = b.stmts(cur, body.Stmts)
	if cur != nil {
		cur.addSucc(g.Exit)
	}

	markReachable(g)
	markBackEdges(g)
	return g
}

// stmts appends a statement list to cur, returning the block execution
// falls through to afterward, or nil if the list always diverges (every
// path ends in return/break/continue).
func (b *builder) stmts(cur *Block, list []ast.Stmt) *Block {
	for _, s := range list {
		if cur == nil {
			// Unreachable statement: still give it a block so the dataflow
			// suite can flag it as dead code, but it has no predecessor.
			cur = b.newBlock(BlockOrdinary)
		}
		cur = b.stmt(cur, s)
	}
	return cur
}

func (b *builder) stmt(cur *Block, s ast.Stmt) *Block {
	switch n := s.(type) {
	case *ast.Block:
		return b.stmts(cur, n.Stmts)
	case *ast.If:
		return b.ifStmt(cur, n)
	case *ast.While:
		return b.whileStmt(cur, n)
	case *ast.DoWhile:
		return b.doWhileStmt(cur, n)
	case *ast.For:
		return b.forStmt(cur, n)
	case *ast.Switch:
		return b.switchStmt(cur, n)
	case *ast.Return:
		cur.Stmts = append(cur.Stmts, n)
		cur.addSucc(b.exit)
		return nil
	case *ast.Break:
		cur.Stmts = append(cur.Stmts, n)
		if len(b.loopExits) > 0 {
			cur.addSucc(b.loopExits[len(b.loopExits)-1])
		}
		return nil
	case *ast.Continue:
		cur.Stmts = append(cur.Stmts, n)
		if len(b.loopHeaders) > 0 {
			cur.addSucc(b.loopHeaders[len(b.loopHeaders)-1])
		}
		return nil
	default:
		cur.Stmts = append(cur.Stmts, s)
		return cur
	}
}

func (b *builder) ifStmt(cur *Block, n *ast.If) *Block {
	cur.Stmts = append(cur.Stmts, n)
	thenEntry := b.newBlock(BlockOrdinary)
	cur.addSucc(thenEntry)
	thenExit := b.stmts(thenEntry, n.Then.Stmts)

	join := b.newBlock(BlockOrdinary)
	if thenExit != nil {
		thenExit.addSucc(join)
	}

	if n.Else != nil {
		elseEntry := b.newBlock(BlockOrdinary)
		cur.addSucc(elseEntry)
		elseExit := b.stmt(elseEntry, n.Else)
		if elseExit != nil {
			elseExit.addSucc(join)
		}
	} else {
		cur.addSucc(join)
	}
	return join
}

func (b *builder) whileStmt(cur *Block, n *ast.While) *Block {
	header := b.newBlock(BlockLoopHeader)
	cur.addSucc(header)
	header.Stmts = append(header.Stmts, n)

	after := b.newBlock(BlockOrdinary)
	header.addSucc(after) // condition-false exit

	bodyEntry := b.newBlock(BlockLoopBody)
	header.addSucc(bodyEntry) // condition-true entry

	b.loopHeaders = append(b.loopHeaders, header)
	b.loopExits = append(b.loopExits, after)
	bodyExit := b.stmts(bodyEntry, n.Body.Stmts)
	b.loopHeaders = b.loopHeaders[:len(b.loopHeaders)-1]
	b.loopExits = b.loopExits[:len(b.loopExits)-1]

	if bodyExit != nil {
		bodyExit.addSucc(header)
	}
	return after
}

func (b *builder) doWhileStmt(cur *Block, n *ast.DoWhile) *Block {
	bodyEntry := b.newBlock(BlockLoopBody)
	cur.addSucc(bodyEntry)

	after := b.newBlock(BlockOrdinary)
	b.loopHeaders = append(b.loopHeaders, bodyEntry)
	b.loopExits = append(b.loopExits, after)
	bodyExit := b.stmts(bodyEntry, n.Body.Stmts)
	b.loopHeaders = b.loopHeaders[:len(b.loopHeaders)-1]
	b.loopExits = b.loopExits[:len(b.loopExits)-1]

	if bodyExit != nil {
		bodyExit.Stmts = append(bodyExit.Stmts, n)
		bodyExit.addSucc(bodyEntry) // back-edge: condition true
		bodyExit.addSucc(after)     // condition false
	}
	return after
}

func (b *builder) forStmt(cur *Block, n *ast.For) *Block {
	header := b.newBlock(BlockLoopHeader)
	cur.addSucc(header)
	header.Stmts = append(header.Stmts, n)

	after := b.newBlock(BlockOrdinary)
	header.addSucc(after)

	bodyEntry := b.newBlock(BlockLoopBody)
	header.addSucc(bodyEntry)

	b.loopHeaders = append(b.loopHeaders, header)
	b.loopExits = append(b.loopExits, after)
	bodyExit := b.stmts(bodyEntry, n.Body.Stmts)
	b.loopHeaders = b.loopHeaders[:len(b.loopHeaders)-1]
	b.loopExits = b.loopExits[:len(b.loopExits)-1]

	if bodyExit != nil {
		bodyExit.addSucc(header)
	}
	return after
}

func (b *builder) switchStmt(cur *Block, n *ast.Switch) *Block {
	cur.Stmts = append(cur.Stmts, n)
	join := b.newBlock(BlockOrdinary)

	hasDefault := false
	for _, clause := range n.Cases {
		entry := b.newBlock(BlockOrdinary)
		cur.addSucc(entry)
		if len(clause.Values) == 0 {
			hasDefault = true
		}
		exit := b.stmts(entry, clause.Body)
		if exit != nil {
			exit.addSucc(join)
		}
	}
	if !hasDefault {
		cur.addSucc(join)
	}
	return join
}

// markReachable runs a BFS from Entry, marking every block it visits —
// blocks left unmarked are candidates for W_DEAD_CODE (the dataflow suite
// owns emitting the diagnostic; this package only computes the flag).
func markReachable(g *Graph) {
	queue := []*Block{g.Entry}
	g.Entry.Reachable = true
	for len(queue) > 0 {
		b := queue[0]
		queue = queue[1:]
		for _, s := range b.Succ {
			if !s.Reachable {
				s.Reachable = true
				queue = append(queue, s)
			}
		}
	}
}

// markBackEdges classifies every edge to an already-visited ancestor in
// the current DFS stack as a back-edge (the standard depth-first
// white/gray/black coloring), which is how loops are identified once the
// graph is built rather than only during construction.
func markBackEdges(g *Graph) {
	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[*Block]int, len(g.Blocks))
	var visit func(b *Block)
	visit = func(b *Block) {
		color[b] = gray
		for _, s := range b.Succ {
			switch color[s] {
			case white:
				visit(s)
			case gray:
				b.IsBackEdge[s] = true
			}
		}
		color[b] = black
	}
	visit(g.Entry)
}
