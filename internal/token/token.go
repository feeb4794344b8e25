// Package token defines the lexical vocabulary of Blend65 source files.
package token

import "github.com/blendsdk/blend65/internal/source"

// Kind tags a Token. The set is closed, partitioned into trivia, keywords,
// operators, punctuation, literals, storage-class markers, and EOF.
type Kind int

const (
	EOF Kind = iota
	Invalid

	// Trivia (never reaches the parser; kept here so the lexer can tag
	// skipped spans uniformly)
	Whitespace
	LineComment
	BlockComment

	// Literals
	IntLiteral
	StringLiteral
	Identifier

	// Keywords — case-sensitive, closed set.
	KwModule
	KwImport
	KwExport
	KwFrom
	KwFunction
	KwReturn
	KwIf
	KwElse
	KwWhile
	KwDo
	KwFor
	KwTo
	KwDownto
	KwStep
	KwSwitch
	KwCase
	KwDefault
	KwBreak
	KwContinue
	KwType
	KwEnum
	KwLet
	KwConst
	KwEnd
	KwByte
	KwWord
	KwVoid
	KwCallback
	KwString
	KwBool
	KwTrue
	KwFalse
	KwAt    // "at" — used in @map "layout" forms
	KwLayout

	// Storage-class markers
	AtZp
	AtRam
	AtData
	AtMap
	AtAddress

	// AT_SIGN — a bare '@' at expression position, disambiguated by the
	// parser into the address-of unary operator.
	AtSign

	// Operators
	Plus
	Minus
	Star
	Slash
	Percent
	Amp
	Pipe
	Caret
	Tilde
	Shl
	Shr
	AmpAmp
	PipePipe
	Bang
	Assign
	PlusAssign
	MinusAssign
	StarAssign
	SlashAssign
	Eq
	Ne
	Lt
	Le
	Gt
	Ge
	Question

	// Punctuation
	LParen
	RParen
	LBrace
	RBrace
	LBracket
	RBracket
	Comma
	Colon
	Semicolon
	Dot
)

var names = map[Kind]string{
	EOF: "EOF", Invalid: "INVALID",
	Whitespace: "WHITESPACE", LineComment: "LINE_COMMENT", BlockComment: "BLOCK_COMMENT",
	IntLiteral: "INT", StringLiteral: "STRING", Identifier: "IDENT",
	KwModule: "module", KwImport: "import", KwExport: "export", KwFrom: "from",
	KwFunction: "function", KwReturn: "return", KwIf: "if", KwElse: "else",
	KwWhile: "while", KwDo: "do", KwFor: "for", KwTo: "to", KwDownto: "downto",
	KwStep: "step", KwSwitch: "switch", KwCase: "case", KwDefault: "default",
	KwBreak: "break", KwContinue: "continue", KwType: "type", KwEnum: "enum",
	KwLet: "let", KwConst: "const", KwEnd: "end", KwByte: "byte", KwWord: "word",
	KwVoid: "void", KwCallback: "callback", KwString: "string", KwBool: "bool",
	KwTrue: "true", KwFalse: "false", KwAt: "at", KwLayout: "layout",
	AtZp: "@zp", AtRam: "@ram", AtData: "@data", AtMap: "@map", AtAddress: "@address",
	AtSign: "@",
	Plus: "+", Minus: "-", Star: "*", Slash: "/", Percent: "%",
	Amp: "&", Pipe: "|", Caret: "^", Tilde: "~", Shl: "<<", Shr: ">>",
	AmpAmp: "&&", PipePipe: "||", Bang: "!",
	Assign: "=", PlusAssign: "+=", MinusAssign: "-=", StarAssign: "*=", SlashAssign: "/=",
	Eq: "==", Ne: "!=", Lt: "<", Le: "<=", Gt: ">", Ge: ">=", Question: "?",
	LParen: "(", RParen: ")", LBrace: "{", RBrace: "}", LBracket: "[", RBracket: "]",
	Comma: ",", Colon: ":", Semicolon: ";", Dot: ".",
}

func (k Kind) String() string {
	if n, ok := names[k]; ok {
		return n
	}
	return "UNKNOWN"
}

// Keywords maps the closed keyword spelling table to Kind. Storage-class
// markers and intrinsics are handled separately: markers are lexed from a
// leading '@', intrinsics are ordinary identifiers that the resolver
// accepts as call targets without any declaration.
var Keywords = map[string]Kind{
	"module": KwModule, "import": KwImport, "export": KwExport, "from": KwFrom,
	"function": KwFunction, "return": KwReturn, "if": KwIf, "else": KwElse,
	"while": KwWhile, "do": KwDo, "for": KwFor, "to": KwTo, "downto": KwDownto,
	"step": KwStep, "switch": KwSwitch, "case": KwCase, "default": KwDefault,
	"break": KwBreak, "continue": KwContinue, "type": KwType, "enum": KwEnum,
	"let": KwLet, "const": KwConst, "end": KwEnd, "byte": KwByte, "word": KwWord,
	"void": KwVoid, "callback": KwCallback, "string": KwString, "bool": KwBool,
	"true": KwTrue, "false": KwFalse, "at": KwAt, "layout": KwLayout,
}

// StorageClasses maps the exact '@'-prefixed marker spellings this
// language accepts; any other '@word' is E_INVALID_STORAGE_CLASS.
var StorageClasses = map[string]Kind{
	"@zp": AtZp, "@ram": AtRam, "@data": AtData, "@map": AtMap, "@address": AtAddress,
}

// Intrinsics is the reserved intrinsic name set. These are ordinary IDENT
// tokens lexically; no scope declares them, and the resolver accepts them
// as callees by name.
var Intrinsics = map[string]bool{
	"peek": true, "poke": true, "peekw": true, "pokew": true,
	"sizeof": true, "length": true, "lo": true, "hi": true,
	"sei": true, "cli": true, "nop": true, "brk": true,
	"pha": true, "pla": true, "php": true, "plp": true,
	"barrier": true, "volatile_read": true, "volatile_write": true,
}

// IntWidth records which 6502 machine width an integer literal's value
// fits, per this language's width-inference rule.
type IntWidth int

const (
	WidthByte IntWidth = iota
	WidthWord
)

// Literal holds the decoded payload for literal tokens.
type Literal struct {
	IntValue    uint32
	IntWidth    IntWidth
	StringValue string
	Symbol      string // interned identifier spelling
}

// Token is one lexical unit: kind, span, and optional literal payload.
type Token struct {
	Kind    Kind
	Span    source.Span
	Literal Literal
}

// IsKeyword reports whether k is one of the closed keyword kinds.
func (t Token) IsKeyword() bool { return t.Kind >= KwModule && t.Kind <= KwLayout }
