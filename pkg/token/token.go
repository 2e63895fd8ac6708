package token

type Type int

const (
	EOF Type = iota
	Ident
	Number
	Char

	// Keywords
	Int
	Bool
	Void
	Global
	Enum
	If
	Else
	While
	Return
	Run
	Join
	Lock
	Unlock
	Locked
	True
	False

	// Punctuation
	LParen
	RParen
	LBrace
	RBrace
	Semi
	Comma

	// Operators
	Eq
	Plus
	Minus
	Star
	Slash
	Rem
	StarStar
	EqEq
	Neq
	Lt
	Gt
	Lte
	Gte
	AndAnd
	OrOr
	Not
)

var KeywordMap = map[string]Type{
	"int":    Int,
	"bool":   Bool,
	"void":   Void,
	"global": Global,
	"enum":   Enum,
	"if":     If,
	"else":   Else,
	"while":  While,
	"return": Return,
	"run":    Run,
	"join":   Join,
	"lock":   Lock,
	"unlock": Unlock,
	"locked": Locked,
	"true":   True,
	"false":  False,
}

var opStrings = map[Type]string{
	LParen: "(", RParen: ")", LBrace: "{", RBrace: "}", Semi: ";", Comma: ",",
	Eq: "=", Plus: "+", Minus: "-", Star: "*", Slash: "/", Rem: "%", StarStar: "**",
	EqEq: "==", Neq: "!=", Lt: "<", Gt: ">", Lte: "<=", Gte: ">=",
	AndAnd: "&&", OrOr: "||", Not: "!",
}

// Reverse mapping from Type to the keyword string
var TypeStrings = make(map[Type]string)

func init() {
	for str, typ := range KeywordMap {
		TypeStrings[typ] = str
	}
	for typ, str := range opStrings {
		TypeStrings[typ] = str
	}
	TypeStrings[EOF] = "end of file"
	TypeStrings[Ident] = "identifier"
	TypeStrings[Number] = "number"
	TypeStrings[Char] = "character literal"
}

func (t Type) String() string {
	if s, ok := TypeStrings[t]; ok {
		return s
	}
	return "unknown"
}

// IsTypeKeyword reports whether t starts a type in a declaration
func (t Type) IsTypeKeyword() bool { return t == Int || t == Bool || t == Void }

type Token struct {
	Type      Type
	Value     string
	FileIndex int
	Line      int
	Column    int
	Len       int
}
