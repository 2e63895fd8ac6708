package parser

import (
	"fmt"
	"math"
	"strconv"

	"github.com/xplshn/pp07/pkg/ast"
	"github.com/xplshn/pp07/pkg/config"
	"github.com/xplshn/pp07/pkg/token"
	"github.com/xplshn/pp07/pkg/util"
)

// Parser holds the state for the parsing process
type Parser struct {
	tokens   []token.Token
	pos      int
	current  token.Token
	previous token.Token
	tree     *ast.Tree
	cfg      *config.Config
	depth    int
}

// NewParser creates and initializes a new Parser from a token stream ending in EOF
func NewParser(tokens []token.Token, cfg *config.Config) *Parser {
	p := &Parser{tokens: tokens, tree: ast.NewTree(), cfg: cfg}
	if len(tokens) > 0 {
		p.current = p.tokens[0]
	}
	return p
}

// syntaxError unwinds the parser to Parse
type syntaxError struct{ diag *util.Diagnostic }

// Parser helpers
func (p *Parser) advance() {
	if p.pos < len(p.tokens) {
		p.previous = p.current
		p.pos++
		if p.pos < len(p.tokens) {
			p.current = p.tokens[p.pos]
		}
	}
}

func (p *Parser) peek() token.Token {
	if p.pos+1 < len(p.tokens) {
		return p.tokens[p.pos+1]
	}
	return p.tokens[len(p.tokens)-1]
}

func (p *Parser) check(tokType token.Type) bool {
	return p.current.Type == tokType
}

func (p *Parser) match(tokType token.Type) bool {
	if !p.check(tokType) {
		return false
	}
	p.advance()
	return true
}

func (p *Parser) expect(tokType token.Type, message string) token.Token {
	if p.check(tokType) {
		p.advance()
		return p.previous
	}
	p.fail(p.current, "%s", message)
	return token.Token{}
}

func (p *Parser) fail(tok token.Token, format string, args ...interface{}) {
	panic(syntaxError{util.NewDiagnostic(util.SyntaxStructure, tok, format, args...)})
}

func (p *Parser) require(feat config.Feature, tok token.Token, what string) {
	if !p.cfg.IsFeatureEnabled(feat) {
		p.fail(tok, "%s requires the '%s' feature", what, p.cfg.Features[feat].Name)
	}
}

// Expression Parsing
func getBinaryOpPrecedence(op token.Type) int {
	switch op {
	case token.StarStar:
		return 7
	case token.Star, token.Slash, token.Rem:
		return 6
	case token.Plus, token.Minus:
		return 5
	case token.Lt, token.Gt, token.Lte, token.Gte:
		return 4
	case token.EqEq, token.Neq:
		return 3
	case token.AndAnd:
		return 2
	case token.OrOr:
		return 1
	default:
		return -1
	}
}

func isRightAssoc(op token.Type) bool { return op == token.StarStar }

func (p *Parser) parsePrimaryExpr() *ast.Node {
	tok := p.current
	switch {
	case p.match(token.Number):
		return p.numberLiteral(tok, false)
	case p.match(token.Char):
		return p.tree.NewChar(tok, []rune(p.previous.Value)[0])
	case p.match(token.True):
		return p.tree.NewBool(tok, true)
	case p.match(token.False):
		return p.tree.NewBool(tok, false)
	case p.match(token.Ident):
		name := p.previous.Value
		if p.match(token.LParen) {
			return p.tree.NewFuncCall(tok, name, p.parseArgs())
		}
		return p.tree.NewIdent(tok, name)
	case p.match(token.Join):
		p.require(config.FeatConcurrency, tok, "'join'")
		return p.tree.NewJoin(tok, p.parseParenIdent("join"))
	case p.match(token.Locked):
		p.require(config.FeatConcurrency, tok, "'locked'")
		return p.tree.NewLocked(tok, p.parseParenIdent("locked"))
	case p.match(token.LParen):
		expr := p.parseExpr()
		p.expect(token.RParen, "Expected ')' after expression.")
		return p.tree.NewParen(tok, expr)
	}
	p.fail(tok, "Expected an expression, found '%s'.", tok.Type)
	return nil
}

// parseArgs is entered after '(' and consumes the closing ')'
func (p *Parser) parseArgs() []*ast.Node {
	var args []*ast.Node
	if !p.check(token.RParen) {
		for {
			args = append(args, p.parseExpr())
			if !p.match(token.Comma) {
				break
			}
		}
	}
	p.expect(token.RParen, "Expected ')' after arguments.")
	return args
}

func (p *Parser) parseParenIdent(what string) string {
	p.expect(token.LParen, fmt.Sprintf("Expected '(' after '%s'.", what))
	name := p.expect(token.Ident, fmt.Sprintf("Expected an identifier in '%s'.", what)).Value
	p.expect(token.RParen, fmt.Sprintf("Expected ')' after '%s' identifier.", what))
	return name
}

func (p *Parser) parseUnaryExpr() *ast.Node {
	tok := p.current
	if p.match(token.Not) || p.match(token.Minus) {
		op := p.previous.Type
		if op == token.Minus && p.current.Type == token.Number {
			numTok := p.current
			p.advance()
			return p.tree.NewUnaryOp(tok, op, p.numberLiteral(numTok, true))
		}
		return p.tree.NewUnaryOp(tok, op, p.parseUnaryExpr())
	}
	return p.parsePrimaryExpr()
}

// numberLiteral converts a Number token. The magnitude of INT_MIN
// is accepted only when the literal is negated directly.
func (p *Parser) numberLiteral(tok token.Token, negated bool) *ast.Node {
	val, err := strconv.ParseInt(tok.Value, 10, 64)
	if err != nil {
		p.fail(tok, "Invalid number literal: %s", tok.Value)
	}
	if val > math.MaxInt32 && !(negated && val == -math.MinInt32) {
		p.fail(tok, "Integer constant out of range: %s", tok.Value)
	}
	return p.tree.NewNumber(tok, val)
}

func (p *Parser) parseBinaryExpr(minPrec int) *ast.Node {
	left := p.parseUnaryExpr()
	for {
		op := p.current.Type
		prec := getBinaryOpPrecedence(op)
		if prec < minPrec {
			break
		}
		opTok := p.current
		p.advance()
		next := prec + 1
		if isRightAssoc(op) {
			next = prec
		}
		right := p.parseBinaryExpr(next)
		left = p.tree.NewBinaryOp(opTok, op, left, right)
	}
	return left
}

func (p *Parser) parseExpr() *ast.Node { return p.parseBinaryExpr(1) }

// Statement Parsing
func (p *Parser) parseBlockStmt() *ast.Node {
	tok := p.expect(token.LBrace, "Expected '{' to start a block.")
	p.depth++
	var stmts []*ast.Node
	for !p.check(token.RBrace) && !p.check(token.EOF) {
		stmts = append(stmts, p.parseStmt())
	}
	p.expect(token.RBrace, "Expected '}' to close a block.")
	p.depth--
	return p.tree.NewBlock(tok, stmts)
}

func (p *Parser) parseTypeSpec() *ast.Node {
	tok := p.current
	switch {
	case p.match(token.Int):
		return p.tree.NewTypeSpec(tok, ast.INT)
	case p.match(token.Bool):
		return p.tree.NewTypeSpec(tok, ast.BOOL)
	case p.match(token.Void):
		return p.tree.NewTypeSpec(tok, ast.VOID)
	}
	p.fail(tok, "Expected a type, found '%s'.", tok.Type)
	return nil
}

func (p *Parser) parseStmt() *ast.Node {
	tok := p.current
	switch {
	case tok.Type.IsTypeKeyword():
		return p.parseDeclOrFunc(false)
	case p.check(token.Global):
		p.require(config.FeatGlobals, tok, "'global'")
		p.advance()
		return p.parseDeclOrFunc(true)
	case p.check(token.Enum):
		p.require(config.FeatEnums, tok, "'enum'")
		return p.parseEnum()
	case p.check(token.If):
		return p.parseIf()
	case p.match(token.While):
		p.expect(token.LParen, "Expected '(' after 'while'.")
		cond := p.parseExpr()
		p.expect(token.RParen, "Expected ')' after while condition.")
		return p.tree.NewWhile(tok, cond, p.parseBlockStmt())
	case p.check(token.LBrace):
		return p.parseBlockStmt()
	case p.match(token.Run):
		p.require(config.FeatConcurrency, tok, "'run'")
		name := p.expect(token.Ident, "Expected a run identifier after 'run'.").Value
		p.expect(token.Eq, "Expected '=' after run identifier.")
		fn := p.expect(token.Ident, "Expected a function name in run statement.").Value
		p.expect(token.LParen, "Expected '(' after function name.")
		args := p.parseArgs()
		p.expect(token.Semi, "Expected ';' after run statement.")
		return p.tree.NewRun(tok, name, fn, args)
	case p.match(token.Lock):
		p.require(config.FeatConcurrency, tok, "'lock'")
		name := p.expect(token.Ident, "Expected a lock name after 'lock'.").Value
		p.expect(token.Semi, "Expected ';' after lock statement.")
		return p.tree.NewLock(tok, name)
	case p.match(token.Unlock):
		p.require(config.FeatConcurrency, tok, "'unlock'")
		name := p.expect(token.Ident, "Expected a lock name after 'unlock'.").Value
		p.expect(token.Semi, "Expected ';' after unlock statement.")
		return p.tree.NewUnlock(tok, name)
	case p.match(token.Return):
		var expr *ast.Node
		if !p.check(token.Semi) {
			expr = p.parseExpr()
		}
		p.expect(token.Semi, "Expected ';' after return statement.")
		return p.tree.NewReturn(tok, expr)
	case p.check(token.Ident) && p.peek().Type == token.Eq:
		p.advance()
		p.advance()
		expr := p.parseExpr()
		p.expect(token.Semi, "Expected ';' after assignment.")
		return p.tree.NewAssign(tok, tok.Value, expr)
	}
	expr := p.parseExpr()
	p.expect(token.Semi, "Expected ';' after expression statement.")
	return p.tree.NewExprStmt(tok, expr)
}

func (p *Parser) parseIf() *ast.Node {
	tok := p.expect(token.If, "Expected 'if'.")
	p.expect(token.LParen, "Expected '(' after 'if'.")
	cond := p.parseExpr()
	p.expect(token.RParen, "Expected ')' after if condition.")
	thenBody := p.parseBlockStmt()
	var elseBody *ast.Node
	if p.match(token.Else) {
		if p.check(token.If) {
			elseTok := p.current
			p.depth++
			nested := p.parseIf()
			p.depth--
			elseBody = p.tree.NewBlock(elseTok, []*ast.Node{nested})
		} else {
			elseBody = p.parseBlockStmt()
		}
	}
	return p.tree.NewIf(tok, cond, thenBody, elseBody)
}

func (p *Parser) parseEnum() *ast.Node {
	tok := p.expect(token.Enum, "Expected 'enum'.")
	name := p.expect(token.Ident, "Expected an enum name.").Value
	p.expect(token.LBrace, "Expected '{' after enum name.")
	var members []string
	for {
		members = append(members, p.expect(token.Ident, "Expected an enum member.").Value)
		if !p.match(token.Comma) {
			break
		}
	}
	p.expect(token.RBrace, "Expected '}' after enum members.")
	p.expect(token.Semi, "Expected ';' after enum declaration.")
	return p.tree.NewEnumDecl(tok, name, members)
}

// parseDeclOrFunc parses from the type keyword on. isGlobal is set when a
// 'global' prefix has already been consumed.
func (p *Parser) parseDeclOrFunc(isGlobal bool) *ast.Node {
	tok := p.current
	typeSpec := p.parseTypeSpec()
	nameTok := p.expect(token.Ident, "Expected an identifier after type.")

	if p.check(token.LParen) {
		if isGlobal {
			p.fail(tok, "Function declarations cannot be 'global'.")
		}
		if p.depth > 0 {
			p.fail(nameTok, "Function %s must be declared at top level.", nameTok.Value)
		}
		return p.parseFuncDecl(tok, nameTok, typeSpec)
	}

	var init *ast.Node
	if p.match(token.Eq) {
		init = p.parseExpr()
	}
	p.expect(token.Semi, "Expected ';' after variable declaration.")
	return p.tree.NewVarDecl(tok, nameTok.Value, typeSpec, isGlobal, init)
}

func (p *Parser) parseFuncDecl(tok, nameTok token.Token, returnType *ast.Node) *ast.Node {
	p.expect(token.LParen, "Expected '(' after function name.")
	var params []*ast.Node
	if !p.check(token.RParen) {
		for {
			paramTok := p.current
			typeSpec := p.parseTypeSpec()
			name := p.expect(token.Ident, "Expected a parameter name.").Value
			params = append(params, p.tree.NewParam(paramTok, name, typeSpec))
			if !p.match(token.Comma) {
				break
			}
		}
	}
	p.expect(token.RParen, "Expected ')' after parameters.")
	body := p.parseBlockStmt()
	return p.tree.NewFuncDecl(tok, nameTok.Value, returnType, params, body)
}

// Parse consumes the whole token stream. The first syntax error aborts parsing
// and is returned as a *util.Diagnostic.
func (p *Parser) Parse() (tree *ast.Tree, err error) {
	defer func() {
		if r := recover(); r != nil {
			se, ok := r.(syntaxError)
			if !ok {
				panic(r)
			}
			tree, err = nil, se.diag
		}
	}()
	if len(p.tokens) == 0 {
		p.tokens = []token.Token{{Type: token.EOF}}
		p.current = p.tokens[0]
	}
	tok := p.current
	var stmts []*ast.Node
	for !p.check(token.EOF) {
		stmts = append(stmts, p.parseStmt())
	}
	p.tree.NewProgram(tok, stmts)
	return p.tree, nil
}
