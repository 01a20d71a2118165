package formula

import (
	"sort"
	"strings"
)

const (
	// DefaultMaxLength bounds the formula source size in bytes.
	DefaultMaxLength = 1024
	maxDepth         = 64
)

// Expr is a validated expression tree bound to the channel set it was parsed against.
// It holds no per-request data and is safe for concurrent use.
type Expr struct {
	src  string
	root node
	refs []string
}

// Option configures Parse.
type Option func(*parseConfig)

type parseConfig struct {
	maxLength int
}

// WithMaxLength overrides DefaultMaxLength. Non-positive values are ignored.
func WithMaxLength(n int) Option {
	return func(c *parseConfig) {
		if n > 0 {
			c.maxLength = n
		}
	}
}

// Parse validates src against the restricted grammar and resolves every identifier to one
// of channels or an allow-listed function. It never evaluates anything.
//
//	expr    := term   (('+' | '-') term)*
//	term    := unary  (('*' | '/') unary)*
//	unary   := '-' unary | power
//	power   := primary ('**' unary)?
//	primary := number | channel | func '(' expr ')' | '(' expr ')'
func Parse(src string, channels []string, opts ...Option) (*Expr, error) {
	cfg := parseConfig{maxLength: DefaultMaxLength}
	for _, opt := range opts {
		opt(&cfg)
	}
	if strings.TrimSpace(src) == "" {
		return nil, invalid("", -1, "formula is empty")
	}
	if len(src) > cfg.maxLength {
		return nil, invalid("", -1, "formula exceeds %d bytes", cfg.maxLength)
	}

	toks, err := lex(src)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks, names: newResolver(channels), refs: map[string]struct{}{}}
	root, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if t := p.peek(); t.kind != tokEOF {
		return nil, invalid(t.text, t.pos, "unexpected token")
	}

	refs := make([]string, 0, len(p.refs))
	for id := range p.refs {
		refs = append(refs, id)
	}
	sort.Strings(refs)
	return &Expr{src: src, root: root, refs: refs}, nil
}

// Source returns the formula text as given to Parse.
func (e *Expr) Source() string { return e.src }

// Channels returns the channel ids referenced by the formula, sorted.
func (e *Expr) Channels() []string {
	out := make([]string, len(e.refs))
	copy(out, e.refs)
	return out
}

// String renders the tree fully parenthesized.
func (e *Expr) String() string { return e.root.String() }

type parser struct {
	toks  []token
	i     int
	depth int
	names *resolver
	refs  map[string]struct{}
}

func (p *parser) peek() token { return p.toks[p.i] }

func (p *parser) next() token {
	t := p.toks[p.i]
	if t.kind != tokEOF {
		p.i++
	}
	return t
}

func (p *parser) enter(t token) error {
	p.depth++
	if p.depth > maxDepth {
		return invalid(t.text, t.pos, "expression nested deeper than %d levels", maxDepth)
	}
	return nil
}

func (p *parser) leave() { p.depth-- }

func (p *parser) parseExpr() (node, error) {
	left, err := p.parseTerm()
	if err != nil {
		return nil, err
	}
	for {
		var op *binaryOp
		switch p.peek().kind {
		case tokPlus:
			op = opAdd
		case tokMinus:
			op = opSub
		default:
			return left, nil
		}
		p.next()
		right, err := p.parseTerm()
		if err != nil {
			return nil, err
		}
		left = &binaryNode{op: op, l: left, r: right}
	}
}

func (p *parser) parseTerm() (node, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		var op *binaryOp
		switch p.peek().kind {
		case tokStar:
			op = opMul
		case tokSlash:
			op = opDiv
		default:
			return left, nil
		}
		p.next()
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = &binaryNode{op: op, l: left, r: right}
	}
}

func (p *parser) parseUnary() (node, error) {
	t := p.peek()
	if t.kind != tokMinus {
		return p.parsePower()
	}
	p.next()
	if err := p.enter(t); err != nil {
		return nil, err
	}
	defer p.leave()
	x, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	return &negNode{x: x}, nil
}

func (p *parser) parsePower() (node, error) {
	base, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	t := p.peek()
	if t.kind != tokPow {
		return base, nil
	}
	p.next()
	if err := p.enter(t); err != nil {
		return nil, err
	}
	defer p.leave()
	exp, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	return &binaryNode{op: opPow, l: base, r: exp}, nil
}

func (p *parser) parsePrimary() (node, error) {
	t := p.next()
	switch t.kind {
	case tokNumber:
		return &numberNode{v: t.num}, nil
	case tokIdent:
		if p.peek().kind == tokLParen {
			return p.parseCall(t)
		}
		return p.parseChannel(t)
	case tokLParen:
		if err := p.enter(t); err != nil {
			return nil, err
		}
		defer p.leave()
		x, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if c := p.next(); c.kind != tokRParen {
			return nil, unexpected(c, "expected ')'")
		}
		return x, nil
	default:
		return nil, unexpected(t, "expected a number, channel, function call or '('")
	}
}

func (p *parser) parseChannel(t token) (node, error) {
	id, err := p.names.resolve(t)
	if err != nil {
		return nil, err
	}
	p.refs[id] = struct{}{}
	return &channelNode{id: id}, nil
}

func (p *parser) parseCall(name token) (node, error) {
	fn, ok := functions[name.text]
	if !ok {
		return nil, invalid(name.text, name.pos, "unknown function, allowed: %s", strings.Join(Functions(), ", "))
	}
	open := p.next()
	if err := p.enter(open); err != nil {
		return nil, err
	}
	defer p.leave()

	var args []node
	if p.peek().kind != tokRParen {
		for {
			arg, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			args = append(args, arg)
			if p.peek().kind != tokComma {
				break
			}
			p.next()
		}
	}
	if c := p.next(); c.kind != tokRParen {
		return nil, unexpected(c, "expected ')' to close %s(", fn.name)
	}
	if len(args) != 1 {
		return nil, invalid(name.text, name.pos, "%s takes exactly 1 argument, got %d", fn.name, len(args))
	}
	if fn.reduce != nil && !args[0].series() {
		return nil, invalid(name.text, name.pos, "%s requires a channel series argument", fn.name)
	}
	return &callNode{fn: fn, arg: args[0]}, nil
}

func unexpected(t token, format string, args ...any) *InvalidFormulaError {
	if t.kind == tokEOF {
		return invalid("", -1, "unexpected end of formula, "+format, args...)
	}
	return invalid(t.text, t.pos, "unexpected token, "+format, args...)
}

// resolver maps formula identifiers to requested channel ids. A channel id containing '-'
// can also be written with '_' in its place, unless that alias is ambiguous.
type resolver struct {
	exact     map[string]struct{}
	alias     map[string]string
	ambiguous map[string]struct{}
}

func newResolver(channels []string) *resolver {
	r := &resolver{
		exact:     make(map[string]struct{}, len(channels)),
		alias:     make(map[string]string),
		ambiguous: make(map[string]struct{}),
	}
	for _, id := range channels {
		r.exact[id] = struct{}{}
	}
	for _, id := range channels {
		a := strings.ReplaceAll(id, "-", "_")
		if a == id {
			continue
		}
		if _, clash := r.exact[a]; clash {
			continue
		}
		if prev, dup := r.alias[a]; dup && prev != id {
			r.ambiguous[a] = struct{}{}
			continue
		}
		r.alias[a] = id
	}
	for a := range r.ambiguous {
		delete(r.alias, a)
	}
	return r
}

func (r *resolver) resolve(t token) (string, error) {
	if _, ok := r.exact[t.text]; ok {
		return t.text, nil
	}
	if id, ok := r.alias[t.text]; ok {
		return id, nil
	}
	if _, ok := r.ambiguous[t.text]; ok {
		return "", invalid(t.text, t.pos, "identifier matches more than one requested channel")
	}
	if _, ok := functions[t.text]; ok {
		return "", invalid(t.text, t.pos, "function must be called with one argument")
	}
	return "", invalid(t.text, t.pos, "unknown identifier, not a requested channel")
}
