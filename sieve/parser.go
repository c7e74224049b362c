package sieve

import (
	"fmt"
	"strconv"
	"strings"
)

// parser walks a pre-lexed token slice and produces a validated Script.
// It is a recursive-descent parser over an explicit token cursor: blocks
// recurse through parseCommandsUntil/parseCommand, and nested tests
// through parseTest, using the Go call stack rather than an explicit
// bracket stack.
type parser struct {
	tokens   []Token
	pos      int
	registry *Registry
	script   *Script
}

// Parse lexes and parses text against the default command registry.
func Parse(text string) (*Script, error) {
	return ParseWithRegistry(text, DefaultRegistry)
}

// ParseWithRegistry lexes and parses text against an explicitly supplied
// registry, for callers who built an isolated one with NewRegistry instead
// of registering extensions globally.
func ParseWithRegistry(text string, registry *Registry) (*Script, error) {
	lx := newLexer(text)
	tokens, err := lx.tokenize()
	if err != nil {
		return nil, err
	}
	p := &parser{tokens: tokens, registry: registry, script: newScript()}
	body, err := p.parseCommandsUntil(TokenEOF)
	if err != nil {
		return nil, err
	}
	// Top-level require statements live only in RequiredCapabilities; the
	// serializer regenerates the require line from that set.
	for _, cmd := range body {
		if cmd.Name == "require" {
			continue
		}
		cmd.Parent = nil
		p.script.Body = append(p.script.Body, cmd)
	}
	return p.script, nil
}

func (p *parser) peek() Token {
	return p.tokens[p.pos]
}

func (p *parser) advance() Token {
	tok := p.tokens[p.pos]
	if p.pos < len(p.tokens)-1 {
		p.pos++
	}
	return tok
}

func (p *parser) errorf(tok Token, format string, args ...any) error {
	return &ParseError{Line: tok.Line, Column: tok.Column, Message: fmt.Sprintf(format, args...)}
}

func (p *parser) expect(kind TokenKind) (Token, error) {
	tok := p.peek()
	if tok.Kind != kind {
		return tok, p.errorf(tok, "expected %s, found %s", kind, describeToken(tok))
	}
	return p.advance(), nil
}

func describeToken(t Token) string {
	if t.Kind == TokenEOF {
		return "end of script"
	}
	if t.Value == "" {
		return t.Kind.String()
	}
	return fmt.Sprintf("%s %q", t.Kind, t.Value)
}

// parseCommandsUntil parses statements until the next token is stop,
// enforcing MustFollow adjacency between siblings as it goes. Reaching EOF
// before stop is a ParseError.
func (p *parser) parseCommandsUntil(stop TokenKind) ([]*Command, error) {
	var list []*Command
	for {
		tok := p.peek()
		if tok.Kind == stop {
			return list, nil
		}
		if tok.Kind == TokenEOF {
			return nil, p.errorf(tok, "unexpected end of script, expected %s", stop)
		}
		cmd, err := p.parseCommand()
		if err != nil {
			return nil, err
		}
		if len(cmd.Def.MustFollow) > 0 {
			ok := len(list) > 0 && containsFold(cmd.Def.MustFollow, list[len(list)-1].Name)
			if !ok {
				return nil, &ParseError{Line: cmd.Line, Message: fmt.Sprintf("%q must immediately follow one of %v", cmd.Name, cmd.Def.MustFollow)}
			}
		}
		list = append(list, cmd)
	}
}

func containsFold(list []string, name string) bool {
	for _, l := range list {
		if strings.EqualFold(l, name) {
			return true
		}
	}
	return false
}

// parseCommand parses one statement: identifier, its arguments, and
// either a terminating ';' or a block for control commands.
func (p *parser) parseCommand() (*Command, error) {
	tok, err := p.expect(TokenIdentifier)
	if err != nil {
		return nil, err
	}
	name := strings.ToLower(tok.Value)
	def, ok := p.registry.Lookup(name)
	if !ok {
		return nil, p.errorf(tok, "unknown command %q", tok.Value)
	}
	if def.Kind == KindTest {
		return nil, p.errorf(tok, "%q is a test, not a statement", tok.Value)
	}
	if def.Extension != "" && name != "require" && !p.script.Requires(def.Extension) {
		return nil, p.errorf(tok, "command %q requires extension %q which is not declared by require", tok.Value, def.Extension)
	}

	args, err := p.parseArguments(def)
	if err != nil {
		return nil, err
	}

	cmd := &Command{Name: name, Def: def, Arguments: args, Line: tok.Line}

	if def.AcceptsBlock {
		if _, err := p.expect(TokenLeftBrace); err != nil {
			return nil, err
		}
		children, err := p.parseCommandsUntil(TokenRightBrace)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(TokenRightBrace); err != nil {
			return nil, err
		}
		for _, ch := range children {
			cmd.AddChild(ch)
		}
	} else {
		if _, err := p.expect(TokenSemicolon); err != nil {
			return nil, err
		}
	}

	if name == "require" {
		if arg, ok := cmd.Argument("capabilities"); ok {
			for _, cap := range argStrings(arg) {
				p.script.RequiredCapabilities[cap] = true
			}
		}
	}

	return cmd, nil
}

func argStrings(a Argument) []string {
	if a.String != "" {
		return []string{a.String}
	}
	return a.List
}

// parseTest parses a nested test invocation (used as an ArgTest/ArgTestList
// slot value): identifier, then its arguments per the same schema-driven
// binding as a statement, but with no ';' or block.
func (p *parser) parseTest() (*Command, error) {
	tok, err := p.expect(TokenIdentifier)
	if err != nil {
		return nil, err
	}
	name := strings.ToLower(tok.Value)
	def, ok := p.registry.Lookup(name)
	if !ok {
		return nil, p.errorf(tok, "unknown test %q", tok.Value)
	}
	if def.Kind != KindTest {
		return nil, p.errorf(tok, "%q cannot be used as a test", tok.Value)
	}
	if def.Extension != "" && !p.script.Requires(def.Extension) {
		return nil, p.errorf(tok, "test %q requires extension %q which is not declared by require", tok.Value, def.Extension)
	}
	args, err := p.parseArguments(def)
	if err != nil {
		return nil, err
	}
	return &Command{Name: name, Def: def, Arguments: args, Line: tok.Line}, nil
}

// isStopToken reports every token kind that legitimately ends an argument
// list, in every context a Sieve grammar allows one: ';' and '{' end a
// statement's own arguments, ')' and ',' end a test embedded in an
// anyof/allof list, and EOF is always a stopping point for the outermost
// scan (an earlier expect() call turns that into a proper error).
func isStopToken(k TokenKind) bool {
	switch k {
	case TokenSemicolon, TokenLeftBrace, TokenRightParen, TokenComma, TokenEOF:
		return true
	}
	return false
}

// parseArguments binds tokens to def.Args slots: tags first (any order),
// then positional slots in declared order.
func (p *parser) parseArguments(def CommandDef) ([]Argument, error) {
	var args []Argument
	filled := make(map[string]bool)

	for p.peek().Kind == TokenTag {
		tagTok := p.advance()
		tagLiteral := ":" + tagTok.Value
		spec, ok := def.argByTagValue(tagLiteral)
		if !ok {
			return nil, p.errorf(tagTok, "tag %q is not valid for %q", tagLiteral, def.Name)
		}
		if filled[spec.Name] {
			return nil, p.errorf(tagTok, "tag %q conflicts with a previously specified %s", tagLiteral, spec.Name)
		}
		if ext, needsExt := spec.ExtensionValues[tagLiteral]; needsExt && !p.script.Requires(ext) {
			return nil, p.errorf(tagTok, "tag %q requires extension %q which is not declared by require", tagLiteral, ext)
		}
		if spec.Extension != "" && !p.script.Requires(spec.Extension) {
			return nil, p.errorf(tagTok, "tag %q requires extension %q which is not declared by require", tagLiteral, spec.Extension)
		}

		arg := Argument{Spec: spec, Tag: tagLiteral}
		if spec.extraAppliesTo(tagLiteral) {
			if err := p.bindExtra(&arg, *spec.ExtraArg, tagTok); err != nil {
				return nil, err
			}
		}
		args = append(args, arg)
		filled[spec.Name] = true
	}

	var positional []ArgSpec
	for _, spec := range def.Args {
		if !spec.isTagGroup() {
			positional = append(positional, spec)
		}
	}

	// sievelib's reassign_arguments rule: when there are fewer argument
	// groups on the wire than declared positional slots, drop optional
	// slots from the front first, so a lone value binds to the required
	// slot that follows it (hasflag's list-of-flags, setflag's flags, ...).
	if toRemove := len(positional) - p.countArgGroups(); toRemove > 0 {
		kept := positional[:0:0]
		removed := 0
		for _, spec := range positional {
			if removed < toRemove && !spec.Required {
				removed++
				continue
			}
			kept = append(kept, spec)
		}
		positional = kept
	}

	for _, spec := range positional {
		bound, arg, err := p.bindPositional(spec)
		if err != nil {
			return nil, err
		}
		if !bound {
			if spec.Required {
				return nil, p.errorf(p.peek(), "missing required argument %q for %q", spec.Name, def.Name)
			}
			continue
		}
		args = append(args, arg)
		filled[spec.Name] = true
	}

	for _, spec := range def.Args {
		if spec.isTagGroup() && spec.Required && !filled[spec.Name] {
			return nil, p.errorf(p.peek(), "missing required argument %q for %q", spec.Name, def.Name)
		}
	}

	if isArgumentStart(p.peek()) {
		return nil, p.errorf(p.peek(), "unexpected extra argument %s for %q", describeToken(p.peek()), def.Name)
	}

	return args, nil
}

func isArgumentStart(t Token) bool {
	switch t.Kind {
	case TokenTag, TokenString, TokenMultiline, TokenNumber, TokenLeftBracket, TokenIdentifier:
		return true
	}
	return false
}

// countArgGroups scans forward without consuming, counting the number of
// discrete positional argument groups (string, multiline, number, or a
// bracketed string-list) before the next stop token.
func (p *parser) countArgGroups() int {
	i := p.pos
	count := 0
	for i < len(p.tokens) {
		tok := p.tokens[i]
		if isStopToken(tok.Kind) {
			break
		}
		switch tok.Kind {
		case TokenLeftBracket:
			depth := 1
			i++
			for i < len(p.tokens) && depth > 0 {
				if p.tokens[i].Kind == TokenLeftBracket {
					depth++
				} else if p.tokens[i].Kind == TokenRightBracket {
					depth--
				}
				i++
			}
			count++
		case TokenLeftParen:
			depth := 1
			i++
			for i < len(p.tokens) && depth > 0 {
				if p.tokens[i].Kind == TokenLeftParen {
					depth++
				} else if p.tokens[i].Kind == TokenRightParen {
					depth--
				}
				i++
			}
			count++
		default:
			count++
			i++
		}
	}
	return count
}

func (p *parser) bindExtra(arg *Argument, spec ExtraArgSpec, owner Token) error {
	tok := p.peek()
	for _, t := range spec.Types {
		switch t {
		case ArgString:
			if tok.Kind == TokenString || tok.Kind == TokenMultiline {
				arg.Extra = p.advance().Value
				return nil
			}
		case ArgNumber:
			if tok.Kind == TokenNumber {
				arg.Extra = p.advance().Value
				return nil
			}
		case ArgStringList:
			if tok.Kind == TokenLeftBracket {
				list, err := p.parseStringList()
				if err != nil {
					return err
				}
				arg.ExtraList = list
				return nil
			}
			if tok.Kind == TokenString {
				arg.ExtraList = []string{p.advance().Value}
				return nil
			}
		}
	}
	return p.errorf(tok, "expected argument for tag %q, found %s", owner.Value, describeToken(tok))
}

// bindPositional attempts to consume a value for spec. bound is false only
// when spec is optional and no matching token is present.
func (p *parser) bindPositional(spec ArgSpec) (bool, Argument, error) {
	tok := p.peek()

	if spec.acceptsType(ArgTest) {
		if tok.Kind != TokenIdentifier {
			if spec.Required {
				return false, Argument{}, p.errorf(tok, "expected test, found %s", describeToken(tok))
			}
			return false, Argument{}, nil
		}
		test, err := p.parseTest()
		if err != nil {
			return false, Argument{}, err
		}
		return true, Argument{Spec: spec, Test: test}, nil
	}

	if spec.acceptsType(ArgTestList) {
		if _, err := p.expect(TokenLeftParen); err != nil {
			return false, Argument{}, err
		}
		var tests []*Command
		for {
			test, err := p.parseTest()
			if err != nil {
				return false, Argument{}, err
			}
			tests = append(tests, test)
			if p.peek().Kind == TokenComma {
				p.advance()
				continue
			}
			break
		}
		if _, err := p.expect(TokenRightParen); err != nil {
			return false, Argument{}, err
		}
		return true, Argument{Spec: spec, Tests: tests}, nil
	}

	switch tok.Kind {
	case TokenLeftBracket:
		if spec.acceptsType(ArgStringList) {
			list, err := p.parseStringList()
			if err != nil {
				return false, Argument{}, err
			}
			return true, Argument{Spec: spec, List: list}, nil
		}
	case TokenString, TokenMultiline:
		if spec.acceptsType(ArgString) || spec.acceptsType(ArgStringList) {
			return true, Argument{Spec: spec, String: p.advance().Value}, nil
		}
	case TokenNumber:
		if spec.acceptsType(ArgNumber) {
			n, err := parseSieveNumber(tok.Value)
			if err != nil {
				return false, Argument{}, p.errorf(tok, "%s", err)
			}
			p.advance()
			return true, Argument{Spec: spec, Number: n}, nil
		}
	}

	if spec.Required {
		return false, Argument{}, p.errorf(tok, "expected %s, found %s", describeArgSpecTypes(spec), describeToken(tok))
	}
	return false, Argument{}, nil
}

func describeArgSpecTypes(spec ArgSpec) string {
	return spec.Name
}

func (p *parser) parseStringList() ([]string, error) {
	if _, err := p.expect(TokenLeftBracket); err != nil {
		return nil, err
	}
	var list []string
	for {
		tok, err := p.expect(TokenString)
		if err != nil {
			return nil, err
		}
		list = append(list, tok.Value)
		if p.peek().Kind == TokenComma {
			p.advance()
			continue
		}
		break
	}
	if _, err := p.expect(TokenRightBracket); err != nil {
		return nil, err
	}
	return list, nil
}

func parseSieveNumber(v string) (int64, error) {
	mult := int64(1)
	digits := v
	if len(v) > 0 {
		switch v[len(v)-1] {
		case 'K':
			mult = 1024
			digits = v[:len(v)-1]
		case 'M':
			mult = 1024 * 1024
			digits = v[:len(v)-1]
		case 'G':
			mult = 1024 * 1024 * 1024
			digits = v[:len(v)-1]
		}
	}
	n, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q", v)
	}
	return n * mult, nil
}
