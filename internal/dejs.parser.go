package internal

import (
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// ParserConfig holds the delimiter pair a template is parsed with
type ParserConfig struct {
	Open  string // Opening delimiter (default: "<%")
	Close string // Closing delimiter (default: "%>")
}

// DefaultParserConfig returns the default parser configuration
func DefaultParserConfig() ParserConfig {
	return ParserConfig{
		Open:  StrOpenDelim,
		Close: StrCloseDelim,
	}
}

// Validate checks the delimiter invariants: both set and not equal.
func (c ParserConfig) Validate() error {
	if c.Open == "" || c.Close == "" || c.Open == c.Close {
		return &ParseError{Message: ErrMsgInvalidDelimiters}
	}
	return nil
}

// Parser turns template source into an ordered fragment list.
// A Parser is single use.
type Parser struct {
	source   string
	config   ParserConfig
	pos      int  // Current byte offset
	line     int  // Current line (1-indexed)
	trimNext bool // Swallow the line terminator that follows the last tag

	root   []Fragment
	open   []*BindBlock // Open binding blocks, innermost last
	opens  []int        // Line each open block started on
	logger *zap.Logger
}

// NewParser creates a parser with the default delimiters
func NewParser(source string, logger *zap.Logger) *Parser {
	return NewParserWithConfig(source, DefaultParserConfig(), logger)
}

// NewParserWithConfig creates a parser with custom delimiters
func NewParserWithConfig(source string, config ParserConfig, logger *zap.Logger) *Parser {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger.Debug(LogMsgParserCreated, zap.Int(LogFieldSource, len(source)))
	return &Parser{
		source: source,
		config: config,
		line:   1,
		logger: logger,
	}
}

// Parse scans the whole source and returns its fragments in source order.
func (p *Parser) Parse() ([]Fragment, error) {
	p.logger.Debug(LogMsgParseStart)
	if err := p.config.Validate(); err != nil {
		return nil, err
	}

	for p.pos < len(p.source) {
		idx := strings.Index(p.source[p.pos:], p.config.Open)
		if idx < 0 {
			p.scanLiteral(p.source[p.pos:])
			p.pos = len(p.source)
			break
		}

		p.scanLiteral(p.source[p.pos : p.pos+idx])
		p.pos += idx
		if err := p.scanTag(); err != nil {
			return nil, err
		}
	}

	if n := len(p.open); n > 0 {
		return nil, p.errorAt(ErrMsgUnclosedBindBlock, p.opens[n-1], 0)
	}

	p.logger.Debug(LogMsgParseEnd, zap.Int(LogFieldFragments, len(p.root)))
	return p.root, nil
}

// scanLiteral copies text between tags. Carriage returns become spaces and
// each line feed advances the line counter. When the previous tag asked for
// it, the line feed directly after the tag is dropped; carriage returns in
// front of it are still copied as spaces.
func (p *Parser) scanLiteral(text string) {
	if p.trimNext {
		p.trimNext = false
		lead := len(text) - len(strings.TrimLeft(text, "\r"))
		if lead < len(text) && text[lead] == CharNewline {
			text = text[:lead] + text[lead+1:]
			p.line++
		}
	}
	if text == "" {
		return
	}

	startLine := p.line
	var sb strings.Builder
	sb.Grow(len(text))
	for i := 0; i < len(text); i++ {
		switch ch := text[i]; ch {
		case CharCarriageRet:
			sb.WriteByte(CharSpace)
		case CharNewline:
			p.line++
			sb.WriteByte(ch)
		default:
			sb.WriteByte(ch)
		}
	}
	p.appendLiteral(sb.String(), startLine)
}

// scanTag consumes one tag starting at the open delimiter
func (p *Parser) scanTag() error {
	tagLine := p.line
	tagColumn := p.columnAt(p.pos)
	p.pos += len(p.config.Open)
	p.trimNext = false

	kind := FragmentStatement
	escape := false
	comment := false
	if p.pos < len(p.source) {
		switch p.source[p.pos] {
		case MarkerLiteral:
			// "<%%" stands for a literal open delimiter
			p.pos++
			p.appendLiteral(p.config.Open, tagLine)
			return nil
		case MarkerEscaped:
			kind, escape = FragmentExpression, true
			p.pos++
		case MarkerRaw:
			kind = FragmentExpression
			p.pos++
		case MarkerComment:
			comment = true
			p.pos++
		}
	}

	end := strings.Index(p.source[p.pos:], p.config.Close)
	if end < 0 {
		return p.errorAt(ErrMsgUnterminatedTag, tagLine, tagColumn)
	}
	body := p.source[p.pos : p.pos+end]
	p.pos += end + len(p.config.Close)
	bodyLines := strings.Count(body, "\n")

	trim := false
	if n := len(body); n > 0 && body[n-1] == MarkerTrimTail {
		body = body[:n-1]
		trim = true
	}

	var err error
	if !comment {
		err = p.code(body, tagLine, kind, escape)
	}

	p.line += bodyLines
	p.trimNext = trim
	return err
}

// code handles a tag body, including the '->' and '<-' binding operators.
// Whatever is left after the operators is emitted as the tag's own kind.
func (p *Parser) code(body string, line int, kind FragmentKind, escape bool) error {
	if segments, ok := SplitOutside(body, OpProduce); ok {
		producer := strings.TrimSpace(segments[0])
		remainder := strings.Join(segments[1:], OpProduce)
		cont, err := p.openBind(producer, remainder, line)
		if err != nil {
			return err
		}
		// The continuation may open further blocks or close them.
		return p.code(cont, line, kind, escape)
	}

	tail := body
	if segments, ok := SplitOutside(body, OpConsume); ok {
		for _, trailing := range segments[:len(segments)-1] {
			if err := p.closeBind(trailing, line); err != nil {
				return err
			}
		}
		tail = segments[len(segments)-1]
	}

	if kind == FragmentExpression {
		if expr := strings.TrimSpace(tail); expr != "" {
			p.emit(NewExpression(expr, escape, line))
		}
		return nil
	}
	p.emitCode(tail, line)
	return nil
}

// openBind starts a binding block and returns the code that follows the
// binding target.
func (p *Parser) openBind(producer, remainder string, line int) (string, error) {
	if producer == "" {
		return "", p.errorAt(ErrMsgEmptyProducer, line, 0)
	}

	names, multiOutput, cont, ok := parseBindingTarget(remainder)
	if !ok {
		return "", p.errorAt(ErrMsgInvalidBinding, line, 0)
	}

	inputs, multiInput := parseProducers(producer)
	if multiInput && multiOutput && len(inputs) != len(names) {
		return "", p.errorAt(ErrMsgBindingArity, line, 0)
	}

	block := &BindBlock{
		Inputs:      inputs,
		Names:       names,
		MultiInput:  multiInput,
		MultiOutput: multiOutput,
	}
	p.emit(NewBind(block, line))
	p.open = append(p.open, block)
	p.opens = append(p.opens, line)

	return strings.TrimLeft(cont, " \t\r\n;"), nil
}

// closeBind closes the innermost binding block
func (p *Parser) closeBind(trailing string, line int) error {
	n := len(p.open)
	if n == 0 {
		return p.errorAt(ErrMsgUnbalancedConsume, line, 0)
	}
	block := p.open[n-1]
	block.Trailing = strings.TrimSpace(trailing)
	block.CloseLine = line
	p.open = p.open[:n-1]
	p.opens = p.opens[:n-1]
	return nil
}

// emitCode appends a statement fragment unless the code is blank
func (p *Parser) emitCode(code string, line int) {
	if strings.TrimSpace(code) == "" {
		return
	}
	p.emit(NewStatement(code, line))
}

// emit appends a fragment to the innermost open block, or the root
func (p *Parser) emit(f Fragment) {
	if n := len(p.open); n > 0 {
		p.open[n-1].Body = append(p.open[n-1].Body, f)
		return
	}
	p.root = append(p.root, f)
}

// appendLiteral merges adjacent literal text into one fragment
func (p *Parser) appendLiteral(text string, line int) {
	target := &p.root
	if n := len(p.open); n > 0 {
		target = &p.open[n-1].Body
	}
	if n := len(*target); n > 0 && (*target)[n-1].Kind == FragmentLiteral {
		(*target)[n-1].Text += text
		return
	}
	*target = append(*target, NewLiteral(text, line))
}

func (p *Parser) columnAt(offset int) int {
	return offset - (strings.LastIndexByte(p.source[:offset], CharNewline) + 1) + 1
}

func (p *Parser) errorAt(msg string, line, column int) error {
	return &ParseError{Message: msg, Line: line, Column: column}
}

// parseBindingTarget reads the binding target at the start of s: either a
// single identifier or a bracketed identifier list. It returns the names,
// whether the list form was used and the text after the target.
func parseBindingTarget(s string) ([]string, bool, string, bool) {
	s = strings.TrimLeft(s, " \t\r\n")
	if s == "" {
		return nil, false, "", false
	}

	if s[0] == CharOpenBracket {
		end := strings.IndexByte(s, CharCloseBracket)
		if end < 0 {
			return nil, false, "", false
		}
		parts := strings.Split(s[1:end], string(CharComma))
		names := make([]string, 0, len(parts))
		for _, part := range parts {
			name := strings.TrimSpace(part)
			if !isIdentifier(name) {
				return nil, false, "", false
			}
			names = append(names, name)
		}
		return names, true, s[end+1:], true
	}

	end := 0
	for end < len(s) && isIdentChar(s[end], end == 0) {
		end++
	}
	if end == 0 {
		return nil, false, "", false
	}
	return []string{s[:end]}, false, s[end:], true
}

// parseProducers reports whether producer is a bracketed list and, if so,
// splits it on top-level commas.
func parseProducers(producer string) ([]string, bool) {
	if len(producer) < 2 || producer[0] != CharOpenBracket || matchingBracket(producer) != len(producer)-1 {
		return []string{producer}, false
	}
	inner := producer[1 : len(producer)-1]
	if strings.TrimSpace(inner) == "" {
		return []string{}, true
	}
	return splitTopLevel(inner), true
}

// matchingBracket returns the index of the bracket closing s[0], or -1.
// Quoted text is skipped.
func matchingBracket(s string) int {
	depth := 0
	var quote byte
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if quote != 0 {
			if ch == CharBackslash {
				i++
			} else if ch == quote {
				quote = 0
			}
			continue
		}
		switch ch {
		case CharSingleQuote, CharDoubleQuote, '`':
			quote = ch
		case '[', '(', '{':
			depth++
		case ']', ')', '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// splitTopLevel splits s on commas that are not nested in brackets,
// parentheses, braces or quotes.
func splitTopLevel(s string) []string {
	var parts []string
	depth, start := 0, 0
	var quote byte
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if quote != 0 {
			if ch == CharBackslash {
				i++
			} else if ch == quote {
				quote = 0
			}
			continue
		}
		switch ch {
		case CharSingleQuote, CharDoubleQuote, '`':
			quote = ch
		case '[', '(', '{':
			depth++
		case ']', ')', '}':
			depth--
		case CharComma:
			if depth == 0 {
				parts = append(parts, strings.TrimSpace(s[start:i]))
				start = i + 1
			}
		}
	}
	return append(parts, strings.TrimSpace(s[start:]))
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if !isIdentChar(s[i], i == 0) {
			return false
		}
	}
	return true
}

func isIdentChar(ch byte, first bool) bool {
	switch {
	case ch == '_' || ch == '$':
		return true
	case (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z'):
		return true
	case ch >= '0' && ch <= '9':
		return !first
	default:
		return false
	}
}

// ParseError is a syntax error found while scanning a template
type ParseError struct {
	Message string
	Line    int
	Column  int
}

func (e *ParseError) Error() string {
	if e.Line == 0 {
		return e.Message
	}
	if e.Column == 0 {
		return e.Message + " at line " + strconv.Itoa(e.Line)
	}
	return e.Message + " at line " + strconv.Itoa(e.Line) + ", column " + strconv.Itoa(e.Column)
}

// Parse is a convenience function that parses source with the given delimiters.
func Parse(source string, config ParserConfig, logger *zap.Logger) ([]Fragment, error) {
	return NewParserWithConfig(source, config, logger).Parse()
}
