package xmltext

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"
)

var (
	utf8BOM       = []byte{0xEF, 0xBB, 0xBF}
	xmlDeclPrefix = []byte("<?xml")
	commentOpen   = []byte("--")
	cdataOpen     = []byte("[CDATA[")
	doctypeOpen   = []byte("DOCTYPE")
	entityDecl    = []byte("<!ENTITY")
)

// Decoder is a streaming XML tokenizer. It keeps comments, processing
// instructions and CDATA boundaries, resolves the predefined entities and
// character references, normalizes line endings to LF, and enforces the
// configured resource caps while reading.
type Decoder struct {
	r   *bufio.Reader
	lim limits

	line   int
	col    int
	offset int64
	refs   int64

	stack      []string
	pendingEnd *Token
	started    bool
	sawRoot    bool
	rootDone   bool

	buf []byte
	err error
}

// NewDecoder creates a decoder reading from r.
func NewDecoder(r io.Reader, opts ...Options) *Decoder {
	d := &Decoder{lim: JoinOptions(opts...).resolve(), line: 1}
	if r == nil {
		d.err = errNilReader
		return d
	}
	d.r = bufio.NewReader(r)
	return d
}

// InputOffset reports the number of raw input bytes consumed.
func (d *Decoder) InputOffset() int64 {
	return d.offset
}

// Depth reports the number of open elements.
func (d *Decoder) Depth() int {
	return len(d.stack)
}

// Position reports the current 1-based line and column.
func (d *Decoder) Position() (line, column int) {
	return d.line, d.col + 1
}

// ReadToken returns the next token, or io.EOF after the root element and
// any trailing misc content have been consumed.
func (d *Decoder) ReadToken() (Token, error) {
	if d.err != nil {
		return Token{}, d.err
	}
	if d.pendingEnd != nil {
		tok := *d.pendingEnd
		d.pendingEnd = nil
		d.pop()
		return tok, nil
	}
	for {
		tok, skip, err := d.readOne()
		if err != nil {
			d.err = err
			return Token{}, err
		}
		if !skip {
			return tok, nil
		}
	}
}

func (d *Decoder) readOne() (Token, bool, error) {
	if !d.started {
		d.started = true
		if err := d.readProlog(); err != nil {
			return Token{}, false, err
		}
		return Token{}, true, nil
	}
	tok := Token{Line: d.line, Column: d.col + 1, Offset: d.offset}
	b, ok, err := d.peek()
	if err != nil {
		return Token{}, false, err
	}
	if !ok {
		if len(d.stack) > 0 {
			return Token{}, false, d.syntaxErr(errUnexpectedEOF)
		}
		if !d.sawRoot {
			return Token{}, false, d.syntaxErr(errMissingRoot)
		}
		return Token{}, false, io.EOF
	}
	if b != '<' {
		text, err := d.readCharData()
		if err != nil {
			return Token{}, false, err
		}
		if len(d.stack) == 0 {
			if !IsSpace(text) {
				return Token{}, false, d.syntaxErrAt(errContentOutsideRoot, tok)
			}
			return Token{}, true, nil
		}
		tok.Kind = KindCharData
		tok.Text = text
		tok.Depth = len(d.stack)
		return tok, false, nil
	}
	if _, err := d.next(); err != nil {
		return Token{}, false, err
	}
	b, err = d.mustNext()
	if err != nil {
		return Token{}, false, err
	}
	switch b {
	case '?':
		return d.readPI(tok)
	case '!':
		return d.readBang(tok)
	case '/':
		return d.readEndTag(tok)
	default:
		return d.readStartTag(tok, b)
	}
}

func (d *Decoder) readProlog() error {
	if p, _ := d.r.Peek(len(utf8BOM)); bytes.Equal(p, utf8BOM) {
		for range utf8BOM {
			if _, err := d.r.ReadByte(); err != nil {
				return err
			}
		}
		d.offset += int64(len(utf8BOM))
	}
	p, _ := d.r.Peek(len(xmlDeclPrefix) + 1)
	if len(p) < len(xmlDeclPrefix)+1 || !bytes.Equal(p[:len(xmlDeclPrefix)], xmlDeclPrefix) || !isSpaceByte(p[len(xmlDeclPrefix)]) {
		return nil
	}
	start := Token{Line: d.line, Column: d.col + 1, Offset: d.offset}
	for range xmlDeclPrefix {
		if _, err := d.next(); err != nil {
			return err
		}
	}
	body, err := d.readUntil("?>", errInvalidPI)
	if err != nil {
		return err
	}
	if enc, ok := pseudoAttr(body, "encoding"); ok {
		switch strings.ToLower(enc) {
		case "utf-8", "utf8", "us-ascii", "ascii":
		default:
			return d.syntaxErrAt(fmt.Errorf("%w: %s", errUnsupportedEnc, enc), start)
		}
	}
	return nil
}

func pseudoAttr(body, name string) (string, bool) {
	idx := strings.Index(body, name)
	if idx < 0 {
		return "", false
	}
	rest := strings.TrimLeft(body[idx+len(name):], " \t\n")
	if !strings.HasPrefix(rest, "=") {
		return "", false
	}
	rest = strings.TrimLeft(rest[1:], " \t\n")
	if rest == "" || (rest[0] != '"' && rest[0] != '\'') {
		return "", false
	}
	quote := rest[0]
	end := strings.IndexByte(rest[1:], quote)
	if end < 0 {
		return "", false
	}
	return rest[1 : end+1], true
}

func (d *Decoder) readStartTag(tok Token, first byte) (Token, bool, error) {
	raw, err := d.readName(first)
	if err != nil {
		return Token{}, false, err
	}
	if len(d.stack) == 0 {
		if d.rootDone {
			return Token{}, false, d.syntaxErrAt(errMultipleRoots, tok)
		}
		d.sawRoot = true
	}
	tok.Kind = KindStartElement
	tok.Name = ParseName(raw)
	for {
		sawSpace, err := d.skipSpace()
		if err != nil {
			return Token{}, false, err
		}
		b, err := d.mustPeek()
		if err != nil {
			return Token{}, false, err
		}
		if b == '/' {
			if _, err := d.next(); err != nil {
				return Token{}, false, err
			}
			if err := d.expect('>'); err != nil {
				return Token{}, false, err
			}
			tok.SelfClosing = true
			break
		}
		if b == '>' {
			if _, err := d.next(); err != nil {
				return Token{}, false, err
			}
			break
		}
		if !sawSpace {
			return Token{}, false, d.syntaxErr(errInvalidAttr)
		}
		attr, err := d.readAttr()
		if err != nil {
			return Token{}, false, err
		}
		for _, existing := range tok.Attrs {
			if existing.Name == attr.Name {
				return Token{}, false, d.syntaxErr(fmt.Errorf("%w: %s", errDuplicateAttr, attr.Name))
			}
		}
		if int64(len(tok.Attrs)) >= d.lim.maxAttrs {
			return Token{}, false, d.securityErr(LimitAttrs, d.lim.maxAttrs)
		}
		tok.Attrs = append(tok.Attrs, attr)
	}
	d.stack = append(d.stack, raw)
	if int64(len(d.stack)) > d.lim.maxDepth {
		return Token{}, false, d.securityErr(LimitDepth, d.lim.maxDepth)
	}
	tok.Depth = len(d.stack)
	if tok.SelfClosing {
		end := Token{Kind: KindEndElement, Name: tok.Name, Depth: tok.Depth, Line: d.line, Column: d.col + 1, Offset: d.offset}
		d.pendingEnd = &end
	}
	return tok, false, nil
}

func (d *Decoder) readAttr() (Attr, error) {
	first, err := d.mustNext()
	if err != nil {
		return Attr{}, err
	}
	raw, err := d.readName(first)
	if err != nil {
		return Attr{}, err
	}
	if _, err := d.skipSpace(); err != nil {
		return Attr{}, err
	}
	if err := d.expect('='); err != nil {
		return Attr{}, err
	}
	if _, err := d.skipSpace(); err != nil {
		return Attr{}, err
	}
	quote, err := d.mustNext()
	if err != nil {
		return Attr{}, err
	}
	if quote != '"' && quote != '\'' {
		return Attr{}, d.syntaxErr(errInvalidAttr)
	}
	d.buf = d.buf[:0]
	for {
		b, err := d.mustNext()
		if err != nil {
			return Attr{}, err
		}
		switch {
		case b == quote:
			if !utf8.Valid(d.buf) {
				return Attr{}, d.syntaxErr(errInvalidUTF8)
			}
			return Attr{Name: ParseName(raw), Value: string(d.buf)}, nil
		case b == '<':
			return Attr{}, d.syntaxErr(errInvalidAttr)
		case b == '&':
			if err := d.readReference(); err != nil {
				return Attr{}, err
			}
		case b == '\t' || b == '\n':
			d.buf = append(d.buf, ' ')
		default:
			if err := d.checkChar(b); err != nil {
				return Attr{}, err
			}
			d.buf = append(d.buf, b)
		}
		if err := d.checkTokenSize(); err != nil {
			return Attr{}, err
		}
	}
}

func (d *Decoder) readEndTag(tok Token) (Token, bool, error) {
	first, err := d.mustNext()
	if err != nil {
		return Token{}, false, err
	}
	raw, err := d.readName(first)
	if err != nil {
		return Token{}, false, err
	}
	if _, err := d.skipSpace(); err != nil {
		return Token{}, false, err
	}
	if err := d.expect('>'); err != nil {
		return Token{}, false, err
	}
	if len(d.stack) == 0 || d.stack[len(d.stack)-1] != raw {
		return Token{}, false, d.syntaxErrAt(fmt.Errorf("%w: </%s>", errMismatchedEndTag, raw), tok)
	}
	tok.Kind = KindEndElement
	tok.Name = ParseName(raw)
	tok.Depth = len(d.stack)
	d.pop()
	return tok, false, nil
}

func (d *Decoder) pop() {
	d.stack = d.stack[:len(d.stack)-1]
	if len(d.stack) == 0 {
		d.rootDone = true
	}
}

func (d *Decoder) readPI(tok Token) (Token, bool, error) {
	first, err := d.mustNext()
	if err != nil {
		return Token{}, false, err
	}
	target, err := d.readName(first)
	if err != nil {
		return Token{}, false, err
	}
	if strings.EqualFold(target, "xml") {
		return Token{}, false, d.syntaxErrAt(errMisplacedXMLDecl, tok)
	}
	sawSpace, err := d.skipSpace()
	if err != nil {
		return Token{}, false, err
	}
	body, err := d.readUntil("?>", errInvalidPI)
	if err != nil {
		return Token{}, false, err
	}
	if body != "" && !sawSpace {
		return Token{}, false, d.syntaxErrAt(errInvalidPI, tok)
	}
	tok.Kind = KindPI
	tok.Name = Name{Local: target}
	tok.Text = body
	tok.Depth = len(d.stack)
	return tok, false, nil
}

func (d *Decoder) readBang(tok Token) (Token, bool, error) {
	switch {
	case d.hasPrefix(commentOpen):
		if err := d.skipN(len(commentOpen)); err != nil {
			return Token{}, false, err
		}
		body, err := d.readUntil("--", errInvalidComment)
		if err != nil {
			return Token{}, false, err
		}
		if err := d.expect('>'); err != nil {
			return Token{}, false, d.syntaxErrAt(errInvalidComment, tok)
		}
		tok.Kind = KindComment
		tok.Text = body
	case d.hasPrefix(cdataOpen):
		if len(d.stack) == 0 {
			return Token{}, false, d.syntaxErrAt(errContentOutsideRoot, tok)
		}
		if err := d.skipN(len(cdataOpen)); err != nil {
			return Token{}, false, err
		}
		body, err := d.readUntil("]]>", errInvalidToken)
		if err != nil {
			return Token{}, false, err
		}
		tok.Kind = KindCDATA
		tok.Text = body
	case d.hasPrefix(doctypeOpen):
		if d.sawRoot {
			return Token{}, false, d.syntaxErrAt(errMisplacedDirective, tok)
		}
		body, err := d.readDirective()
		if err != nil {
			return Token{}, false, err
		}
		if strings.Contains(body, string(entityDecl)) {
			return Token{}, false, &SecurityError{Limit: LimitExternalEntities, Offset: tok.Offset, Line: tok.Line, Column: tok.Column}
		}
		tok.Kind = KindDirective
		tok.Text = body
	default:
		return Token{}, false, d.syntaxErrAt(errInvalidToken, tok)
	}
	tok.Depth = len(d.stack)
	return tok, false, nil
}

func (d *Decoder) readDirective() (string, error) {
	d.buf = d.buf[:0]
	depth := 0
	var quote byte
	for {
		b, err := d.mustNext()
		if err != nil {
			return "", err
		}
		switch {
		case quote != 0:
			if b == quote {
				quote = 0
			}
		case b == '"' || b == '\'':
			quote = b
		case b == '[':
			depth++
		case b == ']':
			depth--
		case b == '>' && depth <= 0:
			return string(d.buf), nil
		}
		d.buf = append(d.buf, b)
		if err := d.checkTokenSize(); err != nil {
			return "", err
		}
	}
}

func (d *Decoder) readCharData() (string, error) {
	d.buf = d.buf[:0]
	for {
		b, ok, err := d.peek()
		if err != nil {
			return "", err
		}
		if !ok || b == '<' {
			break
		}
		c, err := d.next()
		if err != nil {
			return "", err
		}
		if c == '&' {
			if err := d.readReference(); err != nil {
				return "", err
			}
		} else {
			if err := d.checkChar(c); err != nil {
				return "", err
			}
			d.buf = append(d.buf, c)
		}
		if err := d.checkTokenSize(); err != nil {
			return "", err
		}
	}
	if !utf8.Valid(d.buf) {
		return "", d.syntaxErr(errInvalidUTF8)
	}
	return string(d.buf), nil
}

// readReference consumes an entity or character reference after '&' and
// appends its replacement to d.buf.
func (d *Decoder) readReference() error {
	d.refs++
	if d.refs > d.lim.maxEntityRefs {
		return d.securityErr(LimitEntityRefs, d.lim.maxEntityRefs)
	}
	var name [32]byte
	n := 0
	for {
		b, err := d.mustNext()
		if err != nil {
			return err
		}
		if b == ';' {
			break
		}
		if n == len(name) {
			return d.syntaxErr(errInvalidEntity)
		}
		name[n] = b
		n++
	}
	ref := string(name[:n])
	if strings.HasPrefix(ref, "#") {
		r, err := parseCharRef(ref[1:])
		if err != nil {
			return d.syntaxErr(err)
		}
		d.buf = utf8.AppendRune(d.buf, r)
		return nil
	}
	value, ok := predefinedEntities[ref]
	if !ok {
		return d.syntaxErr(fmt.Errorf("%w: &%s;", errInvalidEntity, ref))
	}
	d.buf = append(d.buf, value)
	return nil
}

// readUntil reads until terminator, returning the text before it.
func (d *Decoder) readUntil(terminator string, errKind error) (string, error) {
	d.buf = d.buf[:0]
	for {
		b, err := d.next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return "", d.syntaxErr(errKind)
			}
			return "", err
		}
		if err := d.checkChar(b); err != nil {
			return "", err
		}
		d.buf = append(d.buf, b)
		if bytes.HasSuffix(d.buf, []byte(terminator)) {
			body := d.buf[:len(d.buf)-len(terminator)]
			if !utf8.Valid(body) {
				return "", d.syntaxErr(errInvalidUTF8)
			}
			return string(body), nil
		}
		if err := d.checkTokenSize(); err != nil {
			return "", err
		}
	}
}

func (d *Decoder) readName(first byte) (string, error) {
	if !isNameStartByte(first) {
		return "", d.syntaxErr(errInvalidName)
	}
	var sb strings.Builder
	sb.WriteByte(first)
	for {
		b, ok, err := d.peek()
		if err != nil {
			return "", err
		}
		if !ok || !isNameByte(b) {
			break
		}
		if _, err := d.next(); err != nil {
			return "", err
		}
		sb.WriteByte(b)
		if int64(sb.Len()) > d.lim.maxTokenSize {
			return "", d.securityErr(LimitTokenSize, d.lim.maxTokenSize)
		}
	}
	name := sb.String()
	if !utf8.ValidString(name) || strings.HasPrefix(name, ":") || strings.HasSuffix(name, ":") || strings.Count(name, ":") > 1 {
		return "", d.syntaxErr(fmt.Errorf("%w: %q", errInvalidName, name))
	}
	return name, nil
}

func (d *Decoder) skipSpace() (bool, error) {
	saw := false
	for {
		b, ok, err := d.peek()
		if err != nil {
			return saw, err
		}
		if !ok || !isSpaceByte(b) {
			return saw, nil
		}
		if _, err := d.next(); err != nil {
			return saw, err
		}
		saw = true
	}
}

func (d *Decoder) expect(want byte) error {
	b, err := d.mustNext()
	if err != nil {
		return err
	}
	if b != want {
		return d.syntaxErr(fmt.Errorf("%w: expected %q, found %q", errInvalidToken, want, b))
	}
	return nil
}

func (d *Decoder) hasPrefix(prefix []byte) bool {
	p, _ := d.r.Peek(len(prefix))
	return bytes.Equal(p, prefix)
}

func (d *Decoder) skipN(n int) error {
	for range n {
		if _, err := d.next(); err != nil {
			return err
		}
	}
	return nil
}

func (d *Decoder) peek() (byte, bool, error) {
	p, err := d.r.Peek(1)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("read xml: %w", err)
	}
	return p[0], true, nil
}

func (d *Decoder) mustPeek() (byte, error) {
	b, ok, err := d.peek()
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, d.syntaxErr(errUnexpectedEOF)
	}
	return b, nil
}

func (d *Decoder) mustNext() (byte, error) {
	b, err := d.next()
	if errors.Is(err, io.EOF) {
		return 0, d.syntaxErr(errUnexpectedEOF)
	}
	return b, err
}

// next consumes one byte, folding CRLF and lone CR into LF.
func (d *Decoder) next() (byte, error) {
	b, err := d.r.ReadByte()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return 0, io.EOF
		}
		return 0, fmt.Errorf("read xml: %w", err)
	}
	d.offset++
	if d.offset > d.lim.maxTotalBytes {
		return 0, d.securityErr(LimitTotalBytes, d.lim.maxTotalBytes)
	}
	if b == '\r' {
		if p, _ := d.r.Peek(1); len(p) == 1 && p[0] == '\n' {
			if _, err := d.r.ReadByte(); err == nil {
				d.offset++
			}
		}
		b = '\n'
	}
	switch {
	case b == '\n':
		d.line++
		d.col = 0
	case b < 0x80 || b >= 0xC0:
		d.col++
	}
	return b, nil
}

func (d *Decoder) checkTokenSize() error {
	if int64(len(d.buf)) > d.lim.maxTokenSize {
		return d.securityErr(LimitTokenSize, d.lim.maxTokenSize)
	}
	return nil
}

func (d *Decoder) checkChar(b byte) error {
	if b < 0x20 && b != '\t' && b != '\n' && b != '\r' {
		return d.syntaxErr(fmt.Errorf("%w: 0x%02X", errInvalidChar, b))
	}
	return nil
}

func (d *Decoder) path() string {
	if len(d.stack) == 0 {
		return ""
	}
	return "/" + strings.Join(d.stack, "/")
}

func (d *Decoder) syntaxErr(err error) error {
	return &SyntaxError{Offset: d.offset, Line: d.line, Column: d.col + 1, Path: d.path(), Err: err}
}

func (d *Decoder) syntaxErrAt(err error, at Token) error {
	return &SyntaxError{Offset: at.Offset, Line: at.Line, Column: at.Column, Path: d.path(), Err: err}
}

func (d *Decoder) securityErr(limit string, maxValue int64) error {
	return &SecurityError{Limit: limit, Max: maxValue, Offset: d.offset, Line: d.line, Column: d.col + 1, Path: d.path()}
}
