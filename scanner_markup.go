package etree

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/etree-go/etree/sax"
)

// scanMarkup dispatches on the character after '<'. Every scanner either
// consumes one whole token, reports a fatal error, or returns 0 to wait
// for more input.
func (s *scanner) scanMarkup() (int, error) {
	if len(s.buf) < 2 {
		if !s.final {
			return 0, nil
		}
		return 0, s.fatal(ErrUnclosedToken, CodeUnclosedToken, 0)
	}
	switch s.buf[1] {
	case '?':
		return s.scanPI()
	case '!':
		return s.scanBangMarkup()
	case '/':
		return s.scanEndTag()
	default:
		return s.scanStartTag()
	}
}

func (s *scanner) scanBangMarkup() (int, error) {
	for _, c := range []struct {
		prefix string
		fn     func() (int, error)
	}{
		{"<!--", s.scanComment},
		{"<![CDATA[", s.scanCDATA},
		{"<!DOCTYPE", s.scanDoctype},
	} {
		n := len(c.prefix)
		if n > len(s.buf) {
			n = len(s.buf)
		}
		if string(s.buf[:n]) == c.prefix[:n] {
			if n < len(c.prefix) {
				if !s.final {
					return 0, nil
				}
				return 0, s.fatal(ErrUnclosedToken, CodeUnclosedToken, 0)
			}
			return c.fn()
		}
	}
	return 0, s.fatal(ErrInvalidToken, CodeInvalidToken, 1)
}

/* start and end tags */

// findTagEnd locates the '>' closing a start tag, skipping quoted
// attribute values. badLT reports a stray '<' inside the tag.
func findTagEnd(b []byte) (gt, badLT int) {
	var q byte
	for i := 1; i < len(b); i++ {
		c := b[i]
		if q != 0 {
			if c == q {
				q = 0
			}
			continue
		}
		switch c {
		case '"', '\'':
			q = c
		case '>':
			return i, -1
		case '<':
			return -1, i
		}
	}
	return -1, -1
}

type rawAttr struct {
	name  string
	value string
	pos   int
}

func (s *scanner) scanStartTag() (int, error) {
	gt, badLT := findTagEnd(s.buf)
	if badLT >= 0 {
		return 0, s.fatal(ErrInvalidToken, CodeInvalidToken, badLT)
	}
	if gt < 0 {
		if !s.final {
			return 0, nil
		}
		return 0, s.fatal(ErrUnclosedToken, CodeUnclosedToken, 0)
	}
	if s.state == scanEpilog {
		return 0, s.fatal(ErrJunkAfterDocElement, CodeJunkAfterDocElem, 0)
	}

	inner := s.buf[1:gt]
	selfClose := false
	if n := len(inner); n > 0 && inner[n-1] == '/' {
		selfClose = true
		inner = inner[:n-1]
	}
	tag, bad, err := s.decode(inner)
	if err != nil {
		return 0, s.fatal(err, decodeErrCode(err), 1+bad)
	}

	rawName, attrs, err := s.parseTagBody(tag)
	if err != nil {
		return 0, err
	}

	// Bind namespace declarations first so the element's own prefix can
	// refer to them, and report each scope before the element itself.
	nsCount := 0
	for _, a := range attrs {
		switch {
		case a.name == "xmlns":
			if err := s.pushNamespace("", a.value); err != nil {
				return 0, err
			}
			nsCount++
		case strings.HasPrefix(a.name, "xmlns:"):
			prefix := a.name[len("xmlns:"):]
			if !isName(prefix) || a.value == "" {
				return 0, s.fatal(ErrInvalidToken, CodeInvalidToken, 1+a.pos)
			}
			if err := s.pushNamespace(prefix, a.value); err != nil {
				return 0, err
			}
			nsCount++
		}
	}

	name, err := s.resolveName(rawName, true)
	if err != nil {
		return 0, s.fatal(err, resolveErrCode(err), 1)
	}

	var saxAttrs []sax.Attribute
	seen := make(map[sax.QName]struct{}, len(attrs))
	for _, a := range attrs {
		if a.name == "xmlns" || strings.HasPrefix(a.name, "xmlns:") {
			continue
		}
		qn, err := s.resolveName(a.name, false)
		if err != nil {
			return 0, s.fatal(err, resolveErrCode(err), 1+a.pos)
		}
		if _, dup := seen[qn]; dup {
			return 0, s.fatal(ErrDuplicateAttribute, CodeDuplicateAttribute, 1+a.pos)
		}
		seen[qn] = struct{}{}
		saxAttrs = append(saxAttrs, sax.Attribute{Name: qn, Value: a.value})
	}

	if err := s.h.StartElement(name, saxAttrs, s.pos); err != nil {
		return 0, err
	}
	s.state = scanContent

	if selfClose {
		if err := s.h.EndElement(name, s.pos); err != nil {
			return 0, err
		}
		if err := s.popNamespaces(nsCount); err != nil {
			return 0, err
		}
		if s.open.Len() == 0 {
			s.state = scanEpilog
		}
	} else {
		s.open.Push(openTag{raw: rawName, name: name, nsCount: nsCount})
	}
	return gt + 1, nil
}

func resolveErrCode(err error) ErrorCode {
	if errors.Is(err, ErrUnboundPrefix) {
		return CodeUnboundPrefix
	}
	return CodeInvalidToken
}

// parseTagBody splits the decoded interior of a start tag into its name
// and raw attributes. Duplicate raw names are rejected here; namespace
// aware duplicates are caught after resolution.
func (s *scanner) parseTagBody(tag string) (string, []rawAttr, error) {
	p := 0
	name := readName(tag, &p)
	if name == "" {
		return "", nil, s.fatal(ErrInvalidToken, CodeInvalidToken, 1+p)
	}

	var attrs []rawAttr
	rawSeen := make(map[string]struct{})
	for {
		sawSpace := false
		for p < len(tag) && isXMLSpace(tag[p]) {
			p++
			sawSpace = true
		}
		if p == len(tag) {
			break
		}
		if !sawSpace {
			return "", nil, s.fatal(ErrInvalidToken, CodeInvalidToken, 1+p)
		}
		aPos := p
		aName := readName(tag, &p)
		if aName == "" {
			return "", nil, s.fatal(ErrInvalidToken, CodeInvalidToken, 1+p)
		}
		if _, dup := rawSeen[aName]; dup {
			return "", nil, s.fatal(ErrDuplicateAttribute, CodeDuplicateAttribute, 1+aPos)
		}
		rawSeen[aName] = struct{}{}

		for p < len(tag) && isXMLSpace(tag[p]) {
			p++
		}
		if p == len(tag) || tag[p] != '=' {
			return "", nil, s.fatal(ErrInvalidToken, CodeInvalidToken, 1+p)
		}
		p++
		for p < len(tag) && isXMLSpace(tag[p]) {
			p++
		}
		if p == len(tag) || (tag[p] != '"' && tag[p] != '\'') {
			return "", nil, s.fatal(ErrInvalidToken, CodeInvalidToken, 1+p)
		}
		q := tag[p]
		p++
		vPos := p
		close := strings.IndexByte(tag[p:], q)
		if close < 0 {
			return "", nil, s.fatal(ErrInvalidToken, CodeInvalidToken, 1+p)
		}
		value, err := s.expandAttrValue(tag[p:p+close], 1+vPos)
		if err != nil {
			return "", nil, err
		}
		p += close + 1
		attrs = append(attrs, rawAttr{name: aName, value: value, pos: aPos})
	}
	return name, attrs, nil
}

// readName consumes one XML name starting at *p, advancing past it.
// Returns "" without advancing when no name starts there.
func readName(s string, p *int) string {
	start := *p
	i := start
	for i < len(s) {
		r, size := utf8.DecodeRuneInString(s[i:])
		if i == start {
			if !isNameStartRune(r) {
				return ""
			}
		} else if !isNameRune(r) {
			break
		}
		i += size
	}
	if i == start {
		return ""
	}
	*p = i
	return s[start:i]
}

// expandAttrValue normalizes literal whitespace to spaces and expands
// character and predefined entity references. An unknown general entity
// in an attribute value is fatal immediately, there is no deferred
// resolution path for attributes.
func (s *scanner) expandAttrValue(val string, base int) (string, error) {
	var b strings.Builder
	b.Grow(len(val))
	for i := 0; i < len(val); {
		switch c := val[i]; c {
		case '<':
			return "", s.fatal(ErrInvalidToken, CodeInvalidToken, base+i)
		case '\t', '\n':
			b.WriteByte(' ')
			i++
		case '\r':
			b.WriteByte(' ')
			i++
			if i < len(val) && val[i] == '\n' {
				i++
			}
		case '&':
			semi := strings.IndexByte(val[i:], ';')
			if semi < 2 {
				return "", s.fatal(ErrInvalidToken, CodeInvalidToken, base+i)
			}
			body := val[i+1 : i+semi]
			switch {
			case body[0] == '#':
				r, ok := parseCharRef(body[1:])
				if !ok {
					return "", s.fatal(ErrBadCharRef, CodeBadCharRef, base+i)
				}
				b.WriteRune(r)
			default:
				if r, ok := predefinedEntity(body); ok {
					b.WriteString(r)
					break
				}
				if !isName(body) {
					return "", s.fatal(ErrInvalidToken, CodeInvalidToken, base+i)
				}
				return "", s.fatal(fmt.Errorf("%w &%s;", ErrUndefinedEntity, body), CodeUndefinedEntity, base+i)
			}
			i += semi + 1
		default:
			b.WriteByte(c)
			i++
		}
	}
	return b.String(), nil
}

func (s *scanner) scanEndTag() (int, error) {
	gt := bytes.IndexByte(s.buf, '>')
	if gt < 0 {
		if !s.final {
			return 0, nil
		}
		return 0, s.fatal(ErrUnclosedToken, CodeUnclosedToken, 0)
	}
	if s.state != scanContent {
		if s.state == scanEpilog {
			return 0, s.fatal(ErrJunkAfterDocElement, CodeJunkAfterDocElem, 0)
		}
		return 0, s.fatal(ErrSyntax, CodeSyntax, 0)
	}

	raw, bad, err := s.decode(s.buf[2:gt])
	if err != nil {
		return 0, s.fatal(err, decodeErrCode(err), 2+bad)
	}
	raw = strings.TrimRight(raw, " \t\r\n")
	if !isName(raw) {
		return 0, s.fatal(ErrInvalidToken, CodeInvalidToken, 2)
	}

	top, ok := s.open.Peek()
	if !ok || raw != top.raw {
		return 0, s.fatal(ErrTagMismatch, CodeTagMismatch, 0)
	}
	s.open.Pop()

	if err := s.h.EndElement(top.name, s.pos); err != nil {
		return 0, err
	}
	if err := s.popNamespaces(top.nsCount); err != nil {
		return 0, err
	}
	if s.open.Len() == 0 {
		s.state = scanEpilog
	}
	return gt + 1, nil
}

/* comments, CDATA, PIs, doctype */

func (s *scanner) scanComment() (int, error) {
	i := bytes.Index(s.buf[4:], []byte("--"))
	if i < 0 || 4+i+2 >= len(s.buf) {
		if !s.final {
			return 0, nil
		}
		return 0, s.fatal(ErrUnclosedToken, CodeUnclosedToken, 0)
	}
	end := 4 + i
	if s.buf[end+2] != '>' {
		return 0, s.fatal(ErrHyphenInComment, CodeInvalidToken, end)
	}

	body, bad, err := s.decode(s.buf[4:end])
	if err != nil {
		return 0, s.fatal(err, decodeErrCode(err), 4+bad)
	}
	if err := s.h.Comment(normalizeNewlines(body), s.pos); err != nil {
		return 0, err
	}
	return end + 3, nil
}

func (s *scanner) scanCDATA() (int, error) {
	if s.state != scanContent {
		if s.state == scanEpilog {
			return 0, s.fatal(ErrJunkAfterDocElement, CodeJunkAfterDocElem, 0)
		}
		return 0, s.fatal(ErrSyntax, CodeSyntax, 0)
	}
	const open = len("<![CDATA[")
	i := bytes.Index(s.buf[open:], []byte("]]>"))
	if i < 0 {
		if !s.final {
			return 0, nil
		}
		return 0, s.fatal(ErrUnclosedCDATA, CodeUnclosedCDATA, 0)
	}
	body, bad, err := s.decode(s.buf[open : open+i])
	if err != nil {
		return 0, s.fatal(err, decodeErrCode(err), open+bad)
	}
	if body != "" {
		if err := s.h.Characters(normalizeNewlines(body), s.pos); err != nil {
			return 0, err
		}
	}
	return open + i + 3, nil
}

func (s *scanner) scanPI() (int, error) {
	i := bytes.Index(s.buf[2:], []byte("?>"))
	if i < 0 {
		if !s.final {
			return 0, nil
		}
		return 0, s.fatal(ErrUnclosedToken, CodeUnclosedToken, 0)
	}
	end := 2 + i
	content, bad, err := s.decode(s.buf[2:end])
	if err != nil {
		return 0, s.fatal(err, decodeErrCode(err), 2+bad)
	}

	p := 0
	target := readName(content, &p)
	if target == "" {
		return 0, s.fatal(ErrInvalidToken, CodeInvalidToken, 2)
	}
	data := strings.TrimLeft(content[p:], " \t\r\n")
	if data == content[p:] && data != "" {
		return 0, s.fatal(ErrInvalidToken, CodeInvalidToken, 2+p)
	}

	if strings.EqualFold(target, "xml") {
		return s.scanXMLDecl(data, end+2)
	}

	if err := s.h.ProcessingInstruction(target, normalizeNewlines(data), s.pos); err != nil {
		return 0, err
	}
	return end + 2, nil
}

// scanXMLDecl handles the "<?xml ...?>" declaration, legal only as the
// very first token.
func (s *scanner) scanXMLDecl(body string, consumed int) (int, error) {
	if s.state != scanProlog || s.pos.Offset != s.declOffset {
		return 0, s.fatal(ErrMisplacedXMLDecl, CodeMisplacedXMLDecl, 0)
	}

	version := ""
	declEncoding := ""
	standalone := sax.StandaloneUnspecified
	p := 0
	for {
		for p < len(body) && isXMLSpace(body[p]) {
			p++
		}
		if p == len(body) {
			break
		}
		key := readName(body, &p)
		if key == "" || p == len(body) || body[p] != '=' {
			return 0, s.fatal(ErrSyntax, CodeSyntax, 2)
		}
		p++
		if p == len(body) || (body[p] != '"' && body[p] != '\'') {
			return 0, s.fatal(ErrSyntax, CodeSyntax, 2)
		}
		q := body[p]
		p++
		close := strings.IndexByte(body[p:], q)
		if close < 0 {
			return 0, s.fatal(ErrSyntax, CodeSyntax, 2)
		}
		value := body[p : p+close]
		p += close + 1

		switch key {
		case "version":
			version = value
		case "encoding":
			declEncoding = value
		case "standalone":
			switch value {
			case "yes":
				standalone = sax.StandaloneYes
			case "no":
				standalone = sax.StandaloneNo
			default:
				return 0, s.fatal(ErrSyntax, CodeSyntax, 2)
			}
		default:
			return 0, s.fatal(ErrSyntax, CodeSyntax, 2)
		}
	}
	if version == "" {
		return 0, s.fatal(ErrSyntax, CodeSyntax, 2)
	}

	if err := s.h.XMLDecl(version, declEncoding, standalone); err != nil {
		return 0, err
	}
	if declEncoding != "" && !s.forced {
		if err := s.setEncoding(declEncoding); err != nil {
			return 0, s.fatal(fmt.Errorf("%w %q", ErrUnknownEncoding, declEncoding), CodeUnknownEncoding, 0)
		}
	}
	return consumed, nil
}

func (s *scanner) scanDoctype() (int, error) {
	if s.state != scanProlog {
		if s.state == scanEpilog {
			return 0, s.fatal(ErrJunkAfterDocElement, CodeJunkAfterDocElem, 0)
		}
		return 0, s.fatal(ErrSyntax, CodeSyntax, 0)
	}

	const open = len("<!DOCTYPE")
	depth := 0
	var q byte
	end := -1
	for i := open; i < len(s.buf); i++ {
		c := s.buf[i]
		if q != 0 {
			if c == q {
				q = 0
			}
			continue
		}
		switch c {
		case '"', '\'':
			q = c
		case '[':
			depth++
		case ']':
			depth--
		case '>':
			if depth <= 0 {
				end = i
			}
		}
		if end >= 0 {
			break
		}
	}
	if end < 0 {
		if !s.final {
			return 0, nil
		}
		return 0, s.fatal(ErrUnclosedToken, CodeUnclosedToken, 0)
	}

	content, bad, err := s.decode(s.buf[open:end])
	if err != nil {
		return 0, s.fatal(err, decodeErrCode(err), open+bad)
	}

	hasSubset := strings.IndexByte(content, '[') >= 0
	if i := strings.IndexByte(content, '['); i >= 0 {
		content = content[:i]
	}

	p := 0
	for p < len(content) && isXMLSpace(content[p]) {
		p++
	}
	name := readName(content, &p)
	if name == "" {
		return 0, s.fatal(ErrSyntax, CodeSyntax, open)
	}

	publicID := ""
	systemID := ""
	for p < len(content) && isXMLSpace(content[p]) {
		p++
	}
	rest := content[p:]
	switch {
	case strings.HasPrefix(rest, "PUBLIC"):
		var ok bool
		rest = rest[len("PUBLIC"):]
		publicID, rest, ok = readQuoted(rest)
		if !ok {
			return 0, s.fatal(ErrSyntax, CodeSyntax, open)
		}
		systemID, rest, ok = readQuoted(rest)
		if !ok {
			return 0, s.fatal(ErrSyntax, CodeSyntax, open)
		}
	case strings.HasPrefix(rest, "SYSTEM"):
		var ok bool
		rest = rest[len("SYSTEM"):]
		systemID, rest, ok = readQuoted(rest)
		if !ok {
			return 0, s.fatal(ErrSyntax, CodeSyntax, open)
		}
	}
	if strings.TrimLeft(rest, " \t\r\n") != "" {
		return 0, s.fatal(ErrSyntax, CodeSyntax, open)
	}

	if err := s.h.StartDoctype(name, publicID, systemID, hasSubset); err != nil {
		return 0, err
	}
	if err := s.h.EndDoctype(); err != nil {
		return 0, err
	}
	return end + 1, nil
}

// readQuoted consumes leading whitespace and one quoted literal,
// returning the literal and the remaining input.
func readQuoted(s string) (string, string, bool) {
	i := 0
	for i < len(s) && isXMLSpace(s[i]) {
		i++
	}
	if i == len(s) || (s[i] != '"' && s[i] != '\'') {
		return "", s, false
	}
	q := s[i]
	i++
	close := strings.IndexByte(s[i:], q)
	if close < 0 {
		return "", s, false
	}
	return s[i : i+close], s[i+close+1:], true
}
