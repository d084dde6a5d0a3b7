package etree

import (
	"bytes"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/etree-go/etree/internal/stack"
	"github.com/etree-go/etree/sax"
	"github.com/pkg/errors"
)

// scanner is the push tokenizer. It keeps unconsumed bytes across feeds
// and only reports a token once its terminator has arrived, so a chunk
// boundary can fall anywhere in the input without changing the event
// stream.
//
// Tokens are consumed from the front of buf; pos always describes buf[0].
type scanner struct {
	h *sax.Handler

	buf    []byte
	pos    sax.Position
	lastCR bool

	state  scanState
	final  bool
	err    error
	forced bool

	// table is non-nil when the input is a single-byte encoding; each
	// byte is translated through it. A nil table means UTF-8.
	table *[256]rune

	open stack.Stack[openTag]
	ns   []nsBinding

	started    bool
	declOffset int
}

type scanState int

const (
	scanProlog scanState = iota
	scanContent
	scanEpilog
)

type openTag struct {
	raw     string
	name    sax.QName
	nsCount int
}

type nsBinding struct {
	prefix string
	uri    string
}

const xmlNamespaceURI = "http://www.w3.org/XML/1998/namespace"

func newScanner(h *sax.Handler, forcedEncoding string) (*scanner, error) {
	s := &scanner{
		h:   h,
		pos: sax.Position{Line: 1},
	}
	if forcedEncoding != "" {
		if err := s.setEncoding(forcedEncoding); err != nil {
			return nil, errors.Wrapf(err, "unsupported encoding %q", forcedEncoding)
		}
		s.forced = true
	}
	return s, nil
}

func (s *scanner) position() sax.Position {
	return s.pos
}

// setEncoding resolves an encoding name to a translation table. UTF-8 and
// its ASCII subset run natively; everything else goes through the
// unknown-encoding handler.
func (s *scanner) setEncoding(name string) error {
	switch strings.ToLower(name) {
	case "utf-8", "utf8", "us-ascii", "ascii":
		s.table = nil
		return nil
	}
	table, ok, err := s.h.UnknownEncoding(name)
	if err != nil {
		return err
	}
	if !ok || table == nil {
		return errors.Errorf("no translation table for %q", name)
	}
	s.table = table
	return nil
}

// feed appends data and consumes as many complete tokens as possible.
// final signals end of input; a token still missing its terminator then
// becomes an error instead of a wait.
func (s *scanner) feed(data []byte, final bool) error {
	if s.err != nil {
		return s.err
	}
	if final {
		s.final = true
	}
	if len(data) > 0 {
		s.buf = append(s.buf, data...)
	}
	if err := s.run(); err != nil {
		s.err = err
		return err
	}
	if s.final {
		if err := s.finalize(); err != nil {
			s.err = err
			return err
		}
	}
	return nil
}

func (s *scanner) run() error {
	for len(s.buf) > 0 {
		if !s.started {
			if s.buf[0] == 0xEF {
				if len(s.buf) < 3 && !s.final {
					return nil
				}
				if len(s.buf) >= 3 && s.buf[1] == 0xBB && s.buf[2] == 0xBF {
					s.buf = s.buf[3:]
					s.pos.Offset += 3
				}
			}
			s.started = true
			s.declOffset = s.pos.Offset
			if len(s.buf) == 0 {
				return nil
			}
		}

		var n int
		var err error
		switch {
		case s.buf[0] == '<':
			n, err = s.scanMarkup()
		case s.buf[0] == '&' && s.state == scanContent:
			n, err = s.scanReference()
		default:
			n, err = s.scanText()
		}
		if err != nil {
			return err
		}
		if n == 0 {
			return nil
		}
		s.advance(n)
	}
	return nil
}

// finalize runs after the last byte was consumed. Anything short of a
// completed document element is "no element found", matching what callers
// of expat-backed parsers expect for truncated input.
func (s *scanner) finalize() error {
	if s.state != scanEpilog {
		return s.fatal(ErrNoElements, CodeNoElements, 0)
	}
	return nil
}

// stepPos advances a position over raw bytes. CRLF counts as one line
// break; in UTF-8 mode continuation bytes do not advance the column.
func stepPos(pos sax.Position, lastCR, wide bool, data []byte) (sax.Position, bool) {
	for _, b := range data {
		pos.Offset++
		if b == '\n' {
			if !lastCR {
				pos.Line++
			}
			pos.Column = 0
			lastCR = false
			continue
		}
		if b == '\r' {
			pos.Line++
			pos.Column = 0
			lastCR = true
			continue
		}
		lastCR = false
		if !wide || b < 0x80 || b >= 0xC0 {
			pos.Column++
		}
	}
	return pos, lastCR
}

func (s *scanner) advance(n int) {
	s.pos, s.lastCR = stepPos(s.pos, s.lastCR, s.table == nil, s.buf[:n])
	s.buf = s.buf[n:]
}

// positionAt resolves the position of buf[i] without consuming anything.
func (s *scanner) positionAt(i int) sax.Position {
	p, _ := stepPos(s.pos, s.lastCR, s.table == nil, s.buf[:i])
	return p
}

// fatal builds the sticky ParseError for the byte at buf[i].
func (s *scanner) fatal(err error, code ErrorCode, i int) error {
	p := s.positionAt(i)
	return &ParseError{
		Err:    err,
		Code:   code,
		Line:   p.Line,
		Column: p.Column,
		Offset: p.Offset,
	}
}

/* character data */

// scanText consumes a run of character data up to the next markup
// delimiter. Outside the document element only whitespace may appear.
func (s *scanner) scanText() (int, error) {
	end := len(s.buf)
	for i, b := range s.buf {
		if b == '<' || (b == '&' && s.state == scanContent) {
			end = i
			break
		}
	}

	if s.state != scanContent {
		for i := 0; i < end; i++ {
			if !isXMLSpace(s.buf[i]) {
				if s.state == scanEpilog {
					return 0, s.fatal(ErrJunkAfterDocElement, CodeJunkAfterDocElem, i)
				}
				return 0, s.fatal(ErrSyntax, CodeSyntax, i)
			}
		}
		return end, nil
	}

	if end == len(s.buf) && !s.final {
		// Hold back bytes that may be the first half of a split
		// CRLF, "]]>" sequence, or multi-byte rune.
		for end > 0 && (s.buf[end-1] == '\r' || s.buf[end-1] == ']') {
			end--
		}
		if s.table == nil {
			if i := lastRuneStart(s.buf[:end]); i >= 0 && !utf8.FullRune(s.buf[i:end]) {
				end = i
			}
		}
		if end == 0 {
			return 0, nil
		}
	}

	seg := s.buf[:end]
	if i := bytes.Index(seg, []byte("]]>")); i >= 0 {
		return 0, s.fatal(ErrInvalidToken, CodeInvalidToken, i)
	}
	text, bad, err := s.decode(seg)
	if err != nil {
		return 0, s.fatal(err, decodeErrCode(err), bad)
	}
	if text != "" {
		if err := s.h.Characters(normalizeNewlines(text), s.pos); err != nil {
			return 0, err
		}
	}
	return end, nil
}

// lastRuneStart finds the start of the last UTF-8 sequence in b, or -1
// when the tail is ASCII or malformed beyond repair.
func lastRuneStart(b []byte) int {
	for i := len(b) - 1; i >= 0 && i >= len(b)-utf8.UTFMax; i-- {
		if c := b[i]; c >= 0xC0 {
			return i
		} else if c < 0x80 {
			return -1
		}
	}
	return -1
}

// scanReference consumes one general or character reference in content.
func (s *scanner) scanReference() (int, error) {
	idx := bytes.IndexByte(s.buf, ';')
	if idx < 0 {
		if !s.final {
			return 0, nil
		}
		return 0, s.fatal(ErrUnclosedToken, CodeUnclosedToken, 0)
	}
	body := string(s.buf[1:idx])
	if body == "" {
		return 0, s.fatal(ErrInvalidToken, CodeInvalidToken, 1)
	}

	if body[0] == '#' {
		r, ok := parseCharRef(body[1:])
		if !ok {
			return 0, s.fatal(ErrBadCharRef, CodeBadCharRef, 0)
		}
		if err := s.h.Characters(string(r), s.pos); err != nil {
			return 0, err
		}
		return idx + 1, nil
	}

	if !isName(body) {
		return 0, s.fatal(ErrInvalidToken, CodeInvalidToken, 1)
	}
	if r, ok := predefinedEntity(body); ok {
		if err := s.h.Characters(r, s.pos); err != nil {
			return 0, err
		}
		return idx + 1, nil
	}
	if err := s.h.Default(string(s.buf[:idx+1]), s.pos); err != nil {
		return 0, err
	}
	return idx + 1, nil
}

// parseCharRef parses the body of a character reference after the '#',
// e.g. "65" or "x41", and rejects codepoints outside the XML Char range.
func parseCharRef(body string) (rune, bool) {
	if body == "" {
		return 0, false
	}
	var n uint32
	if body[0] == 'x' || body[0] == 'X' {
		if len(body) == 1 {
			return 0, false
		}
		for _, c := range body[1:] {
			var d uint32
			switch {
			case c >= '0' && c <= '9':
				d = uint32(c - '0')
			case c >= 'a' && c <= 'f':
				d = uint32(c-'a') + 10
			case c >= 'A' && c <= 'F':
				d = uint32(c-'A') + 10
			default:
				return 0, false
			}
			n = n*16 + d
			if n > 0x10FFFF {
				return 0, false
			}
		}
	} else {
		for _, c := range body {
			if c < '0' || c > '9' {
				return 0, false
			}
			n = n*10 + uint32(c-'0')
			if n > 0x10FFFF {
				return 0, false
			}
		}
	}
	r := rune(n)
	if !isXMLChar(r) {
		return 0, false
	}
	return r, true
}

func predefinedEntity(name string) (string, bool) {
	switch name {
	case "amp":
		return "&", true
	case "lt":
		return "<", true
	case "gt":
		return ">", true
	case "apos":
		return "'", true
	case "quot":
		return `"`, true
	}
	return "", false
}

/* decoding */

// decode converts raw bytes to a string in the document encoding and
// rejects characters that cannot appear in XML. The second return is the
// byte index of the first offending byte.
func (s *scanner) decode(seg []byte) (string, int, error) {
	if s.table != nil {
		var b strings.Builder
		b.Grow(len(seg))
		for i, c := range seg {
			r := s.table[c]
			if r < 0 {
				return "", i, ErrInvalidEncoding
			}
			if !isXMLChar(r) {
				return "", i, ErrInvalidToken
			}
			b.WriteRune(r)
		}
		return b.String(), 0, nil
	}

	for i := 0; i < len(seg); {
		r, size := utf8.DecodeRune(seg[i:])
		if r == utf8.RuneError && size <= 1 {
			return "", i, ErrInvalidUTF8
		}
		if !isXMLChar(r) {
			return "", i, ErrInvalidToken
		}
		i += size
	}
	return string(seg), 0, nil
}

func decodeErrCode(err error) ErrorCode {
	switch err {
	case ErrInvalidEncoding, ErrInvalidUTF8:
		return CodeIncorrectEncoding
	default:
		return CodeInvalidToken
	}
}

func normalizeNewlines(s string) string {
	if !strings.ContainsRune(s, '\r') {
		return s
	}
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\r", "\n")
}

/* predicates */

func isXMLSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\r' || b == '\n'
}

func isXMLChar(r rune) bool {
	switch {
	case r == '\t' || r == '\n' || r == '\r':
		return true
	case r >= 0x20 && r <= 0xD7FF:
		return true
	case r >= 0xE000 && r <= 0xFFFD:
		return true
	case r >= 0x10000 && r <= 0x10FFFF:
		return true
	}
	return false
}

func isNameStartRune(r rune) bool {
	switch {
	case r == ':' || r == '_':
		return true
	case r >= 'A' && r <= 'Z', r >= 'a' && r <= 'z':
		return true
	case r >= 0xC0 && r <= 0xD6, r >= 0xD8 && r <= 0xF6:
		return true
	case r >= 0xF8 && r <= 0x2FF, r >= 0x370 && r <= 0x37D:
		return true
	case r >= 0x37F && r <= 0x1FFF, r >= 0x200C && r <= 0x200D:
		return true
	case r >= 0x2070 && r <= 0x218F, r >= 0x2C00 && r <= 0x2FEF:
		return true
	case r >= 0x3001 && r <= 0xD7FF, r >= 0xF900 && r <= 0xFDCF:
		return true
	case r >= 0xFDF0 && r <= 0xFFFD, r >= 0x10000 && r <= 0xEFFFF:
		return true
	}
	return false
}

func isNameRune(r rune) bool {
	switch {
	case isNameStartRune(r):
		return true
	case r == '-' || r == '.':
		return true
	case r >= '0' && r <= '9':
		return true
	case r == 0xB7, r >= 0x300 && r <= 0x36F, r >= 0x203F && r <= 0x2040:
		return true
	}
	return false
}

func isName(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		if i == 0 {
			if !isNameStartRune(r) {
				return false
			}
			continue
		}
		if !isNameRune(r) {
			return false
		}
	}
	return true
}

/* namespaces */

// pushNamespace binds a prefix for the scope of the current element and
// reports it, "" being the default namespace.
func (s *scanner) pushNamespace(prefix, uri string) error {
	s.ns = append(s.ns, nsBinding{prefix: prefix, uri: uri})
	return s.h.StartNamespace(prefix, uri)
}

// popNamespaces unwinds the n innermost bindings in reverse declaration
// order.
func (s *scanner) popNamespaces(n int) error {
	for ; n > 0; n-- {
		b := s.ns[len(s.ns)-1]
		s.ns = s.ns[:len(s.ns)-1]
		if err := s.h.EndNamespace(b.prefix); err != nil {
			return err
		}
	}
	return nil
}

// lookupNamespace resolves a prefix against the innermost binding. The
// empty prefix resolves to the default namespace, which may be unbound.
func (s *scanner) lookupNamespace(prefix string) (string, bool) {
	if prefix == "xml" {
		return xmlNamespaceURI, true
	}
	for i := len(s.ns) - 1; i >= 0; i-- {
		if s.ns[i].prefix == prefix {
			if s.ns[i].uri == "" {
				return "", prefix == ""
			}
			return s.ns[i].uri, true
		}
	}
	return "", prefix == ""
}

// resolveName splits a raw prefixed name and resolves the prefix. useDefault
// is true for element names; attribute names without a prefix stay in no
// namespace.
func (s *scanner) resolveName(raw string, useDefault bool) (sax.QName, error) {
	i := strings.IndexByte(raw, ':')
	if i < 0 {
		if !useDefault {
			return sax.QName{Local: raw}, nil
		}
		uri, _ := s.lookupNamespace("")
		return sax.QName{Space: uri, Local: raw}, nil
	}
	prefix, local := raw[:i], raw[i+1:]
	if prefix == "" || local == "" || strings.IndexByte(local, ':') >= 0 {
		return sax.QName{}, ErrInvalidToken
	}
	uri, ok := s.lookupNamespace(prefix)
	if !ok {
		return sax.QName{}, fmt.Errorf("%w: %s", ErrUnboundPrefix, prefix)
	}
	return sax.QName{Space: uri, Local: local}, nil
}
