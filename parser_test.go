package etree

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseString(t *testing.T, src string, options ...ParserOption) *Element {
	t.Helper()
	p, err := NewXMLParser(options...)
	require.NoError(t, err)
	require.NoError(t, p.Feed([]byte(src)))
	result, err := p.Close()
	require.NoError(t, err)
	root, ok := result.(*Element)
	require.True(t, ok, "expected an element result, got %T", result)
	return root
}

func parseError(t *testing.T, src string) *ParseError {
	t.Helper()
	p, err := NewXMLParser()
	require.NoError(t, err)
	err = p.Feed([]byte(src))
	if err == nil {
		_, err = p.Close()
	}
	require.Error(t, err)
	var perr *ParseError
	require.ErrorAs(t, err, &perr)
	return perr
}

func TestParseDocument(t *testing.T) {
	root := parseString(t, `<a><b x="1">hi<c/>there</b>tail</a>`)

	assert.Equal(t, "a", root.Tag())
	require.Equal(t, 1, root.Len())

	b, err := root.Child(0)
	require.NoError(t, err)
	assert.Equal(t, "b", b.Tag())
	assert.Equal(t, "1", b.Get("x", ""))
	assert.Equal(t, "hi", b.Text())
	assert.Equal(t, "tail", b.Tail())

	c, err := b.Child(0)
	require.NoError(t, err)
	assert.Equal(t, "c", c.Tag())
	assert.Equal(t, "", c.Text())
	assert.Equal(t, "there", c.Tail())
}

func TestParseSplitFeeds(t *testing.T) {
	p, err := NewXMLParser()
	require.NoError(t, err)

	require.NoError(t, p.Feed([]byte(`<a>hel`)))
	require.NoError(t, p.Feed([]byte(`lo</a>`)))
	result, err := p.Close()
	require.NoError(t, err)

	root := result.(*Element)
	assert.Equal(t, "hello", root.Text())
}

func TestParseByteAtATime(t *testing.T) {
	src := `<?xml version="1.0"?><root a="1&amp;2"><!-- c --><k>v</k></root>`
	p, err := NewXMLParser()
	require.NoError(t, err)
	for i := 0; i < len(src); i++ {
		require.NoError(t, p.Feed([]byte{src[i]}), "byte %d of %q", i, src)
	}
	result, err := p.Close()
	require.NoError(t, err)

	root := result.(*Element)
	assert.Equal(t, "root", root.Tag())
	assert.Equal(t, "1&2", root.Get("a", ""))
	k, err := root.Child(0)
	require.NoError(t, err)
	assert.Equal(t, "v", k.Text())
}

func TestParseXMLDecl(t *testing.T) {
	root := parseString(t, `<?xml version="1.0" encoding="utf-8" standalone="yes"?><a/>`)
	assert.Equal(t, "a", root.Tag())
}

func TestParseCDATA(t *testing.T) {
	root := parseString(t, `<a>one <![CDATA[<two> & three]]> four</a>`)
	assert.Equal(t, "one <two> & three four", root.Text())
}

func TestParseReferences(t *testing.T) {
	root := parseString(t, `<a>&lt;&amp;&gt; &#65;&#x42;</a>`)
	assert.Equal(t, "<&> AB", root.Text())
}

func TestParseEntityMap(t *testing.T) {
	p, err := NewXMLParser()
	require.NoError(t, err)
	p.Entity()["name"] = "Fredrik"

	require.NoError(t, p.Feed([]byte(`<a>hello &name;</a>`)))
	result, err := p.Close()
	require.NoError(t, err)
	assert.Equal(t, "hello Fredrik", result.(*Element).Text())
}

func TestParseUndefinedEntity(t *testing.T) {
	p, err := NewXMLParser()
	require.NoError(t, err)

	err = p.Feed([]byte(`<a>&bogus;</a>`))
	require.Error(t, err)
	assert.Equal(t, "undefined entity &bogus;: line 1, column 3", err.Error())

	var perr *ParseError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, CodeUndefinedEntity, perr.Code)
	assert.ErrorIs(t, perr, ErrUndefinedEntity)

	// the first error sticks
	err2 := p.Feed([]byte(`<more/>`))
	assert.Same(t, err, err2)
	_, err3 := p.Close()
	assert.Same(t, err, err3)
}

func TestParseNamespaces(t *testing.T) {
	root := parseString(t, `<p:a xmlns:p="urn:x" xmlns="urn:d" q="1" p:r="2"><b/><p:c/></p:a>`)

	assert.Equal(t, "{urn:x}a", root.Tag())
	assert.Equal(t, "1", root.Get("q", ""), "unprefixed attributes stay in no namespace")
	assert.Equal(t, "2", root.Get("{urn:x}r", ""))

	b, err := root.Child(0)
	require.NoError(t, err)
	assert.Equal(t, "{urn:d}b", b.Tag(), "the default namespace applies to elements")
	c, err := root.Child(1)
	require.NoError(t, err)
	assert.Equal(t, "{urn:x}c", c.Tag())
}

func TestParseUnboundPrefix(t *testing.T) {
	perr := parseError(t, `<p:a/>`)
	assert.Equal(t, CodeUnboundPrefix, perr.Code)
	assert.ErrorIs(t, perr, ErrUnboundPrefix)
}

func TestParseEvents(t *testing.T) {
	p, err := NewXMLParser()
	require.NoError(t, err)
	q := NewEventQueue()
	require.NoError(t, p.SetEvents(q, "start", "end", "start-ns", "end-ns"))

	require.NoError(t, p.Feed([]byte(`<a xmlns:p="urn:x"><p:b/></a>`)))
	_, err = p.Close()
	require.NoError(t, err)

	var got []string
	for {
		ev, ok := q.Pop()
		if !ok {
			break
		}
		switch ev.Kind {
		case StartEvent, EndEvent:
			got = append(got, fmt.Sprintf("%s %s", ev.Kind, ev.Elem.Tag()))
		case StartNSEvent:
			got = append(got, fmt.Sprintf("%s %s=%s", ev.Kind, ev.Prefix, ev.URI))
		case EndNSEvent:
			got = append(got, fmt.Sprintf("%s %s", ev.Kind, ev.Prefix))
		}
	}
	assert.Equal(t, []string{
		"start-ns p=urn:x",
		"start a",
		"start {urn:x}b",
		"end {urn:x}b",
		"end a",
		"end-ns p",
	}, got)
}

func TestParseEventsDefaultKind(t *testing.T) {
	p, err := NewXMLParser()
	require.NoError(t, err)
	q := NewEventQueue()
	require.NoError(t, p.SetEvents(q))

	require.NoError(t, p.Feed([]byte(`<a><b/></a>`)))
	_, err = p.Close()
	require.NoError(t, err)

	var tags []string
	for {
		ev, ok := q.Pop()
		if !ok {
			break
		}
		require.Equal(t, EndEvent, ev.Kind)
		tags = append(tags, ev.Elem.Tag())
	}
	assert.Equal(t, []string{"b", "a"}, tags)
}

func TestParseEventsIncremental(t *testing.T) {
	p, err := NewXMLParser()
	require.NoError(t, err)
	q := NewEventQueue()
	require.NoError(t, p.SetEvents(q, "start"))

	require.NoError(t, p.Feed([]byte(`<a><b>`)))
	ev, ok := q.Pop()
	require.True(t, ok)
	assert.Equal(t, "a", ev.Elem.Tag())
	ev, ok = q.Pop()
	require.True(t, ok)
	assert.Equal(t, "b", ev.Elem.Tag())
	_, ok = q.Pop()
	assert.False(t, ok, "no event until more input arrives")

	require.NoError(t, p.Feed([]byte(`<c/></b></a>`)))
	ev, ok = q.Pop()
	require.True(t, ok)
	assert.Equal(t, "c", ev.Elem.Tag())
}

func TestSetEventsErrors(t *testing.T) {
	p, err := NewXMLParser()
	require.NoError(t, err)

	assert.ErrorIs(t, p.SetEvents(nil), ErrNilQueue)

	err = p.SetEvents(NewEventQueue(), "bogus")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownEvent)
	assert.Contains(t, err.Error(), `"bogus"`)

	custom := &recordingTarget{}
	p2, err := NewXMLParser(WithTarget(custom))
	require.NoError(t, err)
	assert.ErrorIs(t, p2.SetEvents(NewEventQueue(), "end"), ErrEventsUnsupported)
}

func TestParsePositions(t *testing.T) {
	root := parseString(t, "<a>\n  <b/>\n</a>")

	require.NotNil(t, root.Start())
	assert.Equal(t, Position{Line: 1, Column: 0, Offset: 0}, *root.Start())
	require.NotNil(t, root.End())
	assert.Equal(t, Position{Line: 3, Column: 0, Offset: 11}, *root.End())

	b, err := root.Child(0)
	require.NoError(t, err)
	require.NotNil(t, b.Start())
	assert.Equal(t, Position{Line: 2, Column: 2, Offset: 6}, *b.Start())
}

func TestParserPositionAccessors(t *testing.T) {
	p, err := NewXMLParser()
	require.NoError(t, err)
	require.NoError(t, p.Feed([]byte("<a>one\ntwo")))
	assert.Equal(t, 2, p.LineNumber())
	assert.Equal(t, 3, p.ColumnNumber())
	assert.Equal(t, 10, p.ByteIndex())
}

func TestParseComments(t *testing.T) {
	builder := NewTreeBuilder(WithComments(true), WithPIs(true))
	root := parseString(t, `<a><!-- note --><?sort ascending?></a>`, WithTarget(builder))

	require.Equal(t, 2, root.Len())
	comment, err := root.Child(0)
	require.NoError(t, err)
	assert.Equal(t, CommentTag, comment.Tag())
	assert.Equal(t, " note ", comment.Text())
	pi, err := root.Child(1)
	require.NoError(t, err)
	assert.Equal(t, PITag, pi.Tag())
	assert.Equal(t, "sort ascending", pi.Text())
}

func TestParseCommentsDroppedByDefault(t *testing.T) {
	root := parseString(t, `<a>x<!-- note -->y</a>`)
	assert.Equal(t, 0, root.Len())
	assert.Equal(t, "xy", root.Text(), "text joins across a dropped comment")
}

func TestParseSingleByteEncoding(t *testing.T) {
	src := append([]byte(`<?xml version="1.0" encoding="iso-8859-1"?><a>caf`), 0xE9, '<', '/', 'a', '>')
	p, err := NewXMLParser()
	require.NoError(t, err)
	require.NoError(t, p.Feed(src))
	result, err := p.Close()
	require.NoError(t, err)
	assert.Equal(t, "café", result.(*Element).Text())
}

func TestParseForcedEncoding(t *testing.T) {
	src := append([]byte(`<a>caf`), 0xE9, '<', '/', 'a', '>')
	p, err := NewXMLParser(WithParserEncoding("iso-8859-1"))
	require.NoError(t, err)
	require.NoError(t, p.Feed(src))
	result, err := p.Close()
	require.NoError(t, err)
	assert.Equal(t, "café", result.(*Element).Text())
}

func TestParseUnknownEncoding(t *testing.T) {
	perr := parseError(t, `<?xml version="1.0" encoding="klingon"?><a/>`)
	assert.Equal(t, CodeUnknownEncoding, perr.Code)
	assert.ErrorIs(t, perr, ErrUnknownEncoding)
}

func TestParseErrors(t *testing.T) {
	data := []struct {
		name string
		src  string
		code ErrorCode
		want error
	}{
		{"empty", "", CodeNoElements, ErrNoElements},
		{"whitespace only", "   \n ", CodeNoElements, ErrNoElements},
		{"truncated", "<a>", CodeNoElements, ErrNoElements},
		{"mismatched tag", "<a></b>", CodeTagMismatch, ErrTagMismatch},
		{"second root", "<a/><b/>", CodeJunkAfterDocElem, ErrJunkAfterDocElement},
		{"text after root", "<a/>junk", CodeJunkAfterDocElem, ErrJunkAfterDocElement},
		{"text before root", "junk<a/>", CodeSyntax, ErrSyntax},
		{"duplicate attribute", `<a x="1" x="2"/>`, CodeDuplicateAttribute, ErrDuplicateAttribute},
		{"lt in attribute", `<a x="<"/>`, CodeInvalidToken, ErrInvalidToken},
		{"bad char ref", `<a>&#xFFFE;</a>`, CodeBadCharRef, ErrBadCharRef},
		{"zero char ref", `<a>&#0;</a>`, CodeBadCharRef, ErrBadCharRef},
		{"unclosed cdata", `<a><![CDATA[x`, CodeUnclosedCDATA, ErrUnclosedCDATA},
		{"double hyphen comment", `<a><!-- x -- y --></a>`, CodeInvalidToken, ErrHyphenInComment},
		{"misplaced xml decl", `<a/><?xml version="1.0"?>`, CodeMisplacedXMLDecl, ErrMisplacedXMLDecl},
		{"late xml decl", ` <?xml version="1.0"?><a/>`, CodeMisplacedXMLDecl, ErrMisplacedXMLDecl},
		{"cdata end in text", `<a>x]]>y</a>`, CodeInvalidToken, ErrInvalidToken},
	}
	for _, tc := range data {
		t.Run(tc.name, func(t *testing.T) {
			perr := parseError(t, tc.src)
			assert.Equal(t, tc.code, perr.Code)
			assert.ErrorIs(t, perr, tc.want)
		})
	}
}

func TestParseErrorMessage(t *testing.T) {
	perr := parseError(t, "<a>")
	assert.Equal(t, "no element found: line 1, column 3", perr.Error())
	line, col := perr.Position()
	assert.Equal(t, 1, line)
	assert.Equal(t, 3, col)
}

func TestParserVersion(t *testing.T) {
	p, err := NewXMLParser()
	require.NoError(t, err)
	assert.Equal(t, "etree "+Version, p.ParserVersion())
}

type recordingTarget struct {
	calls  []string
	closed bool
}

func (r *recordingTarget) Start(tag string, attrib *Attrib) error {
	r.calls = append(r.calls, "start "+tag)
	return nil
}

func (r *recordingTarget) Data(data string) error {
	r.calls = append(r.calls, "data "+data)
	return nil
}

func (r *recordingTarget) End(tag string) error {
	r.calls = append(r.calls, "end "+tag)
	return nil
}

func (r *recordingTarget) Close() (any, error) {
	r.closed = true
	return "done", nil
}

func TestParseCustomTarget(t *testing.T) {
	target := &recordingTarget{}
	p, err := NewXMLParser(WithTarget(target))
	require.NoError(t, err)
	assert.Same(t, target, p.Target())

	require.NoError(t, p.Feed([]byte(`<a>text<b/></a>`)))
	result, err := p.Close()
	require.NoError(t, err)
	assert.Equal(t, "done", result)
	assert.True(t, target.closed)
	assert.Equal(t, []string{"start a", "data text", "start b", "end b", "end a"}, target.calls)
}

type partialTarget struct {
	tags []string
}

func (p *partialTarget) Start(tag string, attrib *Attrib) error {
	p.tags = append(p.tags, tag)
	return nil
}

func TestParsePartialTarget(t *testing.T) {
	target := &partialTarget{}
	p, err := NewXMLParser(WithTarget(target))
	require.NoError(t, err)

	require.NoError(t, p.Feed([]byte(`<a>text<b/></a>`)))
	result, err := p.Close()
	require.NoError(t, err)
	assert.Nil(t, result, "a target without Close yields no result")
	assert.Equal(t, []string{"a", "b"}, target.tags)
}
