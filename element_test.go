package etree

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeChildren(tags ...string) []*Element {
	list := make([]*Element, len(tags))
	for i, tag := range tags {
		list[i] = NewElement(tag, nil)
	}
	return list
}

func TestElementTag(t *testing.T) {
	e := NewElement("{urn:x}foo", nil)
	assert.Equal(t, "{urn:x}foo", e.Tag())
	assert.Equal(t, "urn:x", e.Space())
	assert.Equal(t, "foo", e.Local())

	e.SetTag("bar")
	assert.Equal(t, "", e.Space())
	assert.Equal(t, "bar", e.Local())
}

func TestElementAttributes(t *testing.T) {
	e := NewElement("a", nil)
	assert.Nil(t, e.Attrib(), "attribute storage should stay unallocated")
	assert.Equal(t, "fallback", e.Get("x", "fallback"))
	assert.Nil(t, e.Keys())

	e.Set("x", "1")
	e.Set("y", "2")
	e.Set("x", "3")
	assert.Equal(t, "3", e.Get("x", ""))
	assert.Equal(t, []string{"x", "y"}, e.Keys(), "insertion order survives overwrite")
}

func TestElementChildAccess(t *testing.T) {
	e := NewElement("root", nil)
	kids := makeChildren("a", "b", "c")
	require.NoError(t, e.Extend(kids...))
	require.Equal(t, 3, e.Len())

	c, err := e.Child(-1)
	require.NoError(t, err)
	assert.Equal(t, "c", c.Tag())

	_, err = e.Child(3)
	assert.ErrorIs(t, err, ErrIndexOutOfRange)
	_, err = e.Child(-4)
	assert.ErrorIs(t, err, ErrIndexOutOfRange)

	require.NoError(t, e.SetChild(1, NewElement("B", nil)))
	c, err = e.Child(1)
	require.NoError(t, err)
	assert.Equal(t, "B", c.Tag())

	require.NoError(t, e.DeleteChild(0))
	assert.Equal(t, 2, e.Len())
}

func TestElementExtendAtomic(t *testing.T) {
	e := NewElement("root", nil)
	err := e.Extend(NewElement("a", nil), nil, NewElement("b", nil))
	assert.ErrorIs(t, err, ErrNilElement)
	assert.Equal(t, 0, e.Len(), "a failed extend must not append anything")
}

func TestElementInsertClamps(t *testing.T) {
	e := NewElement("root", nil)
	require.NoError(t, e.Extend(makeChildren("a", "b", "c")...))

	require.NoError(t, e.Insert(-1, NewElement("x", nil)))
	assert.Equal(t, []string{"a", "b", "x", "c"}, childTags(e))

	require.NoError(t, e.Insert(-100, NewElement("front", nil)))
	assert.Equal(t, "front", childTags(e)[0])

	require.NoError(t, e.Insert(100, NewElement("back", nil)))
	tags := childTags(e)
	assert.Equal(t, "back", tags[len(tags)-1])
}

func TestElementRemoveByIdentity(t *testing.T) {
	e := NewElement("root", nil)
	dup1 := NewElement("dup", nil)
	dup2 := NewElement("dup", nil)
	require.NoError(t, e.Extend(dup1, dup2))

	require.NoError(t, e.Remove(dup2))
	require.Equal(t, 1, e.Len())
	c, err := e.Child(0)
	require.NoError(t, err)
	assert.Same(t, dup1, c, "removal matches by identity, not tag")

	assert.ErrorIs(t, e.Remove(NewElement("dup", nil)), ErrNotInTree)
}

func childTags(e *Element) []string {
	var tags []string
	for _, c := range e.Children() {
		tags = append(tags, c.Tag())
	}
	return tags
}

func TestElementSlice(t *testing.T) {
	e := NewElement("root", nil)
	require.NoError(t, e.Extend(makeChildren("a", "b", "c", "d")...))

	got, err := e.Slice(1, 3, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "c"}, tagsOf(got))

	got, err = e.Slice(NoIndex, NoIndex, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "c"}, tagsOf(got))

	got, err = e.Slice(NoIndex, NoIndex, -1)
	require.NoError(t, err)
	assert.Equal(t, []string{"d", "c", "b", "a"}, tagsOf(got))

	got, err = e.Slice(-2, NoIndex, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "d"}, tagsOf(got))

	got, err = e.Slice(10, 20, 1)
	require.NoError(t, err)
	assert.Empty(t, got, "out of range bounds clamp to an empty selection")

	_, err = e.Slice(0, 4, 0)
	assert.ErrorIs(t, err, ErrZeroStep)
}

func TestElementSetSliceStepOne(t *testing.T) {
	e := NewElement("root", nil)
	require.NoError(t, e.Extend(makeChildren("a", "b", "c", "d")...))

	require.NoError(t, e.SetSlice(1, 3, 1, makeChildren("x")))
	assert.Equal(t, []string{"a", "x", "d"}, childTags(e))

	require.NoError(t, e.SetSlice(1, 1, 1, makeChildren("p", "q")))
	assert.Equal(t, []string{"a", "p", "q", "x", "d"}, childTags(e))

	require.NoError(t, e.SetSlice(NoIndex, NoIndex, 1, nil))
	assert.Equal(t, 0, e.Len())
}

func TestElementSetSliceExtended(t *testing.T) {
	e := NewElement("root", nil)
	require.NoError(t, e.Extend(makeChildren("a", "b", "c", "d")...))

	require.NoError(t, e.SetSlice(0, 4, 2, makeChildren("x", "y")))
	assert.Equal(t, []string{"x", "b", "y", "d"}, childTags(e))

	err := e.SetSlice(0, 4, 2, makeChildren("only"))
	assert.ErrorIs(t, err, ErrSliceLength)
	assert.Equal(t, []string{"x", "b", "y", "d"}, childTags(e), "failed assignment leaves children untouched")
}

func TestElementDelSlice(t *testing.T) {
	e := NewElement("root", nil)
	require.NoError(t, e.Extend(makeChildren("a", "b", "c", "d", "e")...))

	require.NoError(t, e.DelSlice(NoIndex, NoIndex, 2))
	assert.Equal(t, []string{"b", "d"}, childTags(e))

	require.NoError(t, e.DelSlice(0, 1, 1))
	assert.Equal(t, []string{"d"}, childTags(e))
}

func tagsOf(list []*Element) []string {
	var tags []string
	for _, c := range list {
		tags = append(tags, c.Tag())
	}
	return tags
}

func TestElementIter(t *testing.T) {
	root := NewElement("a", nil)
	b := NewElement("b", nil)
	c := NewElement("c", nil)
	b2 := NewElement("b", nil)
	require.NoError(t, root.Append(b))
	require.NoError(t, b.Append(c))
	require.NoError(t, root.Append(b2))

	var all []string
	for e := range root.Iter("") {
		all = append(all, e.Tag())
	}
	assert.Equal(t, []string{"a", "b", "c", "b"}, all, "document order")

	var bs []*Element
	for e := range root.Iter("b") {
		bs = append(bs, e)
	}
	require.Len(t, bs, 2)
	assert.Same(t, b, bs[0])
	assert.Same(t, b2, bs[1])
}

func TestElementIterText(t *testing.T) {
	root := NewElement("a", nil)
	root.SetText("one ")
	b := NewElement("b", nil)
	b.SetText("two")
	b.SetTail(" three")
	comment := NewElement(CommentTag, nil)
	comment.SetText("ignored")
	comment.SetTail(" four")
	require.NoError(t, root.Extend(b, comment))

	var parts []string
	for s := range root.IterText() {
		parts = append(parts, s)
	}
	assert.Equal(t, []string{"one ", "two", " three", " four"}, parts)
}

func TestElementFindFastPath(t *testing.T) {
	root := NewElement("root", nil)
	b1 := NewElement("b", nil)
	b1.SetText("first")
	b2 := NewElement("b", nil)
	nested := NewElement("b", nil)
	c := NewElement("c", nil)
	require.NoError(t, root.Extend(b1, c, b2))
	require.NoError(t, c.Append(nested))

	got, err := root.Find("b")
	require.NoError(t, err)
	assert.Same(t, b1, got, "only direct children match")

	all, err := root.FindAll("b")
	require.NoError(t, err)
	assert.Equal(t, []*Element{b1, b2}, all)

	text, err := root.FindText("b", "fallback")
	require.NoError(t, err)
	assert.Equal(t, "first", text)

	text, err = root.FindText("zzz", "fallback")
	require.NoError(t, err)
	assert.Equal(t, "fallback", text)

	var iterated []*Element
	seq, err := root.IterFind("b")
	require.NoError(t, err)
	for e := range seq {
		iterated = append(iterated, e)
	}
	assert.Equal(t, []*Element{b1, b2}, iterated)
}

func TestElementFindNeedsEvaluator(t *testing.T) {
	root := NewElement("root", nil)
	_, err := root.Find("a/b")
	assert.ErrorIs(t, err, ErrNoPathEvaluator)
	_, err = root.Find("b", WithNamespaces(map[string]string{"p": "urn:x"}))
	assert.ErrorIs(t, err, ErrNoPathEvaluator)
}

func TestElementCopyIsShallow(t *testing.T) {
	e := NewElement("a", nil)
	e.Set("k", "v")
	e.SetText("text")
	child := NewElement("b", nil)
	require.NoError(t, e.Append(child))

	c := e.Copy()
	assert.Equal(t, "a", c.Tag())
	assert.Same(t, e.Attrib(), c.Attrib(), "attributes are shared")
	got, err := c.Child(0)
	require.NoError(t, err)
	assert.Same(t, child, got, "children are shared")

	require.NoError(t, c.Append(NewElement("new", nil)))
	assert.Equal(t, 1, e.Len(), "the child sequence itself is independent")
}

func TestElementDeepCopy(t *testing.T) {
	e := NewElement("a", nil)
	e.Set("k", "v")
	child := NewElement("b", nil)
	child.SetText("hello")
	require.NoError(t, e.Append(child))

	c := e.DeepCopy(nil)
	assert.NotSame(t, e, c)
	assert.NotSame(t, e.Attrib(), c.Attrib())
	assert.Equal(t, "v", c.Get("k", ""))
	got, err := c.Child(0)
	require.NoError(t, err)
	assert.NotSame(t, child, got)
	assert.Equal(t, "hello", got.Text())

	memo := make(map[*Element]*Element)
	first := e.DeepCopy(memo)
	second := e.DeepCopy(memo)
	assert.Same(t, first, second, "the memo resolves repeated sources to one clone")
}

func TestElementClear(t *testing.T) {
	e := NewElement("a", nil)
	e.Set("k", "v")
	e.SetText("text")
	e.SetTail("tail")
	require.NoError(t, e.Append(NewElement("b", nil)))

	e.Clear()
	assert.Equal(t, "a", e.Tag(), "the tag survives")
	assert.Equal(t, 0, e.Len())
	assert.Nil(t, e.Attrib())
	assert.Equal(t, "", e.Text())
	assert.Equal(t, "", e.Tail())
}
