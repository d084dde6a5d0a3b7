package etree

import (
	"fmt"
	"iter"
	"math"
)

// Element is a single node in the tree: a tag, an optional attribute
// mapping, an ordered child sequence, text appearing before the first
// child, and tail text following the element in its parent's content.
// Children are exclusively owned by their parent's sequence; the library
// never stores a back-pointer to the parent.
type Element struct {
	tag   string
	space string
	local string
	split bool

	attrib   *Attrib
	children []*Element

	text textValue
	tail textValue

	start *Position
	end   *Position
}

// NewElement creates a standalone element. attrib may be nil; attribute
// storage is then only allocated on the first Set.
func NewElement(tag string, attrib *Attrib) *Element {
	return &Element{tag: tag, attrib: attrib}
}

// NoIndex marks an omitted slice bound. The default depends on the sign
// of the step, as with Python-style slicing.
const NoIndex = math.MinInt

func (e *Element) Tag() string {
	return e.tag
}

func (e *Element) SetTag(tag string) {
	e.tag = tag
	e.split = false
	e.space = ""
	e.local = ""
}

// Space returns the namespace URI part of the tag, or "" for plain tags.
// The split is computed once and cached.
func (e *Element) Space() string {
	e.splitTag()
	return e.space
}

// Local returns the local part of the tag.
func (e *Element) Local() string {
	e.splitTag()
	return e.local
}

func (e *Element) splitTag() {
	if !e.split {
		e.space, e.local = SplitName(e.tag)
		e.split = true
	}
}

// Text returns the text before the first child. Builder-produced fragment
// lists are joined and memoized on first read.
func (e *Element) Text() string {
	return e.text.value()
}

func (e *Element) SetText(s string) {
	e.text = rawText(s)
}

// Tail returns the text following this element in its parent's content.
func (e *Element) Tail() string {
	return e.tail.value()
}

func (e *Element) SetTail(s string) {
	e.tail = rawText(s)
}

// Start reports where the parser saw the element's start tag, or nil for
// programmatically constructed elements.
func (e *Element) Start() *Position {
	return e.start
}

// End reports where the parser saw the element's end tag.
func (e *Element) End() *Position {
	return e.end
}

func (e *Element) setStart(p Position) {
	e.start = &p
}

func (e *Element) setEnd(p Position) {
	e.end = &p
}

/* attribute access */

// Attrib exposes the attribute mapping. It is nil until the first write;
// read through Get/Keys/Attrs when that matters.
func (e *Element) Attrib() *Attrib {
	return e.attrib
}

// Get returns the attribute value for key, or def when absent. It never
// allocates attribute storage.
func (e *Element) Get(key, def string) string {
	if v, ok := e.attrib.Get(key); ok {
		return v
	}
	return def
}

// Set stores an attribute, allocating the mapping on first use.
func (e *Element) Set(key, value string) {
	if e.attrib == nil {
		e.attrib = NewAttrib()
	}
	e.attrib.Set(key, value)
}

// Keys returns attribute names in insertion order.
func (e *Element) Keys() []string {
	return e.attrib.Keys()
}

// Attrs yields (name, value) pairs in insertion order.
func (e *Element) Attrs() iter.Seq2[string, string] {
	return e.attrib.Iter()
}

/* child sequence */

func (e *Element) Len() int {
	return len(e.children)
}

// Children returns a copy of the child slice. The elements themselves are
// shared, the slice is not.
func (e *Element) Children() []*Element {
	if len(e.children) == 0 {
		return nil
	}
	return append([]*Element(nil), e.children...)
}

// Child returns the i'th child; negative indices count from the end.
func (e *Element) Child(i int) (*Element, error) {
	i, err := e.resolveIndex(i)
	if err != nil {
		return nil, err
	}
	return e.children[i], nil
}

// SetChild replaces the i'th child.
func (e *Element) SetChild(i int, c *Element) error {
	if c == nil {
		return ErrNilElement
	}
	i, err := e.resolveIndex(i)
	if err != nil {
		return err
	}
	e.children[i] = c
	return nil
}

// DeleteChild removes the i'th child.
func (e *Element) DeleteChild(i int) error {
	i, err := e.resolveIndex(i)
	if err != nil {
		return err
	}
	copy(e.children[i:], e.children[i+1:])
	e.children[len(e.children)-1] = nil
	e.children = e.children[:len(e.children)-1]
	return nil
}

func (e *Element) resolveIndex(i int) (int, error) {
	n := len(e.children)
	if i < 0 {
		i += n
	}
	if i < 0 || i >= n {
		return 0, fmt.Errorf("%w: %d", ErrIndexOutOfRange, i)
	}
	return i, nil
}

// Append adds a child at the end of the sequence.
func (e *Element) Append(c *Element) error {
	if c == nil {
		return ErrNilElement
	}
	e.appendChild(c)
	return nil
}

// Extend appends every given child. Nothing is appended if any of them is
// nil.
func (e *Element) Extend(cs ...*Element) error {
	for _, c := range cs {
		if c == nil {
			return ErrNilElement
		}
	}
	for _, c := range cs {
		e.appendChild(c)
	}
	return nil
}

// Insert adds a child at index i. Negative indices count from the end and
// out-of-range indices clamp to the valid range rather than failing.
func (e *Element) Insert(i int, c *Element) error {
	if c == nil {
		return ErrNilElement
	}
	n := len(e.children)
	if i < 0 {
		i += n
		if i < 0 {
			i = 0
		}
	}
	if i > n {
		i = n
	}
	e.appendChild(nil)
	copy(e.children[i+1:], e.children[i:])
	e.children[i] = c
	return nil
}

// Remove drops the first child identical to c, or fails with ErrNotInTree.
func (e *Element) Remove(c *Element) error {
	if c == nil {
		return ErrNilElement
	}
	for i, cur := range e.children {
		if cur == c {
			return e.DeleteChild(i)
		}
	}
	return ErrNotInTree
}

// appendChild grows the child array with a moderate growth factor to keep
// append amortized O(1) without doubling memory on large fan-out nodes.
func (e *Element) appendChild(c *Element) {
	n := len(e.children)
	if n == cap(e.children) {
		extra := 3
		if n >= 9 {
			extra = 6
		}
		grown := make([]*Element, n, n+n/8+extra)
		copy(grown, e.children)
		e.children = grown
	}
	e.children = e.children[:n+1]
	e.children[n] = c
}

/* slicing */

// Slice returns the children selected by [start:stop:step] with
// Python-style semantics. Use NoIndex to omit a bound.
func (e *Element) Slice(start, stop, step int) ([]*Element, error) {
	begin, _, step, count, err := adjustSlice(start, stop, step, len(e.children))
	if err != nil {
		return nil, err
	}
	out := make([]*Element, 0, count)
	for i, idx := 0, begin; i < count; i, idx = i+1, idx+step {
		out = append(out, e.children[idx])
	}
	return out, nil
}

// SetSlice assigns repl to the children selected by [start:stop:step].
// With step 1 the replacement may have any length and the sequence grows
// or shrinks; with any other step the lengths must match exactly. A
// failed assignment leaves the children untouched.
func (e *Element) SetSlice(start, stop, step int, repl []*Element) error {
	for _, c := range repl {
		if c == nil {
			return ErrNilElement
		}
	}
	begin, end, step, count, err := adjustSlice(start, stop, step, len(e.children))
	if err != nil {
		return err
	}

	if step == 1 {
		if end < begin {
			end = begin
		}
		merged := make([]*Element, 0, len(e.children)-(end-begin)+len(repl))
		merged = append(merged, e.children[:begin]...)
		merged = append(merged, repl...)
		merged = append(merged, e.children[end:]...)
		e.children = merged
		return nil
	}

	if len(repl) != count {
		return fmt.Errorf("%w: got %d, need %d", ErrSliceLength, len(repl), count)
	}
	for i, idx := 0, begin; i < count; i, idx = i+1, idx+step {
		e.children[idx] = repl[i]
	}
	return nil
}

// DelSlice removes the children selected by [start:stop:step].
func (e *Element) DelSlice(start, stop, step int) error {
	begin, _, step, count, err := adjustSlice(start, stop, step, len(e.children))
	if err != nil {
		return err
	}
	if count == 0 {
		return nil
	}

	drop := make(map[int]struct{}, count)
	for i, idx := 0, begin; i < count; i, idx = i+1, idx+step {
		drop[idx] = struct{}{}
	}
	kept := e.children[:0]
	for i, c := range e.children {
		if _, gone := drop[i]; !gone {
			kept = append(kept, c)
		}
	}
	for i := len(kept); i < len(e.children); i++ {
		e.children[i] = nil
	}
	e.children = kept
	return nil
}

// adjustSlice normalizes Python-style slice bounds against a sequence of
// length n, returning the first index, the exclusive end, the step, and
// the number of selected positions.
func adjustSlice(start, stop, step, n int) (int, int, int, int, error) {
	if step == 0 {
		return 0, 0, 0, 0, ErrZeroStep
	}

	var lower, upper int
	if step > 0 {
		lower, upper = 0, n
	} else {
		lower, upper = -1, n-1
	}

	if start == NoIndex {
		if step > 0 {
			start = lower
		} else {
			start = upper
		}
	} else {
		if start < 0 {
			start += n
		}
		if start < lower {
			start = lower
		} else if start > upper {
			start = upper
		}
	}

	if stop == NoIndex {
		if step > 0 {
			stop = upper
		} else {
			stop = lower
		}
	} else {
		if stop < 0 {
			stop += n
		}
		if stop < lower {
			stop = lower
		} else if stop > upper {
			stop = upper
		}
	}

	var count int
	if step > 0 && stop > start {
		count = (stop - start + step - 1) / step
	} else if step < 0 && stop < start {
		count = (stop - start + step + 1) / step
	}
	return start, stop, step, count, nil
}

/* find operations */

func parseFindOptions(options []FindOption) (map[string]string, PathEvaluator) {
	var ns map[string]string
	var pe PathEvaluator
	for _, o := range options {
		switch o.Ident() {
		case identNamespaces{}:
			ns = o.Value().(map[string]string)
		case identPathEvaluator{}:
			pe = o.Value().(PathEvaluator)
		}
	}
	return ns, pe
}

// Find returns the first matching subelement, or nil. A plain child tag
// is matched by a direct scan of the immediate children; anything else is
// delegated to the injected PathEvaluator.
func (e *Element) Find(path string, options ...FindOption) (*Element, error) {
	ns, pe := parseFindOptions(options)
	if ns == nil && !needsPathEngine(path) {
		for _, c := range e.children {
			if c.tag == path {
				return c, nil
			}
		}
		return nil, nil
	}
	if pe == nil {
		return nil, ErrNoPathEvaluator
	}
	return pe.Find(e, path, ns)
}

// FindText returns the text of the first matching subelement, or def when
// there is no match. A match without text yields the empty string.
func (e *Element) FindText(path, def string, options ...FindOption) (string, error) {
	c, err := e.Find(path, options...)
	if err != nil {
		return "", err
	}
	if c == nil {
		return def, nil
	}
	return c.Text(), nil
}

// FindAll returns all matching subelements in document order.
func (e *Element) FindAll(path string, options ...FindOption) ([]*Element, error) {
	ns, pe := parseFindOptions(options)
	if ns == nil && !needsPathEngine(path) {
		var out []*Element
		for _, c := range e.children {
			if c.tag == path {
				out = append(out, c)
			}
		}
		return out, nil
	}
	if pe == nil {
		return nil, ErrNoPathEvaluator
	}
	return pe.FindAll(e, path, ns)
}

// IterFind returns a lazy sequence over all matching subelements.
func (e *Element) IterFind(path string, options ...FindOption) (iter.Seq[*Element], error) {
	ns, pe := parseFindOptions(options)
	if ns == nil && !needsPathEngine(path) {
		return func(yield func(*Element) bool) {
			for _, c := range e.children {
				if c.tag == path {
					if !yield(c) {
						return
					}
				}
			}
		}, nil
	}
	if pe == nil {
		return nil, ErrNoPathEvaluator
	}
	return pe.IterFind(e, path, ns)
}

/* iteration */

// Iter yields this element and all descendants whose tag matches, in
// depth-first document order. An empty tag or "*" matches everything.
// The walk uses an explicit stack so document depth never translates
// into goroutine stack depth.
func (e *Element) Iter(tag string) iter.Seq[*Element] {
	all := tag == "" || tag == "*"
	return func(yield func(*Element) bool) {
		work := []*Element{e}
		for len(work) > 0 {
			n := work[len(work)-1]
			work = work[:len(work)-1]
			if all || n.tag == tag {
				if !yield(n) {
					return
				}
			}
			for i := len(n.children) - 1; i >= 0; i-- {
				work = append(work, n.children[i])
			}
		}
	}
}

// IterText yields every non-empty text and tail fragment below this
// element, in document order. Comment and PI payloads are skipped.
func (e *Element) IterText() iter.Seq[string] {
	type item struct {
		elem *Element
		text string
	}
	return func(yield func(string) bool) {
		work := []item{{elem: e}}
		for len(work) > 0 {
			n := work[len(work)-1]
			work = work[:len(work)-1]
			if n.elem == nil {
				if !yield(n.text) {
					return
				}
				continue
			}
			cur := n.elem
			if cur.tag == CommentTag || cur.tag == PITag {
				continue
			}
			for i := len(cur.children) - 1; i >= 0; i-- {
				c := cur.children[i]
				if t := c.Tail(); t != "" {
					work = append(work, item{text: t})
				}
				work = append(work, item{elem: c})
			}
			if t := cur.Text(); t != "" {
				if !yield(t) {
					return
				}
			}
		}
	}
}

/* copying and teardown */

// Copy returns a shallow copy: the attribute mapping, the text and tail
// values, and the child references are shared with the original; only the
// child slice itself is new.
func (e *Element) Copy() *Element {
	clone := &Element{
		tag:    e.tag,
		attrib: e.attrib,
		text:   e.text,
		tail:   e.tail,
		start:  e.start,
		end:    e.end,
	}
	if len(e.children) > 0 {
		clone.children = append([]*Element(nil), e.children...)
	}
	return clone
}

// DeepCopy clones the whole subtree. memo maps already-cloned source
// elements to their clones so shared references resolve consistently; a
// nil memo starts a fresh one. Calling DeepCopy twice with the same memo
// returns the identical cached clone.
func (e *Element) DeepCopy(memo map[*Element]*Element) *Element {
	if memo == nil {
		memo = make(map[*Element]*Element)
	}
	if clone, ok := memo[e]; ok {
		return clone
	}
	clone := &Element{
		tag:  e.tag,
		text: e.text,
		tail: e.tail,
	}
	memo[e] = clone
	clone.attrib = e.attrib.Clone()
	if e.start != nil {
		p := *e.start
		clone.start = &p
	}
	if e.end != nil {
		p := *e.end
		clone.end = &p
	}
	for _, c := range e.children {
		clone.appendChild(c.DeepCopy(memo))
	}
	return clone
}

// Clear detaches all children and resets attributes, text, and tail. The
// detached subtree is released iteratively so arbitrarily deep documents
// do not translate into deep call stacks.
func (e *Element) Clear() {
	work := e.children
	e.children = nil
	e.attrib = nil
	e.text = textValue{}
	e.tail = textValue{}
	for len(work) > 0 {
		n := work[len(work)-1]
		work = work[:len(work)-1]
		work = append(work, n.children...)
		n.children = nil
	}
}
