package etree

import "github.com/lestrrat-go/option"

type Option = option.Interface

type identTarget struct{}
type identEncoding struct{}
type identElementFactory struct{}
type identComments struct{}
type identPIs struct{}
type identNamespaces struct{}
type identPathEvaluator struct{}

type ParserOption interface {
	Option
	parserOption()
}

type parserOption struct {
	Option
}

func (*parserOption) parserOption() {}

// WithTarget installs the object receiving parser events. A *TreeBuilder
// is driven through the internal fast path; any other value is probed for
// the optional target capabilities once, at construction.
func WithTarget(v any) ParserOption {
	return &parserOption{option.New(identTarget{}, v)}
}

// WithParserEncoding overrides the encoding declared by the document.
func WithParserEncoding(v string) ParserOption {
	return &parserOption{option.New(identEncoding{}, v)}
}

type BuilderOption interface {
	Option
	builderOption()
}

type builderOption struct {
	Option
}

func (*builderOption) builderOption() {}

// WithElementFactory replaces the plain Element constructor used for each
// start event.
func WithElementFactory(f ElementFactory) BuilderOption {
	return &builderOption{option.New(identElementFactory{}, f)}
}

// WithComments makes the builder insert comments into the tree as
// CommentTag elements instead of dropping them.
func WithComments(v bool) BuilderOption {
	return &builderOption{option.New(identComments{}, v)}
}

// WithPIs makes the builder insert processing instructions into the tree
// as PITag elements instead of dropping them.
func WithPIs(v bool) BuilderOption {
	return &builderOption{option.New(identPIs{}, v)}
}

type FindOption interface {
	Option
	findOption()
}

type findOption struct {
	Option
}

func (*findOption) findOption() {}

// WithNamespaces supplies a prefix-to-URI map for path expressions.
// Passing one disables the plain-tag fast path.
func WithNamespaces(m map[string]string) FindOption {
	return &findOption{option.New(identNamespaces{}, m)}
}

// WithPathEvaluator injects the collaborator that evaluates non-trivial
// path expressions.
func WithPathEvaluator(pe PathEvaluator) FindOption {
	return &findOption{option.New(identPathEvaluator{}, pe)}
}
