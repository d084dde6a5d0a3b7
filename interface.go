// Package etree implements an in-memory XML element tree, an incremental
// tree builder, and a push-based XML parser that feeds it. Documents are
// parsed by handing raw bytes to an XMLParser in arbitrary chunks; the
// parser drives a target (by default a TreeBuilder) and can additionally
// record parse events into a caller-observable queue.
package etree

import "iter"

// Version of the library.
const Version = "0.9.0"

// Position is a point in the parsed input: 1-based line, 0-based column
// in characters, 0-based byte offset.
type Position struct {
	Line   int
	Column int
	Offset int
}

// Reserved tags used for non-element nodes inserted by a TreeBuilder
// configured with WithComments / WithPIs. Neither is a legal XML name, so
// they cannot collide with parsed tags.
const (
	CommentTag = "#comment"
	PITag      = "#pi"
)

// ElementFactory constructs the nodes a TreeBuilder produces. attrib may
// be nil for elements without attributes.
type ElementFactory func(tag string, attrib *Attrib) *Element

// PathEvaluator is the collaborator consulted by Find and friends when a
// path is more than a plain child tag. The library ships none; callers
// inject one via WithPathEvaluator.
type PathEvaluator interface {
	Find(e *Element, path string, namespaces map[string]string) (*Element, error)
	FindAll(e *Element, path string, namespaces map[string]string) ([]*Element, error)
	IterFind(e *Element, path string, namespaces map[string]string) (iter.Seq[*Element], error)
}

// Optional capabilities probed on a custom parser target. A target missing
// a capability simply never sees that event class.
type (
	StartTarget interface {
		Start(tag string, attrib *Attrib) error
	}
	DataTarget interface {
		Data(data string) error
	}
	EndTarget interface {
		End(tag string) error
	}
	CommentTarget interface {
		Comment(text string) error
	}
	PITarget interface {
		ProcessingInstruction(target, data string) error
	}
	DoctypeTarget interface {
		Doctype(name, publicID, systemID string) error
	}
	CloseTarget interface {
		Close() (any, error)
	}
)
