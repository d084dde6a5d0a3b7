package etree

import (
	"errors"
	"fmt"
)

// ErrorCode classifies fatal parse errors. The numbering mirrors the
// expat error enumeration so the codes stay meaningful to callers used to
// expat-backed parsers.
type ErrorCode int

const (
	CodeNone               ErrorCode = 0
	CodeSyntax             ErrorCode = 2
	CodeNoElements         ErrorCode = 3
	CodeInvalidToken       ErrorCode = 4
	CodeUnclosedToken      ErrorCode = 5
	CodeTagMismatch        ErrorCode = 7
	CodeDuplicateAttribute ErrorCode = 8
	CodeJunkAfterDocElem   ErrorCode = 9
	CodeUndefinedEntity    ErrorCode = 11
	CodeBadCharRef         ErrorCode = 14
	CodeMisplacedXMLDecl   ErrorCode = 17
	CodeUnknownEncoding    ErrorCode = 18
	CodeIncorrectEncoding  ErrorCode = 19
	CodeUnclosedCDATA      ErrorCode = 20
	CodeUnboundPrefix      ErrorCode = 27
)

// Tokenizer-level errors. The strings double as the description part of a
// ParseError message.
var (
	ErrSyntax              = errors.New("syntax error")
	ErrNoElements          = errors.New("no element found")
	ErrInvalidToken        = errors.New("not well-formed (invalid token)")
	ErrUnclosedToken       = errors.New("unclosed token")
	ErrTagMismatch         = errors.New("mismatched tag")
	ErrDuplicateAttribute  = errors.New("duplicate attribute")
	ErrJunkAfterDocElement = errors.New("junk after document element")
	ErrUndefinedEntity     = errors.New("undefined entity")
	ErrBadCharRef          = errors.New("reference to invalid character number")
	ErrMisplacedXMLDecl    = errors.New("XML or text declaration not at start of entity")
	ErrUnknownEncoding     = errors.New("unknown encoding")
	ErrInvalidEncoding     = errors.New("invalid byte sequence for declared encoding")
	ErrInvalidUTF8         = errors.New("invalid UTF-8 sequence")
	ErrUnclosedCDATA       = errors.New("unclosed CDATA section")
	ErrUnboundPrefix       = errors.New("unbound prefix")
	ErrHyphenInComment     = errors.New("'--' not allowed in comment")
)

// Builder-level structural errors.
var (
	ErrMultipleRoots = errors.New("multiple elements on top level")
	ErrEmptyStack    = errors.New("pop from empty stack")
)

// Caller contract violations. These never corrupt tree or parser state.
var (
	ErrNilElement        = errors.New("nil element")
	ErrNotInTree         = errors.New("element is not a child")
	ErrIndexOutOfRange   = errors.New("child index out of range")
	ErrZeroStep          = errors.New("slice step cannot be zero")
	ErrSliceLength       = errors.New("replacement length does not match extended slice")
	ErrUnknownEvent      = errors.New("unknown event")
	ErrNilQueue          = errors.New("nil event queue")
	ErrEventsUnsupported = errors.New("event recording requires a TreeBuilder target")
	ErrNoPathEvaluator   = errors.New("path expressions require a PathEvaluator")
)

// ParseError is a fatal parse error with its source position. Line is
// 1-based and Column 0-based, matching what LineNumber/ColumnNumber report.
type ParseError struct {
	Err    error
	Code   ErrorCode
	Line   int
	Column int
	Offset int
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: line %d, column %d", e.Err, e.Line, e.Column)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Position returns the (line, column) pair at which the error occurred.
func (e *ParseError) Position() (line, column int) {
	return e.Line, e.Column
}
