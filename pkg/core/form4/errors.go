package form4

import "fmt"

// WrongContentTypeError reports a document that resolved to an HTML
// page (usually the EDGAR XSL viewer rendition) instead of raw Form 4
// XML. It is distinct from ParseError so callers can tell a mis-routed
// fetch apart from a genuinely corrupt document.
type WrongContentTypeError struct {
	Detail string
}

func (e *WrongContentTypeError) Error() string {
	if e.Detail == "" {
		return "document is HTML, not Form 4 XML"
	}
	return fmt.Sprintf("document is HTML, not Form 4 XML: %s", e.Detail)
}

// ParseError reports syntactically invalid XML, carrying the parser's
// location when it is known.
type ParseError struct {
	Line int
	Err  error
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("invalid Form 4 XML at line %d: %v", e.Line, e.Err)
	}
	return fmt.Sprintf("invalid Form 4 XML: %v", e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }
