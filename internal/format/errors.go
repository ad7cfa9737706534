// =============================================================================
// Packing List Ingest - Format Errors
// =============================================================================
//
// Format-level failures abort the whole file and must stay distinguishable
// from generic errors after wrapping. Callers use errors.As:
//
//   var fve *format.FormatValidationError
//   if errors.As(err, &fve) { ... }
//
// Field-level failures (bad date, unresolvable unit) are NOT errors here.
// They are logged by the canonical Builder and the field is left null.
//
// =============================================================================

package format

import (
	"fmt"
	"strings"
)

// FormatValidationError reports structural anchors or columns missing from a
// document of a known dialect.
type FormatValidationError struct {
	// Dialect is the dialect whose anchors were checked.
	Dialect Dialect

	// Missing lists the anchors or columns that were not found.
	Missing []string
}

// Error implements the error interface.
func (e *FormatValidationError) Error() string {
	return fmt.Sprintf("invalid %s document: missing %s", e.Dialect, strings.Join(e.Missing, ", "))
}

// UnknownFormatError reports an XML document that matches no dialect.
type UnknownFormatError struct {
	// Root is the local name of the document's root element.
	Root string
}

// Error implements the error interface.
func (e *UnknownFormatError) Error() string {
	return fmt.Sprintf("unknown xml format: root element <%s> is neither a record/field tree nor a Workbook", e.Root)
}

// UnsupportedContentTypeError reports a declared content type that selects
// neither the tabular nor the XML path.
type UnsupportedContentTypeError struct {
	ContentType string
}

// Error implements the error interface.
func (e *UnsupportedContentTypeError) Error() string {
	return fmt.Sprintf("unsupported content type %q", e.ContentType)
}
