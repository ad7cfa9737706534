// =============================================================================
// Packing List Ingest - Engine
// =============================================================================
//
// The engine orchestrates the parsing pipeline for a single upload.
//
// PARSING PIPELINE:
//   1. Route the declared content type to the tabular or XML branch
//   2. Tabular: read the grid (xlsx or CSV), then run the tabular parser
//   3. XML: decode the tree, detect the dialect, run the dialect parser
//   4. Substitute one default record when a parser produced none
//   5. Apply the configured normalization rules
//
// CONCURRENCY:
//   An Engine holds only immutable configuration. Parse may be called from
//   many goroutines at once; every call builds its own output.
//
// =============================================================================

package ingest

import (
	"bytes"
	"fmt"
	"mime"
	"strings"

	"github.com/ginjaninja78/packing-list-ingest/internal/canonical"
	"github.com/ginjaninja78/packing-list-ingest/internal/config"
	"github.com/ginjaninja78/packing-list-ingest/internal/erpxml"
	"github.com/ginjaninja78/packing-list-ingest/internal/format"
	"github.com/ginjaninja78/packing-list-ingest/internal/grid"
	"github.com/ginjaninja78/packing-list-ingest/internal/model"
	"github.com/ginjaninja78/packing-list-ingest/internal/normalize"
	"github.com/ginjaninja78/packing-list-ingest/internal/ssxml"
	"github.com/ginjaninja78/packing-list-ingest/internal/tabular"
	"github.com/ginjaninja78/packing-list-ingest/internal/xmltree"
	"github.com/rs/zerolog"
)

// Accepted content types.
const (
	ContentTypeXLSX    = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	ContentTypeExcel   = "application/vnd.ms-excel"
	ContentTypeCSV     = "text/csv"
	ContentTypeXML     = "application/xml"
	ContentTypeTextXML = "text/xml"
)

// Branch is the top-level input family selected by content type.
type Branch int

const (
	BranchTabular Branch = iota + 1
	BranchXML
)

// zipMagic prefixes every xlsx container; oleMagic prefixes legacy BIFF
// (.xls) workbooks.
var (
	zipMagic = []byte("PK\x03\x04")
	oleMagic = []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}
)

// Route maps a declared content type to a branch. Parameters such as
// "; charset=utf-8" are ignored.
func Route(contentType string) (Branch, string, error) {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = strings.ToLower(strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0]))
	}

	switch mediaType {
	case ContentTypeXLSX, ContentTypeExcel, ContentTypeCSV:
		return BranchTabular, mediaType, nil
	case ContentTypeXML, ContentTypeTextXML:
		return BranchXML, mediaType, nil
	default:
		return 0, mediaType, &format.UnsupportedContentTypeError{ContentType: contentType}
	}
}

// =============================================================================
// ENGINE
// =============================================================================

// Engine converts uploaded packing lists into canonical payloads.
type Engine struct {
	builder    *canonical.Builder
	normalizer *normalize.Normalizer
	gridOpts   grid.Options
	logger     zerolog.Logger
}

// New creates an Engine from the main configuration.
//
// PARAMETERS:
//   - cfg: The main configuration. Nil uses config.Default().
//   - logger: Receives stage transitions and field-level warnings.
//
// RETURNS:
//   - The engine, or an error when the transformation rules do not compile.
func New(cfg *config.MainConfig, logger zerolog.Logger) (*Engine, error) {
	if cfg == nil {
		cfg = config.Default()
	}

	normalizer, err := normalize.New(cfg.TransformationRules)
	if err != nil {
		return nil, fmt.Errorf("compile transformation rules: %w", err)
	}

	return &Engine{
		builder:    canonical.NewBuilder(logger, cfg.DateLayouts...),
		normalizer: normalizer,
		gridOpts: grid.Options{
			SheetName: cfg.Tabular.SheetName,
			Delimiter: cfg.Tabular.Delimiter,
		},
		logger: logger,
	}, nil
}

// Parse converts one upload into an ordered list of payloads.
//
// PARAMETERS:
//   - data: The raw file bytes.
//   - contentType: The declared MIME type.
//
// RETURNS:
//   - At least one payload on success.
//   - *format.UnsupportedContentTypeError, *format.FormatValidationError or
//     *format.UnknownFormatError (reachable through errors.As), or a wrapped
//     reader failure.
func (e *Engine) Parse(data []byte, contentType string) ([]model.Payload, error) {
	branch, mediaType, err := Route(contentType)
	if err != nil {
		return nil, err
	}

	log := e.logger.With().Str("content_type", mediaType).Int("bytes", len(data)).Logger()
	log.Debug().Msg("parsing upload")

	var payloads []model.Payload
	switch branch {
	case BranchTabular:
		payloads, err = e.parseTabular(data, mediaType)
	case BranchXML:
		payloads, err = e.parseXML(data, log)
	}
	if err != nil {
		log.Debug().Err(err).Msg("upload rejected")
		return nil, err
	}

	if len(payloads) == 0 {
		log.Debug().Msg("no parcels found, emitting default record")
		payloads = model.DefaultPayloads()
	}

	e.normalizer.Apply(payloads)

	log.Debug().Int("parcels", len(payloads)).Int("items", countItems(payloads)).Msg("upload parsed")
	return payloads, nil
}

// parseTabular reads the grid and runs the tabular parser.
func (e *Engine) parseTabular(data []byte, mediaType string) ([]model.Payload, error) {
	var (
		g   grid.Grid
		err error
	)

	// application/vnd.ms-excel is also sent for CSV uploads; only a zip
	// container is read as a workbook. Legacy BIFF workbooks cannot be read.
	if bytes.HasPrefix(data, oleMagic) {
		return nil, fmt.Errorf("legacy binary workbook: %w", &format.UnsupportedContentTypeError{ContentType: mediaType})
	}
	if mediaType == ContentTypeXLSX || (mediaType == ContentTypeExcel && bytes.HasPrefix(data, zipMagic)) {
		g, err = grid.ReadXLSX(data, e.gridOpts)
	} else {
		g, err = grid.ReadCSV(data, e.gridOpts)
	}
	if err != nil {
		return nil, fmt.Errorf("read grid: %w", err)
	}

	payloads, err := tabular.Parse(g, e.builder)
	if err != nil {
		return nil, fmt.Errorf("parse tabular: %w", err)
	}
	return payloads, nil
}

// parseXML decodes the tree, detects the dialect and dispatches.
func (e *Engine) parseXML(data []byte, log zerolog.Logger) ([]model.Payload, error) {
	root, err := xmltree.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse xml: %w", err)
	}

	dialect, err := format.Detect(root)
	if err != nil {
		return nil, fmt.Errorf("detect format: %w", err)
	}
	log.Debug().Str("dialect", string(dialect)).Msg("detected xml dialect")

	var payloads []model.Payload
	switch dialect {
	case format.ERPRecord:
		payloads, err = erpxml.Parse(root, e.builder)
		if err != nil {
			return nil, fmt.Errorf("parse erp record: %w", err)
		}
	case format.SpreadsheetXML:
		payloads, err = ssxml.Parse(root, e.builder)
		if err != nil {
			return nil, fmt.Errorf("parse spreadsheet xml: %w", err)
		}
	}
	return payloads, nil
}

func countItems(payloads []model.Payload) int {
	n := 0
	for _, p := range payloads {
		n += len(p.ParcelItems)
	}
	return n
}
