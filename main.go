// =============================================================================
// Packing List Ingest - Main Entry Point
// =============================================================================
//
// USAGE:
//   packlist parse --file F   - Parse one packing list and print its payloads
//   packlist process          - Process all packing lists in the input directory
//   packlist version          - Display the application version
//
// ARCHITECTURE:
//   - cmd/           : CLI command definitions (Cobra)
//   - internal/      : Parsing engine, dialect parsers and configuration
//   - pkg/           : Shared file handling utilities
//
// =============================================================================

package main

import (
	"github.com/ginjaninja78/packing-list-ingest/cmd"
)

func main() {
	cmd.Execute()
}
