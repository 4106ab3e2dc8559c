// Package sheets defines the outbound ports for spreadsheet mirrors of the roster.
package sheets

import "context"

// RosterExporter replaces the mirrored roster with rows. The first row is the header.
type RosterExporter interface {
	ExportRoster(ctx context.Context, rows [][]string) error
}
