// Package history loads historical meeting records from the tabular
// stores the sales team keeps them in.
//
// Every source yields a full snapshot per call. Header lookup is strict:
// a missing required column stops that source instead of guessing which
// column holds what.
package history

import (
	"context"
	"fmt"
	"strings"

	"github.com/otherjamesbrown/prepbrief/pkg/continuity"
	pberrors "github.com/otherjamesbrown/prepbrief/pkg/errors"
)

// Source supplies an immutable snapshot of historical meeting records.
type Source interface {
	Snapshot(ctx context.Context) ([]continuity.Record, error)
}

// Columns names the headers that hold each record field. Matching is
// case-insensitive and ignores surrounding whitespace.
type Columns struct {
	BrandName         string `yaml:"brand_name"`
	MeetingDate       string `yaml:"meeting_date"`
	InternalAttendees string `yaml:"internal_attendees"`
	Discussion        string `yaml:"discussion"`
	ActionItems       string `yaml:"action_items"`

	ExternalAttendees string `yaml:"external_attendees"`
	PainPoints        string `yaml:"pain_points"`
	Questions         string `yaml:"questions"`
	BrandTraits       string `yaml:"brand_traits"`
	CustomerNeeds     string `yaml:"customer_needs"`
}

// DefaultColumns returns the headers used by the meeting history sheet.
func DefaultColumns() Columns {
	return Columns{
		BrandName:         "Brand Name",
		MeetingDate:       "Meeting Date",
		InternalAttendees: "NBH Participants",
		Discussion:        "Key Discussion Points",
		ActionItems:       "Action Items",
		ExternalAttendees: "Client Participants",
		PainPoints:        "Client Pain Points",
		Questions:         "Key Questions",
		BrandTraits:       "Brand Traits",
		CustomerNeeds:     "Customer Needs",
	}
}

func (c Columns) required() []string {
	return []string{c.BrandName, c.MeetingDate, c.InternalAttendees, c.Discussion, c.ActionItems}
}

// Table is raw tabular data with a header row.
type Table struct {
	Header []string
	Rows   [][]string
}

// headerKey canonicalizes a header for lookup.
func headerKey(h string) string {
	h = strings.TrimPrefix(h, "\ufeff")
	return strings.ToLower(strings.Join(strings.Fields(h), " "))
}

// ToRecords maps rows to records. It fails with ErrMissingColumn, naming
// every absent required header, before any row is read. Blank rows are
// skipped and short rows are treated as having empty trailing cells.
func (t Table) ToRecords(cols Columns) ([]continuity.Record, error) {
	index := make(map[string]int, len(t.Header))
	for i, h := range t.Header {
		key := headerKey(h)
		if _, dup := index[key]; !dup && key != "" {
			index[key] = i
		}
	}

	var missing []string
	for _, name := range cols.required() {
		if _, ok := index[headerKey(name)]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", pberrors.ErrMissingColumn, strings.Join(missing, ", "))
	}

	cell := func(row []string, name string) string {
		if name == "" {
			return ""
		}
		i, ok := index[headerKey(name)]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	records := make([]continuity.Record, 0, len(t.Rows))
	for i, row := range t.Rows {
		if blank(row) {
			continue
		}
		records = append(records, continuity.Record{
			Row:               i + 2,
			BrandName:         cell(row, cols.BrandName),
			MeetingDate:       cell(row, cols.MeetingDate),
			InternalAttendees: cell(row, cols.InternalAttendees),
			Discussion:        cell(row, cols.Discussion),
			ActionItems:       cell(row, cols.ActionItems),
			ExternalAttendees: cell(row, cols.ExternalAttendees),
			PainPoints:        cell(row, cols.PainPoints),
			Questions:         cell(row, cols.Questions),
			BrandTraits:       cell(row, cols.BrandTraits),
			CustomerNeeds:     cell(row, cols.CustomerNeeds),
		})
	}
	return records, nil
}

func blank(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// StaticSource serves a fixed set of records.
type StaticSource []continuity.Record

// Snapshot returns a copy of the records.
func (s StaticSource) Snapshot(ctx context.Context) ([]continuity.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return append([]continuity.Record(nil), s...), nil
}
