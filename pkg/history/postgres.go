package history

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/otherjamesbrown/prepbrief/pkg/continuity"
	pberrors "github.com/otherjamesbrown/prepbrief/pkg/errors"
)

// DefaultTable is the history table read by PostgresSource.
const DefaultTable = "meeting_history"

var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Querier is the subset of *pgxpool.Pool used by PostgresSource.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// PostgresColumns returns the snake_case headers of the history table.
func PostgresColumns() Columns {
	return Columns{
		BrandName:         "brand_name",
		MeetingDate:       "meeting_date",
		InternalAttendees: "nbh_participants",
		Discussion:        "key_discussion_points",
		ActionItems:       "action_items",
		ExternalAttendees: "client_participants",
		PainPoints:        "client_pain_points",
		Questions:         "key_questions",
		BrandTraits:       "brand_traits",
		CustomerNeeds:     "customer_needs",
	}
}

// PostgresSource reads records from a table mirroring the history sheet.
type PostgresSource struct {
	Pool    Querier
	Table   string
	Columns Columns
}

// NewPostgresSource creates a PostgresSource for table, which may be
// schema-qualified ("sales.meeting_history").
func NewPostgresSource(pool Querier, table string) (*PostgresSource, error) {
	if table == "" {
		table = DefaultTable
	}
	if _, err := tableIdentifier(table); err != nil {
		return nil, err
	}
	return &PostgresSource{Pool: pool, Table: table, Columns: PostgresColumns()}, nil
}

// tableIdentifier validates and splits a possibly schema-qualified name.
func tableIdentifier(table string) (pgx.Identifier, error) {
	parts := strings.Split(table, ".")
	if len(parts) > 2 {
		return nil, fmt.Errorf("%w: invalid table name %q", pberrors.ErrValidation, table)
	}
	for _, p := range parts {
		if !identPattern.MatchString(p) {
			return nil, fmt.Errorf("%w: invalid table name %q", pberrors.ErrValidation, table)
		}
	}
	return pgx.Identifier(parts), nil
}

// Snapshot selects every row of the table in physical order.
func (s *PostgresSource) Snapshot(ctx context.Context) ([]continuity.Record, error) {
	ident, err := tableIdentifier(s.Table)
	if err != nil {
		return nil, err
	}

	rows, err := s.Pool.Query(ctx, "SELECT * FROM "+ident.Sanitize())
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", s.Table, err)
	}
	defer rows.Close()

	var table Table
	for _, fd := range rows.FieldDescriptions() {
		table.Header = append(table.Header, fd.Name)
	}

	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", s.Table, err)
		}
		row := make([]string, len(values))
		for i, v := range values {
			row[i] = cellText(v)
		}
		table.Rows = append(table.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", s.Table, err)
	}

	return table.ToRecords(s.Columns)
}

// cellText renders a column value the way the spreadsheet export would.
// DATE and TIMESTAMP columns render as ISO dates.
func cellText(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []byte:
		return string(t)
	case time.Time:
		return t.Format("2006-01-02")
	case []string:
		return strings.Join(t, ", ")
	case []any:
		parts := make([]string, 0, len(t))
		for _, e := range t {
			if s := cellText(e); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, ", ")
	default:
		return fmt.Sprint(t)
	}
}
