package history

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pberrors "github.com/otherjamesbrown/prepbrief/pkg/errors"
)

// fakeRows serves fixed values through the pgx.Rows interface.
type fakeRows struct {
	fields []string
	values [][]any
	pos    int
	err    error
}

func (r *fakeRows) Close()                        {}
func (r *fakeRows) Err() error                    { return r.err }
func (r *fakeRows) CommandTag() pgconn.CommandTag { return pgconn.CommandTag{} }
func (r *fakeRows) Scan(dest ...any) error        { return errors.New("not supported") }
func (r *fakeRows) RawValues() [][]byte           { return nil }
func (r *fakeRows) Conn() *pgx.Conn               { return nil }

func (r *fakeRows) FieldDescriptions() []pgconn.FieldDescription {
	out := make([]pgconn.FieldDescription, len(r.fields))
	for i, f := range r.fields {
		out[i] = pgconn.FieldDescription{Name: f}
	}
	return out
}

func (r *fakeRows) Next() bool {
	if r.pos >= len(r.values) {
		return false
	}
	r.pos++
	return true
}

func (r *fakeRows) Values() ([]any, error) {
	return r.values[r.pos-1], nil
}

type fakeQuerier struct {
	rows *fakeRows
	err  error
	sql  string
}

func (q *fakeQuerier) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	q.sql = sql
	if q.err != nil {
		return nil, q.err
	}
	return q.rows, nil
}

func TestPostgresSource_Snapshot(t *testing.T) {
	q := &fakeQuerier{rows: &fakeRows{
		fields: []string{"id", "brand_name", "meeting_date", "nbh_participants", "key_discussion_points", "action_items", "client_participants"},
		values: [][]any{
			{int64(1), "Acme", time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), []any{"Shubham Dakhane", "Anup Roy"}, "Pilot pricing", nil, "Meera Iyer"},
			{int64(2), "Giva", "04/02/2024", "Ravi Kumar", "Intro", "Follow up", nil},
		},
	}}

	src, err := NewPostgresSource(q, "sales.meeting_history")
	require.NoError(t, err)

	records, err := src.Snapshot(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, `SELECT * FROM "sales"."meeting_history"`, q.sql)
	assert.Equal(t, "2024-05-01", records[0].MeetingDate)
	assert.Equal(t, "Shubham Dakhane, Anup Roy", records[0].InternalAttendees)
	assert.Empty(t, records[0].ActionItems)
	assert.Equal(t, "Meera Iyer", records[0].ExternalAttendees)
	assert.Equal(t, "04/02/2024", records[1].MeetingDate)
}

func TestPostgresSource_MissingColumns(t *testing.T) {
	q := &fakeQuerier{rows: &fakeRows{fields: []string{"brand_name", "meeting_date"}}}
	src, err := NewPostgresSource(q, "")
	require.NoError(t, err)

	_, err = src.Snapshot(context.Background())
	assert.True(t, pberrors.IsMissingColumn(err))
	assert.Contains(t, err.Error(), "nbh_participants")
	assert.Equal(t, `SELECT * FROM "meeting_history"`, q.sql)
}

func TestPostgresSource_QueryError(t *testing.T) {
	q := &fakeQuerier{err: errors.New("dial tcp 10.0.0.5:5432: connect: connection refused")}
	src, err := NewPostgresSource(q, "meeting_history")
	require.NoError(t, err)

	_, err = src.Snapshot(context.Background())
	require.Error(t, err)
	assert.Equal(t, pberrors.ErrCodeSourceUnavailable, pberrors.ClassifySourceError(err, "postgres").Code)
}

func TestPostgresSource_RowsError(t *testing.T) {
	q := &fakeQuerier{rows: &fakeRows{fields: PostgresColumns().required(), err: context.DeadlineExceeded}}
	src, err := NewPostgresSource(q, "meeting_history")
	require.NoError(t, err)

	_, err = src.Snapshot(context.Background())
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestTableIdentifier(t *testing.T) {
	valid := []string{"meeting_history", "sales.meeting_history", "_t1"}
	for _, name := range valid {
		_, err := tableIdentifier(name)
		assert.NoError(t, err, name)
	}

	invalid := []string{"", "1table", "meeting history", "a.b.c", `x"; DROP TABLE y; --`, "sales."}
	for _, name := range invalid {
		_, err := tableIdentifier(name)
		assert.True(t, pberrors.IsValidation(err), name)
	}
}

func TestCellText(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want string
	}{
		{"nil", nil, ""},
		{"string", "Acme", "Acme"},
		{"bytes", []byte("raw"), "raw"},
		{"date", time.Date(2023, 12, 25, 0, 0, 0, 0, time.UTC), "2023-12-25"},
		{"string array", []string{"a", "b"}, "a, b"},
		{"any array", []any{"a", nil, "c"}, "a, c"},
		{"number", int32(7), "7"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, cellText(tt.in))
		})
	}
}
