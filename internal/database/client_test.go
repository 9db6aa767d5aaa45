package database

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
)

// stubConn scripts a database/sql driver connection: queued errors fail
// successive statements, queued row sets answer successive queries, and every
// statement that runs is captured for inspection.
type stubConn struct {
	queries  []string
	execErrs []error
	results  []stubRows
}

type stubRows struct {
	cols []string
	rows [][]driver.Value
}

func (c *stubConn) Prepare(query string) (driver.Stmt, error) {
	return &stubStmt{conn: c, query: query}, nil
}

func (c *stubConn) Close() error { return nil }

func (c *stubConn) Begin() (driver.Tx, error) { return stubTx{}, nil }

func (c *stubConn) ExecContext(ctx context.Context, query string, args []driver.NamedValue) (driver.Result, error) {
	c.queries = append(c.queries, query)
	if len(c.execErrs) > 0 {
		err := c.execErrs[0]
		c.execErrs = c.execErrs[1:]
		if err != nil {
			return nil, err
		}
	}
	return driver.RowsAffected(1), nil
}

func (c *stubConn) QueryContext(ctx context.Context, query string, args []driver.NamedValue) (driver.Rows, error) {
	c.queries = append(c.queries, query)
	if len(c.results) == 0 {
		return &stubResultRows{}, nil
	}
	r := c.results[0]
	c.results = c.results[1:]
	return &stubResultRows{cols: r.cols, rows: r.rows}, nil
}

type stubStmt struct {
	conn  *stubConn
	query string
}

func (s *stubStmt) Close() error  { return nil }
func (s *stubStmt) NumInput() int { return -1 }

func (s *stubStmt) Exec(args []driver.Value) (driver.Result, error) {
	return s.conn.ExecContext(context.Background(), s.query, nil)
}

func (s *stubStmt) Query(args []driver.Value) (driver.Rows, error) {
	return s.conn.QueryContext(context.Background(), s.query, nil)
}

type stubTx struct{}

func (stubTx) Commit() error   { return nil }
func (stubTx) Rollback() error { return nil }

type stubResultRows struct {
	cols []string
	rows [][]driver.Value
	idx  int
}

func (r *stubResultRows) Columns() []string { return r.cols }
func (r *stubResultRows) Close() error      { return nil }

func (r *stubResultRows) Next(dest []driver.Value) error {
	if r.idx >= len(r.rows) {
		return io.EOF
	}
	copy(dest, r.rows[r.idx])
	r.idx++
	return nil
}

type stubConnector struct{ conn *stubConn }

func (c stubConnector) Connect(context.Context) (driver.Conn, error) { return c.conn, nil }
func (c stubConnector) Driver() driver.Driver                        { return stubDriver{} }

type stubDriver struct{}

func (stubDriver) Open(string) (driver.Conn, error) {
	return nil, errors.New("use the connector")
}

func newStubClient(conn *stubConn) *Client {
	return &Client{db: sql.OpenDB(stubConnector{conn: conn})}
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, isRetryable(&pq.Error{Code: "40001"}))
	assert.True(t, isRetryable(&pq.Error{Code: "40P01"}))
	assert.True(t, isRetryable(fmt.Errorf("wrapped: %w", &pq.Error{Code: "40001"})))
	assert.False(t, isRetryable(&pq.Error{Code: "23505"}))
	assert.False(t, isRetryable(errors.New("plain failure")))
}

func TestWithTx_RetriesSerializationFailures(t *testing.T) {
	conn := &stubConn{execErrs: []error{
		&pq.Error{Code: "40001"},
		&pq.Error{Code: "40P01"},
		nil,
	}}
	c := newStubClient(conn)

	attempts := 0
	err := c.withTx(func(tx *sql.Tx) error {
		attempts++
		_, err := tx.Exec("UPDATE image_details SET total_eggs = total_eggs + 1")
		return err
	})

	// Two lost row locks, then success; the caller never sees a conflict.
	assert.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestWithTx_DoesNotRetryOtherErrors(t *testing.T) {
	conn := &stubConn{execErrs: []error{&pq.Error{Code: "23505"}}}
	c := newStubClient(conn)

	attempts := 0
	err := c.withTx(func(tx *sql.Tx) error {
		attempts++
		_, err := tx.Exec("INSERT INTO verified_grids (image_id, x, y) VALUES ($1, $2, $3)")
		return err
	})

	assert.Error(t, err)
	assert.Equal(t, 1, attempts)
}

func TestWithTx_GivesUpAfterMaxRetries(t *testing.T) {
	execErrs := make([]error, txRetries)
	for i := range execErrs {
		execErrs[i] = &pq.Error{Code: "40001"}
	}
	conn := &stubConn{execErrs: execErrs}
	c := newStubClient(conn)

	attempts := 0
	err := c.withTx(func(tx *sql.Tx) error {
		attempts++
		_, err := tx.Exec("UPDATE batch_details SET total_eggs = total_eggs + 1")
		return err
	})

	assert.Error(t, err)
	assert.Equal(t, txRetries, attempts)
	assert.Contains(t, err.Error(), fmt.Sprintf("after %d retries", txRetries))
}

func TestBumpCounters_DecrementsClampAtZero(t *testing.T) {
	conn := &stubConn{}
	c := newStubClient(conn)

	err := c.withTx(func(tx *sql.Tx) error {
		return bumpCounters(tx, uuid.New(), uuid.New(), -1)
	})
	assert.NoError(t, err)

	// Both counter updates carry the clamp so no decrement can drive a
	// counter negative, regardless of interleaving.
	assert.Len(t, conn.queries, 2)
	for _, q := range conn.queries {
		assert.Contains(t, q, "GREATEST(total_eggs + $1, 0)")
	}
}

func TestRemovePoint_SoftDeletesOriginals(t *testing.T) {
	batchID := uuid.New()
	conn := &stubConn{results: []stubRows{
		{cols: []string{"batch_id"}, rows: [][]driver.Value{{batchID.String()}}},
		{cols: []string{"point_id", "is_original"}, rows: [][]driver.Value{{int64(7), true}}},
	}}
	c := newStubClient(conn)

	assert.NoError(t, c.RemovePoint(uuid.New(), 5, 5))

	joined := strings.Join(conn.queries, "\n")
	// A detection is soft-deleted, never purged, and the removal pairs with
	// the clamped counter decrement in the same transaction.
	assert.Contains(t, joined, "SET is_deleted = TRUE")
	assert.NotContains(t, joined, "DELETE FROM annotation_points")
	assert.Contains(t, joined, "GREATEST(total_eggs + $1, 0)")
}

func TestExportCounts_ExcludesSoftDeletedRows(t *testing.T) {
	conn := &stubConn{results: []stubRows{
		{cols: []string{"images", "points", "rects"}, rows: [][]driver.Value{{int64(3), int64(7), int64(2)}}},
	}}
	c := newStubClient(conn)

	images, points, rects, err := c.ExportCounts(ExportFilter{Model: "polyegg_heatmap"})
	assert.NoError(t, err)
	assert.Equal(t, 3, images)
	assert.Equal(t, 7, points)
	assert.Equal(t, 2, rects)

	// The preview joins filter exactly like CountedAnnotations, so the
	// counts shown before an export match the archive that comes out.
	assert.Len(t, conn.queries, 1)
	assert.Contains(t, conn.queries[0], "p.image_id = i.image_id AND p.is_deleted = FALSE")
	assert.Contains(t, conn.queries[0], "r.image_id = i.image_id AND r.is_deleted = FALSE")
}
