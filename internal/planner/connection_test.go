package planner

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opencrud/queryplanner/internal/codec"
	"github.com/opencrud/queryplanner/internal/fieldtree"
	"github.com/opencrud/queryplanner/internal/model"
	"github.com/opencrud/queryplanner/internal/queryargs"
	"github.com/opencrud/queryplanner/internal/sqlbuild"
)

// fakeRowSource is a canned RowSource: it ignores the SQL text entirely and
// replays whatever rows its owning fakeConn handed it.
type fakeRowSource struct {
	rows []Row
	i    int
}

func (s *fakeRowSource) Next() bool {
	if s.i >= len(s.rows) {
		return false
	}
	s.i++
	return true
}

func (s *fakeRowSource) Values() ([]interface{}, error) { return []interface{}(s.rows[s.i-1]), nil }
func (s *fakeRowSource) Err() error                      { return nil }
func (s *fakeRowSource) Close()                          {}

type idWalletRow struct{ id, wallet string }

// fakeConn stands in for one request's bound Connection. Node rows are laid
// out by reading back fields' assigned Index at Query time, after
// composeSelect has already run and mutated them in place; count queries
// (detected by SQL substring) return a single canned scalar row.
type fakeConn struct {
	fields   map[string][]*fieldtree.Field
	nodeRows []idWalletRow
	count    int64
}

func (c *fakeConn) Query(ctx context.Context, sql string, args []interface{}) (RowSource, error) {
	if strings.Contains(sql, "count(*)") {
		return &fakeRowSource{rows: []Row{{c.count}}}, nil
	}

	idIdx := c.fields["id"][0].Index
	walletIdx := c.fields["wallet"][0].Index
	width := idIdx
	if walletIdx > width {
		width = walletIdx
	}
	rows := make([]Row, 0, len(c.nodeRows))
	for _, d := range c.nodeRows {
		row := make(Row, width+1)
		row[idIdx] = d.id
		row[walletIdx] = d.wallet
		rows = append(rows, row)
	}
	return &fakeRowSource{rows: rows}, nil
}

func walletAccountModel(t *testing.T) *model.Model {
	t.Helper()
	m, err := model.New([]*model.Type{
		{Name: "Account", Kind: model.KindEntity, Properties: map[string]*model.Property{
			"wallet": {Name: "wallet", Type: &model.PropertyType{Kind: model.PTScalar, Name: "String"}},
		}},
	})
	require.NoError(t, err)
	return m
}

func TestExecuteConnectionPaginatesAndDetectsNextPage(t *testing.T) {
	m := walletAccountModel(t)
	fields, err := fieldtree.Build(m, "Account", []*fieldtree.Selection{{Name: "id"}, {Name: "wallet"}})
	require.NoError(t, err)

	conn := &fakeConn{
		fields:   fields,
		nodeRows: []idWalletRow{{"1", "a"}, {"2", "b"}, {"3", "c"}},
		count:    7,
	}
	p := New(m, codec.NewRegistry(), sqlbuild.PostgresQuoter{}, conn, nil)

	result, err := p.ExecuteConnection(context.Background(), "Account", ConnectionArgs{
		First:   2,
		OrderBy: "id_ASC",
	}, ConnectionFields{TotalCount: true, PageInfo: true, WantCursor: true, NodeFields: fields})
	require.NoError(t, err)

	require.Len(t, result.Edges, 2)
	assert.Equal(t, "1", result.Edges[0].Node["id"])
	assert.Equal(t, "2", result.Edges[1].Node["id"])
	assert.True(t, result.PageInfo.HasNextPage)
	assert.False(t, result.PageInfo.HasPreviousPage)
	require.NotNil(t, result.PageInfo.StartCursor)
	require.NotNil(t, result.PageInfo.EndCursor)
	require.NotNil(t, result.TotalCount)
	assert.Equal(t, int64(7), *result.TotalCount)

	decoded, err := queryargs.DecodeCursor(result.Edges[0].Cursor)
	require.NoError(t, err)
	assert.True(t, decoded.MatchesOrderBy([]string{"id_ASC"}))
	assert.Equal(t, 1, decoded.Offset)
}

func TestExecuteConnectionCountOnlyWhenNodeNotRequested(t *testing.T) {
	m := walletAccountModel(t)
	conn := &fakeConn{count: 5}
	p := New(m, codec.NewRegistry(), sqlbuild.PostgresQuoter{}, conn, nil)

	result, err := p.ExecuteConnection(context.Background(), "Account", ConnectionArgs{
		First:   2,
		OrderBy: "id_ASC",
	}, ConnectionFields{TotalCount: true, PageInfo: true})
	require.NoError(t, err)

	assert.Nil(t, result.Edges)
	assert.True(t, result.PageInfo.HasNextPage)
	require.NotNil(t, result.TotalCount)
	assert.Equal(t, int64(5), *result.TotalCount)
}

// TestExecuteConnectionCountOnlyAppliesOffsetBeforeClampingToFirst covers the
// count-only path with a non-zero "after" cursor: the count ExecuteListCount
// returns ignores pagination entirely, so it must be reduced by the cursor's
// offset before being compared against first+1, or hasNextPage/totalCount
// both over-report.
func TestExecuteConnectionCountOnlyAppliesOffsetBeforeClampingToFirst(t *testing.T) {
	m := walletAccountModel(t)
	conn := &fakeConn{count: 6}
	p := New(m, codec.NewRegistry(), sqlbuild.PostgresQuoter{}, conn, nil)

	after := queryargs.EncodeCursor(queryargs.Cursor{OrderBy: []string{"id_ASC"}, Offset: 5})
	result, err := p.ExecuteConnection(context.Background(), "Account", ConnectionArgs{
		First:   3,
		OrderBy: "id_ASC",
		After:   after,
	}, ConnectionFields{TotalCount: true, PageInfo: true})
	require.NoError(t, err)

	assert.Nil(t, result.Edges)
	assert.False(t, result.PageInfo.HasNextPage)
	require.NotNil(t, result.TotalCount)
	assert.Equal(t, int64(6), *result.TotalCount)
}

func TestExecuteConnectionRequiresOrderBy(t *testing.T) {
	m := walletAccountModel(t)
	p := New(m, codec.NewRegistry(), sqlbuild.PostgresQuoter{}, &fakeConn{}, nil)

	_, err := p.ExecuteConnection(context.Background(), "Account", ConnectionArgs{First: 2}, ConnectionFields{})
	assert.ErrorContains(t, err, "orderBy is required")
}

func TestExecuteConnectionRequiresPositiveFirst(t *testing.T) {
	m := walletAccountModel(t)
	p := New(m, codec.NewRegistry(), sqlbuild.PostgresQuoter{}, &fakeConn{}, nil)

	_, err := p.ExecuteConnection(context.Background(), "Account", ConnectionArgs{OrderBy: "id_ASC"}, ConnectionFields{})
	assert.ErrorContains(t, err, "first is required")
}

func TestExecuteConnectionCursorOrderByMismatchRejected(t *testing.T) {
	m := walletAccountModel(t)
	p := New(m, codec.NewRegistry(), sqlbuild.PostgresQuoter{}, &fakeConn{}, nil)

	after := queryargs.EncodeCursor(queryargs.Cursor{OrderBy: []string{"wallet_ASC"}, Offset: 2})
	_, err := p.ExecuteConnection(context.Background(), "Account", ConnectionArgs{
		First:   2,
		OrderBy: "id_ASC",
		After:   after,
	}, ConnectionFields{})
	assert.ErrorContains(t, err, "InvalidCursorValue")
}
