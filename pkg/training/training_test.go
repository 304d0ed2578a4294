package training

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeStore is an in-memory Store that records the order of calls.
type fakeStore struct {
	records  []Record
	next     int
	ops      []string
	failIDs  map[string]bool
	listErr  error
	addCalls int
}

func (s *fakeStore) TrainingData(_ context.Context) ([]Record, error) {
	s.ops = append(s.ops, "list")
	if s.listErr != nil {
		return nil, s.listErr
	}
	out := make([]Record, len(s.records))
	copy(out, s.records)
	return out, nil
}

func (s *fakeStore) RemoveTrainingData(_ context.Context, id string) error {
	s.ops = append(s.ops, "remove")
	if s.failIDs[id] {
		return fmt.Errorf("delete %s refused", id)
	}
	for i, r := range s.records {
		if r.ID == id {
			s.records = append(s.records[:i], s.records[i+1:]...)
			break
		}
	}
	return nil
}

func (s *fakeStore) add(kind, question, content string) (string, error) {
	s.next++
	s.addCalls++
	s.ops = append(s.ops, "add:"+kind)
	id := fmt.Sprintf("%d-%s", s.next, kind)
	s.records = append(s.records, Record{ID: id, Kind: kind, Question: question, Content: content})
	return id, nil
}

func (s *fakeStore) AddDDL(_ context.Context, ddl string) (string, error) {
	return s.add(KindDDL, "", ddl)
}

func (s *fakeStore) AddDocumentation(_ context.Context, doc string) (string, error) {
	return s.add(KindDocumentation, "", doc)
}

func (s *fakeStore) AddQuestionSQL(_ context.Context, question, sql string) (string, error) {
	return s.add(KindSQL, question, sql)
}

func (s *fakeStore) byKind(kind string) []Record {
	var out []Record
	for _, r := range s.records {
		if r.Kind == kind {
			out = append(out, r)
		}
	}
	return out
}

type fakeQuestions struct{ calls []string }

func (q *fakeQuestions) GenerateQuestion(_ context.Context, sql string) (string, error) {
	q.calls = append(q.calls, sql)
	return "What does this query return?", nil
}

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return sqlx.NewDb(db, "postgres"), mock
}

var columnHeader = []string{
	"table_catalog", "table_schema", "table_name", "column_name",
	"data_type", "is_nullable", "ordinal_position", "comment",
}

func expectIntrospection(mock sqlmock.Sqlmock) {
	mock.ExpectQuery(regexp.QuoteMeta(informationSchemaSQL)).
		WillReturnRows(sqlmock.NewRows(columnHeader).
			AddRow("sead", "public", "tbl_sites", "site_id", "integer", "NO", 1, nil).
			AddRow("sead", "public", "tbl_sites", "site_name", "character varying", "YES", 2, nil).
			AddRow("sead", "public", "tbl_sample_groups", "sample_group_id", "integer", "NO", 1, nil))
}

func writeDDL(t *testing.T, contents ...string) []string {
	t.Helper()
	dir := t.TempDir()
	paths := make([]string, len(contents))
	for i, c := range contents {
		paths[i] = filepath.Join(dir, fmt.Sprintf("ddl_%d.sql", i))
		require.NoError(t, os.WriteFile(paths[i], []byte(c), 0o644))
	}
	return paths
}

func TestClearRemovesEverything(t *testing.T) {
	store := &fakeStore{records: []Record{
		{ID: "a-ddl", Kind: KindDDL},
		{ID: "b-doc", Kind: KindDocumentation},
		{ID: "c-sql", Kind: KindSQL},
	}}

	removed, err := New(store, nil).Clear(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, removed)
	assert.Empty(t, store.records)
}

func TestClearOnEmptyStore(t *testing.T) {
	store := &fakeStore{}
	removed, err := New(store, nil).Clear(context.Background())
	require.NoError(t, err)
	assert.Zero(t, removed)
}

func TestClearKeepsGoingAfterFailedDelete(t *testing.T) {
	store := &fakeStore{
		records: []Record{{ID: "a"}, {ID: "b"}, {ID: "c"}},
		failIDs: map[string]bool{"b": true},
	}

	removed, err := New(store, nil).Clear(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "b")
	assert.Equal(t, 2, removed)
	require.Len(t, store.records, 1)
	assert.Equal(t, "b", store.records[0].ID)
}

func TestClearListFailure(t *testing.T) {
	store := &fakeStore{listErr: errors.New("store unavailable")}
	_, err := New(store, nil).Clear(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store unavailable")
}

func TestPopulatePassesContentThrough(t *testing.T) {
	ddl := "CREATE TABLE tbl_sites (\n\tsite_id integer NOT NULL\n);\n\n-- trailing  spaces  \n"
	paths := writeDDL(t, ddl)
	doc := "  Qualify every column with its table.\nNever SELECT *.\t"
	example := Example{Question: "Which sites?  ", SQL: "SELECT tbl_sites.site_id\nFROM tbl_sites\n"}

	store := &fakeStore{}
	m := New(store, nil)
	ctx := context.Background()

	_, err := m.PopulateDDL(ctx, paths)
	require.NoError(t, err)
	_, err = m.PopulateDocumentation(ctx, []string{doc})
	require.NoError(t, err)
	_, err = m.PopulateExamples(ctx, []Example{example})
	require.NoError(t, err)

	assert.Equal(t, ddl, store.byKind(KindDDL)[0].Content)
	assert.Equal(t, doc, store.byKind(KindDocumentation)[0].Content)
	assert.Equal(t, example.Question, store.byKind(KindSQL)[0].Question)
	assert.Equal(t, example.SQL, store.byKind(KindSQL)[0].Content)
}

func TestPopulateDDLMissingFile(t *testing.T) {
	store := &fakeStore{}
	paths := append(writeDDL(t, "CREATE TABLE a ();"), filepath.Join(t.TempDir(), "missing.sql"))

	n, err := New(store, nil).PopulateDDL(context.Background(), paths)
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.Equal(t, 1, n)
}

func TestPopulateExamplesGeneratesMissingQuestion(t *testing.T) {
	store := &fakeStore{}
	questions := &fakeQuestions{}
	sql := "SELECT tbl_sites.site_name FROM tbl_sites WHERE tbl_sites.site_id = 1"

	_, err := New(store, questions).PopulateExamples(context.Background(), []Example{{SQL: sql}})
	require.NoError(t, err)

	assert.Equal(t, []string{sql}, questions.calls)
	rec := store.byKind(KindSQL)[0]
	assert.Equal(t, "What does this query return?", rec.Question)
	assert.Equal(t, sql, rec.Content)
}

func TestPopulateExamplesKeepsDuplicates(t *testing.T) {
	store := &fakeStore{}
	ex := Example{Question: "q", SQL: "SELECT 1"}
	n, err := New(store, nil).PopulateExamples(context.Background(), []Example{ex, ex})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Len(t, store.byKind(KindSQL), 2)
}

func TestRunClearsBeforePopulating(t *testing.T) {
	db, mock := newMockDB(t)
	expectIntrospection(mock)

	store := &fakeStore{records: []Record{{ID: "old-1"}, {ID: "old-2"}}}
	_, err := New(store, nil).Run(context.Background(), db, Sources{
		DDLFiles:      writeDDL(t, "CREATE TABLE a ();"),
		Documentation: []string{"doc"},
		Examples:      []Example{{Question: "q", SQL: "SELECT 1"}},
	})
	require.NoError(t, err)

	lastRemove, firstAdd := -1, -1
	for i, op := range store.ops {
		if op == "remove" {
			lastRemove = i
		}
		if firstAdd == -1 && len(op) > 4 && op[:4] == "add:" {
			firstAdd = i
		}
	}
	require.NotEqual(t, -1, firstAdd)
	assert.Less(t, lastRemove, firstAdd)
	assert.Equal(t, []string{"add:documentation", "add:documentation", "add:ddl", "add:documentation", "add:sql"}, store.ops[firstAdd:])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRunAbortsWhenClearFails(t *testing.T) {
	db, mock := newMockDB(t)

	store := &fakeStore{records: []Record{{ID: "stuck"}}, failIDs: map[string]bool{"stuck": true}}
	_, err := New(store, nil).Run(context.Background(), db, Sources{Documentation: []string{"doc"}})
	require.Error(t, err)
	assert.Zero(t, store.addCalls)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRunOnEmptyStore(t *testing.T) {
	db, mock := newMockDB(t)
	expectIntrospection(mock)

	src := Sources{
		DDLFiles:      writeDDL(t, "CREATE TABLE tbl_sites ();", "ALTER TABLE x ADD FOREIGN KEY (y) REFERENCES z;", "COMMENT ON TABLE tbl_sites IS 'sites';"),
		Documentation: []string{"SEAD is an archaeology database.", "Never select an unqualified *."},
		Examples: []Example{
			{Question: "Which sites have dendrochronological data?", SQL: "SELECT DISTINCT tbl_sites.site_id FROM tbl_sites"},
			{Question: "Show all sites", SQL: "SELECT tbl_sites.site_id FROM tbl_sites"},
		},
	}
	store := &fakeStore{}
	summary, err := New(store, nil).Run(context.Background(), db, src)
	require.NoError(t, err)

	assert.Equal(t, Summary{Removed: 0, Schema: 2, DDL: 3, Documentation: 2, Examples: 2}, summary)
	assert.Len(t, store.byKind(KindDDL), 3)
	assert.Len(t, store.byKind(KindDocumentation), 2+2)
	assert.Len(t, store.byKind(KindSQL), 2)
	require.NoError(t, mock.ExpectationsWereMet())
}
