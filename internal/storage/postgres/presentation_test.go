package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Vasu1712/scenyx-present/internal/deck"
	"github.com/Vasu1712/scenyx-present/internal/models"
	"github.com/Vasu1712/scenyx-present/internal/storage"
	"github.com/Vasu1712/scenyx-present/internal/storage/storagetest"
)

var rowColumns = []string{"id", "name", "filename", "type", "content", "created_at", "updated_at"}

func newMockStore(t *testing.T) (*PresentationStore, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		db.Close()
	})
	return New(db, nil), mock
}

func TestGet(t *testing.T) {
	store, mock := newMockStore(t)
	created := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	raw, err := json.Marshal(storagetest.SampleDeck())
	require.NoError(t, err)

	mock.ExpectQuery(getSQL).
		WithArgs("review.deck").
		WillReturnRows(sqlmock.NewRows(rowColumns).
			AddRow("0b7c", "Review", "review.deck", "deck", string(raw), created, created))

	p, err := store.Get(context.Background(), "review.deck")
	require.NoError(t, err)
	assert.Equal(t, models.TypeDeck, p.Type)
	assert.Equal(t, created, p.CreatedAt)

	d, err := deck.Parse(p.Content)
	require.NoError(t, err)
	assert.Equal(t, storagetest.SampleDeck(), d)
}

func TestGetNotFound(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectQuery(getSQL).WithArgs("nope.deck").WillReturnRows(sqlmock.NewRows(rowColumns))

	_, err := store.Get(context.Background(), "nope.deck")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestList(t *testing.T) {
	store, mock := newMockStore(t)
	t0 := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	mock.ExpectQuery(listSQL).WillReturnRows(
		sqlmock.NewRows([]string{"id", "name", "filename", "type", "created_at"}).
			AddRow("2", "Newer", "newer.md", "markdown", t0.Add(time.Hour)).
			AddRow("1", "Older", "older.deck", "deck", t0),
	)

	list, err := store.List(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "newer.md", list[0].Filename)
	assert.Equal(t, models.TypeMarkdown, list[0].Type)
}

func TestSaveInsertsNewRow(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	mock.ExpectBegin()
	mock.ExpectQuery(lockSQL).WithArgs("talk.md").WillReturnRows(sqlmock.NewRows(rowColumns))
	mock.ExpectExec(upsertSQL).
		WithArgs(sqlmock.AnyArg(), "talk.md", "Talk", "markdown", "# hi", now, now).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	p, err := store.Save(context.Background(), "Talk", "talk", models.TypeMarkdown, []byte("# hi"))
	require.NoError(t, err)
	assert.Equal(t, "talk.md", p.Filename)
	assert.NotEmpty(t, p.ID)
}

func TestSaveKeepsIdentityOnUpdate(t *testing.T) {
	store, mock := newMockStore(t)
	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	now := created.Add(48 * time.Hour)
	store.now = func() time.Time { return now }

	mock.ExpectBegin()
	mock.ExpectQuery(lockSQL).WithArgs("talk.md").WillReturnRows(
		sqlmock.NewRows(rowColumns).AddRow("keep-me", "Talk", "talk.md", "markdown", "# old", created, created))
	mock.ExpectExec(upsertSQL).
		WithArgs("keep-me", "talk.md", "Talk", "markdown", "# new", created, now).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	p, err := store.Save(context.Background(), "Talk", "talk.md", models.TypeMarkdown, []byte("# new"))
	require.NoError(t, err)
	assert.Equal(t, "keep-me", p.ID)
	assert.Equal(t, created, p.CreatedAt)
}

func TestSaveRejectsMalformedDeck(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectBegin()
	mock.ExpectQuery(lockSQL).WithArgs("bad.deck").WillReturnRows(sqlmock.NewRows(rowColumns))
	mock.ExpectRollback()

	_, err := store.Save(context.Background(), "bad", "bad", models.TypeDeck, []byte(`{"scenes":[]}`))
	assert.ErrorIs(t, err, deck.ErrMalformedDocument)
}

func TestSaveRollsBackOnExecError(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectBegin()
	mock.ExpectQuery(lockSQL).WithArgs("talk.md").WillReturnRows(sqlmock.NewRows(rowColumns))
	mock.ExpectExec(upsertSQL).WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	_, err := store.Save(context.Background(), "Talk", "talk.md", models.TypeMarkdown, []byte("# hi"))
	assert.ErrorContains(t, err, "disk full")
}

func TestDelete(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectExec(deleteSQL).WithArgs("talk.md").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(deleteSQL).WithArgs("talk.md").WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, store.Delete(context.Background(), "talk.md"))
	assert.ErrorIs(t, store.Delete(context.Background(), "talk.md"), storage.ErrNotFound)
}

func TestMigrate(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectExec(schemaSQL).WillReturnResult(sqlmock.NewResult(0, 0))
	require.NoError(t, store.Migrate(context.Background()))
}

func TestGetSurfacesDriverErrors(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectQuery(getSQL).WithArgs("x.deck").WillReturnError(sql.ErrConnDone)

	_, err := store.Get(context.Background(), "x.deck")
	assert.ErrorIs(t, err, sql.ErrConnDone)
	assert.NotErrorIs(t, err, storage.ErrNotFound)
}
