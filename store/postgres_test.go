package store

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type PostgresStoreTestSuite struct {
	suite.Suite
	db    *sqlx.DB
	mock  sqlmock.Sqlmock
	store *PostgresStore
}

func (suite *PostgresStoreTestSuite) SetupTest() {
	mockDB, mock, err := sqlmock.New()
	require.NoError(suite.T(), err)

	suite.db = sqlx.NewDb(mockDB, "sqlmock")
	suite.mock = mock
	suite.store = NewPostgresStore(suite.db, "", slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func (suite *PostgresStoreTestSuite) TearDownTest() {
	suite.db.Close()
}

func (suite *PostgresStoreTestSuite) TestGet_Found() {
	suite.mock.ExpectQuery(`SELECT value FROM documents WHERE path = \$1`).
		WithArgs("universities/u1").
		WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow([]byte(`{"name":"Oxford"}`)))

	raw, err := suite.store.Get(context.Background(), "universities/u1")

	assert.NoError(suite.T(), err)
	assert.JSONEq(suite.T(), `{"name":"Oxford"}`, string(raw))
	assert.NoError(suite.T(), suite.mock.ExpectationsWereMet())
}

func (suite *PostgresStoreTestSuite) TestGet_NotFound() {
	suite.mock.ExpectQuery(`SELECT value FROM documents WHERE path = \$1`).
		WithArgs("universities/none").
		WillReturnRows(sqlmock.NewRows([]string{"value"}))

	_, err := suite.store.Get(context.Background(), "universities/none")

	assert.ErrorIs(suite.T(), err, ErrNotFound)
	assert.NoError(suite.T(), suite.mock.ExpectationsWereMet())
}

func (suite *PostgresStoreTestSuite) TestList_PermissionDenied() {
	suite.mock.ExpectQuery(`SELECT path, value FROM documents WHERE parent = \$1`).
		WithArgs("players").
		WillReturnError(&pq.Error{Code: "42501", Message: "permission denied for table documents"})

	_, err := suite.store.List(context.Background(), "players")

	assert.ErrorIs(suite.T(), err, ErrPermissionDenied)
	assert.NoError(suite.T(), suite.mock.ExpectationsWereMet())
}

func (suite *PostgresStoreTestSuite) TestList_KeysByLastSegment() {
	suite.mock.ExpectQuery(`SELECT path, value FROM documents WHERE parent = \$1`).
		WithArgs("matches").
		WillReturnRows(sqlmock.NewRows([]string{"path", "value"}).
			AddRow("matches/m1", []byte(`{"sport":"football"}`)).
			AddRow("matches/m2", []byte(`{"sport":"cricket"}`)))

	children, err := suite.store.List(context.Background(), "matches")

	assert.NoError(suite.T(), err)
	assert.Len(suite.T(), children, 2)
	assert.JSONEq(suite.T(), `{"sport":"cricket"}`, string(children["m2"]))
	assert.NoError(suite.T(), suite.mock.ExpectationsWereMet())
}

func (suite *PostgresStoreTestSuite) TestSetMany_WritesInOneTransaction() {
	suite.mock.ExpectBegin()
	suite.mock.ExpectExec(`DELETE FROM documents WHERE path = \$1 OR path LIKE \$2`).
		WithArgs("players/p_1", `players/p\_1/%`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	suite.mock.ExpectExec(`INSERT INTO documents`).
		WithArgs("universities/u1", "universities", `{"name":"Oxford"}`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	suite.mock.ExpectCommit()

	err := suite.store.SetMany(context.Background(), map[string]any{
		"universities/u1": doc{Name: "Oxford"},
		"players/p_1":     nil,
	})

	assert.NoError(suite.T(), err)
	assert.NoError(suite.T(), suite.mock.ExpectationsWereMet())
}

func (suite *PostgresStoreTestSuite) TestSetMany_RollsBackOnFailure() {
	suite.mock.ExpectBegin()
	suite.mock.ExpectExec(`INSERT INTO documents`).
		WithArgs("players/p1", "players", `{"name":"Asha"}`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	suite.mock.ExpectExec(`INSERT INTO documents`).
		WithArgs("universities/u1/sports/football/players/p1", "universities/u1/sports/football/players", `{"name":"Asha"}`).
		WillReturnError(errors.New("connection reset"))
	suite.mock.ExpectRollback()

	err := suite.store.SetMany(context.Background(), map[string]any{
		"players/p1": doc{Name: "Asha"},
		"universities/u1/sports/football/players/p1": doc{Name: "Asha"},
	})

	assert.Error(suite.T(), err)
	assert.Contains(suite.T(), err.Error(), "connection reset")
	assert.NoError(suite.T(), suite.mock.ExpectationsWereMet())
}

func (suite *PostgresStoreTestSuite) TestUpdate_MergesUnderRowLock() {
	suite.mock.ExpectBegin()
	suite.mock.ExpectQuery(`SELECT value FROM documents WHERE path = \$1 FOR UPDATE`).
		WithArgs("matches/m1").
		WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow([]byte(`{"name":"final","score":1}`)))
	suite.mock.ExpectExec(`UPDATE documents SET value = \$2::jsonb`).
		WithArgs("matches/m1", `{"name":"final","score":3}`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	suite.mock.ExpectCommit()

	err := suite.store.Update(context.Background(), "matches/m1", map[string]any{"score": 3})

	assert.NoError(suite.T(), err)
	assert.NoError(suite.T(), suite.mock.ExpectationsWereMet())
}

func (suite *PostgresStoreTestSuite) TestUpdate_MissingDocument() {
	suite.mock.ExpectBegin()
	suite.mock.ExpectQuery(`SELECT value FROM documents WHERE path = \$1 FOR UPDATE`).
		WithArgs("matches/none").
		WillReturnRows(sqlmock.NewRows([]string{"value"}))
	suite.mock.ExpectRollback()

	err := suite.store.Update(context.Background(), "matches/none", map[string]any{"score": 3})

	assert.ErrorIs(suite.T(), err, ErrNotFound)
	assert.NoError(suite.T(), suite.mock.ExpectationsWereMet())
}

func (suite *PostgresStoreTestSuite) TestHandleNotification_LoadsValueForSubscribers() {
	var got []Change
	suite.store.Subscribe("matches", func(c Change) { got = append(got, c) })

	suite.mock.ExpectQuery(`SELECT value FROM documents WHERE path = \$1`).
		WithArgs("matches/m1").
		WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow([]byte(`{"status":"live"}`)))

	suite.store.handleNotification(context.Background(), `{"path":"matches/m1","action":"updated"}`)

	require.Len(suite.T(), got, 1)
	assert.Equal(suite.T(), ActionUpdated, got[0].Action)
	assert.JSONEq(suite.T(), `{"status":"live"}`, string(got[0].Value))
	assert.NoError(suite.T(), suite.mock.ExpectationsWereMet())
}

func (suite *PostgresStoreTestSuite) TestHandleNotification_DeleteSkipsRead() {
	var got []Change
	suite.store.Subscribe("players", func(c Change) { got = append(got, c) })

	suite.store.handleNotification(context.Background(), `{"path":"players/p1","action":"deleted"}`)
	suite.store.handleNotification(context.Background(), `{"path":"matches/m1","action":"created"}`)
	suite.store.handleNotification(context.Background(), `not json`)

	require.Len(suite.T(), got, 1)
	assert.Equal(suite.T(), ActionDeleted, got[0].Action)
	assert.Nil(suite.T(), got[0].Value)
	assert.NoError(suite.T(), suite.mock.ExpectationsWereMet())
}

func TestPostgresStoreTestSuite(t *testing.T) {
	suite.Run(t, new(PostgresStoreTestSuite))
}
