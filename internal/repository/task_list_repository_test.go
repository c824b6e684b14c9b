package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/dayplan-api/internal/models"
)

func newTaskListRepoMock(t *testing.T) (*TaskListRepository, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return NewTaskListRepository(sqlx.NewDb(db, "sqlmock")), mock, func() { db.Close() }
}

func TestTaskListRepositoryCreate(t *testing.T) {
	repo, mock, cleanup := newTaskListRepoMock(t)
	defer cleanup()

	fixed := "10:00"
	list := &models.TaskList{
		Name: "weekday",
		Items: []models.TaskListItem{
			{TaskID: 1, Description: "warm up", Duration: 10, Status: "N", Category: "Routine"},
			{TaskID: 2, Description: "standup", Duration: 20, Dependencies: pq.Int64Array{1}, Status: "N", Scheduled: &fixed, Category: "Other"},
		},
	}

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO task_lists")).
		WithArgs(sqlmock.AnyArg(), "weekday", sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO task_list_items")).
		WithArgs(sqlmock.AnyArg(), 0, 1, "warm up", 10, sqlmock.AnyArg(), "N", nil, "Routine").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO task_list_items")).
		WithArgs(sqlmock.AnyArg(), 1, 2, "standup", 20, sqlmock.AnyArg(), "N", sqlmock.AnyArg(), "Other").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Create(context.Background(), list))
	assert.NotEmpty(t, list.ID)
	assert.Equal(t, 2, list.ItemCount)
	assert.Equal(t, list.ID, list.Items[1].ListID)
	assert.Equal(t, pq.Int64Array{}, list.Items[0].Dependencies)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTaskListRepositoryCreateRollsBack(t *testing.T) {
	repo, mock, cleanup := newTaskListRepoMock(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO task_lists")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO task_list_items")).
		WillReturnError(errors.New("duplicate key"))
	mock.ExpectRollback()

	err := repo.Create(context.Background(), &models.TaskList{
		Name:  "broken",
		Items: []models.TaskListItem{{TaskID: 1, Duration: 5, Status: "N", Category: "Other"}},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insert task list item 1")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTaskListRepositoryFindAndItems(t *testing.T) {
	repo, mock, cleanup := newTaskListRepoMock(t)
	defer cleanup()

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("FROM task_lists l WHERE l.id = $1")).
		WithArgs("list-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "meta", "created_at", "updated_at", "item_count"}).
			AddRow("list-1", "weekday", `{"start":"08:00"}`, now, now, 2))
	mock.ExpectQuery(regexp.QuoteMeta("FROM task_list_items WHERE list_id = $1 ORDER BY position ASC")).
		WithArgs("list-1").
		WillReturnRows(sqlmock.NewRows([]string{"list_id", "position", "task_id", "description", "duration", "dependencies", "status", "scheduled", "category"}).
			AddRow("list-1", 0, 1, "warm up", 10, "{}", "N", nil, "Routine").
			AddRow("list-1", 1, 2, "standup", 20, "{1}", "N", "10:00", "Other"))

	list, err := repo.FindByID(context.Background(), "list-1")
	require.NoError(t, err)
	assert.Equal(t, "weekday", list.Name)
	assert.Equal(t, 2, list.ItemCount)

	items, err := repo.Items(context.Background(), "list-1")
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Nil(t, items[0].Scheduled)
	assert.Equal(t, pq.Int64Array{1}, items[1].Dependencies)
	require.NotNil(t, items[1].Scheduled)
	assert.Equal(t, "10:00", *items[1].Scheduled)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTaskListRepositoryFindMissing(t *testing.T) {
	repo, mock, cleanup := newTaskListRepoMock(t)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta("FROM task_lists l WHERE l.id = $1")).
		WithArgs("nope").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByID(context.Background(), "nope")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestTaskListRepositoryList(t *testing.T) {
	repo, mock, cleanup := newTaskListRepoMock(t)
	defer cleanup()

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM task_lists l WHERE LOWER(l.name) LIKE $1")).
		WithArgs("%week%").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))
	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY l.updated_at DESC LIMIT $2 OFFSET $3")).
		WithArgs("%week%", 2, 2).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "meta", "created_at", "updated_at", "item_count"}).
			AddRow("list-3", "weekend", `{}`, now, now, 4))

	lists, total, err := repo.List(context.Background(), models.TaskListFilter{Search: " Week ", Page: 2, PageSize: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, lists, 1)
	assert.Equal(t, 4, lists[0].ItemCount)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTaskListRepositoryDelete(t *testing.T) {
	repo, mock, cleanup := newTaskListRepoMock(t)
	defer cleanup()

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM task_lists WHERE id = $1")).
		WithArgs("list-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM task_lists WHERE id = $1")).
		WithArgs("list-2").
		WillReturnResult(sqlmock.NewResult(0, 0))

	deleted, err := repo.Delete(context.Background(), "list-1")
	require.NoError(t, err)
	assert.True(t, deleted)
	deleted, err = repo.Delete(context.Background(), "list-2")
	require.NoError(t, err)
	assert.False(t, deleted)
	require.NoError(t, mock.ExpectationsWereMet())
}
