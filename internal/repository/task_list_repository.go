package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"

	"github.com/noah-isme/dayplan-api/internal/models"
)

// TaskListRepository persists stored task lists and their items.
type TaskListRepository struct {
	db *sqlx.DB
}

// NewTaskListRepository constructs the repository.
func NewTaskListRepository(db *sqlx.DB) *TaskListRepository {
	return &TaskListRepository{db: db}
}

// Create inserts a list and all of its items in one transaction.
func (r *TaskListRepository) Create(ctx context.Context, list *models.TaskList) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	if err := r.createTx(ctx, tx, list); err != nil {
		tx.Rollback() //nolint:errcheck
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit task list: %w", err)
	}
	return nil
}

func (r *TaskListRepository) createTx(ctx context.Context, tx *sqlx.Tx, list *models.TaskList) error {
	if list.ID == "" {
		list.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if list.CreatedAt.IsZero() {
		list.CreatedAt = now
	}
	list.UpdatedAt = now
	if len(list.Meta) == 0 {
		list.Meta = types.JSONText(`{}`)
	}
	const insertList = `INSERT INTO task_lists (id, name, meta, created_at, updated_at)
VALUES (:id, :name, :meta, :created_at, :updated_at)`
	if _, err := tx.NamedExecContext(ctx, insertList, list); err != nil {
		return fmt.Errorf("insert task list: %w", err)
	}

	const insertItem = `INSERT INTO task_list_items (list_id, position, task_id, description, duration, dependencies, status, scheduled, category)
VALUES (:list_id, :position, :task_id, :description, :duration, :dependencies, :status, :scheduled, :category)`
	for i := range list.Items {
		item := &list.Items[i]
		item.ListID = list.ID
		item.Position = i
		if item.Dependencies == nil {
			item.Dependencies = []int64{}
		}
		if _, err := tx.NamedExecContext(ctx, insertItem, item); err != nil {
			return fmt.Errorf("insert task list item %d: %w", item.TaskID, err)
		}
	}
	list.ItemCount = len(list.Items)
	return nil
}

// FindByID returns the list header without items.
func (r *TaskListRepository) FindByID(ctx context.Context, id string) (*models.TaskList, error) {
	const query = `SELECT l.id, l.name, l.meta, l.created_at, l.updated_at,
(SELECT COUNT(*) FROM task_list_items i WHERE i.list_id = l.id) AS item_count
FROM task_lists l WHERE l.id = $1`
	var list models.TaskList
	if err := r.db.GetContext(ctx, &list, query, id); err != nil {
		return nil, fmt.Errorf("get task list: %w", err)
	}
	return &list, nil
}

// Items returns the records of a list in insertion order.
func (r *TaskListRepository) Items(ctx context.Context, listID string) ([]models.TaskListItem, error) {
	const query = `SELECT list_id, position, task_id, description, duration, dependencies, status, scheduled, category
FROM task_list_items WHERE list_id = $1 ORDER BY position ASC`
	var items []models.TaskListItem
	if err := r.db.SelectContext(ctx, &items, query, listID); err != nil {
		return nil, fmt.Errorf("list task list items: %w", err)
	}
	return items, nil
}

// List returns list headers ordered by most recent update together with the total count.
func (r *TaskListRepository) List(ctx context.Context, filter models.TaskListFilter) ([]models.TaskList, int, error) {
	conditions := make([]string, 0, 1)
	args := make([]interface{}, 0, 3)
	if search := strings.TrimSpace(filter.Search); search != "" {
		args = append(args, "%"+strings.ToLower(search)+"%")
		conditions = append(conditions, fmt.Sprintf("LOWER(l.name) LIKE $%d", len(args)))
	}
	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	countQuery := "SELECT COUNT(*) FROM task_lists l" + where
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count task lists: %w", err)
	}

	page, size := normalizePage(filter.Page, filter.PageSize)
	args = append(args, size, (page-1)*size)
	query := fmt.Sprintf(`SELECT l.id, l.name, l.meta, l.created_at, l.updated_at,
(SELECT COUNT(*) FROM task_list_items i WHERE i.list_id = l.id) AS item_count
FROM task_lists l%s ORDER BY l.updated_at DESC LIMIT $%d OFFSET $%d`, where, len(args)-1, len(args))

	var lists []models.TaskList
	if err := r.db.SelectContext(ctx, &lists, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list task lists: %w", err)
	}
	return lists, total, nil
}

// Delete removes a list; items go with it through the foreign key cascade.
func (r *TaskListRepository) Delete(ctx context.Context, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM task_lists WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("delete task list: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete task list: %w", err)
	}
	return affected > 0, nil
}

func normalizePage(page, size int) (int, int) {
	if page <= 0 {
		page = 1
	}
	if size <= 0 {
		size = 20
	}
	if size > 100 {
		size = 100
	}
	return page, size
}
