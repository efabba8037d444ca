// Package repo implements the one list-keeping capability shared by columns
// and cards: records with {id, order, parent id, status}, kept as a dense
// zero-based sequence of active siblings per parent, archivable, and
// hard-deletable only once archived.
package repo

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"kanbanmusic/internal/models"
)

var (
	// ErrNotFound means the id did not resolve to a record in the required
	// status for the operation.
	ErrNotFound = errors.New("record not found")
	// ErrNotArchived means a delete was attempted on a record that is absent
	// or still active.
	ErrNotArchived = errors.New("record not found or not archived")
)

// Repo is an ordered, archivable collection of T records grouped under a
// parent id column.
type Repo[T any] struct {
	db           *gorm.DB
	parentColumn string
}

// New builds a repository over db. parentColumn is the database column naming
// the owning parent ("board_id" for columns, "column_id" for cards).
func New[T any](db *gorm.DB, parentColumn string) *Repo[T] {
	return &Repo[T]{db: db, parentColumn: parentColumn}
}

// Create inserts a prepared record. The caller assigns id and order
// (NextOrder provides append-to-end semantics).
func (r *Repo[T]) Create(ctx context.Context, rec *T) error {
	return r.db.WithContext(ctx).Create(rec).Error
}

// NextOrder returns the order value for a record appended to the end of the
// parent's active list, i.e. the current count of active siblings.
func (r *Repo[T]) NextOrder(ctx context.Context, parentID string) (int, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(new(T)).
		Where(r.parentColumn+" = ? AND status = ?", parentID, models.StatusActive).
		Count(&count).Error
	return int(count), err
}

// Get fetches a record by id regardless of status.
func (r *Repo[T]) Get(ctx context.Context, id string) (*T, error) {
	var rec T
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// GetActive fetches a record by id, requiring active status.
func (r *Repo[T]) GetActive(ctx context.Context, id string) (*T, error) {
	var rec T
	err := r.db.WithContext(ctx).
		Where("id = ? AND status = ?", id, models.StatusActive).
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// ListActive returns the parent's active records sorted by order.
func (r *Repo[T]) ListActive(ctx context.Context, parentID string) ([]T, error) {
	var recs []T
	err := r.db.WithContext(ctx).
		Where(r.parentColumn+" = ? AND status = ?", parentID, models.StatusActive).
		Order("position asc").
		Find(&recs).Error
	return recs, err
}

// ListActiveIn returns the active records of several parents in one query,
// sorted by order.
func (r *Repo[T]) ListActiveIn(ctx context.Context, parentIDs []string) ([]T, error) {
	recs := []T{}
	if len(parentIDs) == 0 {
		return recs, nil
	}
	err := r.db.WithContext(ctx).
		Where(r.parentColumn+" IN ? AND status = ?", parentIDs, models.StatusActive).
		Order("position asc").
		Find(&recs).Error
	return recs, err
}

// ListArchived returns every archived record across all parents.
func (r *Repo[T]) ListArchived(ctx context.Context) ([]T, error) {
	recs := []T{}
	err := r.db.WithContext(ctx).
		Where("status = ?", models.StatusArchived).
		Find(&recs).Error
	return recs, err
}

// Update applies a partial-field change set to the record and returns the
// updated row. Missing records yield ErrNotFound.
func (r *Repo[T]) Update(ctx context.Context, id string, changes map[string]any) (*T, error) {
	if _, err := r.Get(ctx, id); err != nil {
		return nil, err
	}
	if len(changes) > 0 {
		err := r.db.WithContext(ctx).Model(new(T)).
			Where("id = ?", id).
			Updates(changes).Error
		if err != nil {
			return nil, err
		}
	}
	return r.Get(ctx, id)
}

// ArchiveActive archives every active record of the parent. Used when a
// column is archived and its cards must follow in the same operation.
func (r *Repo[T]) ArchiveActive(ctx context.Context, parentID string) error {
	return r.db.WithContext(ctx).Model(new(T)).
		Where(r.parentColumn+" = ? AND status = ?", parentID, models.StatusActive).
		Update("status", models.StatusArchived).Error
}

// DeleteArchived hard-deletes the record, permitted only when its current
// status is archived. Active or absent records yield ErrNotArchived.
func (r *Repo[T]) DeleteArchived(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).
		Where("id = ? AND status = ?", id, models.StatusArchived).
		Delete(new(T))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotArchived
	}
	return nil
}

// DeleteByParents removes all records of the given parents regardless of
// status. Board deletion cascades through this.
func (r *Repo[T]) DeleteByParents(ctx context.Context, parentIDs []string) error {
	if len(parentIDs) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Where(r.parentColumn+" IN ?", parentIDs).
		Delete(new(T)).Error
}

// IDsByParent lists the ids of every record under the parent, regardless of
// status. Used to walk board -> columns -> cards for cascades.
func (r *Repo[T]) IDsByParent(ctx context.Context, parentID string) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).Model(new(T)).
		Where(r.parentColumn+" = ?", parentID).
		Pluck("id", &ids).Error
	return ids, err
}
