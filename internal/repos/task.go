package repos

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/skillpath/skillpath-backend/internal/logger"
	"github.com/skillpath/skillpath-backend/internal/types"
)

// TaskFilter narrows List queries. Zero values mean "no constraint"; the date
// range is inclusive on both ends.
type TaskFilter struct {
	Status    string
	Statuses  []string
	Kind      string
	SkillID   *uuid.UUID
	DateFrom  *time.Time
	DateTo    *time.Time
}

type TaskRepo interface {
	Create(ctx context.Context, tx *gorm.DB, rows []*types.Task) ([]*types.Task, error)
	GetByID(ctx context.Context, tx *gorm.DB, id, userID uuid.UUID) (*types.Task, error)
	List(ctx context.Context, tx *gorm.DB, userID uuid.UUID, f TaskFilter) ([]*types.Task, error)
	GetForDay(ctx context.Context, tx *gorm.DB, userID uuid.UUID, dayStart, dayEnd time.Time) ([]*types.Task, error)
	GetPendingBefore(ctx context.Context, tx *gorm.DB, userID uuid.UUID, before time.Time) ([]*types.Task, error)
	GetMissed(ctx context.Context, tx *gorm.DB, userID uuid.UUID, skillID *uuid.UUID) ([]*types.Task, error)
	GetOpenBySkill(ctx context.Context, tx *gorm.DB, skillID, userID uuid.UUID) ([]*types.Task, error)
	GetOpenLearningBySkill(ctx context.Context, tx *gorm.DB, skillID, userID uuid.UUID) ([]*types.Task, error)
	GetLastScheduledBySkill(ctx context.Context, tx *gorm.DB, skillID, userID uuid.UUID) (*types.Task, error)
	Save(ctx context.Context, tx *gorm.DB, row *types.Task) error
	DeleteByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) error
	DeleteBySkillID(ctx context.Context, tx *gorm.DB, skillID uuid.UUID) (int64, error)
}

type taskRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewTaskRepo(db *gorm.DB, baseLog *logger.Logger) TaskRepo {
	return &taskRepo{db: db, log: baseLog.With("repo", "TaskRepo")}
}

func (r *taskRepo) Create(ctx context.Context, tx *gorm.DB, rows []*types.Task) ([]*types.Task, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(rows) == 0 {
		return []*types.Task{}, nil
	}
	if err := transaction.WithContext(ctx).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *taskRepo) GetByID(ctx context.Context, tx *gorm.DB, id, userID uuid.UUID) (*types.Task, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var row types.Task
	if err := transaction.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

func (r *taskRepo) List(ctx context.Context, tx *gorm.DB, userID uuid.UUID, f TaskFilter) ([]*types.Task, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	q := transaction.WithContext(ctx).Where("user_id = ?", userID)
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if len(f.Statuses) > 0 {
		q = q.Where("status IN ?", f.Statuses)
	}
	if f.Kind != "" {
		q = q.Where("kind = ?", f.Kind)
	}
	if f.SkillID != nil {
		q = q.Where("skill_id = ?", *f.SkillID)
	}
	if f.DateFrom != nil {
		q = q.Where("scheduled_date >= ?", *f.DateFrom)
	}
	if f.DateTo != nil {
		q = q.Where("scheduled_date <= ?", *f.DateTo)
	}
	var rows []*types.Task
	if err := q.Order("scheduled_date ASC, start_time ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *taskRepo) GetForDay(ctx context.Context, tx *gorm.DB, userID uuid.UUID, dayStart, dayEnd time.Time) ([]*types.Task, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var rows []*types.Task
	if err := transaction.WithContext(ctx).
		Where("user_id = ? AND scheduled_date >= ? AND scheduled_date <= ?", userID, dayStart, dayEnd).
		Order("start_time ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *taskRepo) GetPendingBefore(ctx context.Context, tx *gorm.DB, userID uuid.UUID, before time.Time) ([]*types.Task, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var rows []*types.Task
	if err := transaction.WithContext(ctx).
		Where("user_id = ? AND scheduled_date < ? AND status = ?", userID, before, types.TaskStatusPending).
		Order("scheduled_date ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *taskRepo) GetMissed(ctx context.Context, tx *gorm.DB, userID uuid.UUID, skillID *uuid.UUID) ([]*types.Task, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	q := transaction.WithContext(ctx).
		Where("user_id = ? AND status = ?", userID, types.TaskStatusMissed)
	if skillID != nil {
		q = q.Where("skill_id = ?", *skillID)
	}
	var rows []*types.Task
	if err := q.Order("scheduled_date ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

var openStatuses = []string{
	types.TaskStatusPending,
	types.TaskStatusMissed,
	types.TaskStatusRescheduled,
}

func (r *taskRepo) GetOpenBySkill(ctx context.Context, tx *gorm.DB, skillID, userID uuid.UUID) ([]*types.Task, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var rows []*types.Task
	if err := transaction.WithContext(ctx).
		Where("skill_id = ? AND user_id = ? AND status IN ?", skillID, userID, openStatuses).
		Order("day_number ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *taskRepo) GetOpenLearningBySkill(ctx context.Context, tx *gorm.DB, skillID, userID uuid.UUID) ([]*types.Task, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var rows []*types.Task
	if err := transaction.WithContext(ctx).
		Where("skill_id = ? AND user_id = ? AND status IN ? AND kind = ?", skillID, userID, openStatuses, types.TaskKindLearning).
		Order("day_number ASC, importance DESC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *taskRepo) GetLastScheduledBySkill(ctx context.Context, tx *gorm.DB, skillID, userID uuid.UUID) (*types.Task, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var row types.Task
	if err := transaction.WithContext(ctx).
		Where("skill_id = ? AND user_id = ?", skillID, userID).
		Order("scheduled_date DESC").
		First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

func (r *taskRepo) Save(ctx context.Context, tx *gorm.DB, row *types.Task) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if row == nil {
		return nil
	}
	return transaction.WithContext(ctx).Save(row).Error
}

func (r *taskRepo) DeleteByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).
		Where("id = ?", id).
		Delete(&types.Task{}).Error
}

func (r *taskRepo) DeleteBySkillID(ctx context.Context, tx *gorm.DB, skillID uuid.UUID) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	res := transaction.WithContext(ctx).
		Where("skill_id = ?", skillID).
		Delete(&types.Task{})
	return res.RowsAffected, res.Error
}
