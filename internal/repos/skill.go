package repos

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/skillpath/skillpath-backend/internal/logger"
	"github.com/skillpath/skillpath-backend/internal/types"
)

type SkillRepo interface {
	Create(ctx context.Context, tx *gorm.DB, rows []*types.Skill) ([]*types.Skill, error)
	GetByID(ctx context.Context, tx *gorm.DB, id, userID uuid.UUID) (*types.Skill, error)
	GetByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.Skill, error)
	GetActiveByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.Skill, error)
	GetByStatuses(ctx context.Context, tx *gorm.DB, userID uuid.UUID, statuses []string) ([]*types.Skill, error)
	Save(ctx context.Context, tx *gorm.DB, row *types.Skill) error
	DeleteByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) error
}

type skillRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSkillRepo(db *gorm.DB, baseLog *logger.Logger) SkillRepo {
	return &skillRepo{db: db, log: baseLog.With("repo", "SkillRepo")}
}

func (r *skillRepo) Create(ctx context.Context, tx *gorm.DB, rows []*types.Skill) ([]*types.Skill, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(rows) == 0 {
		return []*types.Skill{}, nil
	}
	if err := transaction.WithContext(ctx).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *skillRepo) GetByID(ctx context.Context, tx *gorm.DB, id, userID uuid.UUID) (*types.Skill, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var row types.Skill
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

func (r *skillRepo) GetByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.Skill, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var rows []*types.Skill
	if userID == uuid.Nil {
		return rows, nil
	}
	if err := transaction.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *skillRepo) GetActiveByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.Skill, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var rows []*types.Skill
	if userID == uuid.Nil {
		return rows, nil
	}
	if err := transaction.WithContext(ctx).
		Where("user_id = ? AND status = ?", userID, types.SkillStatusInProgress).
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *skillRepo) GetByStatuses(ctx context.Context, tx *gorm.DB, userID uuid.UUID, statuses []string) ([]*types.Skill, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var rows []*types.Skill
	if userID == uuid.Nil || len(statuses) == 0 {
		return rows, nil
	}
	if err := transaction.WithContext(ctx).
		Where("user_id = ? AND status IN ?", userID, statuses).
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *skillRepo) Save(ctx context.Context, tx *gorm.DB, row *types.Skill) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if row == nil {
		return nil
	}
	return transaction.WithContext(ctx).Save(row).Error
}

func (r *skillRepo) DeleteByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).
		Where("id = ?", id).
		Delete(&types.Skill{}).Error
}
