package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/skillpath/skillpath-backend/internal/logger"
	"github.com/skillpath/skillpath-backend/internal/types"
)

type SkillTopicRepo interface {
	Create(ctx context.Context, tx *gorm.DB, rows []*types.SkillTopic) ([]*types.SkillTopic, error)
	GetBySkillID(ctx context.Context, tx *gorm.DB, skillID uuid.UUID) ([]*types.SkillTopic, error)
	Save(ctx context.Context, tx *gorm.DB, row *types.SkillTopic) error
	DeleteBySkillID(ctx context.Context, tx *gorm.DB, skillID uuid.UUID) error
}

type skillTopicRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSkillTopicRepo(db *gorm.DB, baseLog *logger.Logger) SkillTopicRepo {
	return &skillTopicRepo{db: db, log: baseLog.With("repo", "SkillTopicRepo")}
}

func (r *skillTopicRepo) Create(ctx context.Context, tx *gorm.DB, rows []*types.SkillTopic) ([]*types.SkillTopic, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(rows) == 0 {
		return []*types.SkillTopic{}, nil
	}
	if err := transaction.WithContext(ctx).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *skillTopicRepo) GetBySkillID(ctx context.Context, tx *gorm.DB, skillID uuid.UUID) ([]*types.SkillTopic, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var rows []*types.SkillTopic
	if skillID == uuid.Nil {
		return rows, nil
	}
	if err := transaction.WithContext(ctx).
		Where("skill_id = ?", skillID).
		Order("day ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *skillTopicRepo) Save(ctx context.Context, tx *gorm.DB, row *types.SkillTopic) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if row == nil {
		return nil
	}
	return transaction.WithContext(ctx).Save(row).Error
}

func (r *skillTopicRepo) DeleteBySkillID(ctx context.Context, tx *gorm.DB, skillID uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).
		Where("skill_id = ?", skillID).
		Delete(&types.SkillTopic{}).Error
}
