package repository

import (
	"fmt"

	"gorm.io/gorm"

	"shoplens/internal/model"
)

type AnswerLogRepository struct {
	db *gorm.DB
}

func NewAnswerLogRepository(db *gorm.DB) *AnswerLogRepository {
	return &AnswerLogRepository{db: db}
}

func (r *AnswerLogRepository) Create(entry *model.AnswerLog) error {
	if err := r.db.Create(entry).Error; err != nil {
		return fmt.Errorf("create answer log failed: %w", err)
	}
	return nil
}

func (r *AnswerLogRepository) ListRecent(limit int) ([]model.AnswerLog, error) {
	if limit <= 0 {
		limit = 20
	}
	var entries []model.AnswerLog
	if err := r.db.Order("created_at DESC").Limit(limit).Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("list answer logs failed: %w", err)
	}
	return entries, nil
}
