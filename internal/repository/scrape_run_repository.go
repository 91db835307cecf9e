package repository

import (
	"fmt"

	"gorm.io/gorm"

	"shoplens/internal/model"
)

type ScrapeRunRepository struct {
	db *gorm.DB
}

func NewScrapeRunRepository(db *gorm.DB) *ScrapeRunRepository {
	return &ScrapeRunRepository{db: db}
}

func (r *ScrapeRunRepository) Create(run *model.ScrapeRun) error {
	if err := r.db.Create(run).Error; err != nil {
		return fmt.Errorf("create scrape run failed: %w", err)
	}
	return nil
}

func (r *ScrapeRunRepository) ListRecent(limit int) ([]model.ScrapeRun, error) {
	if limit <= 0 {
		limit = 20
	}
	var runs []model.ScrapeRun
	if err := r.db.Order("created_at DESC").Limit(limit).Find(&runs).Error; err != nil {
		return nil, fmt.Errorf("list scrape runs failed: %w", err)
	}
	return runs, nil
}
