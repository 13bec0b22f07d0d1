package repository

import (
	"context"

	"gorm.io/gorm"

	"team-matching/internal/model"
)

// SurveyRepository 问卷数据访问接口
type SurveyRepository interface {
	Create(ctx context.Context, survey *model.Survey) error
	// GetByID 查询问卷（含所属班级）
	GetByID(ctx context.Context, id string) (*model.Survey, error)
	ListByClass(ctx context.Context, classID string) ([]model.Survey, error)
	// UpdateStatus 仅允许修改状态与说明字段
	UpdateStatus(ctx context.Context, id, status string, surveyContext *string) error
}

type surveyRepo struct {
	db *gorm.DB
}

// NewSurveyRepo 创建 SurveyRepository 实例
func NewSurveyRepo(db *gorm.DB) SurveyRepository {
	return &surveyRepo{db: db}
}

func (r *surveyRepo) Create(ctx context.Context, survey *model.Survey) error {
	return r.db.WithContext(ctx).Create(survey).Error
}

func (r *surveyRepo) GetByID(ctx context.Context, id string) (*model.Survey, error) {
	var survey model.Survey
	err := r.db.WithContext(ctx).
		Preload("Class").
		Where("survey_id = ?", id).
		First(&survey).Error
	if err != nil {
		return nil, err
	}
	return &survey, nil
}

func (r *surveyRepo) ListByClass(ctx context.Context, classID string) ([]model.Survey, error) {
	var surveys []model.Survey
	err := r.db.WithContext(ctx).
		Where("class_id = ?", classID).
		Order("created_at DESC").
		Find(&surveys).Error
	return surveys, err
}

func (r *surveyRepo) UpdateStatus(ctx context.Context, id, status string, surveyContext *string) error {
	updates := map[string]interface{}{
		"status":     status,
		"updated_at": gorm.Expr("CURRENT_TIMESTAMP"),
	}
	if surveyContext != nil {
		updates["context"] = *surveyContext
	}
	result := r.db.WithContext(ctx).
		Model(&model.Survey{}).
		Where("survey_id = ?", id).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
