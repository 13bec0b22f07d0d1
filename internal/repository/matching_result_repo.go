package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"team-matching/internal/model"
	pkgerrors "team-matching/pkg/errors"
)

// MatchingResultRepository 匹配结果数据访问接口（无更新路径）
type MatchingResultRepository interface {
	Create(ctx context.Context, result *model.MatchingResult) error
	GetByID(ctx context.Context, id string) (*model.MatchingResult, error)
	// GetLatestBySurvey 按 created_at 取最新一条
	GetLatestBySurvey(ctx context.Context, surveyID string) (*model.MatchingResult, error)
	ListBySurvey(ctx context.Context, surveyID string, offset, limit int) ([]model.MatchingResult, int64, error)
	// Delete 先删分组行，再删结果本身
	Delete(ctx context.Context, id string) error
}

type matchingResultRepo struct {
	db *gorm.DB
}

// NewMatchingResultRepo 创建 MatchingResultRepository 实例
func NewMatchingResultRepo(db *gorm.DB) MatchingResultRepository {
	return &matchingResultRepo{db: db}
}

func (r *matchingResultRepo) Create(ctx context.Context, result *model.MatchingResult) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(result).Error
}

func (r *matchingResultRepo) GetByID(ctx context.Context, id string) (*model.MatchingResult, error) {
	var result model.MatchingResult
	err := r.db.WithContext(ctx).
		Where("matching_result_id = ?", id).
		First(&result).Error
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *matchingResultRepo) GetLatestBySurvey(ctx context.Context, surveyID string) (*model.MatchingResult, error) {
	var result model.MatchingResult
	err := r.db.WithContext(ctx).
		Where("survey_id = ?", surveyID).
		Order("created_at DESC, matching_result_id DESC").
		First(&result).Error
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *matchingResultRepo) ListBySurvey(ctx context.Context, surveyID string, offset, limit int) ([]model.MatchingResult, int64, error) {
	var results []model.MatchingResult
	var total int64

	db := r.db.WithContext(ctx).Model(&model.MatchingResult{}).
		Where("survey_id = ?", surveyID)

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := db.Offset(offset).Limit(limit).
		Order("created_at DESC, matching_result_id DESC").
		Find(&results).Error
	return results, total, err
}

func (r *matchingResultRepo) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("matching_result_id = ?", id).Delete(&model.Team{}).Error; err != nil {
			return err
		}
		result := tx.Where("matching_result_id = ?", id).Delete(&model.MatchingResult{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

// ── Team ──

// TeamRepository 分组行数据访问接口
type TeamRepository interface {
	// BatchCreate 批量写入；任一行缺少 matching_result_id 则整体拒绝
	BatchCreate(ctx context.Context, teams []model.Team) error
	// ListByMatchingResult 列出结果下全部分组行（含偏好与学生）
	ListByMatchingResult(ctx context.Context, matchingResultID string) ([]model.Team, error)
}

type teamRepo struct {
	db *gorm.DB
}

// NewTeamRepo 创建 TeamRepository 实例
func NewTeamRepo(db *gorm.DB) TeamRepository {
	return &teamRepo{db: db}
}

func (r *teamRepo) BatchCreate(ctx context.Context, teams []model.Team) error {
	if len(teams) == 0 {
		return nil
	}
	for i := range teams {
		if teams[i].MatchingResultID == "" {
			return pkgerrors.ErrMissingParent
		}
	}
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(&teams).Error
}

func (r *teamRepo) ListByMatchingResult(ctx context.Context, matchingResultID string) ([]model.Team, error) {
	var teams []model.Team
	err := r.db.WithContext(ctx).
		Preload("StudentPreference").Preload("StudentPreference.Student").
		Where("matching_result_id = ?", matchingResultID).
		Order("team_id ASC, created_at ASC").
		Find(&teams).Error
	return teams, err
}
