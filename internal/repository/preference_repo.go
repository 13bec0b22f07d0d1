package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"team-matching/internal/model"
)

// preferenceScoreColumns 冲突时允许更新的列；回避关系单独重建
var preferenceScoreColumns = []string{
	"mi_a", "mi_b", "mi_c", "mi_d", "mi_e", "mi_f", "mi_g", "mi_h",
	"leader", "eyesight", "previous_team", "updated_at",
}

// PreferenceRepository 学生偏好数据访问接口
type PreferenceRepository interface {
	// Upsert 按 (student_id, survey_id) 插入或仅更新得分字段。
	// 成功后 pref.PreferenceID 为实际行 ID；created 表示本次是否新建。
	Upsert(ctx context.Context, pref *model.StudentPreference) (created bool, err error)
	GetByID(ctx context.Context, id string) (*model.StudentPreference, error)
	// ListBySurvey 列出问卷下全部偏好（含学生与回避对象）
	ListBySurvey(ctx context.Context, surveyID string) ([]model.StudentPreference, error)
}

type preferenceRepo struct {
	db *gorm.DB
}

// NewPreferenceRepo 创建 PreferenceRepository 实例
func NewPreferenceRepo(db *gorm.DB) PreferenceRepository {
	return &preferenceRepo{db: db}
}

func (r *preferenceRepo) Upsert(ctx context.Context, pref *model.StudentPreference) (bool, error) {
	db := r.db.WithContext(ctx)

	var existing model.StudentPreference
	err := db.Select("student_preference_id").
		Where("student_id = ? AND survey_id = ?", pref.StudentID, pref.SurveyID).
		Take(&existing).Error
	created := errors.Is(err, gorm.ErrRecordNotFound)
	if err != nil && !created {
		return false, err
	}

	// 主键交给数据库生成；冲突时 RETURNING 返回已有行的 ID
	pref.PreferenceID = ""
	err = db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "student_id"}, {Name: "survey_id"}},
		DoUpdates: clause.AssignmentColumns(preferenceScoreColumns),
	}).Omit(clause.Associations).Create(pref).Error
	if err != nil {
		return false, err
	}
	return created, nil
}

func (r *preferenceRepo) GetByID(ctx context.Context, id string) (*model.StudentPreference, error) {
	var pref model.StudentPreference
	err := r.db.WithContext(ctx).
		Preload("Student").
		Preload("Dislikes").Preload("Dislikes.Student").
		Where("student_preference_id = ?", id).
		First(&pref).Error
	if err != nil {
		return nil, err
	}
	return &pref, nil
}

func (r *preferenceRepo) ListBySurvey(ctx context.Context, surveyID string) ([]model.StudentPreference, error) {
	var prefs []model.StudentPreference
	err := r.db.WithContext(ctx).
		Preload("Student").
		Preload("Dislikes").Preload("Dislikes.Student").
		Joins("JOIN students ON students.student_id = student_preferences.student_id").
		Where("student_preferences.survey_id = ?", surveyID).
		Order("students.student_no ASC").
		Find(&prefs).Error
	return prefs, err
}

// ── StudentDislike ──

// DislikeRepository 回避关系数据访问接口
type DislikeRepository interface {
	// InsertIgnoreDuplicates 插入回避关系，已存在的 (preference, student) 对被忽略
	InsertIgnoreDuplicates(ctx context.Context, preferenceID string, studentIDs []string) (int64, error)
	// ReplaceForPreference 删除该偏好下全部回避关系后重新插入
	ReplaceForPreference(ctx context.Context, preferenceID string, studentIDs []string) (int64, error)
	ListByPreference(ctx context.Context, preferenceID string) ([]model.StudentDislike, error)
}

type dislikeRepo struct {
	db *gorm.DB
}

// NewDislikeRepo 创建 DislikeRepository 实例
func NewDislikeRepo(db *gorm.DB) DislikeRepository {
	return &dislikeRepo{db: db}
}

func (r *dislikeRepo) InsertIgnoreDuplicates(ctx context.Context, preferenceID string, studentIDs []string) (int64, error) {
	if len(studentIDs) == 0 {
		return 0, nil
	}
	rows := make([]model.StudentDislike, 0, len(studentIDs))
	for _, sid := range studentIDs {
		rows = append(rows, model.StudentDislike{PreferenceID: preferenceID, StudentID: sid})
	}
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Omit(clause.Associations).
		Create(&rows)
	return result.RowsAffected, result.Error
}

func (r *dislikeRepo) ReplaceForPreference(ctx context.Context, preferenceID string, studentIDs []string) (int64, error) {
	err := r.db.WithContext(ctx).
		Where("student_preference_id = ?", preferenceID).
		Delete(&model.StudentDislike{}).Error
	if err != nil {
		return 0, err
	}
	return r.InsertIgnoreDuplicates(ctx, preferenceID, studentIDs)
}

func (r *dislikeRepo) ListByPreference(ctx context.Context, preferenceID string) ([]model.StudentDislike, error) {
	var dislikes []model.StudentDislike
	err := r.db.WithContext(ctx).
		Preload("Student").
		Where("student_preference_id = ?", preferenceID).
		Find(&dislikes).Error
	return dislikes, err
}
