package repository

import (
	"context"

	"gorm.io/gorm"
)

// Repository 所有 Repository 的聚合入口
type Repository struct {
	db *gorm.DB

	Teacher        TeacherRepository
	Class          ClassRepository
	Student        StudentRepository
	Survey         SurveyRepository
	Preference     PreferenceRepository
	Dislike        DislikeRepository
	MatchingResult MatchingResultRepository
	Team           TeamRepository
}

// NewRepository 创建 Repository 聚合
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		db:             db,
		Teacher:        NewTeacherRepo(db),
		Class:          NewClassRepo(db),
		Student:        NewStudentRepo(db),
		Survey:         NewSurveyRepo(db),
		Preference:     NewPreferenceRepo(db),
		Dislike:        NewDislikeRepo(db),
		MatchingResult: NewMatchingResultRepo(db),
		Team:           NewTeamRepo(db),
	}
}

// InTx 在事务中执行 fn；mock 聚合下直接执行
func (r *Repository) InTx(ctx context.Context, fn func(txRepo *Repository) error) error {
	if r.db == nil {
		return fn(r)
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewRepository(tx))
	})
}
