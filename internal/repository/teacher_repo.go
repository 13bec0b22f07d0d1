package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"team-matching/internal/model"
)

// TeacherRepository 教师数据访问接口
type TeacherRepository interface {
	GetByFirebaseUID(ctx context.Context, uid string) (*model.Teacher, error)
	// FirstOrCreate 按 firebase_uid 查找，不存在则创建（并发下依赖唯一索引）
	FirstOrCreate(ctx context.Context, teacher *model.Teacher) error
}

type teacherRepo struct {
	db *gorm.DB
}

// NewTeacherRepo 创建 TeacherRepository 实例
func NewTeacherRepo(db *gorm.DB) TeacherRepository {
	return &teacherRepo{db: db}
}

func (r *teacherRepo) GetByFirebaseUID(ctx context.Context, uid string) (*model.Teacher, error) {
	var teacher model.Teacher
	err := r.db.WithContext(ctx).
		Where("firebase_uid = ?", uid).
		First(&teacher).Error
	if err != nil {
		return nil, err
	}
	return &teacher, nil
}

func (r *teacherRepo) FirstOrCreate(ctx context.Context, teacher *model.Teacher) error {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "firebase_uid"}}, DoNothing: true}).
		Create(teacher).Error
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).
		Where("firebase_uid = ?", teacher.FirebaseUID).
		First(teacher).Error
}
