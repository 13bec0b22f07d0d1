package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"team-matching/internal/dto"
	"team-matching/internal/model"
	"team-matching/internal/repository"
)

// ── 班级 / 学生 / 问卷 业务错误 ──

var (
	ErrStudentNoDuplicate = errors.New("学号重复")
	ErrStudentNoExists    = errors.New("班级内已存在该学号")
)

// ClassService 班级、学生名单与问卷管理
type ClassService interface {
	CreateClass(ctx context.Context, teacherID string, req *dto.CreateClassRequest) (*dto.ClassResponse, error)
	ListClasses(ctx context.Context, teacherID string) ([]dto.ClassResponse, error)

	// CreateStudents 批量导入学生；请求内或与已有学生学号冲突时整批拒绝
	CreateStudents(ctx context.Context, teacherID, classID string, req *dto.CreateStudentsRequest) ([]dto.StudentResponse, error)
	ListStudents(ctx context.Context, teacherID, classID string) ([]dto.StudentResponse, error)
	// DeleteStudent 删除学生；其偏好级联删除，历史分组行保留
	DeleteStudent(ctx context.Context, teacherID, studentID string) error

	CreateSurvey(ctx context.Context, teacherID, classID string, req *dto.CreateSurveyRequest) (*dto.SurveyResponse, error)
	ListSurveys(ctx context.Context, teacherID, classID string) ([]dto.SurveyResponse, error)
	// UpdateSurveyStatus 问卷创建后仅允许修改状态与说明
	UpdateSurveyStatus(ctx context.Context, teacherID, surveyID string, req *dto.UpdateSurveyStatusRequest) (*dto.SurveyResponse, error)
}

type classService struct {
	repo      *repository.Repository
	ownership OwnershipService
	logger    *zap.Logger
}

// NewClassService 创建 ClassService 实例
func NewClassService(repo *repository.Repository, ownership OwnershipService, logger *zap.Logger) ClassService {
	return &classService{repo: repo, ownership: ownership, logger: logger}
}

// ────────────────────── 班级 ──────────────────────

func (s *classService) CreateClass(ctx context.Context, teacherID string, req *dto.CreateClassRequest) (*dto.ClassResponse, error) {
	class := &model.Class{TeacherID: teacherID, Name: req.Name}
	if err := s.repo.Class.Create(ctx, class); err != nil {
		s.logger.Error("创建班级失败", zap.String("teacher_id", teacherID), zap.Error(err))
		return nil, err
	}
	resp := toClassResponse(class)
	return &resp, nil
}

func (s *classService) ListClasses(ctx context.Context, teacherID string) ([]dto.ClassResponse, error) {
	classes, err := s.repo.Class.ListByTeacher(ctx, teacherID)
	if err != nil {
		s.logger.Error("查询班级列表失败", zap.String("teacher_id", teacherID), zap.Error(err))
		return nil, err
	}
	result := make([]dto.ClassResponse, 0, len(classes))
	for i := range classes {
		result = append(result, toClassResponse(&classes[i]))
	}
	return result, nil
}

// ────────────────────── 学生 ──────────────────────

func (s *classService) CreateStudents(ctx context.Context, teacherID, classID string, req *dto.CreateStudentsRequest) ([]dto.StudentResponse, error) {
	class, err := s.ownership.ResolveClass(ctx, teacherID, classID)
	if err != nil {
		return nil, err
	}

	seen := make(map[int]bool, len(req.Students))
	students := make([]model.Student, 0, len(req.Students))
	for _, item := range req.Students {
		if seen[item.StudentNo] {
			return nil, fmt.Errorf("%w: %d", ErrStudentNoDuplicate, item.StudentNo)
		}
		seen[item.StudentNo] = true
		students = append(students, model.Student{
			ClassID:   class.ClassID,
			StudentNo: item.StudentNo,
			Name:      item.Name,
			Sex:       *item.Sex,
			Memo:      item.Memo,
		})
	}

	if err := s.repo.Student.BatchCreate(ctx, students); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrStudentNoExists
		}
		s.logger.Error("批量创建学生失败", zap.String("class_id", class.ClassID), zap.Error(err))
		return nil, err
	}

	result := make([]dto.StudentResponse, 0, len(students))
	for i := range students {
		result = append(result, toStudentResponse(&students[i]))
	}
	return result, nil
}

func (s *classService) ListStudents(ctx context.Context, teacherID, classID string) ([]dto.StudentResponse, error) {
	class, err := s.ownership.ResolveClass(ctx, teacherID, classID)
	if err != nil {
		return nil, err
	}
	students, err := s.repo.Student.ListByClass(ctx, class.ClassID)
	if err != nil {
		s.logger.Error("查询学生列表失败", zap.String("class_id", class.ClassID), zap.Error(err))
		return nil, err
	}
	result := make([]dto.StudentResponse, 0, len(students))
	for i := range students {
		result = append(result, toStudentResponse(&students[i]))
	}
	return result, nil
}

func (s *classService) DeleteStudent(ctx context.Context, teacherID, studentID string) error {
	student, err := s.ownership.ResolveStudent(ctx, teacherID, studentID)
	if err != nil {
		return err
	}
	if err := s.repo.Student.Delete(ctx, student.StudentID); err != nil {
		s.logger.Error("删除学生失败", zap.String("student_id", student.StudentID), zap.Error(err))
		return err
	}
	s.logger.Info("已删除学生", zap.String("student_id", student.StudentID), zap.String("class_id", student.ClassID))
	return nil
}

// ────────────────────── 问卷 ──────────────────────

func (s *classService) CreateSurvey(ctx context.Context, teacherID, classID string, req *dto.CreateSurveyRequest) (*dto.SurveyResponse, error) {
	class, err := s.ownership.ResolveClass(ctx, teacherID, classID)
	if err != nil {
		return nil, err
	}

	status := req.Status
	if status == "" {
		status = "draft"
	}
	survey := &model.Survey{
		ClassID: class.ClassID,
		Name:    req.Name,
		Status:  status,
		Context: req.Context,
	}
	if err := s.repo.Survey.Create(ctx, survey); err != nil {
		s.logger.Error("创建问卷失败", zap.String("class_id", class.ClassID), zap.Error(err))
		return nil, err
	}
	resp := toSurveyResponse(survey)
	return &resp, nil
}

func (s *classService) ListSurveys(ctx context.Context, teacherID, classID string) ([]dto.SurveyResponse, error) {
	class, err := s.ownership.ResolveClass(ctx, teacherID, classID)
	if err != nil {
		return nil, err
	}
	surveys, err := s.repo.Survey.ListByClass(ctx, class.ClassID)
	if err != nil {
		s.logger.Error("查询问卷列表失败", zap.String("class_id", class.ClassID), zap.Error(err))
		return nil, err
	}
	result := make([]dto.SurveyResponse, 0, len(surveys))
	for i := range surveys {
		result = append(result, toSurveyResponse(&surveys[i]))
	}
	return result, nil
}

func (s *classService) UpdateSurveyStatus(ctx context.Context, teacherID, surveyID string, req *dto.UpdateSurveyStatusRequest) (*dto.SurveyResponse, error) {
	survey, err := s.ownership.ResolveSurvey(ctx, teacherID, surveyID)
	if err != nil {
		return nil, err
	}

	if err := s.repo.Survey.UpdateStatus(ctx, survey.SurveyID, req.Status, req.Context); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFoundOrDenied
		}
		s.logger.Error("更新问卷状态失败", zap.String("survey_id", survey.SurveyID), zap.Error(err))
		return nil, err
	}

	updated, err := s.repo.Survey.GetByID(ctx, survey.SurveyID)
	if err != nil {
		s.logger.Error("查询问卷失败", zap.String("survey_id", survey.SurveyID), zap.Error(err))
		return nil, err
	}
	resp := toSurveyResponse(updated)
	return &resp, nil
}

// ── 转换 ──

func toClassResponse(c *model.Class) dto.ClassResponse {
	return dto.ClassResponse{
		ID:        c.ClassID,
		Name:      c.Name,
		CreatedAt: c.CreatedAt.Format(dto.TimeLayout),
	}
}

func toStudentResponse(s *model.Student) dto.StudentResponse {
	return dto.StudentResponse{
		ID:        s.StudentID,
		ClassID:   s.ClassID,
		StudentNo: s.StudentNo,
		Name:      s.Name,
		Sex:       s.Sex,
		Memo:      s.Memo,
	}
}

func toSurveyResponse(s *model.Survey) dto.SurveyResponse {
	return dto.SurveyResponse{
		ID:        s.SurveyID,
		ClassID:   s.ClassID,
		Name:      s.Name,
		Status:    s.Status,
		Context:   s.Context,
		CreatedAt: s.CreatedAt.Format(dto.TimeLayout),
		UpdatedAt: s.UpdatedAt.Format(dto.TimeLayout),
	}
}
