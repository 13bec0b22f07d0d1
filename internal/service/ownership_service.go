package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"team-matching/internal/model"
	"team-matching/internal/repository"
)

// ErrNotFoundOrDenied 资源不存在或不属于当前教师；两种情况对外不作区分
var ErrNotFoundOrDenied = errors.New("资源不存在或无权访问")

// ResourceKind 可做归属校验的资源类型
type ResourceKind int

const (
	ResourceClass ResourceKind = iota
	ResourceSurvey
	ResourceStudent
	ResourceMatchingResult
)

func (k ResourceKind) String() string {
	switch k {
	case ResourceClass:
		return "class"
	case ResourceSurvey:
		return "survey"
	case ResourceStudent:
		return "student"
	case ResourceMatchingResult:
		return "matching_result"
	default:
		return "unknown"
	}
}

// OwnedResource 归属链解析结果；沿途加载的实体一并返回，调用方无需重复查询
type OwnedResource struct {
	Class          *model.Class
	Survey         *model.Survey
	Student        *model.Student
	MatchingResult *model.MatchingResult
}

// OwnershipService 归属校验：资源 → 班级 → 教师
type OwnershipService interface {
	// ResolveTeacher 按外部身份解析教师，首次访问时自动创建
	ResolveTeacher(ctx context.Context, firebaseUID, name string) (*model.Teacher, error)
	// Resolve 沿归属链解析资源；任何一环缺失或不属于 teacherID 均返回 ErrNotFoundOrDenied
	Resolve(ctx context.Context, teacherID string, kind ResourceKind, id string) (*OwnedResource, error)

	ResolveClass(ctx context.Context, teacherID, classID string) (*model.Class, error)
	ResolveSurvey(ctx context.Context, teacherID, surveyID string) (*model.Survey, error)
	ResolveStudent(ctx context.Context, teacherID, studentID string) (*model.Student, error)
	ResolveMatchingResult(ctx context.Context, teacherID, resultID string) (*OwnedResource, error)
}

type ownershipService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewOwnershipService 创建 OwnershipService 实例
func NewOwnershipService(repo *repository.Repository, logger *zap.Logger) OwnershipService {
	return &ownershipService{repo: repo, logger: logger}
}

func (s *ownershipService) ResolveTeacher(ctx context.Context, firebaseUID, name string) (*model.Teacher, error) {
	if firebaseUID == "" {
		return nil, ErrNotFoundOrDenied
	}

	teacher, err := s.repo.Teacher.GetByFirebaseUID(ctx, firebaseUID)
	if err == nil {
		return teacher, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		s.logger.Error("查询教师失败", zap.String("firebase_uid", firebaseUID), zap.Error(err))
		return nil, err
	}

	teacher = &model.Teacher{FirebaseUID: firebaseUID, Name: name}
	if err := s.repo.Teacher.FirstOrCreate(ctx, teacher); err != nil {
		s.logger.Error("创建教师失败", zap.String("firebase_uid", firebaseUID), zap.Error(err))
		return nil, err
	}
	s.logger.Info("首次访问，已创建教师", zap.String("teacher_id", teacher.TeacherID))
	return teacher, nil
}

func (s *ownershipService) Resolve(ctx context.Context, teacherID string, kind ResourceKind, id string) (*OwnedResource, error) {
	if teacherID == "" {
		return nil, ErrNotFoundOrDenied
	}
	// 非 UUID 直接拒绝，避免数据库类型错误被当成 500
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFoundOrDenied
	}

	res := &OwnedResource{}
	classID := ""

	switch kind {
	case ResourceMatchingResult:
		result, err := s.repo.MatchingResult.GetByID(ctx, id)
		if err != nil {
			return nil, s.lookupErr(kind, id, err)
		}
		res.MatchingResult = result
		if err := s.loadSurvey(ctx, res, result.SurveyID); err != nil {
			return nil, err
		}
		classID = res.Survey.ClassID

	case ResourceSurvey:
		if err := s.loadSurvey(ctx, res, id); err != nil {
			return nil, err
		}
		classID = res.Survey.ClassID

	case ResourceStudent:
		student, err := s.repo.Student.GetByID(ctx, id)
		if err != nil {
			return nil, s.lookupErr(kind, id, err)
		}
		res.Student = student
		classID = student.ClassID

	case ResourceClass:
		classID = id

	default:
		return nil, ErrNotFoundOrDenied
	}

	if res.Class == nil {
		class, err := s.repo.Class.GetByID(ctx, classID)
		if err != nil {
			return nil, s.lookupErr(ResourceClass, classID, err)
		}
		res.Class = class
	}

	if res.Class.TeacherID != teacherID {
		return nil, ErrNotFoundOrDenied
	}
	if res.Survey != nil && res.Survey.Class == nil {
		res.Survey.Class = res.Class
	}
	return res, nil
}

func (s *ownershipService) ResolveClass(ctx context.Context, teacherID, classID string) (*model.Class, error) {
	res, err := s.Resolve(ctx, teacherID, ResourceClass, classID)
	if err != nil {
		return nil, err
	}
	return res.Class, nil
}

func (s *ownershipService) ResolveSurvey(ctx context.Context, teacherID, surveyID string) (*model.Survey, error) {
	res, err := s.Resolve(ctx, teacherID, ResourceSurvey, surveyID)
	if err != nil {
		return nil, err
	}
	return res.Survey, nil
}

func (s *ownershipService) ResolveStudent(ctx context.Context, teacherID, studentID string) (*model.Student, error) {
	res, err := s.Resolve(ctx, teacherID, ResourceStudent, studentID)
	if err != nil {
		return nil, err
	}
	return res.Student, nil
}

func (s *ownershipService) ResolveMatchingResult(ctx context.Context, teacherID, resultID string) (*OwnedResource, error) {
	return s.Resolve(ctx, teacherID, ResourceMatchingResult, resultID)
}

func (s *ownershipService) loadSurvey(ctx context.Context, res *OwnedResource, surveyID string) error {
	survey, err := s.repo.Survey.GetByID(ctx, surveyID)
	if err != nil {
		return s.lookupErr(ResourceSurvey, surveyID, err)
	}
	res.Survey = survey
	res.Class = survey.Class
	return nil
}

// lookupErr 记录不存在转为 ErrNotFoundOrDenied，其余错误原样上抛
func (s *ownershipService) lookupErr(kind ResourceKind, id string, err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFoundOrDenied
	}
	s.logger.Error("归属校验查询失败",
		zap.Stringer("kind", kind),
		zap.String("id", id),
		zap.Error(err),
	)
	return err
}
