package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"team-matching/internal/dto"
	"team-matching/internal/model"
	"team-matching/internal/repository"
)

// ── 偏好模块业务错误 ──

var (
	ErrEmptyBatch         = errors.New("提交的偏好为空")
	ErrInvalidStudentRef  = errors.New("学生引用无效")
	ErrClassHasNoStudents = errors.New("班级内没有学生")
	ErrStudentsNotFound   = errors.New("students not found")
)

// BatchWriteError 校验通过后写入阶段失败
// Index 之前的条目已各自提交，不做回滚
type BatchWriteError struct {
	SurveyID string
	Index    int
	Ref      model.StudentRef
	Written  int
	Err      error
}

func (e *BatchWriteError) Error() string {
	return fmt.Sprintf("写入第 %d 条偏好失败 (survey %s, %s)，此前已写入 %d 条: %v",
		e.Index, e.SurveyID, e.Ref, e.Written, e.Err)
}

func (e *BatchWriteError) Unwrap() error { return e.Err }

// PreferenceService 学生偏好业务接口
type PreferenceService interface {
	// UpsertBatch 批量写入偏好；任一学生引用无法解析则整批拒绝
	UpsertBatch(ctx context.Context, teacherID string, req *dto.BatchUpsertPreferencesRequest) (*dto.BatchUpsertPreferencesResponse, error)
	ListBySurvey(ctx context.Context, teacherID, surveyID string) ([]dto.PreferenceResponse, error)
}

type preferenceService struct {
	repo      *repository.Repository
	ownership OwnershipService
	logger    *zap.Logger
}

// NewPreferenceService 创建 PreferenceService 实例
func NewPreferenceService(repo *repository.Repository, ownership OwnershipService, logger *zap.Logger) PreferenceService {
	return &preferenceService{repo: repo, ownership: ownership, logger: logger}
}

// preferenceWrite 一条已解析、待写入的偏好
type preferenceWrite struct {
	index    int
	ref      model.StudentRef
	pref     model.StudentPreference
	dislikes []string
}

// ────────────────────── UpsertBatch ──────────────────────

func (s *preferenceService) UpsertBatch(ctx context.Context, teacherID string, req *dto.BatchUpsertPreferencesRequest) (*dto.BatchUpsertPreferencesResponse, error) {
	if req == nil || len(req.Preferences) == 0 {
		return nil, ErrEmptyBatch
	}

	// 1. 按问卷分组，保持首次出现顺序
	var surveyOrder []string
	groups := make(map[string][]int)
	for i := range req.Preferences {
		sid := strings.ToLower(req.Preferences[i].SurveyID)
		if _, ok := groups[sid]; !ok {
			surveyOrder = append(surveyOrder, sid)
		}
		groups[sid] = append(groups[sid], i)
	}

	// 2. 归属校验 + 解析学生引用；未解析的引用汇总后整批拒绝
	var missing []string
	seenMissing := make(map[string]bool)
	plans := make(map[string][]preferenceWrite, len(surveyOrder))

	for _, sid := range surveyOrder {
		survey, err := s.ownership.ResolveSurvey(ctx, teacherID, sid)
		if err != nil {
			return nil, err
		}

		index, err := s.studentIndex(ctx, survey.ClassID)
		if err != nil {
			return nil, err
		}

		for _, i := range groups[sid] {
			item := &req.Preferences[i]
			if item.Student.IsZero() {
				return nil, fmt.Errorf("%w: 第 %d 条缺少 student", ErrInvalidStudentRef, i)
			}

			studentID, ok := index.Resolve(item.Student)
			if !ok {
				if key := item.Student.String(); !seenMissing[key] {
					seenMissing[key] = true
					missing = append(missing, key)
				}
			}

			for _, alt := range item.AltRefs {
				target, found := index.Resolve(alt)
				if !found {
					if key := alt.String(); !seenMissing[key] {
						seenMissing[key] = true
						missing = append(missing, key)
					}
					continue
				}
				if ok && target != studentID {
					return nil, fmt.Errorf("%w: 第 %d 条 %s 与 %s 指向不同学生",
						ErrInvalidStudentRef, i, item.Student, alt)
				}
			}

			dislikes := make([]string, 0, len(item.Dislikes))
			seen := make(map[string]bool, len(item.Dislikes))
			for _, ref := range item.Dislikes {
				target, ok := index.Resolve(ref)
				if !ok {
					if key := ref.String(); !seenMissing[key] {
						seenMissing[key] = true
						missing = append(missing, key)
					}
					continue
				}
				// 自身与重复项不构成回避关系
				if target == studentID || seen[target] {
					continue
				}
				seen[target] = true
				dislikes = append(dislikes, target)
			}

			plans[sid] = append(plans[sid], preferenceWrite{
				index:    i,
				ref:      item.Student,
				pref:     toPreferenceModel(item, studentID, survey.SurveyID),
				dislikes: dislikes,
			})
		}
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: [%s]", ErrStudentsNotFound, strings.Join(missing, ", "))
	}

	// 3. 逐条写入：每条偏好与其回避关系在同一事务内
	resp := &dto.BatchUpsertPreferencesResponse{Total: len(req.Preferences)}
	written := 0
	for _, sid := range surveyOrder {
		for _, w := range plans[sid] {
			var created bool
			var edges int64
			err := s.repo.InTx(ctx, func(tx *repository.Repository) error {
				var err error
				created, err = tx.Preference.Upsert(ctx, &w.pref)
				if err != nil {
					return err
				}
				if created {
					edges, err = tx.Dislike.InsertIgnoreDuplicates(ctx, w.pref.PreferenceID, w.dislikes)
				} else {
					edges, err = tx.Dislike.ReplaceForPreference(ctx, w.pref.PreferenceID, w.dislikes)
				}
				return err
			})
			if err != nil {
				s.logger.Error("写入学生偏好失败",
					zap.String("survey_id", sid),
					zap.Int("index", w.index),
					zap.Stringer("student", w.ref),
					zap.Int("written", written),
					zap.Error(err),
				)
				return nil, &BatchWriteError{SurveyID: sid, Index: w.index, Ref: w.ref, Written: written, Err: err}
			}

			written++
			if created {
				resp.Created++
			} else {
				resp.Updated++
			}
			resp.Dislikes += int(edges)
		}
	}

	s.logger.Info("批量写入学生偏好完成",
		zap.Int("total", resp.Total),
		zap.Int("created", resp.Created),
		zap.Int("updated", resp.Updated),
	)
	return resp, nil
}

// studentIndex 构建班级内 student_no / student_id → student_id 索引
func (s *preferenceService) studentIndex(ctx context.Context, classID string) (*model.StudentIndex, error) {
	students, err := s.repo.Student.ListByClass(ctx, classID)
	if err != nil {
		s.logger.Error("查询班级学生失败", zap.String("class_id", classID), zap.Error(err))
		return nil, err
	}
	if len(students) == 0 {
		return nil, ErrClassHasNoStudents
	}

	index := model.NewStudentIndex(len(students))
	for i := range students {
		index.Add(students[i].StudentNo, students[i].StudentID, students[i].StudentID)
	}
	return index, nil
}

func toPreferenceModel(item *dto.PreferenceSubmission, studentID, surveyID string) model.StudentPreference {
	return model.StudentPreference{
		StudentID:    studentID,
		SurveyID:     surveyID,
		MiA:          item.MiA,
		MiB:          item.MiB,
		MiC:          item.MiC,
		MiD:          item.MiD,
		MiE:          item.MiE,
		MiF:          item.MiF,
		MiG:          item.MiG,
		MiH:          item.MiH,
		Leader:       item.Leader,
		Eyesight:     item.Eyesight,
		PreviousTeam: item.PreviousTeam,
	}
}

// ────────────────────── ListBySurvey ──────────────────────

func (s *preferenceService) ListBySurvey(ctx context.Context, teacherID, surveyID string) ([]dto.PreferenceResponse, error) {
	survey, err := s.ownership.ResolveSurvey(ctx, teacherID, surveyID)
	if err != nil {
		return nil, err
	}

	prefs, err := s.repo.Preference.ListBySurvey(ctx, survey.SurveyID)
	if err != nil {
		s.logger.Error("查询学生偏好失败", zap.String("survey_id", survey.SurveyID), zap.Error(err))
		return nil, err
	}

	result := make([]dto.PreferenceResponse, 0, len(prefs))
	for i := range prefs {
		result = append(result, toPreferenceResponse(&prefs[i]))
	}
	return result, nil
}

func toPreferenceResponse(p *model.StudentPreference) dto.PreferenceResponse {
	resp := dto.PreferenceResponse{
		ID:           p.PreferenceID,
		SurveyID:     p.SurveyID,
		StudentID:    p.StudentID,
		MiA:          p.MiA,
		MiB:          p.MiB,
		MiC:          p.MiC,
		MiD:          p.MiD,
		MiE:          p.MiE,
		MiF:          p.MiF,
		MiG:          p.MiG,
		MiH:          p.MiH,
		Leader:       p.Leader,
		Eyesight:     p.Eyesight,
		PreviousTeam: p.PreviousTeam,
		Dislikes:     make([]int, 0, len(p.Dislikes)),
		UpdatedAt:    p.UpdatedAt.Format(dto.TimeLayout),
	}
	if p.Student != nil {
		resp.StudentNo = p.Student.StudentNo
		resp.StudentName = p.Student.Name
	}
	for _, d := range p.Dislikes {
		if d.Student != nil {
			resp.Dislikes = append(resp.Dislikes, d.Student.StudentNo)
		}
	}
	return resp
}
