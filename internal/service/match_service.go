package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"team-matching/internal/dto"
	"team-matching/internal/model"
	"team-matching/internal/repository"
)

// ── 匹配模块业务错误 ──

var (
	ErrNoPreferences      = errors.New("该问卷尚无学生偏好数据")
	ErrInvalidTeamID      = errors.New("组号必须为整数")
	ErrEmptySolverOutput  = errors.New("求解结果不含任何分组")
	ErrInvalidTeamMembers = errors.New("分组成员引用无效")
)

// Solver 外部求解器
type Solver interface {
	Match(ctx context.Context, req any, out any) error
}

// ────────────────────── MatchRequestBuilder ──────────────────────

// MatchRequestBuilder 将问卷偏好与约束转换为求解器请求
type MatchRequestBuilder interface {
	Build(ctx context.Context, surveyID string, c model.Constraint) (*dto.SolverRequest, error)
}

type matchRequestBuilder struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewMatchRequestBuilder 创建 MatchRequestBuilder 实例
func NewMatchRequestBuilder(repo *repository.Repository, logger *zap.Logger) MatchRequestBuilder {
	return &matchRequestBuilder{repo: repo, logger: logger}
}

func (b *matchRequestBuilder) Build(ctx context.Context, surveyID string, c model.Constraint) (*dto.SolverRequest, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	prefs, err := b.repo.Preference.ListBySurvey(ctx, surveyID)
	if err != nil {
		b.logger.Error("查询学生偏好失败", zap.String("survey_id", surveyID), zap.Error(err))
		return nil, err
	}

	students := make([]dto.SolverStudent, 0, len(prefs))
	for i := range prefs {
		p := &prefs[i]
		if p.Student == nil {
			b.logger.Warn("偏好缺少学生信息，已忽略", zap.String("student_preference_id", p.PreferenceID))
			continue
		}

		// 求解器只认班级内序号
		dislikes := make([]int, 0, len(p.Dislikes))
		for _, d := range p.Dislikes {
			if d.Student != nil {
				dislikes = append(dislikes, d.Student.StudentNo)
			}
		}
		sort.Ints(dislikes)

		students = append(students, dto.SolverStudent{
			StudentNo: p.Student.StudentNo,
			Sex:       p.Student.Sex,
			Previous:  p.PreviousTeam,
			MiA:       p.MiA,
			MiB:       p.MiB,
			MiC:       p.MiC,
			MiD:       p.MiD,
			MiE:       p.MiE,
			MiF:       p.MiF,
			MiG:       p.MiG,
			MiH:       p.MiH,
			Leader:    p.Leader,
			Eyesight:  p.Eyesight,
			Dislikes:  dislikes,
		})
	}
	if len(students) == 0 {
		return nil, ErrNoPreferences
	}
	sort.Slice(students, func(i, j int) bool { return students[i].StudentNo < students[j].StudentNo })

	return &dto.SolverRequest{Constraint: c, StudentConstraints: students}, nil
}

// ────────────────────── MatchService ──────────────────────

// MatchService 匹配编排：归属校验 → 构建请求 → 求解 → 写入结果
type MatchService interface {
	// PreviewRequest 返回将发送给求解器的请求体，不调用求解器
	PreviewRequest(ctx context.Context, teacherID, surveyID string, c model.Constraint) (*dto.SolverRequest, error)
	Run(ctx context.Context, teacherID, surveyID string, c model.Constraint) (*dto.MatchResponse, error)
	// WriteTeams 写入调用方提供的求解输出
	WriteTeams(ctx context.Context, teacherID, surveyID string, req *dto.WriteTeamsRequest) (*dto.MatchResponse, error)
}

type matchService struct {
	repo      *repository.Repository
	ownership OwnershipService
	builder   MatchRequestBuilder
	writer    TeamAssignmentWriter
	solver    Solver
	logger    *zap.Logger
}

// NewMatchService 创建 MatchService 实例
func NewMatchService(
	repo *repository.Repository,
	ownership OwnershipService,
	builder MatchRequestBuilder,
	writer TeamAssignmentWriter,
	solver Solver,
	logger *zap.Logger,
) MatchService {
	return &matchService{
		repo:      repo,
		ownership: ownership,
		builder:   builder,
		writer:    writer,
		solver:    solver,
		logger:    logger,
	}
}

func (s *matchService) PreviewRequest(ctx context.Context, teacherID, surveyID string, c model.Constraint) (*dto.SolverRequest, error) {
	survey, err := s.ownership.ResolveSurvey(ctx, teacherID, surveyID)
	if err != nil {
		return nil, err
	}
	return s.builder.Build(ctx, survey.SurveyID, c)
}

func (s *matchService) Run(ctx context.Context, teacherID, surveyID string, c model.Constraint) (*dto.MatchResponse, error) {
	survey, err := s.ownership.ResolveSurvey(ctx, teacherID, surveyID)
	if err != nil {
		return nil, err
	}

	req, err := s.builder.Build(ctx, survey.SurveyID, c)
	if err != nil {
		return nil, err
	}

	var out dto.SolverResponse
	if err := s.solver.Match(ctx, req, &out); err != nil {
		s.logger.Error("求解失败",
			zap.String("survey_id", survey.SurveyID),
			zap.Int("students", len(req.StudentConstraints)),
			zap.Error(err),
		)
		return nil, err
	}

	teams, err := parseTeams(out.Teams)
	if err != nil {
		s.logger.Error("求解结果格式错误", zap.String("survey_id", survey.SurveyID), zap.Error(err))
		return nil, err
	}

	return s.write(ctx, survey, c, teams)
}

func (s *matchService) WriteTeams(ctx context.Context, teacherID, surveyID string, req *dto.WriteTeamsRequest) (*dto.MatchResponse, error) {
	survey, err := s.ownership.ResolveSurvey(ctx, teacherID, surveyID)
	if err != nil {
		return nil, err
	}
	if err := req.Constraint.Validate(); err != nil {
		return nil, err
	}

	teams, err := parseTeams(req.Teams)
	if err != nil {
		return nil, err
	}

	return s.write(ctx, survey, req.Constraint, teams)
}

func (s *matchService) write(ctx context.Context, survey *model.Survey, c model.Constraint, teams map[int][]model.StudentRef) (*dto.MatchResponse, error) {
	written, err := s.writer.Write(ctx, survey, c, teams)
	if err != nil {
		return nil, err
	}

	detail, err := loadResultDetail(ctx, s.repo, s.logger, written.MatchingResult)
	if err != nil {
		return nil, err
	}

	skipped := make([]string, 0, len(written.Skipped))
	for _, ref := range written.Skipped {
		skipped = append(skipped, ref.String())
	}
	return &dto.MatchResponse{MatchingResult: detail, Written: written.Written, Skipped: skipped}, nil
}

// parseTeams 将 {"<team_id>": [...]} 转换为整数组号
func parseTeams(raw map[string][]model.StudentRef) (map[int][]model.StudentRef, error) {
	if len(raw) == 0 {
		return nil, ErrEmptySolverOutput
	}
	teams := make(map[int][]model.StudentRef, len(raw))
	for key, members := range raw {
		id, err := strconv.Atoi(strings.TrimSpace(key))
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrInvalidTeamID, key)
		}
		for _, m := range members {
			if m.IsZero() {
				return nil, fmt.Errorf("%w: team %d", ErrInvalidTeamMembers, id)
			}
		}
		teams[id] = append(teams[id], members...)
	}
	return teams, nil
}
