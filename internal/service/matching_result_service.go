package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"team-matching/internal/dto"
	"team-matching/internal/model"
	"team-matching/internal/repository"
)

// ── 匹配结果模块业务错误 ──

var (
	ErrNoMatchingResult   = errors.New("该问卷尚无匹配结果")
	ErrExportGenerateFail = errors.New("生成 Excel 文件失败")
	ErrSurveyWithoutClass = errors.New("问卷缺少所属班级")
)

// MatchingResultService 匹配结果业务接口
//
// 结果只增不改：每次求解生成新记录，“最新结果”在读取时按 created_at 计算。
type MatchingResultService interface {
	// Create 为问卷新建一条结果，name = {班级名}_{RFC3339 时间}，status = 0
	Create(ctx context.Context, survey *model.Survey, c model.Constraint) (*model.MatchingResult, error)
	GetLatest(ctx context.Context, teacherID, surveyID string) (*dto.MatchingResultResponse, error)
	List(ctx context.Context, teacherID, surveyID string, req *dto.MatchingResultListRequest) ([]dto.MatchingResultResponse, int64, error)
	Get(ctx context.Context, teacherID, id string) (*dto.MatchingResultResponse, error)
	// Delete 先删分组行，再删结果
	Delete(ctx context.Context, teacherID, id string) error
	// Export 导出为 Excel，返回内容与建议文件名
	Export(ctx context.Context, teacherID, id string) (*bytes.Buffer, string, error)
}

type matchingResultService struct {
	repo      *repository.Repository
	ownership OwnershipService
	logger    *zap.Logger
	now       func() time.Time
}

// NewMatchingResultService 创建 MatchingResultService 实例
func NewMatchingResultService(repo *repository.Repository, ownership OwnershipService, logger *zap.Logger) MatchingResultService {
	return &matchingResultService{repo: repo, ownership: ownership, logger: logger, now: time.Now}
}

// ────────────────────── Create ──────────────────────

func (s *matchingResultService) Create(ctx context.Context, survey *model.Survey, c model.Constraint) (*model.MatchingResult, error) {
	class := survey.Class
	if class == nil {
		var err error
		class, err = s.repo.Class.GetByID(ctx, survey.ClassID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrSurveyWithoutClass
			}
			s.logger.Error("查询班级失败", zap.String("class_id", survey.ClassID), zap.Error(err))
			return nil, err
		}
	}

	snapshot, err := json.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("序列化约束失败: %w", err)
	}

	now := s.now().UTC()
	result := &model.MatchingResult{
		SurveyID:       survey.SurveyID,
		Name:           class.Name + "_" + now.Format(time.RFC3339),
		Status:         model.MatchingResultStatusCreated,
		ConstraintJSON: datatypes.JSON(snapshot),
		CreatedAt:      now,
	}
	result.ApplyConstraint(c)

	if err := s.repo.MatchingResult.Create(ctx, result); err != nil {
		s.logger.Error("创建匹配结果失败", zap.String("survey_id", survey.SurveyID), zap.Error(err))
		return nil, err
	}
	if result.MatchingResultID == "" {
		return nil, fmt.Errorf("创建匹配结果失败: 未返回 ID")
	}

	s.logger.Info("已创建匹配结果",
		zap.String("matching_result_id", result.MatchingResultID),
		zap.String("survey_id", survey.SurveyID),
		zap.String("name", result.Name),
	)
	return result, nil
}

// ────────────────────── GetLatest ──────────────────────

func (s *matchingResultService) GetLatest(ctx context.Context, teacherID, surveyID string) (*dto.MatchingResultResponse, error) {
	survey, err := s.ownership.ResolveSurvey(ctx, teacherID, surveyID)
	if err != nil {
		return nil, err
	}

	result, err := s.repo.MatchingResult.GetLatestBySurvey(ctx, survey.SurveyID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNoMatchingResult
		}
		s.logger.Error("查询最新匹配结果失败", zap.String("survey_id", survey.SurveyID), zap.Error(err))
		return nil, err
	}

	return loadResultDetail(ctx, s.repo, s.logger, result)
}

// ────────────────────── List ──────────────────────

func (s *matchingResultService) List(ctx context.Context, teacherID, surveyID string, req *dto.MatchingResultListRequest) ([]dto.MatchingResultResponse, int64, error) {
	survey, err := s.ownership.ResolveSurvey(ctx, teacherID, surveyID)
	if err != nil {
		return nil, 0, err
	}

	results, total, err := s.repo.MatchingResult.ListBySurvey(ctx, survey.SurveyID, req.GetOffset(), req.GetPageSize())
	if err != nil {
		s.logger.Error("查询匹配结果列表失败", zap.String("survey_id", survey.SurveyID), zap.Error(err))
		return nil, 0, err
	}

	list := make([]dto.MatchingResultResponse, 0, len(results))
	for i := range results {
		list = append(list, *toMatchingResultResponse(&results[i], nil))
	}
	return list, total, nil
}

// ────────────────────── Get ──────────────────────

func (s *matchingResultService) Get(ctx context.Context, teacherID, id string) (*dto.MatchingResultResponse, error) {
	owned, err := s.ownership.ResolveMatchingResult(ctx, teacherID, id)
	if err != nil {
		return nil, err
	}
	return loadResultDetail(ctx, s.repo, s.logger, owned.MatchingResult)
}

// ────────────────────── Delete ──────────────────────

func (s *matchingResultService) Delete(ctx context.Context, teacherID, id string) error {
	owned, err := s.ownership.ResolveMatchingResult(ctx, teacherID, id)
	if err != nil {
		return err
	}

	if err := s.repo.MatchingResult.Delete(ctx, owned.MatchingResult.MatchingResultID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFoundOrDenied
		}
		s.logger.Error("删除匹配结果失败", zap.String("matching_result_id", id), zap.Error(err))
		return err
	}

	s.logger.Info("已删除匹配结果", zap.String("matching_result_id", id))
	return nil
}

// ────────────────────── Export ──────────────────────

var exportHeaders = []string{"组号", "组名", "学号", "姓名", "性别", "领导力", "视力", "上次组号"}

func (s *matchingResultService) Export(ctx context.Context, teacherID, id string) (*bytes.Buffer, string, error) {
	owned, err := s.ownership.ResolveMatchingResult(ctx, teacherID, id)
	if err != nil {
		return nil, "", err
	}
	result := owned.MatchingResult

	teams, err := s.repo.Team.ListByMatchingResult(ctx, result.MatchingResultID)
	if err != nil {
		s.logger.Error("查询分组失败", zap.String("matching_result_id", id), zap.Error(err))
		return nil, "", err
	}

	f := excelize.NewFile()
	defer f.Close()

	const sheet = "分组"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, "", s.exportErr(err)
	}

	for col, h := range exportHeaders {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return nil, "", s.exportErr(err)
		}
	}

	row := 2
	for _, t := range teams {
		values := []interface{}{t.TeamID, t.Name, "", "(已删除)", "", "", "", ""}
		if m, ok := t.CurrentMember(); ok {
			values[2] = m.StudentNo
			values[3] = m.StudentName
			values[4] = sexLabel(m.Sex)
			values[5] = m.Leader
			values[6] = m.Eyesight
			values[7] = m.PreviousTeam
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return nil, "", s.exportErr(err)
			}
		}
		row++
	}

	// 约束参数单独一页，便于追溯
	const constraintSheet = "约束"
	if _, err := f.NewSheet(constraintSheet); err != nil {
		return nil, "", s.exportErr(err)
	}
	if err := writePairs(f, constraintSheet, constraintRows(result.Constraint())); err != nil {
		return nil, "", s.exportErr(err)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, "", s.exportErr(err)
	}

	filename := strings.NewReplacer(":", "-", "/", "-", " ", "_").Replace(result.Name) + ".xlsx"
	return buf, filename, nil
}

func (s *matchingResultService) exportErr(err error) error {
	s.logger.Error("生成 Excel 失败", zap.Error(err))
	return ErrExportGenerateFail
}

func sexLabel(sex int) string {
	if sex == model.SexGirl {
		return "女"
	}
	return "男"
}

// writePairs 将键值对逐行写入 A/B 两列
func writePairs(f *excelize.File, sheet string, rows [][2]interface{}) error {
	for i, kv := range rows {
		if err := f.SetCellValue(sheet, fmt.Sprintf("A%d", i+1), kv[0]); err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, fmt.Sprintf("B%d", i+1), kv[1]); err != nil {
			return err
		}
	}
	return nil
}

func constraintRows(c model.Constraint) [][2]interface{} {
	optInt := func(p *int) interface{} {
		if p == nil {
			return ""
		}
		return *p
	}
	var diff interface{} = ""
	if c.GroupDiffCoeff != nil {
		diff = *c.GroupDiffCoeff
	}
	return [][2]interface{}{
		{"max_num_teams", optInt(c.MaxNumTeams)},
		{"members_per_team", optInt(c.MembersPerTeam)},
		{"at_least_one_pair_sex", c.AtLeastOnePairSex},
		{"girl_geq_boy", c.GirlGeqBoy},
		{"boy_geq_girl", c.BoyGeqGirl},
		{"at_least_one_leader", c.AtLeastOneLeader},
		{"unique_previous", optInt(c.UniquePrevious)},
		{"group_diff_coeff", diff},
	}
}

// ── 响应组装 ──

// loadResultDetail 加载分组行并按 team_id 分组
func loadResultDetail(ctx context.Context, repo *repository.Repository, logger *zap.Logger, result *model.MatchingResult) (*dto.MatchingResultResponse, error) {
	teams, err := repo.Team.ListByMatchingResult(ctx, result.MatchingResultID)
	if err != nil {
		logger.Error("查询分组失败", zap.String("matching_result_id", result.MatchingResultID), zap.Error(err))
		return nil, err
	}
	return toMatchingResultResponse(result, teams), nil
}

func toMatchingResultResponse(r *model.MatchingResult, teams []model.Team) *dto.MatchingResultResponse {
	resp := &dto.MatchingResultResponse{
		ID:         r.MatchingResultID,
		SurveyID:   r.SurveyID,
		Name:       r.Name,
		Status:     r.Status,
		Constraint: r.Constraint(),
		CreatedAt:  r.CreatedAt.Format(dto.TimeLayout),
	}
	if teams == nil {
		return resp
	}

	groups := make(map[int]*dto.TeamGroupResponse)
	for _, t := range teams {
		g, ok := groups[t.TeamID]
		if !ok {
			g = &dto.TeamGroupResponse{TeamID: t.TeamID, Name: t.Name}
			groups[t.TeamID] = g
		}
		g.Members = append(g.Members, toTeamMember(&t))
	}

	ids := make([]int, 0, len(groups))
	for id := range groups {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	resp.Teams = make([]dto.TeamGroupResponse, 0, len(ids))
	for _, id := range ids {
		g := groups[id]
		sort.SliceStable(g.Members, func(i, j int) bool {
			return g.Members[i].StudentNo < g.Members[j].StudentNo
		})
		resp.Teams = append(resp.Teams, *g)
	}
	return resp
}

func toTeamMember(t *model.Team) dto.TeamMemberResponse {
	m := dto.TeamMemberResponse{
		TeamRowID:    t.TeamRowID,
		PreferenceID: t.StudentPreferenceID,
		Removed:      t.StudentPreference == nil || t.StudentPreference.Student == nil,
	}
	member, ok := t.CurrentMember()
	if !ok {
		return m
	}
	if member.StudentID != nil {
		m.StudentID = *member.StudentID
	}
	m.StudentNo = member.StudentNo
	m.Name = member.StudentName
	m.Sex = member.Sex
	m.Leader = member.Leader
	m.Eyesight = member.Eyesight
	return m
}
