package service

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"team-matching/internal/model"
	"team-matching/internal/repository"
	applogger "team-matching/pkg/logger"
)

// TeamWriteResult 分组写入结果
type TeamWriteResult struct {
	MatchingResult *model.MatchingResult
	Written        int
	// Skipped 无法解析或重复出现的成员引用
	Skipped []model.StudentRef
}

// TeamAssignmentWriter 将求解输出持久化为新 MatchingResult 下的 Team 行
type TeamAssignmentWriter interface {
	// Write 先创建结果，再按 team_id 升序写入分组行。
	// 成员可用 student_no 或 student_id 引用，无法解析的成员跳过并记录告警。
	Write(ctx context.Context, survey *model.Survey, c model.Constraint, teams map[int][]model.StudentRef) (*TeamWriteResult, error)
}

type teamAssignmentWriter struct {
	repo    *repository.Repository
	results MatchingResultService
	logger  *zap.Logger
}

// NewTeamAssignmentWriter 创建 TeamAssignmentWriter 实例
func NewTeamAssignmentWriter(repo *repository.Repository, results MatchingResultService, logger *zap.Logger) TeamAssignmentWriter {
	return &teamAssignmentWriter{repo: repo, results: results, logger: logger}
}

func (w *teamAssignmentWriter) Write(ctx context.Context, survey *model.Survey, c model.Constraint, teams map[int][]model.StudentRef) (*TeamWriteResult, error) {
	log := applogger.With(ctx, w.logger)

	// 1. 父记录必须先于分组行存在
	result, err := w.results.Create(ctx, survey, c)
	if err != nil {
		return nil, err
	}

	// 2. student_no / student_id → preference_id
	prefs, err := w.repo.Preference.ListBySurvey(ctx, survey.SurveyID)
	if err != nil {
		log.Error("查询学生偏好失败", zap.String("survey_id", survey.SurveyID), zap.Error(err))
		return nil, fmt.Errorf("写入分组失败 (matching_result %s): %w", result.MatchingResultID, err)
	}
	index := model.NewStudentIndex(len(prefs))
	byID := make(map[string]*model.StudentPreference, len(prefs))
	for i := range prefs {
		if prefs[i].Student == nil {
			continue
		}
		index.Add(prefs[i].Student.StudentNo, prefs[i].StudentID, prefs[i].PreferenceID)
		byID[prefs[i].PreferenceID] = &prefs[i]
	}

	// 3. 逐个解析成员
	teamIDs := make([]int, 0, len(teams))
	for id := range teams {
		teamIDs = append(teamIDs, id)
	}
	sort.Ints(teamIDs)

	out := &TeamWriteResult{MatchingResult: result}
	assigned := make(map[string]int)
	var rows []model.Team

	for _, teamID := range teamIDs {
		for _, ref := range teams[teamID] {
			prefID, ok := index.Resolve(ref)
			if !ok {
				log.Warn("分组成员无法解析，已跳过",
					zap.String("matching_result_id", result.MatchingResultID),
					zap.Int("team_id", teamID),
					zap.Stringer("student", ref),
				)
				out.Skipped = append(out.Skipped, ref)
				continue
			}
			if prev, dup := assigned[prefID]; dup {
				log.Warn("分组成员重复出现，已跳过",
					zap.String("matching_result_id", result.MatchingResultID),
					zap.Int("team_id", teamID),
					zap.Int("first_team_id", prev),
					zap.Stringer("student", ref),
				)
				out.Skipped = append(out.Skipped, ref)
				continue
			}
			assigned[prefID] = teamID

			id := prefID
			rows = append(rows, model.Team{
				TeamID:              teamID,
				Name:                fmt.Sprintf("Team %d", teamID),
				MatchingResultID:    result.MatchingResultID,
				StudentPreferenceID: &id,
				Member:              model.SnapshotMember(byID[prefID]),
			})
		}
	}

	// 4. 批量写入
	if err := w.repo.Team.BatchCreate(ctx, rows); err != nil {
		log.Error("批量写入分组失败",
			zap.String("matching_result_id", result.MatchingResultID),
			zap.Int("rows", len(rows)),
			zap.Error(err),
		)
		return nil, fmt.Errorf("写入分组失败 (matching_result %s): %w", result.MatchingResultID, err)
	}
	out.Written = len(rows)

	log.Info("分组写入完成",
		zap.String("matching_result_id", result.MatchingResultID),
		zap.Int("written", out.Written),
		zap.Int("skipped", len(out.Skipped)),
	)
	return out, nil
}
