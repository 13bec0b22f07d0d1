package service

import (
	"go.uber.org/zap"

	"team-matching/internal/repository"
)

// Service 所有 Service 的聚合入口
type Service struct {
	Auth           AuthService
	Ownership      OwnershipService
	Class          ClassService
	Preference     PreferenceService
	Match          MatchService
	MatchingResult MatchingResultService
}

// NewService 创建 Service 聚合
func NewService(
	repo *repository.Repository,
	solver Solver,
	blacklist TokenBlacklist,
	logger *zap.Logger,
) *Service {
	ownership := NewOwnershipService(repo, logger)
	results := NewMatchingResultService(repo, ownership, logger)
	builder := NewMatchRequestBuilder(repo, logger)
	writer := NewTeamAssignmentWriter(repo, results, logger)

	return &Service{
		Auth:           NewAuthService(blacklist, logger),
		Ownership:      ownership,
		Class:          NewClassService(repo, ownership, logger),
		Preference:     NewPreferenceService(repo, ownership, logger),
		Match:          NewMatchService(repo, ownership, builder, writer, solver, logger),
		MatchingResult: results,
	}
}
