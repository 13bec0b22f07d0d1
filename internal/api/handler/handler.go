package handler

import "team-matching/internal/service"

// Handler 所有 Handler 的聚合入口
type Handler struct {
	Auth           *AuthHandler
	Class          *ClassHandler
	Preference     *PreferenceHandler
	Match          *MatchHandler
	MatchingResult *MatchingResultHandler
}

// NewHandler 创建 Handler 聚合
func NewHandler(svc *service.Service) *Handler {
	return &Handler{
		Auth:           NewAuthHandler(svc.Auth),
		Class:          NewClassHandler(svc.Class),
		Preference:     NewPreferenceHandler(svc.Preference),
		Match:          NewMatchHandler(svc.Match),
		MatchingResult: NewMatchingResultHandler(svc.MatchingResult),
	}
}
