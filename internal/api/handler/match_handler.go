package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"team-matching/internal/dto"
	"team-matching/internal/model"
	"team-matching/internal/service"
	"team-matching/pkg/response"
	"team-matching/pkg/solver"
)

// MatchHandler 分组匹配 HTTP 处理器
type MatchHandler struct {
	matchSvc service.MatchService
}

// NewMatchHandler 创建 MatchHandler
func NewMatchHandler(matchSvc service.MatchService) *MatchHandler {
	return &MatchHandler{matchSvc: matchSvc}
}

// Preview 预览发给求解器的请求体，不实际调用
// POST /api/v1/surveys/:id/match/preview
func (h *MatchHandler) Preview(c *gin.Context) {
	teacherID, ok := MustGetTeacherID(c)
	if !ok {
		return
	}

	req, ok := bindRunMatch(c)
	if !ok {
		return
	}

	payload, err := h.matchSvc.PreviewRequest(c.Request.Context(), teacherID, c.Param("id"), req.Constraint)
	if err != nil {
		h.handleMatchError(c, err)
		return
	}
	response.OK(c, payload)
}

// Run 调用求解器并保存新的匹配结果
// POST /api/v1/surveys/:id/match
func (h *MatchHandler) Run(c *gin.Context) {
	teacherID, ok := MustGetTeacherID(c)
	if !ok {
		return
	}

	req, ok := bindRunMatch(c)
	if !ok {
		return
	}

	result, err := h.matchSvc.Run(c.Request.Context(), teacherID, c.Param("id"), req.Constraint)
	if err != nil {
		h.handleMatchError(c, err)
		return
	}
	response.Created(c, result)
}

// WriteTeams 写入外部计算的分组结果
// POST /api/v1/surveys/:id/teams
func (h *MatchHandler) WriteTeams(c *gin.Context) {
	teacherID, ok := MustGetTeacherID(c)
	if !ok {
		return
	}

	var req dto.WriteTeamsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, 10001, "参数校验失败", err.Error())
		return
	}

	result, err := h.matchSvc.WriteTeams(c.Request.Context(), teacherID, c.Param("id"), &req)
	if err != nil {
		h.handleMatchError(c, err)
		return
	}
	response.Created(c, result)
}

// bindRunMatch 请求体可省略，省略时使用空约束
func bindRunMatch(c *gin.Context) (dto.RunMatchRequest, bool) {
	var req dto.RunMatchRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		response.ErrorWithDetails(c, http.StatusBadRequest, 10001, "参数校验失败", err.Error())
		return req, false
	}
	return req, true
}

func isConstraintError(err error) bool {
	return errors.Is(err, model.ErrConstraintTeamCount) ||
		errors.Is(err, model.ErrConstraintTeamSize) ||
		errors.Is(err, model.ErrConstraintSexConflict) ||
		errors.Is(err, model.ErrConstraintUniquePrev) ||
		errors.Is(err, model.ErrConstraintDiffCoeff)
}

func (h *MatchHandler) handleMatchError(c *gin.Context, err error) {
	var solverErr *solver.SolverError
	var statusErr *solver.StatusError
	switch {
	case errors.Is(err, service.ErrNotFoundOrDenied):
		response.NotFound(c, 22101, service.ErrNotFoundOrDenied.Error())
	case isConstraintError(err):
		response.ErrorWithDetails(c, http.StatusBadRequest, 22102, "约束参数无效", err.Error())
	case errors.Is(err, service.ErrNoPreferences):
		response.BadRequest(c, 22103, "该问卷尚无学生偏好数据")
	case errors.Is(err, service.ErrInvalidTeamID),
		errors.Is(err, service.ErrInvalidTeamMembers),
		errors.Is(err, service.ErrEmptySolverOutput):
		response.ErrorWithDetails(c, http.StatusBadRequest, 22104, "分组数据无效", err.Error())
	case errors.As(err, &solverErr):
		response.BadGateway(c, 22105, "求解器返回错误", solverErr.Message)
	case errors.As(err, &statusErr):
		response.BadGateway(c, 22106, "求解器响应异常", statusErr.Error())
	case errors.Is(err, solver.ErrSolverUnavailable):
		response.ServiceUnavailable(c, 22107, "求解服务暂不可用，请稍后重试")
	default:
		response.InternalError(c)
	}
}
