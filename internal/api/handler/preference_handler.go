package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"team-matching/internal/dto"
	"team-matching/internal/service"
	"team-matching/pkg/response"
)

// PreferenceHandler 学生偏好 HTTP 处理器
type PreferenceHandler struct {
	prefSvc service.PreferenceService
}

// NewPreferenceHandler 创建 PreferenceHandler
func NewPreferenceHandler(prefSvc service.PreferenceService) *PreferenceHandler {
	return &PreferenceHandler{prefSvc: prefSvc}
}

// UpsertBatch 批量提交学生偏好（可跨多个问卷）
// POST /api/v1/preferences/batch
func (h *PreferenceHandler) UpsertBatch(c *gin.Context) {
	teacherID, ok := MustGetTeacherID(c)
	if !ok {
		return
	}

	var req dto.BatchUpsertPreferencesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, 10001, "参数校验失败", err.Error())
		return
	}

	result, err := h.prefSvc.UpsertBatch(c.Request.Context(), teacherID, &req)
	if err != nil {
		h.handlePreferenceError(c, err)
		return
	}
	response.OK(c, result)
}

// ListBySurvey 问卷下的全部偏好
// GET /api/v1/surveys/:id/preferences
func (h *PreferenceHandler) ListBySurvey(c *gin.Context) {
	teacherID, ok := MustGetTeacherID(c)
	if !ok {
		return
	}

	list, err := h.prefSvc.ListBySurvey(c.Request.Context(), teacherID, c.Param("id"))
	if err != nil {
		h.handlePreferenceError(c, err)
		return
	}
	response.OK(c, list)
}

func (h *PreferenceHandler) handlePreferenceError(c *gin.Context, err error) {
	var writeErr *service.BatchWriteError
	switch {
	case errors.As(err, &writeErr):
		response.ErrorWithDetails(c, http.StatusInternalServerError, 21105, "偏好写入中断，部分条目已保存", writeErr.Error())
	case errors.Is(err, service.ErrNotFoundOrDenied):
		response.NotFound(c, 21101, service.ErrNotFoundOrDenied.Error())
	case errors.Is(err, service.ErrStudentsNotFound):
		response.ErrorWithDetails(c, http.StatusBadRequest, 21102, "存在无法解析的学生", err.Error())
	case errors.Is(err, service.ErrInvalidStudentRef):
		response.ErrorWithDetails(c, http.StatusBadRequest, 21103, "学生引用无效", err.Error())
	case errors.Is(err, service.ErrClassHasNoStudents):
		response.BadRequest(c, 21104, "班级内没有学生")
	case errors.Is(err, service.ErrEmptyBatch):
		response.BadRequest(c, 10001, "提交的偏好为空")
	default:
		response.InternalError(c)
	}
}
