package handler

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"team-matching/internal/dto"
	"team-matching/internal/service"
	"team-matching/pkg/response"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// MatchingResultHandler 匹配结果 HTTP 处理器
type MatchingResultHandler struct {
	resultSvc service.MatchingResultService
}

// NewMatchingResultHandler 创建 MatchingResultHandler
func NewMatchingResultHandler(resultSvc service.MatchingResultService) *MatchingResultHandler {
	return &MatchingResultHandler{resultSvc: resultSvc}
}

// List 问卷的匹配结果历史（新到旧）
// GET /api/v1/surveys/:id/matching-results
func (h *MatchingResultHandler) List(c *gin.Context) {
	teacherID, ok := MustGetTeacherID(c)
	if !ok {
		return
	}

	var req dto.MatchingResultListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	list, total, err := h.resultSvc.List(c.Request.Context(), teacherID, c.Param("id"), &req)
	if err != nil {
		h.handleResultError(c, err)
		return
	}
	response.OKPage(c, list, total, req.GetPage(), req.GetPageSize())
}

// GetLatest 问卷当前的匹配结果
// GET /api/v1/surveys/:id/matching-results/latest
func (h *MatchingResultHandler) GetLatest(c *gin.Context) {
	teacherID, ok := MustGetTeacherID(c)
	if !ok {
		return
	}

	result, err := h.resultSvc.GetLatest(c.Request.Context(), teacherID, c.Param("id"))
	if err != nil {
		h.handleResultError(c, err)
		return
	}
	response.OK(c, result)
}

// Get 匹配结果详情（含分组）
// GET /api/v1/matching-results/:id
func (h *MatchingResultHandler) Get(c *gin.Context) {
	teacherID, ok := MustGetTeacherID(c)
	if !ok {
		return
	}

	result, err := h.resultSvc.Get(c.Request.Context(), teacherID, c.Param("id"))
	if err != nil {
		h.handleResultError(c, err)
		return
	}
	response.OK(c, result)
}

// Delete 删除匹配结果及其分组
// DELETE /api/v1/matching-results/:id
func (h *MatchingResultHandler) Delete(c *gin.Context) {
	teacherID, ok := MustGetTeacherID(c)
	if !ok {
		return
	}

	if err := h.resultSvc.Delete(c.Request.Context(), teacherID, c.Param("id")); err != nil {
		h.handleResultError(c, err)
		return
	}
	response.OK(c, nil)
}

// Export 导出分组表
// GET /api/v1/matching-results/:id/export
func (h *MatchingResultHandler) Export(c *gin.Context) {
	teacherID, ok := MustGetTeacherID(c)
	if !ok {
		return
	}

	buf, filename, err := h.resultSvc.Export(c.Request.Context(), teacherID, c.Param("id"))
	if err != nil {
		h.handleResultError(c, err)
		return
	}

	c.Header("Content-Description", "File Transfer")
	c.Header("Content-Disposition", "attachment; filename*=UTF-8''"+url.QueryEscape(filename))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

func (h *MatchingResultHandler) handleResultError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrNotFoundOrDenied):
		response.NotFound(c, 23101, service.ErrNotFoundOrDenied.Error())
	case errors.Is(err, service.ErrNoMatchingResult):
		response.NotFound(c, 23102, "该问卷尚无匹配结果")
	case errors.Is(err, service.ErrExportGenerateFail):
		response.Error(c, http.StatusInternalServerError, 23103, "生成 Excel 文件失败")
	default:
		response.InternalError(c)
	}
}
