package dto

import "team-matching/internal/model"

// ── 求解器线格式 ──

// SolverRequest POST {solver}/match 请求体
type SolverRequest struct {
	Constraint         model.Constraint `json:"constraint"`
	StudentConstraints []SolverStudent  `json:"student_constraints"`
}

// SolverStudent 单个学生的求解输入；dislikes 使用班级内序号
type SolverStudent struct {
	StudentNo int   `json:"student_no"`
	Sex       int   `json:"sex"`
	Previous  int   `json:"previous"`
	MiA       int   `json:"mi_a"`
	MiB       int   `json:"mi_b"`
	MiC       int   `json:"mi_c"`
	MiD       int   `json:"mi_d"`
	MiE       int   `json:"mi_e"`
	MiF       int   `json:"mi_f"`
	MiG       int   `json:"mi_g"`
	MiH       int   `json:"mi_h"`
	Leader    int   `json:"leader"`
	Eyesight  int   `json:"eyesight"`
	Dislikes  []int `json:"dislikes"`
}

// SolverResponse 求解器成功响应：组号 → 成员
type SolverResponse struct {
	Teams map[string][]model.StudentRef `json:"teams"`
}

// ── 接口请求 ──

// RunMatchRequest 发起匹配
type RunMatchRequest struct {
	Constraint model.Constraint `json:"constraint"`
}

// WriteTeamsRequest 写入外部计算得到的分组
type WriteTeamsRequest struct {
	Constraint model.Constraint              `json:"constraint"`
	Teams      map[string][]model.StudentRef `json:"teams" binding:"required,min=1"`
}

// ── 响应 ──

// MatchResponse 匹配 / 写入分组结果
type MatchResponse struct {
	MatchingResult *MatchingResultResponse `json:"matching_result"`
	Written        int                     `json:"written"`
	Skipped        []string                `json:"skipped"`
}
