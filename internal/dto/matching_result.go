package dto

import "team-matching/internal/model"

// MatchingResultListRequest 匹配结果列表查询
type MatchingResultListRequest struct {
	PaginationRequest
}

// MatchingResultResponse 匹配结果
type MatchingResultResponse struct {
	ID         string              `json:"id"`
	SurveyID   string              `json:"survey_id"`
	Name       string              `json:"name"`
	Status     int                 `json:"status"`
	Constraint model.Constraint    `json:"constraint"`
	CreatedAt  string              `json:"created_at"`
	Teams      []TeamGroupResponse `json:"teams,omitempty"`
}

// TeamGroupResponse 一个组及其成员
type TeamGroupResponse struct {
	TeamID  int                  `json:"team_id"`
	Name    string               `json:"name"`
	Members []TeamMemberResponse `json:"members"`
}

// TeamMemberResponse 组成员；偏好已被删除时 removed=true，身份与评分取自分组时的快照
type TeamMemberResponse struct {
	TeamRowID    string  `json:"team_row_id"`
	PreferenceID *string `json:"student_preference_id"`
	StudentID    string  `json:"student_id,omitempty"`
	StudentNo    int     `json:"student_no,omitempty"`
	Name         string  `json:"name,omitempty"`
	Sex          int     `json:"sex"`
	Leader       int     `json:"leader,omitempty"`
	Eyesight     int     `json:"eyesight,omitempty"`
	Removed      bool    `json:"removed"`
}
