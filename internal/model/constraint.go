package model

import "errors"

// Constraint 求解请求的约束参数（值对象，随 MatchingResult 快照保存）
type Constraint struct {
	MaxNumTeams       *int     `json:"max_num_teams"`
	MembersPerTeam    *int     `json:"members_per_team"`
	AtLeastOnePairSex bool     `json:"at_least_one_pair_sex"`
	GirlGeqBoy        bool     `json:"girl_geq_boy"`
	BoyGeqGirl        bool     `json:"boy_geq_girl"`
	AtLeastOneLeader  bool     `json:"at_least_one_leader"`
	UniquePrevious    *int     `json:"unique_previous"`
	GroupDiffCoeff    *float64 `json:"group_diff_coeff"`
}

var (
	ErrConstraintTeamCount   = errors.New("max_num_teams 必须大于 0")
	ErrConstraintTeamSize    = errors.New("members_per_team 必须大于 0")
	ErrConstraintSexConflict = errors.New("girl_geq_boy 与 boy_geq_girl 不能同时启用")
	ErrConstraintUniquePrev  = errors.New("unique_previous 不能为负数")
	ErrConstraintDiffCoeff   = errors.New("group_diff_coeff 不能为负数")
)

// Validate 校验约束参数自洽
func (c Constraint) Validate() error {
	if c.MaxNumTeams != nil && *c.MaxNumTeams <= 0 {
		return ErrConstraintTeamCount
	}
	if c.MembersPerTeam != nil && *c.MembersPerTeam <= 0 {
		return ErrConstraintTeamSize
	}
	if c.GirlGeqBoy && c.BoyGeqGirl {
		return ErrConstraintSexConflict
	}
	if c.UniquePrevious != nil && *c.UniquePrevious < 0 {
		return ErrConstraintUniquePrev
	}
	if c.GroupDiffCoeff != nil && *c.GroupDiffCoeff < 0 {
		return ErrConstraintDiffCoeff
	}
	return nil
}
