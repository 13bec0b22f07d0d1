package model

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	pkgerrors "team-matching/pkg/errors"
)

// MatchingResultStatusCreated 新建（分组尚在写入或刚写入完成）
const MatchingResultStatusCreated = 0

// MatchingResult 匹配结果（表 matching_results）
// 每次求解生成一条新记录，创建后不可修改；同一问卷以 created_at 最新者为准
type MatchingResult struct {
	MatchingResultID  string         `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"matching_result_id"`
	SurveyID          string         `gorm:"type:uuid;not null;index"                       json:"survey_id"`
	Name              string         `gorm:"type:varchar(255);not null"                     json:"name"`
	Status            int            `gorm:"type:smallint;not null;default:0"               json:"status"`
	MaxNumTeams       *int           `json:"max_num_teams,omitempty"`
	MembersPerTeam    *int           `json:"members_per_team,omitempty"`
	AtLeastOnePairSex bool           `gorm:"not null;default:false" json:"at_least_one_pair_sex"`
	GirlGeqBoy        bool           `gorm:"not null;default:false" json:"girl_geq_boy"`
	BoyGeqGirl        bool           `gorm:"not null;default:false" json:"boy_geq_girl"`
	AtLeastOneLeader  bool           `gorm:"not null;default:false" json:"at_least_one_leader"`
	UniquePrevious    *int           `json:"unique_previous,omitempty"`
	GroupDiffCoeff    *float64       `json:"group_diff_coeff,omitempty"`
	ConstraintJSON    datatypes.JSON `gorm:"column:constraint_snapshot;type:jsonb;not null" json:"-"`
	CreatedAt         time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP;index"       json:"created_at"`

	// 关联
	Survey *Survey `gorm:"foreignKey:SurveyID;references:SurveyID"                 json:"survey,omitempty"`
	Teams  []Team  `gorm:"foreignKey:MatchingResultID;references:MatchingResultID" json:"teams,omitempty"`
}

func (MatchingResult) TableName() string { return "matching_results" }

// BeforeUpdate 匹配结果为历史快照，禁止任何 UPDATE
func (*MatchingResult) BeforeUpdate(*gorm.DB) error {
	return pkgerrors.ErrImmutableRecord
}

// ApplyConstraint 将约束参数展开到列上
func (m *MatchingResult) ApplyConstraint(c Constraint) {
	m.MaxNumTeams = c.MaxNumTeams
	m.MembersPerTeam = c.MembersPerTeam
	m.AtLeastOnePairSex = c.AtLeastOnePairSex
	m.GirlGeqBoy = c.GirlGeqBoy
	m.BoyGeqGirl = c.BoyGeqGirl
	m.AtLeastOneLeader = c.AtLeastOneLeader
	m.UniquePrevious = c.UniquePrevious
	m.GroupDiffCoeff = c.GroupDiffCoeff
}

// Constraint 还原生成该结果时使用的约束
func (m *MatchingResult) Constraint() Constraint {
	return Constraint{
		MaxNumTeams:       m.MaxNumTeams,
		MembersPerTeam:    m.MembersPerTeam,
		AtLeastOnePairSex: m.AtLeastOnePairSex,
		GirlGeqBoy:        m.GirlGeqBoy,
		BoyGeqGirl:        m.BoyGeqGirl,
		AtLeastOneLeader:  m.AtLeastOneLeader,
		UniquePrevious:    m.UniquePrevious,
		GroupDiffCoeff:    m.GroupDiffCoeff,
	}
}
