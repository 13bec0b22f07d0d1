package model

import "time"

// Team 分组行（表 teams）
// TeamID 为求解器给出的组号，仅在所属 MatchingResult 内有意义。
// 偏好行被删除（学生被删除级联）时 StudentPreferenceID 置空，分组行保留；
// 成员身份与评分在写入时快照到 Member，历史结果据此还原。
type Team struct {
	TeamRowID           string     `gorm:"column:team_row_id;type:uuid;primaryKey;default:gen_random_uuid()" json:"team_row_id"`
	TeamID              int        `gorm:"not null"                                                          json:"team_id"`
	Name                string     `gorm:"type:varchar(100);not null"                                        json:"name"`
	MatchingResultID    string     `gorm:"type:uuid;not null;index"                                          json:"matching_result_id"`
	StudentPreferenceID *string    `gorm:"type:uuid;index"                                                   json:"student_preference_id"`
	Member              TeamMember `gorm:"embedded"                                                          json:"member"`
	CreatedAt           time.Time  `gorm:"not null;default:CURRENT_TIMESTAMP"                                json:"created_at"`

	// 关联
	StudentPreference *StudentPreference `gorm:"foreignKey:StudentPreferenceID;references:PreferenceID" json:"student_preference,omitempty"`
}

func (Team) TableName() string { return "teams" }

// TeamMember 分组时成员的快照；StudentID 不设外键，学生删除后仍保留
type TeamMember struct {
	StudentID    *string `gorm:"column:student_id;type:uuid"          json:"student_id,omitempty"`
	StudentNo    int     `gorm:"column:student_no"                    json:"student_no"`
	StudentName  string  `gorm:"column:student_name;type:varchar(100)" json:"student_name"`
	Sex          int     `gorm:"column:sex"                           json:"sex"`
	Leader       int     `gorm:"column:leader"                        json:"leader"`
	Eyesight     int     `gorm:"column:eyesight"                      json:"eyesight"`
	PreviousTeam int     `gorm:"column:previous_team"                 json:"previous_team"`
}

// HasSnapshot 快照是否存在（快照列加入前写入的行没有）
func (m TeamMember) HasSnapshot() bool { return m.StudentID != nil }

// SnapshotMember 从偏好及其学生生成成员快照
func SnapshotMember(p *StudentPreference) TeamMember {
	id := p.StudentID
	m := TeamMember{
		StudentID:    &id,
		Leader:       p.Leader,
		Eyesight:     p.Eyesight,
		PreviousTeam: p.PreviousTeam,
	}
	if p.Student != nil {
		m.StudentNo = p.Student.StudentNo
		m.StudentName = p.Student.Name
		m.Sex = p.Student.Sex
	}
	return m
}

// CurrentMember 成员信息：优先取快照，旧行回退到仍存在的偏好
func (t *Team) CurrentMember() (TeamMember, bool) {
	if t.Member.HasSnapshot() {
		return t.Member, true
	}
	if p := t.StudentPreference; p != nil && p.Student != nil {
		return SnapshotMember(p), true
	}
	return TeamMember{}, false
}
