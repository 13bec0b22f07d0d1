package model

// 性别取值
const (
	SexBoy  = 0
	SexGirl = 1
)

// Student 学生表（表 students）
// StudentNo 为班级内序号，(class_id, student_no) 唯一
type Student struct {
	StudentID string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"     json:"student_id"`
	ClassID   string `gorm:"type:uuid;not null;uniqueIndex:uq_students_class_no" json:"class_id"`
	StudentNo int    `gorm:"not null;uniqueIndex:uq_students_class_no"           json:"student_no"`
	Name      string `gorm:"type:varchar(100);not null"                         json:"name"`
	Sex       int    `gorm:"type:smallint;not null"                             json:"sex"`
	Memo      string `gorm:"type:text;not null;default:''"                      json:"memo"`
	BaseModel
}

func (Student) TableName() string { return "students" }
