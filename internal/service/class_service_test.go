package service

import (
	"context"
	"errors"
	"testing"

	"team-matching/internal/dto"
)

func sexPtr(v int) *int { return &v }

func TestClassService_CreateAndListClasses(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.svc.Class.CreateClass(ctx, f.teacher.TeacherID, &dto.CreateClassRequest{Name: "3年B組"}); err != nil {
		t.Fatalf("CreateClass 应成功: %v", err)
	}
	other := f.otherTeacher(t)
	_, _ = f.svc.Class.CreateClass(ctx, other.TeacherID, &dto.CreateClassRequest{Name: "1年C組"})

	list, err := f.svc.Class.ListClasses(ctx, f.teacher.TeacherID)
	if err != nil {
		t.Fatalf("ListClasses 应成功: %v", err)
	}
	if len(list) != 2 {
		t.Errorf("只应列出本人的 2 个班级，实际 %d", len(list))
	}
}

func TestClassService_CreateStudents(t *testing.T) {
	f := newFixture(t, 1)
	ctx := context.Background()

	created, err := f.svc.Class.CreateStudents(ctx, f.teacher.TeacherID, f.class.ClassID, &dto.CreateStudentsRequest{
		Students: []dto.CreateStudentItem{
			{StudentNo: 2, Name: "鈴木", Sex: sexPtr(1)},
			{StudentNo: 3, Name: "高橋", Sex: sexPtr(0)},
		},
	})
	if err != nil {
		t.Fatalf("CreateStudents 应成功: %v", err)
	}
	if len(created) != 2 || created[0].ID == "" {
		t.Errorf("应返回带 ID 的 2 名学生，实际 %+v", created)
	}

	_, err = f.svc.Class.CreateStudents(ctx, f.teacher.TeacherID, f.class.ClassID, &dto.CreateStudentsRequest{
		Students: []dto.CreateStudentItem{
			{StudentNo: 4, Name: "a", Sex: sexPtr(0)},
			{StudentNo: 4, Name: "b", Sex: sexPtr(1)},
		},
	})
	if !errors.Is(err, ErrStudentNoDuplicate) {
		t.Errorf("请求内学号重复期望 ErrStudentNoDuplicate，实际: %v", err)
	}

	_, err = f.svc.Class.CreateStudents(ctx, f.teacher.TeacherID, f.class.ClassID, &dto.CreateStudentsRequest{
		Students: []dto.CreateStudentItem{{StudentNo: 1, Name: "c", Sex: sexPtr(0)}},
	})
	if !errors.Is(err, ErrStudentNoExists) {
		t.Errorf("与已有学号冲突期望 ErrStudentNoExists，实际: %v", err)
	}

	list, _ := f.svc.Class.ListStudents(ctx, f.teacher.TeacherID, f.class.ClassID)
	if len(list) != 3 || list[0].StudentNo != 1 || list[2].StudentNo != 3 {
		t.Errorf("应按学号列出 3 名学生，实际 %+v", list)
	}
}

func TestClassService_DeleteStudent(t *testing.T) {
	f := newFixture(t, 1, 2)
	f.seedPreferences(t, 1, 2)
	ctx := context.Background()

	other := f.otherTeacher(t)
	if err := f.svc.Class.DeleteStudent(ctx, other.TeacherID, f.students[1].StudentID); !errors.Is(err, ErrNotFoundOrDenied) {
		t.Errorf("他人删除期望 ErrNotFoundOrDenied，实际: %v", err)
	}

	if err := f.svc.Class.DeleteStudent(ctx, f.teacher.TeacherID, f.students[1].StudentID); err != nil {
		t.Fatalf("DeleteStudent 应成功: %v", err)
	}
	if len(f.store.prefs) != 1 {
		t.Errorf("学生偏好应级联删除，剩余 %d 条", len(f.store.prefs))
	}
}

func TestClassService_Surveys(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.svc.Class.CreateSurvey(ctx, f.teacher.TeacherID, f.class.ClassID, &dto.CreateSurveyRequest{Name: "第2回"})
	if err != nil {
		t.Fatalf("CreateSurvey 应成功: %v", err)
	}
	if created.Status != "draft" {
		t.Errorf("默认状态应为 draft，实际=%s", created.Status)
	}

	note := "期末用"
	updated, err := f.svc.Class.UpdateSurveyStatus(ctx, f.teacher.TeacherID, created.ID, &dto.UpdateSurveyStatusRequest{Status: "closed", Context: &note})
	if err != nil {
		t.Fatalf("UpdateSurveyStatus 应成功: %v", err)
	}
	if updated.Status != "closed" || updated.Context != note {
		t.Errorf("状态或说明未更新: %+v", updated)
	}

	list, _ := f.svc.Class.ListSurveys(ctx, f.teacher.TeacherID, f.class.ClassID)
	if len(list) != 2 {
		t.Errorf("期望 2 份问卷，实际 %d", len(list))
	}

	other := f.otherTeacher(t)
	if _, err := f.svc.Class.UpdateSurveyStatus(ctx, other.TeacherID, created.ID, &dto.UpdateSurveyStatusRequest{Status: "open"}); !errors.Is(err, ErrNotFoundOrDenied) {
		t.Errorf("他人修改期望 ErrNotFoundOrDenied，实际: %v", err)
	}
}
