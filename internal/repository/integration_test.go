//go:build integration

package repository_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"team-matching/internal/model"
	"team-matching/internal/repository"
	"team-matching/pkg/database"
	pkgerrors "team-matching/pkg/errors"
)

// ═══════════════════════════════════════════════════════════
// Test Setup
// ═══════════════════════════════════════════════════════════

var testDB *gorm.DB

func TestMain(m *testing.M) {
	dsn := os.Getenv("TEST_DATABASE_DSN")
	if dsn == "" {
		dsn = "host=localhost port=5433 user=postgres password=postgres dbname=team_matching_test sslmode=disable TimeZone=UTC"
	}

	var err error
	testDB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "无法连接测试数据库: %v\n", err)
		os.Exit(1)
	}

	sqlDB, err := testDB.DB()
	if err != nil {
		fmt.Fprintf(os.Stderr, "获取 sql.DB 失败: %v\n", err)
		os.Exit(1)
	}
	// 与线上一致：通过嵌入的 SQL 迁移建表（含外键与不可变触发器）
	if err := database.RunMigrations(sqlDB, zap.NewNop()); err != nil {
		fmt.Fprintf(os.Stderr, "迁移失败: %v\n", err)
		os.Exit(1)
	}

	os.Exit(m.Run())
}

type seed struct {
	teacher  *model.Teacher
	class    *model.Class
	survey   *model.Survey
	students []model.Student
}

// setupTestData 创建教师、班级、问卷与 n 名学生；清理依赖外键级联
func setupTestData(t *testing.T, n int) (*seed, func()) {
	t.Helper()
	ctx := context.Background()
	repo := repository.NewRepository(testDB)

	s := &seed{teacher: &model.Teacher{FirebaseUID: fmt.Sprintf("uid-%d", time.Now().UnixNano()), Name: "测试教师"}}
	if err := repo.Teacher.FirstOrCreate(ctx, s.teacher); err != nil {
		t.Fatalf("创建教师失败: %v", err)
	}
	s.class = &model.Class{TeacherID: s.teacher.TeacherID, Name: "测试班级"}
	if err := repo.Class.Create(ctx, s.class); err != nil {
		t.Fatalf("创建班级失败: %v", err)
	}
	s.survey = &model.Survey{ClassID: s.class.ClassID, Name: "测试问卷", Status: "open"}
	if err := repo.Survey.Create(ctx, s.survey); err != nil {
		t.Fatalf("创建问卷失败: %v", err)
	}
	for i := 1; i <= n; i++ {
		s.students = append(s.students, model.Student{ClassID: s.class.ClassID, StudentNo: i, Name: fmt.Sprintf("学生%d", i), Sex: i % 2})
	}
	if n > 0 {
		if err := repo.Student.BatchCreate(ctx, s.students); err != nil {
			t.Fatalf("创建学生失败: %v", err)
		}
	}

	cleanup := func() {
		testDB.Exec("DELETE FROM teams WHERE matching_result_id IN (SELECT matching_result_id FROM matching_results WHERE survey_id = ?)", s.survey.SurveyID)
		testDB.Exec("DELETE FROM matching_results WHERE survey_id = ?", s.survey.SurveyID)
		testDB.Exec("DELETE FROM teachers WHERE teacher_id = ?", s.teacher.TeacherID)
	}
	return s, cleanup
}

// ═══════════════════════════════════════════════════════════
// Test: Preference upsert
// ═══════════════════════════════════════════════════════════

func TestPreference_UpsertIsIdempotent(t *testing.T) {
	s, cleanup := setupTestData(t, 2)
	defer cleanup()
	repo := repository.NewRepository(testDB)
	ctx := context.Background()

	first := &model.StudentPreference{StudentID: s.students[0].StudentID, SurveyID: s.survey.SurveyID, MiA: 3, Leader: 8, Eyesight: 1}
	created, err := repo.Preference.Upsert(ctx, first)
	if err != nil || !created {
		t.Fatalf("首次 Upsert 应新建: created=%v err=%v", created, err)
	}

	second := &model.StudentPreference{StudentID: s.students[0].StudentID, SurveyID: s.survey.SurveyID, MiA: 7, Leader: 3, Eyesight: 1}
	created, err = repo.Preference.Upsert(ctx, second)
	if err != nil || created {
		t.Fatalf("再次 Upsert 应更新: created=%v err=%v", created, err)
	}
	if second.PreferenceID != first.PreferenceID {
		t.Errorf("冲突时应返回已有行 ID，期望 %s 实际 %s", first.PreferenceID, second.PreferenceID)
	}

	prefs, err := repo.Preference.ListBySurvey(ctx, s.survey.SurveyID)
	if err != nil {
		t.Fatalf("ListBySurvey 失败: %v", err)
	}
	if len(prefs) != 1 || prefs[0].MiA != 7 || prefs[0].Leader != 3 {
		t.Errorf("应只有 1 行且为最新值，实际 %+v", prefs)
	}

	got, err := repo.Preference.GetByID(ctx, first.PreferenceID)
	if err != nil {
		t.Fatalf("GetByID 失败: %v", err)
	}
	if got.Student == nil || got.Student.StudentNo != s.students[0].StudentNo {
		t.Errorf("GetByID 应预加载学生，实际 %+v", got.Student)
	}
}

func TestDislike_InsertIgnoresDuplicates(t *testing.T) {
	s, cleanup := setupTestData(t, 3)
	defer cleanup()
	repo := repository.NewRepository(testDB)
	ctx := context.Background()

	pref := &model.StudentPreference{StudentID: s.students[0].StudentID, SurveyID: s.survey.SurveyID, Leader: 1, Eyesight: 1}
	if _, err := repo.Preference.Upsert(ctx, pref); err != nil {
		t.Fatalf("Upsert 失败: %v", err)
	}

	targets := []string{s.students[1].StudentID, s.students[2].StudentID}
	if _, err := repo.Dislike.InsertIgnoreDuplicates(ctx, pref.PreferenceID, targets); err != nil {
		t.Fatalf("InsertIgnoreDuplicates 失败: %v", err)
	}
	n, err := repo.Dislike.InsertIgnoreDuplicates(ctx, pref.PreferenceID, targets)
	if err != nil {
		t.Fatalf("重复插入不应报错: %v", err)
	}
	if n != 0 {
		t.Errorf("重复插入应影响 0 行，实际 %d", n)
	}

	if _, err := repo.Dislike.ReplaceForPreference(ctx, pref.PreferenceID, targets[:1]); err != nil {
		t.Fatalf("ReplaceForPreference 失败: %v", err)
	}
	dislikes, _ := repo.Dislike.ListByPreference(ctx, pref.PreferenceID)
	if len(dislikes) != 1 || dislikes[0].StudentID != targets[0] {
		t.Errorf("替换后应只剩 1 条，实际 %+v", dislikes)
	}
}

func TestInTx_RollsBackPreferenceOnDislikeFailure(t *testing.T) {
	s, cleanup := setupTestData(t, 1)
	defer cleanup()
	repo := repository.NewRepository(testDB)
	ctx := context.Background()

	pref := &model.StudentPreference{StudentID: s.students[0].StudentID, SurveyID: s.survey.SurveyID, Leader: 1, Eyesight: 1}
	err := repo.InTx(ctx, func(tx *repository.Repository) error {
		if _, err := tx.Preference.Upsert(ctx, pref); err != nil {
			return err
		}
		// 不存在的学生 → 外键失败
		_, err := tx.Dislike.InsertIgnoreDuplicates(ctx, pref.PreferenceID, []string{"00000000-0000-4000-8000-000000000000"})
		return err
	})
	if err == nil {
		t.Fatal("期望外键失败")
	}

	prefs, _ := repo.Preference.ListBySurvey(ctx, s.survey.SurveyID)
	if len(prefs) != 0 {
		t.Errorf("事务回滚后不应留下偏好，实际 %d 条", len(prefs))
	}
}

// ═══════════════════════════════════════════════════════════
// Test: MatchingResult / Team
// ═══════════════════════════════════════════════════════════

func newResult(t *testing.T, repo *repository.Repository, surveyID string) *model.MatchingResult {
	t.Helper()
	r := &model.MatchingResult{SurveyID: surveyID, Name: "测试班级_" + time.Now().UTC().Format(time.RFC3339Nano), ConstraintJSON: []byte(`{}`)}
	if err := repo.MatchingResult.Create(context.Background(), r); err != nil {
		t.Fatalf("创建结果失败: %v", err)
	}
	return r
}

func TestMatchingResult_IsImmutable(t *testing.T) {
	s, cleanup := setupTestData(t, 0)
	defer cleanup()
	repo := repository.NewRepository(testDB)

	r := newResult(t, repo, s.survey.SurveyID)

	// 模型钩子拦截
	err := testDB.Model(r).Update("name", "changed").Error
	if !errors.Is(err, pkgerrors.ErrImmutableRecord) {
		t.Errorf("期望 ErrImmutableRecord，实际: %v", err)
	}

	// 绕过模型时由数据库触发器拦截
	if err := testDB.Exec("UPDATE matching_results SET name = 'x' WHERE matching_result_id = ?", r.MatchingResultID).Error; err == nil {
		t.Error("数据库层应拒绝 UPDATE")
	}
}

func TestMatchingResult_LatestIsMostRecent(t *testing.T) {
	s, cleanup := setupTestData(t, 0)
	defer cleanup()
	repo := repository.NewRepository(testDB)
	ctx := context.Background()

	first := newResult(t, repo, s.survey.SurveyID)
	time.Sleep(10 * time.Millisecond)
	second := newResult(t, repo, s.survey.SurveyID)

	latest, err := repo.MatchingResult.GetLatestBySurvey(ctx, s.survey.SurveyID)
	if err != nil {
		t.Fatalf("GetLatestBySurvey 失败: %v", err)
	}
	if latest.MatchingResultID != second.MatchingResultID {
		t.Errorf("期望最新为 %s，实际 %s", second.MatchingResultID, latest.MatchingResultID)
	}

	list, total, err := repo.MatchingResult.ListBySurvey(ctx, s.survey.SurveyID, 0, 10)
	if err != nil || total != 2 || list[1].MatchingResultID != first.MatchingResultID {
		t.Errorf("列表应按时间倒序，total=%d err=%v", total, err)
	}
}

func TestTeam_RequiresExistingParent(t *testing.T) {
	s, cleanup := setupTestData(t, 1)
	defer cleanup()
	repo := repository.NewRepository(testDB)
	ctx := context.Background()

	err := repo.Team.BatchCreate(ctx, []model.Team{{TeamID: 1, Name: "Team 1"}})
	if !errors.Is(err, pkgerrors.ErrMissingParent) {
		t.Errorf("缺少 matching_result_id 期望 ErrMissingParent，实际: %v", err)
	}

	err = repo.Team.BatchCreate(ctx, []model.Team{{TeamID: 1, Name: "Team 1", MatchingResultID: "00000000-0000-4000-8000-000000000000"}})
	if err == nil {
		t.Error("引用不存在的结果应被外键拒绝")
	}
	_ = s
}

func TestTeam_SurvivesStudentDeletionAndCascadesWithResult(t *testing.T) {
	s, cleanup := setupTestData(t, 2)
	defer cleanup()
	repo := repository.NewRepository(testDB)
	ctx := context.Background()

	var prefIDs []string
	for _, st := range s.students {
		p := &model.StudentPreference{StudentID: st.StudentID, SurveyID: s.survey.SurveyID, Leader: 1, Eyesight: 1}
		if _, err := repo.Preference.Upsert(ctx, p); err != nil {
			t.Fatalf("Upsert 失败: %v", err)
		}
		prefIDs = append(prefIDs, p.PreferenceID)
	}

	r := newResult(t, repo, s.survey.SurveyID)
	var teams []model.Team
	for i := range prefIDs {
		st := s.students[i]
		teams = append(teams, model.Team{
			TeamID: 1, Name: "Team 1", MatchingResultID: r.MatchingResultID, StudentPreferenceID: &prefIDs[i],
			Member: model.SnapshotMember(&model.StudentPreference{StudentID: st.StudentID, Leader: 1, Eyesight: 1, Student: &st}),
		})
	}
	if err := repo.Team.BatchCreate(ctx, teams); err != nil {
		t.Fatalf("BatchCreate 失败: %v", err)
	}

	if err := repo.Student.Delete(ctx, s.students[0].StudentID); err != nil {
		t.Fatalf("删除学生失败: %v", err)
	}
	rows, _ := repo.Team.ListByMatchingResult(ctx, r.MatchingResultID)
	if len(rows) != 2 {
		t.Fatalf("删除学生后分组行应保留，实际 %d 行", len(rows))
	}
	orphaned := 0
	for _, row := range rows {
		if row.StudentPreferenceID == nil {
			orphaned++
			if row.Member.StudentNo != s.students[0].StudentNo || row.Member.StudentName != s.students[0].Name {
				t.Errorf("被删学生的快照应保留，实际 %+v", row.Member)
			}
		}
	}
	if orphaned != 1 {
		t.Errorf("被删学生的分组行偏好引用应置空，实际 %d", orphaned)
	}

	if err := repo.MatchingResult.Delete(ctx, r.MatchingResultID); err != nil {
		t.Fatalf("删除结果失败: %v", err)
	}
	rows, _ = repo.Team.ListByMatchingResult(ctx, r.MatchingResultID)
	if len(rows) != 0 {
		t.Errorf("删除结果应一并删除分组行，剩余 %d", len(rows))
	}
}
