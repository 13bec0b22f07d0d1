package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"team-matching/internal/dto"
	"team-matching/internal/model"
	"team-matching/internal/repository"
	pkgerrors "team-matching/pkg/errors"
)

// ── 内存存储：所有 mock repo 共享，便于模拟预加载与级联 ──

type memStore struct {
	teachers map[string]*model.Teacher
	classes  map[string]*model.Class
	students map[string]*model.Student
	surveys  map[string]*model.Survey
	prefs    map[string]*model.StudentPreference
	dislikes []model.StudentDislike
	results  map[string]*model.MatchingResult
	teams    []model.Team

	// 故障注入
	failUpsertFor map[string]error // key: student_id
	failTeamWrite error
}

func newMemStore() *memStore {
	return &memStore{
		teachers:      make(map[string]*model.Teacher),
		classes:       make(map[string]*model.Class),
		students:      make(map[string]*model.Student),
		surveys:       make(map[string]*model.Survey),
		prefs:         make(map[string]*model.StudentPreference),
		results:       make(map[string]*model.MatchingResult),
		failUpsertFor: make(map[string]error),
	}
}

func (s *memStore) repo() *repository.Repository {
	return &repository.Repository{
		Teacher:        &mockTeacherRepo{s},
		Class:          &mockClassRepo{s},
		Student:        &mockStudentRepo{s},
		Survey:         &mockSurveyRepo{s},
		Preference:     &mockPreferenceRepo{s},
		Dislike:        &mockDislikeRepo{s},
		MatchingResult: &mockMatchingResultRepo{s},
		Team:           &mockTeamRepo{s},
	}
}

// prefsOf 问卷下的偏好行（副本）
func (s *memStore) prefsOf(surveyID string) []model.StudentPreference {
	var out []model.StudentPreference
	for _, p := range s.prefs {
		if p.SurveyID == surveyID {
			out = append(out, *p)
		}
	}
	return out
}

func (s *memStore) dislikesOf(prefID string) []model.StudentDislike {
	var out []model.StudentDislike
	for _, d := range s.dislikes {
		if d.PreferenceID == prefID {
			out = append(out, d)
		}
	}
	return out
}

func (s *memStore) teamsOf(resultID string) []model.Team {
	var out []model.Team
	for _, t := range s.teams {
		if t.MatchingResultID == resultID {
			out = append(out, t)
		}
	}
	return out
}

// loadPref 模拟 Preload("Student").Preload("Dislikes.Student")
func (s *memStore) loadPref(p model.StudentPreference) model.StudentPreference {
	if st, ok := s.students[p.StudentID]; ok {
		c := *st
		p.Student = &c
	}
	p.Dislikes = nil
	for _, d := range s.dislikesOf(p.PreferenceID) {
		if st, ok := s.students[d.StudentID]; ok {
			c := *st
			d.Student = &c
		}
		p.Dislikes = append(p.Dislikes, d)
	}
	return p
}

// ── Mock TeacherRepository ──

type mockTeacherRepo struct{ s *memStore }

func (m *mockTeacherRepo) GetByFirebaseUID(_ context.Context, uid string) (*model.Teacher, error) {
	for _, t := range m.s.teachers {
		if t.FirebaseUID == uid {
			c := *t
			return &c, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockTeacherRepo) FirstOrCreate(ctx context.Context, teacher *model.Teacher) error {
	if existing, err := m.GetByFirebaseUID(ctx, teacher.FirebaseUID); err == nil {
		*teacher = *existing
		return nil
	}
	teacher.TeacherID = uuid.NewString()
	c := *teacher
	m.s.teachers[teacher.TeacherID] = &c
	return nil
}

// ── Mock ClassRepository ──

type mockClassRepo struct{ s *memStore }

func (m *mockClassRepo) Create(_ context.Context, class *model.Class) error {
	if class.ClassID == "" {
		class.ClassID = uuid.NewString()
	}
	c := *class
	m.s.classes[class.ClassID] = &c
	return nil
}

func (m *mockClassRepo) GetByID(_ context.Context, id string) (*model.Class, error) {
	if c, ok := m.s.classes[id]; ok {
		cp := *c
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockClassRepo) ListByTeacher(_ context.Context, teacherID string) ([]model.Class, error) {
	var out []model.Class
	for _, c := range m.s.classes {
		if c.TeacherID == teacherID {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// ── Mock StudentRepository ──

type mockStudentRepo struct{ s *memStore }

func (m *mockStudentRepo) BatchCreate(_ context.Context, students []model.Student) error {
	for _, st := range students {
		for _, existing := range m.s.students {
			if existing.ClassID == st.ClassID && existing.StudentNo == st.StudentNo {
				return gorm.ErrDuplicatedKey
			}
		}
	}
	for i := range students {
		if students[i].StudentID == "" {
			students[i].StudentID = uuid.NewString()
		}
		c := students[i]
		m.s.students[c.StudentID] = &c
	}
	return nil
}

func (m *mockStudentRepo) GetByID(_ context.Context, id string) (*model.Student, error) {
	if st, ok := m.s.students[id]; ok {
		c := *st
		return &c, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockStudentRepo) ListByClass(_ context.Context, classID string) ([]model.Student, error) {
	var out []model.Student
	for _, st := range m.s.students {
		if st.ClassID == classID {
			out = append(out, *st)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StudentNo < out[j].StudentNo })
	return out, nil
}

// Delete 模拟外键：偏好与回避关系级联删除，分组行的偏好引用置空
func (m *mockStudentRepo) Delete(_ context.Context, id string) error {
	delete(m.s.students, id)

	removed := make(map[string]bool)
	for pid, p := range m.s.prefs {
		if p.StudentID == id {
			removed[pid] = true
			delete(m.s.prefs, pid)
		}
	}

	kept := m.s.dislikes[:0]
	for _, d := range m.s.dislikes {
		if d.StudentID == id || removed[d.PreferenceID] {
			continue
		}
		kept = append(kept, d)
	}
	m.s.dislikes = kept

	for i := range m.s.teams {
		if p := m.s.teams[i].StudentPreferenceID; p != nil && removed[*p] {
			m.s.teams[i].StudentPreferenceID = nil
		}
	}
	return nil
}

// ── Mock SurveyRepository ──

type mockSurveyRepo struct{ s *memStore }

func (m *mockSurveyRepo) Create(_ context.Context, survey *model.Survey) error {
	if survey.SurveyID == "" {
		survey.SurveyID = uuid.NewString()
	}
	c := *survey
	c.Class = nil
	m.s.surveys[survey.SurveyID] = &c
	return nil
}

func (m *mockSurveyRepo) GetByID(_ context.Context, id string) (*model.Survey, error) {
	sv, ok := m.s.surveys[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	c := *sv
	if class, ok := m.s.classes[sv.ClassID]; ok {
		cc := *class
		c.Class = &cc
	}
	return &c, nil
}

func (m *mockSurveyRepo) ListByClass(_ context.Context, classID string) ([]model.Survey, error) {
	var out []model.Survey
	for _, sv := range m.s.surveys {
		if sv.ClassID == classID {
			out = append(out, *sv)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *mockSurveyRepo) UpdateStatus(_ context.Context, id, status string, surveyContext *string) error {
	sv, ok := m.s.surveys[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	sv.Status = status
	if surveyContext != nil {
		sv.Context = *surveyContext
	}
	return nil
}

// ── Mock PreferenceRepository ──

type mockPreferenceRepo struct{ s *memStore }

func (m *mockPreferenceRepo) Upsert(_ context.Context, pref *model.StudentPreference) (bool, error) {
	if err := m.s.failUpsertFor[pref.StudentID]; err != nil {
		return false, err
	}
	for _, p := range m.s.prefs {
		if p.StudentID == pref.StudentID && p.SurveyID == pref.SurveyID {
			p.MiA, p.MiB, p.MiC, p.MiD = pref.MiA, pref.MiB, pref.MiC, pref.MiD
			p.MiE, p.MiF, p.MiG, p.MiH = pref.MiE, pref.MiF, pref.MiG, pref.MiH
			p.Leader, p.Eyesight, p.PreviousTeam = pref.Leader, pref.Eyesight, pref.PreviousTeam
			pref.PreferenceID = p.PreferenceID
			return false, nil
		}
	}
	pref.PreferenceID = uuid.NewString()
	c := *pref
	m.s.prefs[c.PreferenceID] = &c
	return true, nil
}

func (m *mockPreferenceRepo) GetByID(_ context.Context, id string) (*model.StudentPreference, error) {
	p, ok := m.s.prefs[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	loaded := m.s.loadPref(*p)
	return &loaded, nil
}

func (m *mockPreferenceRepo) ListBySurvey(_ context.Context, surveyID string) ([]model.StudentPreference, error) {
	var out []model.StudentPreference
	for _, p := range m.s.prefsOf(surveyID) {
		out = append(out, m.s.loadPref(p))
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Student.StudentNo < out[j].Student.StudentNo
	})
	return out, nil
}

// ── Mock DislikeRepository ──

type mockDislikeRepo struct{ s *memStore }

func (m *mockDislikeRepo) InsertIgnoreDuplicates(_ context.Context, preferenceID string, studentIDs []string) (int64, error) {
	var n int64
	for _, sid := range studentIDs {
		dup := false
		for _, d := range m.s.dislikes {
			if d.PreferenceID == preferenceID && d.StudentID == sid {
				dup = true
				break
			}
		}
		if dup {
			continue
		}
		m.s.dislikes = append(m.s.dislikes, model.StudentDislike{
			DislikeID:    uuid.NewString(),
			PreferenceID: preferenceID,
			StudentID:    sid,
		})
		n++
	}
	return n, nil
}

func (m *mockDislikeRepo) ReplaceForPreference(ctx context.Context, preferenceID string, studentIDs []string) (int64, error) {
	kept := m.s.dislikes[:0]
	for _, d := range m.s.dislikes {
		if d.PreferenceID != preferenceID {
			kept = append(kept, d)
		}
	}
	m.s.dislikes = kept
	return m.InsertIgnoreDuplicates(ctx, preferenceID, studentIDs)
}

func (m *mockDislikeRepo) ListByPreference(_ context.Context, preferenceID string) ([]model.StudentDislike, error) {
	return m.s.dislikesOf(preferenceID), nil
}

// ── Mock MatchingResultRepository ──

type mockMatchingResultRepo struct{ s *memStore }

func (m *mockMatchingResultRepo) Create(_ context.Context, result *model.MatchingResult) error {
	result.MatchingResultID = uuid.NewString()
	c := *result
	m.s.results[c.MatchingResultID] = &c
	return nil
}

func (m *mockMatchingResultRepo) GetByID(_ context.Context, id string) (*model.MatchingResult, error) {
	if r, ok := m.s.results[id]; ok {
		c := *r
		return &c, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockMatchingResultRepo) sorted(surveyID string) []model.MatchingResult {
	var out []model.MatchingResult
	for _, r := range m.s.results {
		if r.SurveyID == surveyID {
			out = append(out, *r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].MatchingResultID > out[j].MatchingResultID
	})
	return out
}

func (m *mockMatchingResultRepo) GetLatestBySurvey(_ context.Context, surveyID string) (*model.MatchingResult, error) {
	all := m.sorted(surveyID)
	if len(all) == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return &all[0], nil
}

func (m *mockMatchingResultRepo) ListBySurvey(_ context.Context, surveyID string, offset, limit int) ([]model.MatchingResult, int64, error) {
	all := m.sorted(surveyID)
	total := int64(len(all))
	if offset >= len(all) {
		return []model.MatchingResult{}, total, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], total, nil
}

func (m *mockMatchingResultRepo) Delete(_ context.Context, id string) error {
	if _, ok := m.s.results[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	kept := m.s.teams[:0]
	for _, t := range m.s.teams {
		if t.MatchingResultID != id {
			kept = append(kept, t)
		}
	}
	m.s.teams = kept
	delete(m.s.results, id)
	return nil
}

// ── Mock TeamRepository ──

type mockTeamRepo struct{ s *memStore }

// BatchCreate 模拟 NOT NULL 外键：父结果必须已存在
func (m *mockTeamRepo) BatchCreate(_ context.Context, teams []model.Team) error {
	if m.s.failTeamWrite != nil {
		return m.s.failTeamWrite
	}
	for _, t := range teams {
		if t.MatchingResultID == "" {
			return pkgerrors.ErrMissingParent
		}
		if _, ok := m.s.results[t.MatchingResultID]; !ok {
			return fmt.Errorf("violates foreign key constraint fk_teams_matching_result: %s", t.MatchingResultID)
		}
	}
	for _, t := range teams {
		t.TeamRowID = uuid.NewString()
		m.s.teams = append(m.s.teams, t)
	}
	return nil
}

func (m *mockTeamRepo) ListByMatchingResult(_ context.Context, matchingResultID string) ([]model.Team, error) {
	out := m.s.teamsOf(matchingResultID)
	for i := range out {
		if id := out[i].StudentPreferenceID; id != nil {
			if p, ok := m.s.prefs[*id]; ok {
				loaded := m.s.loadPref(*p)
				out[i].StudentPreference = &loaded
			}
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].TeamID < out[j].TeamID })
	return out, nil
}

// ── Fake Solver ──

type fakeSolver struct {
	body    string
	err     error
	calls   int
	lastReq *dto.SolverRequest
}

func (f *fakeSolver) Match(_ context.Context, req any, out any) error {
	f.calls++
	if r, ok := req.(*dto.SolverRequest); ok {
		f.lastReq = r
	}
	if f.err != nil {
		return f.err
	}
	return json.Unmarshal([]byte(f.body), out)
}

// ── Fake Blacklist ──

type fakeBlacklist struct {
	jti string
	ttl time.Duration
	err error
}

func (f *fakeBlacklist) BlacklistToken(_ context.Context, jti string, ttl time.Duration) error {
	f.jti, f.ttl = jti, ttl
	return f.err
}

// ── 测试夹具 ──

type fixture struct {
	store    *memStore
	svc      *Service
	solver   *fakeSolver
	teacher  *model.Teacher
	class    *model.Class
	survey   *model.Survey
	students map[int]*model.Student // key: student_no
}

// newFixture 创建一位教师、一个班级、一份问卷及给定学号的学生；性别按学号奇偶交替
func newFixture(t *testing.T, studentNos ...int) *fixture {
	t.Helper()
	store := newMemStore()
	repo := store.repo()
	solver := &fakeSolver{}
	svc := NewService(repo, solver, nil, zap.NewNop())

	// 结果时间单调递增，保证“最新”判定稳定
	clock := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)
	svc.MatchingResult.(*matchingResultService).now = func() time.Time {
		clock = clock.Add(time.Minute)
		return clock
	}

	ctx := context.Background()
	teacher, err := svc.Ownership.ResolveTeacher(ctx, "uid-teacher", "山田")
	if err != nil {
		t.Fatalf("创建教师失败: %v", err)
	}
	class := &model.Class{TeacherID: teacher.TeacherID, Name: "3年A組"}
	_ = repo.Class.Create(ctx, class)
	survey := &model.Survey{ClassID: class.ClassID, Name: "第1回", Status: "open"}
	_ = repo.Survey.Create(ctx, survey)

	f := &fixture{
		store:    store,
		svc:      svc,
		solver:   solver,
		teacher:  teacher,
		class:    class,
		survey:   survey,
		students: make(map[int]*model.Student),
	}
	f.addStudents(t, studentNos...)
	return f
}

func (f *fixture) addStudents(t *testing.T, nos ...int) {
	t.Helper()
	if len(nos) == 0 {
		return
	}
	students := make([]model.Student, 0, len(nos))
	for _, no := range nos {
		students = append(students, model.Student{
			ClassID:   f.class.ClassID,
			StudentNo: no,
			Name:      fmt.Sprintf("生徒%d", no),
			Sex:       no % 2,
		})
	}
	if err := f.store.repo().Student.BatchCreate(context.Background(), students); err != nil {
		t.Fatalf("创建学生失败: %v", err)
	}
	for i := range students {
		st := students[i]
		f.students[st.StudentNo] = &st
	}
}

// otherTeacher 另一位教师（用于越权测试）
func (f *fixture) otherTeacher(t *testing.T) *model.Teacher {
	t.Helper()
	other, err := f.svc.Ownership.ResolveTeacher(context.Background(), "uid-other", "佐藤")
	if err != nil {
		t.Fatalf("创建教师失败: %v", err)
	}
	return other
}

// submission 构造一条按学号引用的偏好提交
func submission(surveyID string, no, miA int, dislikes ...int) dto.PreferenceSubmission {
	refs := make([]model.StudentRef, 0, len(dislikes))
	for _, d := range dislikes {
		refs = append(refs, model.RefByNo(d))
	}
	return dto.PreferenceSubmission{
		Student:  model.RefByNo(no),
		SurveyID: surveyID,
		MiA:      miA,
		Leader:   model.WeightMedium,
		Eyesight: model.WeightLow,
		Dislikes: refs,
	}
}

// seedPreferences 为给定学号写入默认偏好
func (f *fixture) seedPreferences(t *testing.T, nos ...int) {
	t.Helper()
	items := make([]dto.PreferenceSubmission, 0, len(nos))
	for _, no := range nos {
		items = append(items, submission(f.survey.SurveyID, no, no))
	}
	_, err := f.svc.Preference.UpsertBatch(context.Background(), f.teacher.TeacherID,
		&dto.BatchUpsertPreferencesRequest{Preferences: items})
	if err != nil {
		t.Fatalf("写入偏好失败: %v", err)
	}
}

var errStorage = errors.New("storage unavailable")
