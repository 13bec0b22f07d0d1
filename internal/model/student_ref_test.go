package model

import (
	"encoding/json"
	"errors"
	"testing"
)

const testStudentUUID = "6f1c2a9e-3b4d-4c5e-8f70-112233445566"

func TestStudentRef_UnmarshalJSON(t *testing.T) {
	var refs []StudentRef
	body := `[3, "7", "` + testStudentUUID + `"]`
	if err := json.Unmarshal([]byte(body), &refs); err != nil {
		t.Fatalf("解码失败: %v", err)
	}
	if no, ok := refs[0].No(); !ok || no != 3 {
		t.Errorf("期望 ByNo(3)，实际=%s", refs[0])
	}
	if no, ok := refs[1].No(); !ok || no != 7 {
		t.Errorf("期望数字字符串解析为 ByNo(7)，实际=%s", refs[1])
	}
	if id, ok := refs[2].ID(); !ok || id != testStudentUUID {
		t.Errorf("期望 ByID，实际=%s", refs[2])
	}
}

func TestStudentRef_UnmarshalJSON_Invalid(t *testing.T) {
	for _, body := range []string{`"abc"`, `1.5`, `null`, `{}`} {
		var ref StudentRef
		if err := json.Unmarshal([]byte(body), &ref); err == nil {
			t.Errorf("期望 %s 解码失败", body)
		}
	}
}

func TestStudentRef_MarshalJSON(t *testing.T) {
	b, _ := json.Marshal([]StudentRef{RefByNo(2), RefByID(testStudentUUID)})
	want := `[2,"` + testStudentUUID + `"]`
	if string(b) != want {
		t.Errorf("期望 %s，实际 %s", want, b)
	}
}

func TestStudentIndex_Resolve(t *testing.T) {
	x := NewStudentIndex(2)
	x.Add(1, testStudentUUID, "pref-1")

	if v, ok := x.Resolve(RefByNo(1)); !ok || v != "pref-1" {
		t.Errorf("序号引用应命中，实际 ok=%v v=%s", ok, v)
	}
	if v, ok := x.Resolve(RefByID("6F1C2A9E-3B4D-4C5E-8F70-112233445566")); !ok || v != "pref-1" {
		t.Errorf("ID 引用应忽略大小写命中，实际 ok=%v v=%s", ok, v)
	}
	if _, ok := x.Resolve(RefByNo(2)); ok {
		t.Error("未登记序号不应命中")
	}
	if _, ok := x.Resolve(StudentRef{}); ok {
		t.Error("零值引用不应命中")
	}
}

func TestConstraint_Validate(t *testing.T) {
	zero := 0
	neg := -0.5
	cases := []struct {
		c    Constraint
		want error
	}{
		{Constraint{}, nil},
		{Constraint{MaxNumTeams: &zero}, ErrConstraintTeamCount},
		{Constraint{MembersPerTeam: &zero}, ErrConstraintTeamSize},
		{Constraint{GirlGeqBoy: true, BoyGeqGirl: true}, ErrConstraintSexConflict},
		{Constraint{GroupDiffCoeff: &neg}, ErrConstraintDiffCoeff},
	}
	for i, tc := range cases {
		if err := tc.c.Validate(); !errors.Is(err, tc.want) {
			t.Errorf("case %d: 期望 %v，实际 %v", i, tc.want, err)
		}
	}
}

func TestMatchingResult_ConstraintRoundTrip(t *testing.T) {
	n := 4
	c := Constraint{MembersPerTeam: &n, AtLeastOneLeader: true}
	var m MatchingResult
	m.ApplyConstraint(c)
	got := m.Constraint()
	if got.MembersPerTeam == nil || *got.MembersPerTeam != 4 || !got.AtLeastOneLeader {
		t.Errorf("约束还原不一致: %+v", got)
	}
}
