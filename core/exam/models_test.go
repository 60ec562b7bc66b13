package exam

import (
	"strings"
	"testing"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/charlesacademy/portal/core"
)

func newValidator() *validator.Validate {
	_en := en.New()
	translator, _ := ut.New(_en, _en).GetTranslator("en")
	validate := validator.New()
	core.InitValidators(validate, translator)
	return validate
}

func TestGradeFor(t *testing.T) {
	tests := []struct {
		marks  float64
		letter string
		remark string
	}{
		{100, "A", "Excellent"},
		{80, "A", "Excellent"},
		{79.99, "B", "Very Good"},
		{70, "B", "Very Good"},
		{65, "C", "Good"},
		{50, "D", "Fair"},
		{40, "E", "Pass"},
		{39.5, "F", "Fail"},
		{0, "F", "Fail"},
	}
	for _, tt := range tests {
		g := GradeFor(tt.marks)
		assert.Equal(t, tt.letter, g.Letter, "marks %v", tt.marks)
		assert.Equal(t, tt.remark, g.Remark, "marks %v", tt.marks)
	}
	assert.Equal(t, "C", Result{Marks: 60}.Grade().Letter)
}

func TestGradeFor_ladder(t *testing.T) {
	rank := func(letter string) int { return strings.Index("FEDCBA", letter) }

	prev := -1
	seen := map[string]bool{}
	for i := 0; i <= 10000; i++ {
		marks := float64(i) / 100
		g := GradeFor(marks)
		r := rank(g.Letter)
		require.True(t, g.Letter != "" && r >= 0, "no grade for %v", marks)
		require.GreaterOrEqual(t, r, prev, "grade drops at %v", marks)
		prev = r
		seen[g.Letter] = true
	}
	assert.Len(t, seen, 6, "every grade is reachable")
}

func TestGradeLetter(t *testing.T) {
	assert.Equal(t, "-", gradeLetter(0, 0), "no results")
	assert.Equal(t, "B", gradeLetter(145, 2))
	assert.Equal(t, 72.5, average(145, 2))
	assert.Equal(t, 66.67, average(200, 3))
}

func TestSheetKey(t *testing.T) {
	key := SheetKey(3, 5)
	assert.Equal(t, "3_5", key)

	st, sub, err := parseSheetKey(key)
	require.NoError(t, err)
	assert.Equal(t, int64(3), st)
	assert.Equal(t, int64(5), sub)

	for _, bad := range []string{"", "3", "3_5_7", "a_5", "3_b"} {
		_, _, err = parseSheetKey(bad)
		assert.Error(t, err, bad)
	}
}

func TestNewExam_Validate(t *testing.T) {
	validate := newValidator()

	ne := NewExam{Name: " Weekly quiz ", ClassroomID: 1, Date: time.Date(2024, time.May, 3, 14, 0, 0, 0, time.UTC)}
	require.NoError(t, ne.Validate(validate))
	assert.Equal(t, "Weekly quiz", ne.Name)
	assert.Equal(t, TypeMonthly, ne.ExamType, "default type")
	assert.Equal(t, time.Date(2024, time.May, 3, 0, 0, 0, 0, time.UTC), ne.Date)

	ne = NewExam{Name: "Mock", ClassroomID: 1, ExamType: "quiz"}
	assert.Error(t, ne.Validate(validate))
	assert.False(t, ne.Date.IsZero(), "defaults to today")

	n := func(i int) *int { return &i }
	em := EnterMarks{Marks: map[string]*int{"1_1": n(100), "1_2": n(0), "1_3": nil}}
	assert.NoError(t, em.Validate(validate))
	em = EnterMarks{Marks: map[string]*int{"1_1": n(-1)}}
	assert.Error(t, em.Validate(validate))
}
