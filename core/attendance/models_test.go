package attendance

import (
	"testing"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/charlesacademy/portal/core"
)

func TestDay(t *testing.T) {
	eat := time.FixedZone("EAT", 3*60*60)
	want := time.Date(2024, time.March, 4, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, want, Day(time.Date(2024, time.March, 4, 23, 59, 0, 0, time.UTC)))
	assert.Equal(t, want, Day(time.Date(2024, time.March, 4, 1, 0, 0, 0, eat)), "calendar day of the given zone")
}

func TestSummarize(t *testing.T) {
	tests := []struct {
		name     string
		statuses []string
		want     Summary
	}{
		{name: "none", want: Summary{}},
		{
			name:     "all present",
			statuses: []string{StatusPresent, StatusPresent},
			want:     Summary{Present: 2, Total: 2, Percentage: 100},
		},
		{
			name:     "late is not present",
			statuses: []string{StatusPresent, StatusLate, StatusAbsent},
			want:     Summary{Present: 1, Absent: 1, Late: 1, Total: 3, Percentage: 33.3},
		},
		{
			name:     "rounded",
			statuses: []string{StatusPresent, StatusPresent, StatusAbsent},
			want:     Summary{Present: 2, Absent: 1, Total: 3, Percentage: 66.7},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Summarize(tt.statuses...))
		})
	}
}

func TestQueryFilter_Clean(t *testing.T) {
	qf := QueryFilter{Date: time.Date(2024, time.March, 4, 10, 0, 0, 0, time.UTC), PersonID: 7}
	qf.Clean()
	assert.Equal(t, time.Date(2024, time.March, 4, 0, 0, 0, 0, time.UTC), qf.From)
	assert.Equal(t, time.Date(2024, time.March, 5, 0, 0, 0, 0, time.UTC), qf.To)
	assert.Equal(t, []int64{7}, qf.PersonIDs)

	qf = QueryFilter{Month: 2, Year: 2024}
	qf.Clean()
	assert.Equal(t, time.Date(2024, time.February, 1, 0, 0, 0, 0, time.UTC), qf.From)
	assert.Equal(t, time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC), qf.To)

	qf = QueryFilter{Year: 2023}
	qf.Clean()
	assert.Equal(t, time.Date(2023, time.January, 1, 0, 0, 0, 0, time.UTC), qf.From)
	assert.Equal(t, time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC), qf.To)
}

func TestMark_Validate(t *testing.T) {
	_en := en.New()
	translator, _ := ut.New(_en, _en).GetTranslator("en")
	validate := validator.New()
	core.InitValidators(validate, translator)

	m := Mark{Statuses: map[int64]string{1: " present", 2: "late", 3: "  "}}
	require.NoError(t, m.Validate(validate))
	assert.Equal(t, map[int64]string{1: StatusPresent, 2: StatusLate}, m.Statuses, "blank statuses skipped")
	assert.Equal(t, Day(time.Now()), m.Date)

	m = Mark{Statuses: map[int64]string{1: "excused"}}
	assert.Error(t, m.Validate(validate))
	m = Mark{Statuses: map[int64]string{0: StatusPresent}}
	assert.Error(t, m.Validate(validate))
}
