package parent

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		phone string
		want  string
	}{
		{phone: "", want: ""},
		{phone: " 0712345678 ", want: "+255712345678"},
		{phone: "+255712345678", want: "+255712345678"},
		{phone: "255712345678", want: "+255712345678"},
		{phone: "+254700000000", want: "+254700000000"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizePhone(tt.phone), tt.phone)
	}
}

func TestParent_Initials(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{name: "Rehema Juma", want: "RJ"},
		{name: "rehema binti juma", want: "RJ"},
		{name: "Mwanaisha", want: "MW"},
		{name: "Li", want: "LI"},
		{name: "Ölund Åsa", want: "ÖÅ"},
		{name: "", want: ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Parent{FullName: tt.name}.Initials(), tt.name)
	}
}

func TestParent_HasChild(t *testing.T) {
	p := Parent{StudentIDs: []int64{3, 9}}
	assert.True(t, p.HasChild(9))
	assert.False(t, p.HasChild(4))
	assert.False(t, Parent{}.HasChild(3))
}
