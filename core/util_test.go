package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCleanString(t *testing.T) {
	assert.Equal(t, "Form One", CleanString("  Form One \n"))
	assert.Equal(t, "jane@mail.co.tz", CleanString(" Jane@Mail.co.tz ", true))
	assert.Equal(t, "", CleanString("   "))
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		s    string
		n    int
		want string
	}{
		{s: "short", n: 10, want: "short"},
		{s: "exactly10!", n: 10, want: "exactly10!"},
		{s: "a bit too long", n: 5, want: "a bit..."},
		{s: "Habari za asubuhi", n: 6, want: "Habari..."},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Truncate(tt.s, tt.n), tt.s)
	}
}

func TestNewPageInfo(t *testing.T) {
	tests := []struct {
		name  string
		page  Page
		count int
		want  PageInfo
	}{
		{
			name: "empty", page: Page{Number: 1, Size: 10}, count: 0,
			want: PageInfo{Number: 1, Size: 10, NumPages: 1},
		},
		{
			name: "first of three", page: Page{Number: 1, Size: 10}, count: 25,
			want: PageInfo{Number: 1, Size: 10, Count: 25, NumPages: 3, HasNext: true},
		},
		{
			name: "last", page: Page{Number: 3, Size: 10}, count: 25,
			want: PageInfo{Number: 3, Size: 10, Count: 25, NumPages: 3, HasPrevious: true},
		},
		{
			name: "below one", page: Page{Number: -4, Size: 10}, count: 25,
			want: PageInfo{Number: 1, Size: 10, Count: 25, NumPages: 3, HasNext: true},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NewPageInfo(tt.page, tt.count))
		})
	}

	assert.Equal(t, 20, Page{Number: 3, Size: 10}.Offset())
	assert.Equal(t, 0, Page{Size: 10}.Offset())
}
