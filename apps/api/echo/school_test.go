package echoapi_test

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/charlesacademy/portal/core/fee"
	"github.com/charlesacademy/portal/core/school"
	"github.com/charlesacademy/portal/core/user"
)

func Test_schoolApi_announcements(t *testing.T) {
	app := setup(t)
	adminToken := app.adminToken(t)
	_, teacherToken := app.createUser(t, "walter", user.RoleTeacher)

	create := func(i int) school.Announcement {
		rec := app.do(t, http.MethodPost, "/api/announcements", adminToken, school.NewAnnouncement{
			Title:   fmt.Sprintf("Notice %d", i),
			Message: strings.Repeat("x", 150),
		})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		var a school.Announcement
		decode(t, rec, &a)
		return a
	}

	app.run(t, []httpTest{
		{
			name: "Teachers cannot post", method: http.MethodPost, path: "/api/announcements", token: teacherToken,
			body: marshalObj(t, school.NewAnnouncement{Title: "Hi", Message: "Hello"}), wantCode: http.StatusForbidden,
		},
		{
			name: "Blank title", method: http.MethodPost, path: "/api/announcements", token: adminToken,
			body: marshalObj(t, school.NewAnnouncement{Title: "   ", Message: "Hello"}), wantCode: http.StatusBadRequest,
		},
		{name: "Anonymous", path: "/api/announcements", wantCode: http.StatusUnauthorized, wantData: marshalObj(t, errMissingToken)},
	})

	var all []school.Announcement
	for i := 1; i <= 12; i++ {
		all = append(all, create(i))
	}
	first, last := all[0], all[len(all)-1]

	page := func(t *testing.T, query string) school.AnnouncementPage {
		rec := app.do(t, http.MethodGet, "/api/announcements"+query, teacherToken)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var p school.AnnouncementPage
		decode(t, rec, &p)
		return p
	}

	t.Run("First page", func(t *testing.T) {
		p := page(t, "")
		require.Len(t, p.Results, school.AnnouncementsPerPage)
		assert.Equal(t, last.ID, p.Results[0].ID, "newest first")
		assert.Equal(t, strings.Repeat("x", 100)+"...", p.Results[0].ShortMessage)
		assert.Equal(t, 1, p.Number)
		assert.Equal(t, 12, p.Count)
		assert.Equal(t, 2, p.NumPages)
		assert.True(t, p.HasNext)
		assert.False(t, p.HasPrevious)
	})

	t.Run("Out of range page", func(t *testing.T) {
		for _, q := range []string{"?page=2", "?page=99"} {
			p := page(t, q)
			require.Len(t, p.Results, 2, q)
			assert.Equal(t, 2, p.Number, q)
			assert.Equal(t, first.ID, p.Results[1].ID, q)
			assert.False(t, p.HasNext, q)
			assert.True(t, p.HasPrevious, q)
		}
	})

	t.Run("Detail", func(t *testing.T) {
		rec := app.do(t, http.MethodGet, fmt.Sprintf("/api/announcements/%d", all[5].ID), teacherToken)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var d school.AnnouncementDetail
		decode(t, rec, &d)
		require.NotNil(t, d.Next)
		require.NotNil(t, d.Previous)
		assert.Equal(t, all[4].ID, d.Next.ID)
		assert.Equal(t, all[6].ID, d.Previous.ID)

		rec = app.do(t, http.MethodGet, fmt.Sprintf("/api/announcements/%d", first.ID), teacherToken)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		d = school.AnnouncementDetail{}
		decode(t, rec, &d)
		assert.Nil(t, d.Next)
		require.NotNil(t, d.Previous)
	})

	t.Run("Update", func(t *testing.T) {
		rec := app.do(t, http.MethodPut, fmt.Sprintf("/api/announcements/%d", first.ID), adminToken, school.NewAnnouncement{Title: "Closing day", Message: "Friday"})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var a school.Announcement
		decode(t, rec, &a)
		assert.Equal(t, "Closing day", a.Title)
		assert.True(t, first.CreatedAt.Equal(a.CreatedAt))
	})

	path := fmt.Sprintf("/api/announcements/%d", first.ID)
	app.run(t, []httpTest{
		{name: "Teachers cannot delete", method: http.MethodDelete, path: path, token: teacherToken, wantCode: http.StatusForbidden},
		{name: "Delete", method: http.MethodDelete, path: path, token: adminToken, wantCode: http.StatusNoContent},
		{name: "Deleted", path: path, token: adminToken, wantCode: http.StatusNotFound},
	})
}

func Test_schoolApi_settings(t *testing.T) {
	app := setup(t)
	adminToken := app.adminToken(t)
	_, token := app.createUser(t, "penny", user.RoleAccountant)

	rec := app.do(t, http.MethodGet, "/api/settings", token)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var s school.Settings
	decode(t, rec, &s)
	assert.Equal(t, school.DefaultSettings(), s)

	name := "Charles Academy Moshi"
	color := "#112233"
	app.run(t, []httpTest{
		{
			name: "Admins only", method: http.MethodPut, path: "/api/settings", token: token,
			body: marshalObj(t, school.UpdateSettings{Name: &name}), wantCode: http.StatusForbidden,
		},
		{
			name: "Bad color", method: http.MethodPut, path: "/api/settings", token: adminToken,
			body: []byte(`{"theme_color": "blue"}`), wantCode: http.StatusBadRequest,
		},
	})

	rec = app.do(t, http.MethodPut, "/api/settings", adminToken, school.UpdateSettings{Name: &name, ThemeColor: &color})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	decode(t, rec, &s)
	assert.Equal(t, name, s.Name)
	assert.Equal(t, color, s.ThemeColor)
	assert.Equal(t, school.DefaultSettings().ContactEmail, s.ContactEmail, "untouched")
}

func Test_schoolApi_dashboard(t *testing.T) {
	app := setup(t)
	adminToken := app.adminToken(t)
	_, teacherToken := app.createUser(t, "walter", user.RoleTeacher)
	c, _ := app.createClass(t, "Form One", "F1", "Mathematics", "English")
	amani := app.createStudent(t, "Amani Juma", c.ID).Student
	app.createStudent(t, "Baraka Mosha", c.ID)
	app.createTeacher(t, "Neema", "Kimaro", "neema@charles.ac.tz", c.ID)

	ctx := context.Background()
	_, err := app.env.FeeSvc.RecordPayment(ctx, fee.NewPayment{StudentID: amani.ID, AmountPaid: 120000})
	require.NoError(t, err)
	_, err = app.env.SchoolSvc.CreateAnnouncement(ctx, school.NewAnnouncement{Title: "Welcome", Message: "Term starts Monday"})
	require.NoError(t, err)

	assert.Equal(t, http.StatusForbidden, app.do(t, http.MethodGet, "/api/dashboard", teacherToken).Code)

	rec := app.do(t, http.MethodGet, "/api/dashboard", adminToken)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var st school.Stats
	decode(t, rec, &st)
	assert.Equal(t, 2, st.Students)
	assert.Equal(t, 1, st.Teachers)
	assert.Equal(t, 1, st.Classes)
	assert.Equal(t, 2, st.Subjects)
	assert.Equal(t, int64(120000), st.FeesCollected)
	assert.Equal(t, 1, st.Announcements)
	require.Len(t, st.LatestAnnouncements, 1)
	assert.Equal(t, "Welcome", st.LatestAnnouncements[0].Title)
}

func Test_metrics(t *testing.T) {
	app := setup(t)
	app.do(t, http.MethodGet, "/", "")

	rec := app.do(t, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "portal_http_requests_total")
}
