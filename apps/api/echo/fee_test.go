package echoapi_test

import (
	"bytes"
	"fmt"
	"net/http"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	echoapi "github.com/charlesacademy/portal/apps/api/echo"
	"github.com/charlesacademy/portal/core/fee"
	"github.com/charlesacademy/portal/core/user"
)

func Test_feeApi(t *testing.T) {
	app := setup(t)
	_, teacherToken := app.createUser(t, "walter", user.RoleTeacher)
	_, token := app.createUser(t, "penny", user.RoleAccountant)
	c, _ := app.createClass(t, "Form One", "F1")
	other, _ := app.createClass(t, "Form Two", "F2")
	amani := app.createStudent(t, "Amani Juma", c.ID).Student
	baraka := app.createStudent(t, "Baraka Mosha", c.ID).Student
	app.createStudent(t, "Chausiku Said", other.ID)
	i64 := func(i int64) *int64 { return &i }

	app.run(t, []httpTest{
		{
			name: "Teachers are not bursars", method: http.MethodPost, path: "/api/fees/structures", token: teacherToken,
			body: marshalObj(t, fee.NewStructure{ClassroomID: c.ID, TotalFee: i64(500000)}), wantCode: http.StatusForbidden,
		},
		{
			name: "Negative fee", method: http.MethodPost, path: "/api/fees/structures", token: token,
			body: marshalObj(t, fee.NewStructure{ClassroomID: c.ID, TotalFee: i64(-1)}), wantCode: http.StatusBadRequest,
		},
		{
			name: "Unknown class", method: http.MethodPost, path: "/api/fees/structures", token: token,
			body: marshalObj(t, fee.NewStructure{ClassroomID: 999, TotalFee: i64(1)}), wantCode: http.StatusBadRequest,
			wantData: []byte(`{"classroom_id": "class does not exist"}`),
		},
		{
			name: "Create", method: http.MethodPost, path: "/api/fees/structures", token: token,
			body: marshalObj(t, fee.NewStructure{ClassroomID: c.ID, TotalFee: i64(500000)}), wantCode: http.StatusCreated,
		},
		{
			name: "One structure per class", method: http.MethodPost, path: "/api/fees/structures", token: token,
			body: marshalObj(t, fee.NewStructure{ClassroomID: c.ID, TotalFee: i64(400000)}), wantCode: http.StatusBadRequest,
		},
	})

	pay := func(studentID, amount int64) (int, fee.Payment) {
		rec := app.do(t, http.MethodPost, "/api/fees/payments", token, fee.NewPayment{StudentID: studentID, AmountPaid: amount})
		var p fee.Payment
		if rec.Code == http.StatusCreated {
			decode(t, rec, &p)
		}
		return rec.Code, p
	}

	code, p := pay(amani.ID, 200000)
	require.Equal(t, http.StatusCreated, code)
	assert.Regexp(t, regexp.MustCompile(`^[0-9A-F]{8}$`), p.ReceiptNo)
	assert.Equal(t, int64(200000), p.AmountPaid)
	assert.False(t, p.Date.IsZero())

	code, _ = pay(amani.ID, 0)
	assert.Equal(t, http.StatusBadRequest, code, "nothing paid")
	code, _ = pay(999, 1000)
	assert.Equal(t, http.StatusBadRequest, code, "unknown student")

	t.Run("Student report", func(t *testing.T) {
		rec := app.do(t, http.MethodGet, fmt.Sprintf("/api/fees/students/%d", amani.ID), token)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var rep fee.StudentReport
		decode(t, rec, &rep)
		assert.Equal(t, int64(500000), rep.TotalFee)
		assert.Equal(t, int64(200000), rep.TotalPaid)
		assert.Equal(t, int64(300000), rep.Balance)
		assert.True(t, rep.HasStructure)
		require.Len(t, rep.Payments, 1)
		assert.Equal(t, p.ReceiptNo, rep.Payments[0].ReceiptNo)
	})

	dueIDs := func(t *testing.T) []int64 {
		rec := app.do(t, http.MethodGet, "/api/fees/due", token)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var due []fee.Summary
		decode(t, rec, &due)
		ids := make([]int64, len(due))
		for i, d := range due {
			ids[i] = d.Student.ID
		}
		return ids
	}

	t.Run("Due list", func(t *testing.T) {
		// classes without fee structure owe nothing
		assert.ElementsMatch(t, []int64{amani.ID, baraka.ID}, dueIDs(t))

		code, _ := pay(baraka.ID, 500000)
		require.Equal(t, http.StatusCreated, code)
		assert.Equal(t, []int64{amani.ID}, dueIDs(t))
	})

	t.Run("Total", func(t *testing.T) {
		rec := app.do(t, http.MethodGet, "/api/fees/total", token)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var resp echoapi.TotalResponse
		decode(t, rec, &resp)
		assert.Equal(t, int64(700000), resp.Total)
	})

	t.Run("Due list XLSX", func(t *testing.T) {
		rec := app.do(t, http.MethodGet, "/api/fees/due/xlsx", token)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", rec.Header().Get("Content-Type"))
		assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("PK")))
	})

	t.Run("Statement PDF", func(t *testing.T) {
		rec := app.do(t, http.MethodGet, fmt.Sprintf("/api/fees/students/%d/statement/pdf", amani.ID), token)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
		assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF")))
	})

	t.Run("Student portal", func(t *testing.T) {
		rec := app.do(t, http.MethodGet, "/api/students/portal/fees", app.studentToken(t, amani))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var rep fee.StudentReport
		decode(t, rec, &rep)
		assert.Equal(t, int64(300000), rep.Balance)
	})
}
