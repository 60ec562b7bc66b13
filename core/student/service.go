package student

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/charlesacademy/portal/core"
	"github.com/charlesacademy/portal/core/classroom"
	"github.com/charlesacademy/portal/core/user"
)

var (
	ErrNotFound    = core.NewNotFoundError("student")
	ErrEmailExists = errors.New("a student with this email already exists")
	ErrRegNoExists = errors.New("a student with this registration number already exists")
)

const regNoPrefix = "CA"

type (
	Repository interface {
		CreateStudent(ctx context.Context, s Student) (Student, error)
		// QueryStudents applies AND operation on available QueryFilter fields.
		// QueryFilter.Search does a case-insensitive match on FullName, Email or RegistrationNumber.
		QueryStudents(ctx context.Context, filter *QueryFilter) ([]Student, error)
		GetStudent(ctx context.Context, filter GetFilter) (Student, error)
		UpdateStudent(ctx context.Context, s Student) (Student, error)
		DeleteStudent(ctx context.Context, id int64) error
		// CountStudents counts the students matching filter. A nil filter counts them all.
		CountStudents(ctx context.Context, filter *QueryFilter) (int, error)
	}

	Service interface {
		// Create enrolls a student, assigns a registration number and opens its STUDENT account.
		Create(ctx context.Context, ns NewStudent) (Account, error)
		Query(ctx context.Context, filter *QueryFilter) ([]Student, error)
		Get(ctx context.Context, id int64) (Student, error)
		GetMany(ctx context.Context, ids ...int64) (map[int64]Student, error)
		GetByUserID(ctx context.Context, userID string) (Student, error)
		GetByRegistrationNumber(ctx context.Context, regNo string) (Student, error)
		Update(ctx context.Context, s Student, us UpdateStudent) (Student, error)
		// Delete removes the student and its login account.
		Delete(ctx context.Context, s Student) error
		Count(ctx context.Context, filter *QueryFilter) (int, error)
		// ForUser returns the student profile of usr, linking an orphan record by name
		// or registration number when none is linked yet.
		ForUser(ctx context.Context, usr user.User) (Student, error)
		NextRegistrationNumber(ctx context.Context, c classroom.ClassRoom, year int) (string, error)
	}

	service struct {
		repo     Repository
		userSvc  user.Service
		classSvc classroom.Service
		mailSvc  core.EmailService
		conf     *core.Config
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, userSvc user.Service, classSvc classroom.Service, mailSvc core.EmailService, conf *core.Config) Service {
	return &service{
		repo:     repo,
		userSvc:  userSvc,
		classSvc: classSvc,
		mailSvc:  mailSvc,
		conf:     conf,
	}
}

// Username derives the login name of a student from its registration number,
// e.g. CA/ENG/2024/0001 -> student_ca_eng_2024_0001.
func Username(regNo string) string {
	return "student_" + strings.ReplaceAll(strings.ToLower(regNo), "/", "_")
}

func (svc *service) NextRegistrationNumber(ctx context.Context, c classroom.ClassRoom, year int) (string, error) {
	n, err := svc.repo.CountStudents(ctx, &QueryFilter{ClassroomID: c.ID, AdmissionYear: year})
	if err != nil {
		return "", errors.Wrap(err, "counting students")
	}
	for seq := n + 1; ; seq++ {
		regNo := fmt.Sprintf("%s/%s/%d/%04d", regNoPrefix, c.Code, year, seq)
		_, err := svc.repo.GetStudent(ctx, GetFilter{RegistrationNumber: regNo})
		if errors.Cause(err) == ErrNotFound {
			return regNo, nil
		}
		if err != nil {
			return "", errors.Wrap(err, "checking registration number")
		}
	}
}

func (svc *service) checkEmail(ctx context.Context, email string, exclID int64) error {
	if email == "" {
		return nil
	}
	s, err := svc.repo.GetStudent(ctx, GetFilter{Email: email})
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return nil
		}
		return errors.Wrap(err, "finding student by email")
	}
	if s.ID != exclID {
		return core.NewValidationError(ErrEmailExists, core.FieldError{Field: "email", Error: ErrEmailExists.Error()})
	}
	return nil
}

func (svc *service) getClassRoom(ctx context.Context, id int64) (classroom.ClassRoom, error) {
	c, err := svc.classSvc.Get(ctx, id)
	if err != nil {
		if errors.Cause(err) == classroom.ErrNotFound {
			return classroom.ClassRoom{}, core.NewFieldError("classroom_id", "class does not exist")
		}
		return classroom.ClassRoom{}, errors.Wrap(err, "finding classroom")
	}
	return c, nil
}

func (svc *service) Create(ctx context.Context, ns NewStudent) (Account, error) {
	c, err := svc.getClassRoom(ctx, ns.ClassroomID)
	if err != nil {
		return Account{}, err
	}
	if err = svc.checkEmail(ctx, ns.Email, 0); err != nil {
		return Account{}, err
	}
	regNo, err := svc.NextRegistrationNumber(ctx, c, ns.AdmissionYear)
	if err != nil {
		return Account{}, err
	}

	now := time.Now().UTC()
	s, err := svc.repo.CreateStudent(ctx, Student{
		FullName:           ns.FullName,
		Email:              ns.Email,
		ClassroomID:        c.ID,
		AdmissionYear:      ns.AdmissionYear,
		RegistrationNumber: regNo,
		Status:             StatusActive,
		CreatedAt:          now,
		UpdatedAt:          now,
	})
	if err != nil {
		return Account{}, errors.Wrap(err, "creating student")
	}

	uname := Username(regNo)
	email := ns.Email
	if email == "" {
		email = uname + "@" + svc.conf.SchoolEmailDomain
	}
	first, last := s.Names()
	usr, pwd, err := svc.userSvc.CreateAccount(ctx, user.NewAccount{
		FirstName: first,
		LastName:  last,
		Username:  uname,
		Email:     email,
		Role:      user.RoleStudent,
		IsActive:  true,
	})
	if err != nil {
		// no half-enrolled students
		if delErr := svc.repo.DeleteStudent(ctx, s.ID); delErr != nil {
			return Account{}, errors.Wrapf(err, "creating account (rollback failed: %v)", delErr)
		}
		return Account{}, errors.Wrap(err, "creating account")
	}

	s.UserID = usr.ID
	if s, err = svc.repo.UpdateStudent(ctx, s); err != nil {
		return Account{}, errors.Wrap(err, "linking account")
	}

	if ns.Email != "" {
		svc.mailSvc.SendMessages(&core.EmailMessage{
			To:           []mail.Address{{Name: s.FullName, Address: ns.Email}},
			Subject:      "Your " + svc.conf.SchoolName + " student account",
			TemplateName: "account_credentials",
			TemplateData: map[string]interface{}{
				"Name":               s.FullName,
				"Role":               "student",
				"Username":           uname,
				"Password":           pwd,
				"RegistrationNumber": regNo,
			},
		})
	}
	return Account{Student: s, Username: uname, Password: pwd}, nil
}

func (svc *service) Query(ctx context.Context, filter *QueryFilter) ([]Student, error) {
	if filter != nil {
		filter.Clean()
	}
	return svc.repo.QueryStudents(ctx, filter)
}

func (svc *service) Get(ctx context.Context, id int64) (Student, error) {
	return svc.repo.GetStudent(ctx, GetFilter{ID: id})
}

func (svc *service) GetMany(ctx context.Context, ids ...int64) (map[int64]Student, error) {
	res := make(map[int64]Student, len(ids))
	if len(ids) == 0 {
		return res, nil
	}
	students, err := svc.repo.QueryStudents(ctx, &QueryFilter{IDs: ids})
	if err != nil {
		return nil, err
	}
	for _, s := range students {
		res[s.ID] = s
	}
	return res, nil
}

func (svc *service) GetByUserID(ctx context.Context, userID string) (Student, error) {
	return svc.repo.GetStudent(ctx, GetFilter{UserID: userID})
}

func (svc *service) GetByRegistrationNumber(ctx context.Context, regNo string) (Student, error) {
	return svc.repo.GetStudent(ctx, GetFilter{RegistrationNumber: strings.ToUpper(core.CleanString(regNo))})
}

func (svc *service) Update(ctx context.Context, s Student, us UpdateStudent) (Student, error) {
	if us.FullName != nil {
		s.FullName = *us.FullName
	}
	if us.Email != nil {
		if err := svc.checkEmail(ctx, *us.Email, s.ID); err != nil {
			return Student{}, err
		}
		s.Email = *us.Email
	}
	if us.ClassroomID != nil {
		c, err := svc.getClassRoom(ctx, *us.ClassroomID)
		if err != nil {
			return Student{}, err
		}
		s.ClassroomID = c.ID
	}
	if us.Status != "" {
		s.Status = us.Status
	}
	s.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateStudent(ctx, s)
}

func (svc *service) Delete(ctx context.Context, s Student) error {
	if err := svc.repo.DeleteStudent(ctx, s.ID); err != nil {
		return errors.Wrap(err, "deleting student")
	}
	if s.UserID != "" {
		return errors.Wrap(svc.userSvc.Delete(ctx, s.UserID), "deleting account")
	}
	return nil
}

func (svc *service) Count(ctx context.Context, filter *QueryFilter) (int, error) {
	return svc.repo.CountStudents(ctx, filter)
}

func (svc *service) ForUser(ctx context.Context, usr user.User) (Student, error) {
	s, err := svc.GetByUserID(ctx, usr.ID)
	if err == nil || errors.Cause(err) != ErrNotFound || !usr.IsStudent() {
		return s, err
	}

	s, err = svc.findOrphan(ctx, usr)
	if err != nil {
		return Student{}, err
	}
	s.UserID = usr.ID
	s.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateStudent(ctx, s)
}

// findOrphan looks for an unlinked student that belongs to usr: exact full name first,
// then a partial name match, then the username taken as a registration number.
func (svc *service) findOrphan(ctx context.Context, usr user.User) (Student, error) {
	orphans, err := svc.repo.QueryStudents(ctx, &QueryFilter{Unlinked: true})
	if err != nil {
		return Student{}, errors.Wrap(err, "querying unlinked students")
	}
	first := strings.ToLower(core.CleanString(usr.FirstName))
	last := strings.ToLower(core.CleanString(usr.LastName))
	regNo := strings.ToUpper(usr.Username)

	matchers := []func(s Student) bool{
		func(s Student) bool {
			return first+last != "" && strings.EqualFold(s.FullName, strings.TrimSpace(first+" "+last))
		},
		func(s Student) bool {
			if first == "" || last == "" {
				return false
			}
			name := strings.ToLower(s.FullName)
			return strings.Contains(name, first) || strings.Contains(name, last)
		},
		func(s Student) bool { return strings.EqualFold(s.RegistrationNumber, regNo) },
		func(s Student) bool { return strings.Contains(strings.ToUpper(s.RegistrationNumber), regNo) },
	}
	for _, match := range matchers {
		for _, s := range orphans {
			if match(s) {
				return s, nil
			}
		}
	}
	return Student{}, ErrNotFound
}
