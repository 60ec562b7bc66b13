package teacher

import (
	"context"
	"net/mail"
	"time"

	"github.com/pkg/errors"

	"github.com/charlesacademy/portal/core"
	"github.com/charlesacademy/portal/core/classroom"
	"github.com/charlesacademy/portal/core/user"
)

var (
	ErrNotFound    = core.NewNotFoundError("teacher")
	ErrEmailExists = errors.New("a teacher with this email already exists")
)

type (
	Repository interface {
		CreateTeacher(ctx context.Context, t Teacher) (Teacher, error)
		// QueryTeachers applies AND operation on available QueryFilter fields.
		// QueryFilter.Search does a case-insensitive match on one of the names or Email.
		QueryTeachers(ctx context.Context, filter *QueryFilter) ([]Teacher, error)
		GetTeacher(ctx context.Context, id int64) (Teacher, error)
		GetTeacherByEmail(ctx context.Context, email string) (Teacher, error)
		UpdateTeacher(ctx context.Context, t Teacher) (Teacher, error)
		DeleteTeacher(ctx context.Context, id int64) error
		CountTeachers(ctx context.Context) (int, error)
	}

	Service interface {
		// Create adds a teacher and opens its TEACHER account (username = email).
		Create(ctx context.Context, nt NewTeacher) (Account, error)
		Query(ctx context.Context, filter *QueryFilter) ([]Teacher, error)
		Get(ctx context.Context, id int64) (Teacher, error)
		GetDetail(ctx context.Context, id int64) (Detail, error)
		// ForUser resolves the teacher of a logged in TEACHER user through its email.
		ForUser(ctx context.Context, usr user.User) (Detail, error)
		Update(ctx context.Context, t Teacher, ut UpdateTeacher) (Teacher, error)
		Delete(ctx context.Context, t Teacher) error
		Count(ctx context.Context) (int, error)
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

func (svc *service) checkEmail(ctx context.Context, email string, exclID int64) error {
	t, err := svc.repo.GetTeacherByEmail(ctx, email)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return nil
		}
		return errors.Wrap(err, "finding teacher by email")
	}
	if t.ID != exclID {
		return core.NewValidationError(ErrEmailExists, core.FieldError{Field: "email", Error: ErrEmailExists.Error()})
	}
	return nil
}

// checkRefs makes sure every referenced subject and classroom exists.
func (svc *service) checkRefs(ctx context.Context, subjectIDs, classroomIDs []int64) error {
	if len(subjectIDs) > 0 {
		subjects, err := svc.classSvc.GetSubjects(ctx, subjectIDs...)
		if err != nil {
			return errors.Wrap(err, "finding subjects")
		}
		if len(subjects) != len(uniqueIDs(subjectIDs)) {
			return core.NewFieldError("subject_ids", "unknown subject")
		}
	}
	if len(classroomIDs) > 0 {
		classes, err := svc.classSvc.GetMany(ctx, classroomIDs...)
		if err != nil {
			return errors.Wrap(err, "finding classrooms")
		}
		if len(classes) != len(uniqueIDs(classroomIDs)) {
			return core.NewFieldError("classroom_ids", "unknown class")
		}
	}
	return nil
}

func (svc *service) Create(ctx context.Context, nt NewTeacher) (Account, error) {
	if err := svc.checkEmail(ctx, nt.Email, 0); err != nil {
		return Account{}, err
	}
	if err := svc.checkRefs(ctx, nt.SubjectIDs, nt.ClassroomIDs); err != nil {
		return Account{}, err
	}

	usr, pwd, err := svc.userSvc.CreateAccount(ctx, user.NewAccount{
		FirstName: nt.FirstName,
		LastName:  nt.LastName,
		Username:  nt.Email,
		Email:     nt.Email,
		Role:      user.RoleTeacher,
		IsActive:  true,
	})
	if err != nil {
		return Account{}, err
	}

	t, err := svc.repo.CreateTeacher(ctx, Teacher{
		FirstName:    nt.FirstName,
		LastName:     nt.LastName,
		Email:        nt.Email,
		Phone:        nt.Phone,
		SubjectIDs:   uniqueIDs(nt.SubjectIDs),
		ClassroomIDs: uniqueIDs(nt.ClassroomIDs),
		IsAvailable:  true,
		CreatedAt:    time.Now().UTC(),
	})
	if err != nil {
		if delErr := svc.userSvc.Delete(ctx, usr.ID); delErr != nil {
			return Account{}, errors.Wrapf(err, "creating teacher (rollback failed: %v)", delErr)
		}
		return Account{}, errors.Wrap(err, "creating teacher")
	}

	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: t.FullName(), Address: t.Email}},
		Subject:      "Your " + svc.conf.SchoolName + " teacher account",
		TemplateName: "account_credentials",
		TemplateData: map[string]interface{}{
			"Name":     t.FullName(),
			"Role":     "teacher",
			"Username": usr.Username,
			"Password": pwd,
		},
	})
	return Account{Teacher: t, Username: usr.Username, Password: pwd}, nil
}

func (svc *service) Query(ctx context.Context, filter *QueryFilter) ([]Teacher, error) {
	if filter != nil {
		filter.Clean()
	}
	return svc.repo.QueryTeachers(ctx, filter)
}

func (svc *service) Get(ctx context.Context, id int64) (Teacher, error) {
	return svc.repo.GetTeacher(ctx, id)
}

func (svc *service) detail(ctx context.Context, t Teacher) (Detail, error) {
	d := Detail{Teacher: t, Subjects: []classroom.Subject{}, ClassRooms: []classroom.ClassRoom{}}
	if len(t.SubjectIDs) > 0 {
		subjects, err := svc.classSvc.GetSubjects(ctx, t.SubjectIDs...)
		if err != nil {
			return Detail{}, errors.Wrap(err, "finding subjects")
		}
		d.Subjects = subjects
	}
	if len(t.ClassroomIDs) > 0 {
		classes, err := svc.classSvc.GetMany(ctx, t.ClassroomIDs...)
		if err != nil {
			return Detail{}, errors.Wrap(err, "finding classrooms")
		}
		for _, id := range t.ClassroomIDs {
			if c, ok := classes[id]; ok {
				d.ClassRooms = append(d.ClassRooms, c)
			}
		}
	}
	return d, nil
}

func (svc *service) GetDetail(ctx context.Context, id int64) (Detail, error) {
	t, err := svc.repo.GetTeacher(ctx, id)
	if err != nil {
		return Detail{}, err
	}
	return svc.detail(ctx, t)
}

func (svc *service) ForUser(ctx context.Context, usr user.User) (Detail, error) {
	t, err := svc.repo.GetTeacherByEmail(ctx, usr.Email)
	if err != nil {
		return Detail{}, err
	}
	return svc.detail(ctx, t)
}

func (svc *service) Update(ctx context.Context, t Teacher, ut UpdateTeacher) (Teacher, error) {
	var usr *user.User
	if ut.Email != nil && *ut.Email != t.Email {
		if err := svc.checkEmail(ctx, *ut.Email, t.ID); err != nil {
			return Teacher{}, err
		}
		acc, err := svc.account(ctx, t.Email)
		if err != nil {
			return Teacher{}, err
		}
		usr = acc
	}
	var subjectIDs, classroomIDs []int64
	if ut.SubjectIDs != nil {
		subjectIDs = *ut.SubjectIDs
	}
	if ut.ClassroomIDs != nil {
		classroomIDs = *ut.ClassroomIDs
	}
	if err := svc.checkRefs(ctx, subjectIDs, classroomIDs); err != nil {
		return Teacher{}, err
	}

	if usr != nil {
		// the account logs in with the teacher's email
		uu := user.UpdateUser{Username: usr.Username, Email: *ut.Email}
		if usr.Username == t.Email {
			uu.Username = *ut.Email
		}
		if err := svc.userSvc.CheckUniqueness(ctx, uu.Username, uu.Email, *usr); err != nil {
			return Teacher{}, err
		}
		if _, err := svc.userSvc.Update(ctx, *usr, uu); err != nil {
			return Teacher{}, errors.Wrap(err, "updating account email")
		}
	}
	if ut.Email != nil {
		t.Email = *ut.Email
	}
	if ut.FirstName != nil {
		t.FirstName = *ut.FirstName
	}
	if ut.LastName != nil {
		t.LastName = *ut.LastName
	}
	if ut.Phone != nil {
		t.Phone = *ut.Phone
	}
	if ut.IsAvailable != nil {
		t.IsAvailable = *ut.IsAvailable
	}
	if ut.SubjectIDs != nil {
		t.SubjectIDs = uniqueIDs(subjectIDs)
	}
	if ut.ClassroomIDs != nil {
		t.ClassroomIDs = uniqueIDs(classroomIDs)
	}
	return svc.repo.UpdateTeacher(ctx, t)
}

// Delete removes the teacher and, when there is one, the account sharing its email.
func (svc *service) Delete(ctx context.Context, t Teacher) error {
	if err := svc.repo.DeleteTeacher(ctx, t.ID); err != nil {
		return errors.Wrap(err, "deleting teacher")
	}
	usr, err := svc.account(ctx, t.Email)
	if err != nil || usr == nil {
		return err
	}
	return errors.Wrap(svc.userSvc.Delete(ctx, usr.ID), "deleting account")
}

// account returns the TEACHER user registered with email, nil when there is none.
func (svc *service) account(ctx context.Context, email string) (*user.User, error) {
	usr, err := svc.userSvc.GetByEmail(ctx, email)
	if err != nil {
		if errors.Cause(err) == user.ErrNotFound {
			return nil, nil
		}
		return nil, errors.Wrap(err, "finding account")
	}
	if !usr.IsTeacher() {
		return nil, nil
	}
	return &usr, nil
}

func (svc *service) Count(ctx context.Context) (int, error) {
	return svc.repo.CountTeachers(ctx)
}

func uniqueIDs(ids []int64) []int64 {
	seen := make(map[int64]bool, len(ids))
	res := make([]int64, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			res = append(res, id)
		}
	}
	return res
}
