package parent

import (
	"context"
	"net/mail"
	"time"

	"github.com/pkg/errors"

	"github.com/charlesacademy/portal/core"
	"github.com/charlesacademy/portal/core/attendance"
	"github.com/charlesacademy/portal/core/fee"
	"github.com/charlesacademy/portal/core/student"
	"github.com/charlesacademy/portal/core/user"
)

var (
	ErrNotFound           = core.NewNotFoundError("parent")
	ErrRegistrationClosed = errors.New("parent registration is closed")
	ErrTooManyParents     = errors.New("this student already has the maximum number of parents registered")
	ErrStudentNotFound    = errors.New("student not found, please check the registration number")
	ErrAlreadyActive      = errors.New("this registration was already approved")
)

type (
	Repository interface {
		CreateParent(ctx context.Context, p Parent) (Parent, error)
		// QueryParents applies AND operation on available QueryFilter fields.
		// QueryFilter.Search does a case-insensitive match on FullName, Email or Phone.
		QueryParents(ctx context.Context, filter *QueryFilter) ([]Parent, error)
		GetParent(ctx context.Context, filter GetFilter) (Parent, error)
		UpdateParent(ctx context.Context, p Parent) (Parent, error)
		DeleteParent(ctx context.Context, id int64) error
		LinkStudents(ctx context.Context, parentID int64, studentIDs ...int64) error
		UnlinkStudents(ctx context.Context, parentID int64, studentIDs ...int64) error
		CountParentsOfStudent(ctx context.Context, studentID int64) (int, error)
	}

	Service interface {
		// Register signs up a parent with an inactive account linked to one student.
		Register(ctx context.Context, r Registration) (Parent, error)
		// Decide approves or rejects a pending registration. Rejected parents are deleted.
		Decide(ctx context.Context, p Parent, d Decision) (Parent, error)
		Create(ctx context.Context, np NewParent) (Account, error)
		Query(ctx context.Context, filter *QueryFilter) ([]Parent, error)
		Get(ctx context.Context, id int64) (Parent, error)
		GetByUserID(ctx context.Context, userID string) (Parent, error)
		Update(ctx context.Context, p Parent, up UpdateParent) (Parent, error)
		SetActive(ctx context.Context, p Parent, sa SetActive) (Parent, error)
		Delete(ctx context.Context, p Parent) error
		LinkStudent(ctx context.Context, p Parent, studentID int64) (Parent, error)
		UnlinkStudent(ctx context.Context, p Parent, studentID int64) (Parent, error)
		Children(ctx context.Context, p Parent) ([]student.Student, error)
		// Child returns one of the parent's children, student.ErrNotFound for anybody else.
		Child(ctx context.Context, p Parent, studentID int64) (student.Student, error)
		Dashboard(ctx context.Context, p Parent) (Dashboard, error)
	}

	service struct {
		repo          Repository
		userSvc       user.Service
		studentSvc    student.Service
		attendanceSvc attendance.Service
		feeSvc        fee.Service
		mailSvc       core.EmailService
		conf          *core.Config
	}
)

var _ Service = (*service)(nil)

func NewService(
	repo Repository,
	userSvc user.Service,
	studentSvc student.Service,
	attendanceSvc attendance.Service,
	feeSvc fee.Service,
	mailSvc core.EmailService,
	conf *core.Config,
) Service {
	return &service{
		repo:          repo,
		userSvc:       userSvc,
		studentSvc:    studentSvc,
		attendanceSvc: attendanceSvc,
		feeSvc:        feeSvc,
		mailSvc:       mailSvc,
		conf:          conf,
	}
}

func (svc *service) sendMail(p Parent, subject, tmpl string, data map[string]interface{}) {
	if p.Email == "" {
		return
	}
	data["Name"] = p.FullName
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: p.FullName, Address: p.Email}},
		Subject:      subject,
		TemplateName: tmpl,
		TemplateData: data,
	})
}

// checkCapacity fails when the student cannot take one more parent.
func (svc *service) checkCapacity(ctx context.Context, field string, studentID int64) error {
	n, err := svc.repo.CountParentsOfStudent(ctx, studentID)
	if err != nil {
		return errors.Wrap(err, "counting parents")
	}
	if n >= svc.conf.Parents.MaxPerStudent {
		return core.NewValidationError(ErrTooManyParents, core.FieldError{Field: field, Error: ErrTooManyParents.Error()})
	}
	return nil
}

func (svc *service) Register(ctx context.Context, r Registration) (Parent, error) {
	if !svc.conf.Parents.RegistrationOpen {
		return Parent{}, ErrRegistrationClosed
	}
	if err := svc.userSvc.CheckUniqueness(ctx, r.Username, r.Email); err != nil {
		return Parent{}, err
	}
	s, err := svc.studentSvc.GetByRegistrationNumber(ctx, r.StudentRegistrationNumber)
	if err != nil {
		if errors.Cause(err) == student.ErrNotFound {
			return Parent{}, core.NewValidationError(ErrStudentNotFound, core.FieldError{Field: "student_registration_number", Error: ErrStudentNotFound.Error()})
		}
		return Parent{}, errors.Wrap(err, "finding student")
	}
	if err = svc.checkCapacity(ctx, "student_registration_number", s.ID); err != nil {
		return Parent{}, err
	}

	nu := r.newUser()
	usr, _, err := svc.userSvc.CreateAccount(ctx, user.NewAccount{
		FirstName: nu.FirstName,
		LastName:  nu.LastName,
		Username:  nu.Username,
		Email:     nu.Email,
		Role:      user.RoleParent,
		IsActive:  false,
		Password:  r.Password,
	})
	if err != nil {
		return Parent{}, err
	}
	p, err := svc.create(ctx, usr, r.Profile, r.Email, false, s.ID)
	if err != nil {
		return Parent{}, err
	}

	svc.sendMail(p, "Parent portal registration received", "parent_registration", map[string]interface{}{
		"StudentName": s.FullName,
	})
	return p, nil
}

// create saves the parent of usr, deleting usr when that fails.
func (svc *service) create(ctx context.Context, usr user.User, pr Profile, email string, active bool, studentIDs ...int64) (Parent, error) {
	now := time.Now().UTC()
	p, err := svc.repo.CreateParent(ctx, Parent{
		UserID:       usr.ID,
		FullName:     pr.FullName,
		Phone:        pr.Phone,
		Email:        email,
		Relationship: pr.Relationship,
		Address:      pr.Address,
		Occupation:   pr.Occupation,
		IsActive:     active,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err == nil && len(studentIDs) > 0 {
		if err = svc.repo.LinkStudents(ctx, p.ID, studentIDs...); err == nil {
			p.StudentIDs = studentIDs
		}
	}
	if err != nil {
		if p.ID > 0 {
			_ = svc.repo.DeleteParent(ctx, p.ID)
		}
		if delErr := svc.userSvc.Delete(ctx, usr.ID); delErr != nil {
			return Parent{}, errors.Wrapf(err, "creating parent (rollback failed: %v)", delErr)
		}
		return Parent{}, errors.Wrap(err, "creating parent")
	}
	return p, nil
}

func (svc *service) Decide(ctx context.Context, p Parent, d Decision) (Parent, error) {
	if d.Action == ActionReject {
		if err := svc.Delete(ctx, p); err != nil {
			return Parent{}, err
		}
		svc.sendMail(p, "Parent portal registration", "parent_rejected", map[string]interface{}{
			"Reason": d.Reason,
		})
		return p, nil
	}

	if p.IsActive {
		return Parent{}, core.NewValidationError(ErrAlreadyActive, core.FieldError{Field: "action", Error: ErrAlreadyActive.Error()})
	}
	active := true
	return svc.SetActive(ctx, p, SetActive{IsActive: &active})
}

func (svc *service) Create(ctx context.Context, np NewParent) (Account, error) {
	for _, id := range np.StudentIDs {
		if _, err := svc.studentSvc.Get(ctx, id); err != nil {
			if errors.Cause(err) == student.ErrNotFound {
				return Account{}, core.NewFieldError("student_ids", "unknown student")
			}
			return Account{}, errors.Wrap(err, "finding student")
		}
		if err := svc.checkCapacity(ctx, "student_ids", id); err != nil {
			return Account{}, err
		}
	}

	first, last := splitName(np.FullName)
	usr, pwd, err := svc.userSvc.CreateAccount(ctx, user.NewAccount{
		FirstName: first,
		LastName:  last,
		Username:  np.Username,
		Email:     np.Email,
		Role:      user.RoleParent,
		IsActive:  true,
	})
	if err != nil {
		return Account{}, err
	}
	p, err := svc.create(ctx, usr, np.Profile, np.Email, true, uniqueIDs(np.StudentIDs)...)
	if err != nil {
		return Account{}, err
	}

	svc.sendMail(p, "Welcome to "+svc.conf.SchoolName+" parent portal", "parent_welcome", map[string]interface{}{})
	return Account{Parent: p, Username: usr.Username, Password: pwd}, nil
}

func (svc *service) Query(ctx context.Context, filter *QueryFilter) ([]Parent, error) {
	if filter != nil {
		filter.Clean()
	}
	return svc.repo.QueryParents(ctx, filter)
}

func (svc *service) Get(ctx context.Context, id int64) (Parent, error) {
	return svc.repo.GetParent(ctx, GetFilter{ID: id})
}

func (svc *service) GetByUserID(ctx context.Context, userID string) (Parent, error) {
	return svc.repo.GetParent(ctx, GetFilter{UserID: userID})
}

func (svc *service) Update(ctx context.Context, p Parent, up UpdateParent) (Parent, error) {
	if up.Email != nil && *up.Email != p.Email {
		usr, err := svc.userSvc.GetByID(ctx, p.UserID)
		if err != nil {
			return Parent{}, errors.Wrap(err, "finding account")
		}
		uu := user.UpdateUser{Username: usr.Username, Email: *up.Email}
		if err = svc.userSvc.CheckUniqueness(ctx, uu.Username, uu.Email, usr); err != nil {
			return Parent{}, err
		}
		if _, err = svc.userSvc.Update(ctx, usr, uu); err != nil {
			return Parent{}, errors.Wrap(err, "updating account email")
		}
		p.Email = *up.Email
	}
	if up.FullName != nil {
		p.FullName = *up.FullName
	}
	if up.Phone != nil {
		p.Phone = *up.Phone
	}
	if up.Relationship != nil {
		p.Relationship = *up.Relationship
	}
	if up.Address != nil {
		p.Address = *up.Address
	}
	if up.Occupation != nil {
		p.Occupation = *up.Occupation
	}
	p.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateParent(ctx, p)
}

// SetActive (de)activates both the parent and its account, and notifies the parent
// when the status changed.
func (svc *service) SetActive(ctx context.Context, p Parent, sa SetActive) (Parent, error) {
	active := *sa.IsActive
	usr, err := svc.userSvc.GetByID(ctx, p.UserID)
	if err != nil {
		return Parent{}, errors.Wrap(err, "finding account")
	}
	if usr.IsActive != active {
		if _, err = svc.userSvc.SetActive(ctx, usr, active); err != nil {
			return Parent{}, errors.Wrap(err, "updating account")
		}
	}
	if p.IsActive == active {
		return p, nil
	}

	p.IsActive = active
	p.UpdatedAt = time.Now().UTC()
	if p, err = svc.repo.UpdateParent(ctx, p); err != nil {
		return Parent{}, err
	}
	svc.sendMail(p, "Account status update - "+svc.conf.SchoolName, "parent_status", map[string]interface{}{
		"Active": active,
		"Reason": sa.Reason,
	})
	return p, nil
}

func (svc *service) Delete(ctx context.Context, p Parent) error {
	if err := svc.repo.DeleteParent(ctx, p.ID); err != nil {
		return errors.Wrap(err, "deleting parent")
	}
	if p.UserID == "" {
		return nil
	}
	return errors.Wrap(svc.userSvc.Delete(ctx, p.UserID), "deleting account")
}

func (svc *service) LinkStudent(ctx context.Context, p Parent, studentID int64) (Parent, error) {
	if p.HasChild(studentID) {
		return p, nil
	}
	if _, err := svc.studentSvc.Get(ctx, studentID); err != nil {
		return Parent{}, err
	}
	if err := svc.checkCapacity(ctx, "student_id", studentID); err != nil {
		return Parent{}, err
	}
	if err := svc.repo.LinkStudents(ctx, p.ID, studentID); err != nil {
		return Parent{}, errors.Wrap(err, "linking student")
	}
	p.StudentIDs = append(p.StudentIDs, studentID)
	return p, nil
}

func (svc *service) UnlinkStudent(ctx context.Context, p Parent, studentID int64) (Parent, error) {
	if !p.HasChild(studentID) {
		return p, nil
	}
	if err := svc.repo.UnlinkStudents(ctx, p.ID, studentID); err != nil {
		return Parent{}, errors.Wrap(err, "unlinking student")
	}
	ids := make([]int64, 0, len(p.StudentIDs))
	for _, id := range p.StudentIDs {
		if id != studentID {
			ids = append(ids, id)
		}
	}
	p.StudentIDs = ids
	return p, nil
}

func (svc *service) Children(ctx context.Context, p Parent) ([]student.Student, error) {
	if len(p.StudentIDs) == 0 {
		return []student.Student{}, nil
	}
	students, err := svc.studentSvc.GetMany(ctx, p.StudentIDs...)
	if err != nil {
		return nil, err
	}
	children := make([]student.Student, 0, len(students))
	for _, id := range p.StudentIDs {
		if s, ok := students[id]; ok {
			children = append(children, s)
		}
	}
	return children, nil
}

func (svc *service) Child(ctx context.Context, p Parent, studentID int64) (student.Student, error) {
	if !p.HasChild(studentID) {
		return student.Student{}, student.ErrNotFound
	}
	return svc.studentSvc.Get(ctx, studentID)
}

func (svc *service) Dashboard(ctx context.Context, p Parent) (Dashboard, error) {
	children, err := svc.Children(ctx, p)
	if err != nil {
		return Dashboard{}, errors.Wrap(err, "finding children")
	}
	fees, err := svc.feeSvc.Summaries(ctx, children...)
	if err != nil {
		return Dashboard{}, errors.Wrap(err, "summarizing fees")
	}

	d := Dashboard{Parent: p, Initials: p.Initials(), Children: make([]ChildSummary, 0, len(children))}
	for i, s := range children {
		att, err := svc.attendanceSvc.StudentSummary(ctx, s.ID)
		if err != nil {
			return Dashboard{}, errors.Wrap(err, "summarizing attendance")
		}
		d.Children = append(d.Children, ChildSummary{Student: s, Attendance: att, Fees: fees[i]})
		d.FamilyBalance += fees[i].Balance
	}
	return d, nil
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
