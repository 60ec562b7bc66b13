package classroom

import (
	"context"

	"github.com/pkg/errors"

	"github.com/charlesacademy/portal/core"
)

var (
	ErrNotFound        = core.NewNotFoundError("classroom")
	ErrSubjectNotFound = core.NewNotFoundError("subject")
	ErrCodeExists      = errors.New("a class with this code already exists")
	ErrSubjectExists   = errors.New("this class already has a subject with this name")
)

type (
	Repository interface {
		CreateClassRoom(ctx context.Context, c ClassRoom) (ClassRoom, error)
		QueryClassRooms(ctx context.Context, filter *QueryFilter) ([]ClassRoom, error)
		GetClassRoom(ctx context.Context, id int64) (ClassRoom, error)
		GetClassRoomByCode(ctx context.Context, code string) (ClassRoom, error)
		UpdateClassRoom(ctx context.Context, c ClassRoom) (ClassRoom, error)
		DeleteClassRoom(ctx context.Context, id int64) error
		CountClassRooms(ctx context.Context) (int, error)

		CreateSubject(ctx context.Context, s Subject) (Subject, error)
		QuerySubjects(ctx context.Context, classroomIDs ...int64) ([]Subject, error)
		GetSubject(ctx context.Context, id int64) (Subject, error)
		GetSubjectsByID(ctx context.Context, ids ...int64) ([]Subject, error)
		UpdateSubject(ctx context.Context, s Subject) (Subject, error)
		DeleteSubject(ctx context.Context, id int64) error
		CountSubjects(ctx context.Context) (int, error)
	}

	Service interface {
		Create(ctx context.Context, nc NewClassRoom) (ClassRoom, error)
		Query(ctx context.Context, filter *QueryFilter) ([]ClassRoom, error)
		Get(ctx context.Context, id int64) (ClassRoom, error)
		GetDetail(ctx context.Context, id int64) (ClassRoomDetail, error)
		GetMany(ctx context.Context, ids ...int64) (map[int64]ClassRoom, error)
		Update(ctx context.Context, c ClassRoom, uc UpdateClassRoom) (ClassRoom, error)
		Delete(ctx context.Context, id int64) error
		Count(ctx context.Context) (int, error)

		CreateSubject(ctx context.Context, classroomID int64, ns NewSubject) (Subject, error)
		QuerySubjects(ctx context.Context, classroomIDs ...int64) ([]Subject, error)
		GetSubject(ctx context.Context, id int64) (Subject, error)
		GetSubjects(ctx context.Context, ids ...int64) ([]Subject, error)
		UpdateSubject(ctx context.Context, s Subject, ns NewSubject) (Subject, error)
		DeleteSubject(ctx context.Context, id int64) error
		CountSubjects(ctx context.Context) (int, error)

		// Seed creates the missing classes and subjects. Existing ones are left untouched.
		Seed(ctx context.Context, classes []SeedClass) (int, int, error)
	}

	service struct {
		repo Repository
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (svc *service) checkCode(ctx context.Context, code string, exclID int64) error {
	c, err := svc.repo.GetClassRoomByCode(ctx, code)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return nil
		}
		return errors.Wrap(err, "finding classroom by code")
	}
	if c.ID != exclID {
		return core.NewValidationError(ErrCodeExists, core.FieldError{Field: "code", Error: ErrCodeExists.Error()})
	}
	return nil
}

func (svc *service) Create(ctx context.Context, nc NewClassRoom) (ClassRoom, error) {
	if err := svc.checkCode(ctx, nc.Code, 0); err != nil {
		return ClassRoom{}, err
	}
	c := ClassRoom{Name: nc.Name, Code: nc.Code, Fee: DefaultFee}
	if nc.Fee != nil {
		c.Fee = *nc.Fee
	}
	return svc.repo.CreateClassRoom(ctx, c)
}

func (svc *service) Query(ctx context.Context, filter *QueryFilter) ([]ClassRoom, error) {
	return svc.repo.QueryClassRooms(ctx, filter)
}

func (svc *service) Get(ctx context.Context, id int64) (ClassRoom, error) {
	return svc.repo.GetClassRoom(ctx, id)
}

func (svc *service) GetDetail(ctx context.Context, id int64) (ClassRoomDetail, error) {
	c, err := svc.repo.GetClassRoom(ctx, id)
	if err != nil {
		return ClassRoomDetail{}, err
	}
	subjects, err := svc.repo.QuerySubjects(ctx, id)
	if err != nil {
		return ClassRoomDetail{}, errors.Wrap(err, "querying subjects")
	}
	return ClassRoomDetail{ClassRoom: c, Subjects: subjects}, nil
}

// GetMany returns the classrooms with the given IDs keyed by ID. Unknown IDs are skipped.
func (svc *service) GetMany(ctx context.Context, ids ...int64) (map[int64]ClassRoom, error) {
	classes, err := svc.repo.QueryClassRooms(ctx, nil)
	if err != nil {
		return nil, errors.Wrap(err, "querying classrooms")
	}
	wanted := make(map[int64]bool, len(ids))
	for _, id := range ids {
		wanted[id] = true
	}
	res := make(map[int64]ClassRoom, len(ids))
	for _, c := range classes {
		if len(ids) == 0 || wanted[c.ID] {
			res[c.ID] = c
		}
	}
	return res, nil
}

func (svc *service) Update(ctx context.Context, c ClassRoom, uc UpdateClassRoom) (ClassRoom, error) {
	if uc.Code != nil && *uc.Code != c.Code {
		if err := svc.checkCode(ctx, *uc.Code, c.ID); err != nil {
			return ClassRoom{}, err
		}
		c.Code = *uc.Code
	}
	if uc.Name != nil {
		c.Name = *uc.Name
	}
	if uc.Fee != nil {
		c.Fee = *uc.Fee
	}
	return svc.repo.UpdateClassRoom(ctx, c)
}

func (svc *service) Delete(ctx context.Context, id int64) error {
	return svc.repo.DeleteClassRoom(ctx, id)
}

func (svc *service) Count(ctx context.Context) (int, error) {
	return svc.repo.CountClassRooms(ctx)
}

func (svc *service) checkSubject(ctx context.Context, classroomID int64, name string, exclID int64) error {
	subjects, err := svc.repo.QuerySubjects(ctx, classroomID)
	if err != nil {
		return errors.Wrap(err, "querying subjects")
	}
	for _, s := range subjects {
		if s.ID != exclID && core.CleanString(s.Name, true) == core.CleanString(name, true) {
			return core.NewValidationError(ErrSubjectExists, core.FieldError{Field: "name", Error: ErrSubjectExists.Error()})
		}
	}
	return nil
}

func (svc *service) CreateSubject(ctx context.Context, classroomID int64, ns NewSubject) (Subject, error) {
	if _, err := svc.repo.GetClassRoom(ctx, classroomID); err != nil {
		return Subject{}, err
	}
	if err := svc.checkSubject(ctx, classroomID, ns.Name, 0); err != nil {
		return Subject{}, err
	}
	return svc.repo.CreateSubject(ctx, Subject{Name: ns.Name, ClassroomID: classroomID})
}

func (svc *service) QuerySubjects(ctx context.Context, classroomIDs ...int64) ([]Subject, error) {
	return svc.repo.QuerySubjects(ctx, classroomIDs...)
}

func (svc *service) GetSubject(ctx context.Context, id int64) (Subject, error) {
	return svc.repo.GetSubject(ctx, id)
}

func (svc *service) GetSubjects(ctx context.Context, ids ...int64) ([]Subject, error) {
	if len(ids) == 0 {
		return []Subject{}, nil
	}
	return svc.repo.GetSubjectsByID(ctx, ids...)
}

func (svc *service) UpdateSubject(ctx context.Context, s Subject, ns NewSubject) (Subject, error) {
	if err := svc.checkSubject(ctx, s.ClassroomID, ns.Name, s.ID); err != nil {
		return Subject{}, err
	}
	s.Name = ns.Name
	return svc.repo.UpdateSubject(ctx, s)
}

func (svc *service) DeleteSubject(ctx context.Context, id int64) error {
	return svc.repo.DeleteSubject(ctx, id)
}

func (svc *service) CountSubjects(ctx context.Context) (int, error) {
	return svc.repo.CountSubjects(ctx)
}

func (svc *service) Seed(ctx context.Context, classes []SeedClass) (int, int, error) {
	var nClasses, nSubjects int
	for _, sc := range classes {
		code := core.CleanString(sc.Code)
		c, err := svc.repo.GetClassRoomByCode(ctx, code)
		if err != nil {
			if errors.Cause(err) != ErrNotFound {
				return nClasses, nSubjects, errors.Wrap(err, "finding classroom by code")
			}
			fee := sc.Fee
			if fee <= 0 {
				fee = DefaultFee
			}
			c, err = svc.repo.CreateClassRoom(ctx, ClassRoom{Name: core.CleanString(sc.Name), Code: code, Fee: fee})
			if err != nil {
				return nClasses, nSubjects, errors.Wrapf(err, "creating classroom %s", code)
			}
			nClasses++
		}

		existing, err := svc.repo.QuerySubjects(ctx, c.ID)
		if err != nil {
			return nClasses, nSubjects, errors.Wrap(err, "querying subjects")
		}
		names := make(map[string]bool, len(existing))
		for _, s := range existing {
			names[s.Name] = true
		}
		for _, name := range sc.Subjects {
			name = core.CleanString(name)
			if name == "" || names[name] {
				continue
			}
			if _, err = svc.repo.CreateSubject(ctx, Subject{Name: name, ClassroomID: c.ID}); err != nil {
				return nClasses, nSubjects, errors.Wrapf(err, "creating subject %s", name)
			}
			names[name] = true
			nSubjects++
		}
	}
	return nClasses, nSubjects, nil
}
