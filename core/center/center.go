// Package center is the tenant registry: every staff, student & academic row belongs to one Center.
package center

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/darien/gradebook/core"
)

var (
	// errors
	ErrNotFound = errors.New("center not found")
)

type Center struct {
	ID        int64       `json:"id" db:"id"`
	Name      string      `json:"name" db:"name"`
	Address   null.String `json:"address" db:"address"`
	Phone     null.String `json:"phone" db:"phone"`
	CreatedAt time.Time   `json:"created_at" db:"created_at"`
}

// NewCenter contains information needed to create a new Center.
type NewCenter struct {
	Name    string `json:"name" validate:"required,notblank"`
	Address string `json:"address"`
	Phone   string `json:"phone" validate:"omitempty,max=32"`
}

func (nc *NewCenter) Validate(validate *validator.Validate) error {
	nc.Name = core.CleanString(nc.Name)
	nc.Address = core.CleanString(nc.Address)
	nc.Phone = core.CleanString(nc.Phone)
	return validate.Struct(nc)
}

type (
	Repository interface {
		CreateCenter(ctx context.Context, c Center) (Center, error)
		QueryCenters(ctx context.Context) ([]Center, error)
		GetCenter(ctx context.Context, id int64) (Center, error)
	}

	Service struct {
		repo     Repository
		validate *validator.Validate
	}
)

func NewService(repo Repository, validate *validator.Validate) *Service {
	return &Service{repo: repo, validate: validate}
}

func (svc *Service) Create(ctx context.Context, nc NewCenter) (Center, error) {
	if err := nc.Validate(svc.validate); err != nil {
		return Center{}, err
	}
	return svc.repo.CreateCenter(ctx, Center{
		Name:      nc.Name,
		Address:   null.NewString(nc.Address, nc.Address != ""),
		Phone:     null.NewString(nc.Phone, nc.Phone != ""),
		CreatedAt: time.Now().UTC(),
	})
}

// List returns every center ordered by id, for the login center picker.
func (svc *Service) List(ctx context.Context) ([]Center, error) {
	return svc.repo.QueryCenters(ctx)
}

func (svc *Service) Get(ctx context.Context, id int64) (Center, error) {
	return svc.repo.GetCenter(ctx, id)
}

// Resolve returns the center a session should operate on.
// A zero id selects core.DefaultCenterID.
func (svc *Service) Resolve(ctx context.Context, id int64) (Center, error) {
	if id == 0 {
		id = core.DefaultCenterID
	}
	return svc.repo.GetCenter(ctx, id)
}
