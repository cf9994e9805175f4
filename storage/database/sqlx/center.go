package sqlxrepos

import (
	"context"

	"github.com/darien/gradebook/core"
	"github.com/darien/gradebook/core/center"
)

const centerColumns = `id, name, address, phone, created_at`

type CenterRepository struct {
	db core.DB
}

var _ center.Repository = (*CenterRepository)(nil)

func NewCenterRepository(db core.DB) *CenterRepository {
	return &CenterRepository{db: db}
}

func (repo *CenterRepository) CreateCenter(ctx context.Context, c center.Center) (center.Center, error) {
	err := repo.db.GetContext(ctx, &c.ID,
		`INSERT INTO centers (name, address, phone, created_at) VALUES ($1, $2, $3, $4) RETURNING id`,
		c.Name, c.Address, c.Phone, c.CreatedAt,
	)
	if err != nil {
		return center.Center{}, wrapErr(err, "inserting center")
	}
	return c, nil
}

func (repo *CenterRepository) QueryCenters(ctx context.Context) ([]center.Center, error) {
	centers := make([]center.Center, 0)
	if err := repo.db.SelectContext(ctx, &centers, `SELECT `+centerColumns+` FROM centers ORDER BY id`); err != nil {
		return nil, wrapErr(err, "selecting centers")
	}
	return centers, nil
}

func (repo *CenterRepository) GetCenter(ctx context.Context, id int64) (center.Center, error) {
	var c center.Center
	if err := repo.db.GetContext(ctx, &c, `SELECT `+centerColumns+` FROM centers WHERE id = $1`, id); err != nil {
		return center.Center{}, notFound(err, center.ErrNotFound, "selecting center")
	}
	return c, nil
}
