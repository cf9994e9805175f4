package inmemdb

import (
	"context"
	"sort"

	"github.com/darien/gradebook/core/center"
)

type CenterRepository struct {
	db *DB
}

var _ center.Repository = (*CenterRepository)(nil)

func (repo *CenterRepository) CreateCenter(_ context.Context, c center.Center) (center.Center, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if c.ID == 0 {
		c.ID = repo.db.nextID()
	} else if c.ID > repo.db.seq {
		repo.db.seq = c.ID
	}
	repo.db.centers[c.ID] = &c
	return c, nil
}

func (repo *CenterRepository) QueryCenters(_ context.Context) ([]center.Center, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	centers := make([]center.Center, 0, len(repo.db.centers))
	for _, c := range repo.db.centers {
		centers = append(centers, *c)
	}
	sort.Slice(centers, func(i, j int) bool { return centers[i].ID < centers[j].ID })
	return centers, nil
}

func (repo *CenterRepository) GetCenter(_ context.Context, id int64) (center.Center, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if c, ok := repo.db.centers[id]; ok {
		return *c, nil
	}
	return center.Center{}, center.ErrNotFound
}
