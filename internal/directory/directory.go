// Package directory serves employee and supervisor lookups, with an
// optional Redis read-through cache in front of the database.
package directory

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/NYAHGERALD/don-miguel-vacation-manager/internal/model"
)

// Store is the persistence surface behind the directory.
type Store interface {
	GetEmployee(ctx context.Context, id int64) (*model.Employee, error)
	GetSupervisor(ctx context.Context, id int64) (*model.Supervisor, error)
	ListEmployeesBySupervisor(ctx context.Context, supervisorID int64) ([]model.Employee, error)
	CreateEmployee(ctx context.Context, e *model.Employee) error
	CreateSupervisor(ctx context.Context, s *model.Supervisor) error
}

// Directory caches lookups that the validator and scheduler hit on every
// operation. Cache misses and Redis failures fall through to the store.
type Directory struct {
	store  Store
	logger zerolog.Logger

	redis    *redis.Client
	cacheTTL time.Duration
}

// New creates a directory without caching.
func New(store Store, logger zerolog.Logger) *Directory {
	return &Directory{
		store:  store,
		logger: logger.With().Str("component", "directory").Logger(),
	}
}

// UseRedisCache configures optional Redis caching for read endpoints.
func (d *Directory) UseRedisCache(client *redis.Client, ttl time.Duration) {
	d.redis = client
	d.cacheTTL = ttl
}

// Employee returns one employee by id.
func (d *Directory) Employee(ctx context.Context, id int64) (*model.Employee, error) {
	cacheKey := fmt.Sprintf("employee:%d", id)
	var e model.Employee
	if d.readCache(ctx, cacheKey, &e) {
		return &e, nil
	}

	emp, err := d.store.GetEmployee(ctx, id)
	if err != nil {
		return nil, err
	}
	d.writeCache(ctx, cacheKey, emp)
	return emp, nil
}

// Supervisor returns one supervisor by id.
func (d *Directory) Supervisor(ctx context.Context, id int64) (*model.Supervisor, error) {
	cacheKey := fmt.Sprintf("supervisor:%d", id)
	var s model.Supervisor
	if d.readCache(ctx, cacheKey, &s) {
		return &s, nil
	}

	sup, err := d.store.GetSupervisor(ctx, id)
	if err != nil {
		return nil, err
	}
	d.writeCache(ctx, cacheKey, sup)
	return sup, nil
}

// Team returns every employee reporting to a supervisor.
func (d *Directory) Team(ctx context.Context, supervisorID int64) ([]model.Employee, error) {
	cacheKey := fmt.Sprintf("team:%d", supervisorID)
	var team []model.Employee
	if d.readCache(ctx, cacheKey, &team) {
		return team, nil
	}

	team, err := d.store.ListEmployeesBySupervisor(ctx, supervisorID)
	if err != nil {
		return nil, err
	}
	d.writeCache(ctx, cacheKey, team)
	return team, nil
}

// AddEmployee creates an employee and invalidates the team cache.
func (d *Directory) AddEmployee(ctx context.Context, e *model.Employee) error {
	if err := d.store.CreateEmployee(ctx, e); err != nil {
		return err
	}
	d.invalidate(ctx, fmt.Sprintf("team:%d", e.SupervisorID))
	return nil
}

// AddSupervisor creates a supervisor.
func (d *Directory) AddSupervisor(ctx context.Context, s *model.Supervisor) error {
	return d.store.CreateSupervisor(ctx, s)
}

func (d *Directory) readCache(ctx context.Context, key string, out any) bool {
	if d.redis == nil || d.cacheTTL <= 0 {
		return false
	}
	val, err := d.redis.Get(ctx, key).Result()
	if err != nil {
		return false
	}
	if err := json.Unmarshal([]byte(val), out); err != nil {
		return false
	}
	return true
}

func (d *Directory) writeCache(ctx context.Context, key string, val any) {
	if d.redis == nil || d.cacheTTL <= 0 {
		return
	}
	data, err := json.Marshal(val)
	if err != nil {
		return
	}
	if err := d.redis.Set(ctx, key, data, d.cacheTTL).Err(); err != nil {
		d.logger.Debug().Err(err).Str("key", key).Msg("cache write skipped")
	}
}

func (d *Directory) invalidate(ctx context.Context, key string) {
	if d.redis == nil {
		return
	}
	_ = d.redis.Del(ctx, key).Err()
}
