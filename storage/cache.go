package storage

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"taskpulse/domain"
)

type backend interface {
	ListTasks(ctx context.Context) ([]domain.Task, error)
	Categories(ctx context.Context) ([]string, error)
	CreateTask(ctx context.Context, t domain.Task) (domain.Task, error)
	CompleteTask(ctx context.Context, id int) (bool, error)
	MarkNotified(ctx context.Context, id int) (bool, error)
}

// Cache wraps a Store with Redis-backed caching for read operations. Every
// mutation evicts so readers never see a stale task list for longer than one
// write.
type Cache struct {
	base  backend
	redis *redis.Client
	ttl   time.Duration
}

// NewCache creates a caching wrapper using the provided Redis client and TTL.
func NewCache(base backend, client *redis.Client, ttl time.Duration) *Cache {
	if base == nil {
		panic("storage.NewCache: base storage is nil")
	}
	if ttl < 0 {
		ttl = 0
	}
	return &Cache{
		base:  base,
		redis: client,
		ttl:   ttl,
	}
}

func (c *Cache) ListTasks(ctx context.Context) ([]domain.Task, error) {
	if tasks, ok := c.loadTasksFromCache(ctx); ok {
		return tasks, nil
	}

	tasks, err := c.base.ListTasks(ctx)
	if err != nil {
		return nil, err
	}

	c.storeTasks(ctx, tasks)
	return tasks, nil
}

func (c *Cache) Categories(ctx context.Context) ([]string, error) {
	if cats, ok := c.loadCategoriesFromCache(ctx); ok {
		return cats, nil
	}

	cats, err := c.base.Categories(ctx)
	if err != nil {
		return nil, err
	}

	c.storeCategories(ctx, cats)
	return cats, nil
}

func (c *Cache) CreateTask(ctx context.Context, t domain.Task) (domain.Task, error) {
	created, err := c.base.CreateTask(ctx, t)
	c.evictTasks(ctx)
	return created, err
}

func (c *Cache) CompleteTask(ctx context.Context, id int) (bool, error) {
	found, err := c.base.CompleteTask(ctx, id)
	if found {
		c.evictTasks(ctx)
	}
	return found, err
}

func (c *Cache) MarkNotified(ctx context.Context, id int) (bool, error) {
	found, err := c.base.MarkNotified(ctx, id)
	if found {
		c.evictTasks(ctx)
	}
	return found, err
}

func (c *Cache) loadTasksFromCache(ctx context.Context) ([]domain.Task, bool) {
	if c.redis == nil {
		return nil, false
	}
	data, err := c.redis.Get(ctx, tasksCacheKey).Bytes()
	if err != nil {
		if err != redis.Nil {
			// On redis errors fall back to the backing storage without failing.
			_ = c.redis.Del(ctx, tasksCacheKey).Err()
		}
		return nil, false
	}
	var tasks []domain.Task
	if err := json.Unmarshal(data, &tasks); err != nil {
		_ = c.redis.Del(ctx, tasksCacheKey).Err()
		return nil, false
	}
	return tasks, true
}

func (c *Cache) loadCategoriesFromCache(ctx context.Context) ([]string, bool) {
	if c.redis == nil {
		return nil, false
	}
	data, err := c.redis.Get(ctx, categoriesCacheKey).Bytes()
	if err != nil {
		if err != redis.Nil {
			_ = c.redis.Del(ctx, categoriesCacheKey).Err()
		}
		return nil, false
	}
	var cats []string
	if err := json.Unmarshal(data, &cats); err != nil {
		_ = c.redis.Del(ctx, categoriesCacheKey).Err()
		return nil, false
	}
	return cats, true
}

func (c *Cache) storeTasks(ctx context.Context, tasks []domain.Task) {
	if c.redis == nil || c.ttl == 0 {
		return
	}
	data, err := json.Marshal(tasks)
	if err != nil {
		return
	}
	_ = c.redis.Set(ctx, tasksCacheKey, data, c.ttl).Err()
}

func (c *Cache) storeCategories(ctx context.Context, cats []string) {
	if c.redis == nil || c.ttl == 0 {
		return
	}
	data, err := json.Marshal(cats)
	if err != nil {
		return
	}
	_ = c.redis.Set(ctx, categoriesCacheKey, data, c.ttl).Err()
}

func (c *Cache) evictTasks(ctx context.Context) {
	if c.redis == nil {
		return
	}
	_, _ = c.redis.Del(ctx, tasksCacheKey).Result()
}

const (
	tasksCacheKey      = "tasks"
	categoriesCacheKey = "categories"
)
