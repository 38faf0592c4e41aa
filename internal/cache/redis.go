// Package cache кэширует записи пользователей в Redis.
//
// В кэше лежат только исходные данные (подписка, trialStart, флаг администратора).
// Состояние доступа никогда не кэшируется и вычисляется заново на каждый запрос.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/magabrotheeeer/premium-access/internal/config"
	"github.com/magabrotheeeer/premium-access/internal/models"
)

// Cache обёртка над клиентом Redis.
type Cache struct {
	Db      *redis.Client
	userTTL time.Duration
}

// InitServer подключается к Redis и проверяет соединение.
func InitServer(ctx context.Context, cfg config.RedisConnection) (*Cache, error) {
	const op = "cache.InitServer"
	db := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		Username:     cfg.User,
		MaxRetries:   cfg.MaxRetries,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.Timeout,
		WriteTimeout: cfg.Timeout,
	})

	if err := db.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &Cache{Db: db, userTTL: cfg.UserTTL}, nil
}

// Close закрывает клиент Redis.
func (c *Cache) Close() error {
	return c.Db.Close()
}

// Get читает значение по ключу в result. Второй результат false, если ключа нет.
func (c *Cache) Get(ctx context.Context, key string, result any) (bool, error) {
	const op = "cache.Get"
	val, err := c.Db.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	if err = json.Unmarshal(val, result); err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return true, nil
}

func userKey(userID string) string {
	return "user:" + userID
}

func fenceKey(userID string) string {
	return "user:" + userID + ":fence"
}

// fenceTTL должен быть больше времени между чтением fence и записью в кэш.
const fenceTTL = 24 * time.Hour

// setUserIfFence пишет пользователя, только если fence не менялся с момента чтения.
var setUserIfFence = redis.NewScript(`
local cur = redis.call("GET", KEYS[2])
if not cur then cur = "0" end
if cur ~= ARGV[2] then
	return 0
end
if tonumber(ARGV[3]) > 0 then
	redis.call("SET", KEYS[1], ARGV[1], "PX", ARGV[3])
else
	redis.call("SET", KEYS[1], ARGV[1])
end
return 1
`)

// GetUser возвращает закэшированного пользователя.
// PasswordHash в кэш не попадает.
func (c *Cache) GetUser(ctx context.Context, userID string) (*models.User, bool, error) {
	var u models.User
	found, err := c.Get(ctx, userKey(userID), &u)
	if err != nil || !found {
		return nil, false, err
	}
	return &u, true, nil
}

// UserFence возвращает счётчик сбросов пользователя. Читается до похода
// в хранилище и передаётся в SetUserIfFence.
func (c *Cache) UserFence(ctx context.Context, userID string) (int64, error) {
	const op = "cache.UserFence"
	n, err := c.Db.Get(ctx, fenceKey(userID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return n, nil
}

// SetUserIfFence кладёт пользователя в кэш на время UserTTL, если с момента
// чтения fence пользователя не сбрасывали. Иначе запись пропускается и возвращается false.
func (c *Cache) SetUserIfFence(ctx context.Context, u *models.User, fence int64) (bool, error) {
	const op = "cache.SetUserIfFence"
	data, err := json.Marshal(u)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	n, err := setUserIfFence.Run(ctx, c.Db,
		[]string{userKey(u.ID), fenceKey(u.ID)},
		data, fence, c.userTTL.Milliseconds()).Int()
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return n == 1, nil
}

// InvalidateUser удаляет пользователя из кэша и сдвигает его fence,
// чтобы читатель, начавший до сброса, не вернул в кэш старую запись.
// Вызывается после каждого перехода подписки.
func (c *Cache) InvalidateUser(ctx context.Context, userID string) error {
	const op = "cache.InvalidateUser"
	_, err := c.Db.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Incr(ctx, fenceKey(userID))
		p.Expire(ctx, fenceKey(userID), fenceTTL)
		p.Del(ctx, userKey(userID))
		return nil
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
