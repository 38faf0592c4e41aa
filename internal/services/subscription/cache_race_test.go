package subscription

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/premium-access/internal/access"
	"github.com/magabrotheeeer/premium-access/internal/cache"
	"github.com/magabrotheeeer/premium-access/internal/config"
	"github.com/magabrotheeeer/premium-access/internal/models"
	"github.com/magabrotheeeer/premium-access/internal/storage"
)

// pausingRepo останавливает первое чтение GetUser после загрузки строки,
// пока тест не закроет release.
type pausingRepo struct {
	mu      sync.Mutex
	user    models.User
	pause   bool
	loaded  chan struct{}
	release chan struct{}
}

func newPausingRepo(u models.User) *pausingRepo {
	return &pausingRepo{
		user:    u,
		pause:   true,
		loaded:  make(chan struct{}),
		release: make(chan struct{}),
	}
}

func (r *pausingRepo) GetUser(_ context.Context, userID string) (*models.User, error) {
	r.mu.Lock()
	if userID != r.user.ID {
		r.mu.Unlock()
		return nil, storage.ErrUserNotFound
	}
	u := r.user
	pause := r.pause
	r.pause = false
	r.mu.Unlock()

	if pause {
		close(r.loaded)
		<-r.release
	}
	return &u, nil
}

func (r *pausingRepo) GetUserForUpdate(_ context.Context, userID string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if userID != r.user.ID {
		return nil, storage.ErrUserNotFound
	}
	u := r.user
	return &u, nil
}

func (r *pausingRepo) SaveSubscription(_ context.Context, userID string, sub models.Subscription) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if userID != r.user.ID {
		return storage.ErrUserNotFound
	}
	r.user.Subscription = sub
	return nil
}

func TestService_RevocationNotHiddenByConcurrentReader(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	c, err := cache.InitServer(context.Background(), config.RedisConnection{Addr: mr.Addr(), UserTTL: 10 * time.Minute})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	now := t0
	start := now.Add(-10 * models.Day)
	end := now.Add(20 * models.Day)
	repo := newPausingRepo(models.User{
		ID:         "u1",
		TrialStart: now.Add(-30 * models.Day),
		Subscription: models.Subscription{
			Plan:          models.PlanThirtyDays,
			Active:        true,
			StartDate:     &start,
			EndDate:       &end,
			PaymentStatus: models.PaymentStatusApproved,
		},
	})

	s := New(repo, c, access.New(3), newNoopLogger())
	s.now = func() time.Time { return now }
	ctx := context.Background()

	type result struct {
		st  models.AccessState
		err error
	}
	done := make(chan result, 1)
	go func() {
		st, err := s.Access(ctx, "u1")
		done <- result{st, err}
	}()

	<-repo.loaded
	_, err = s.Replace(ctx, "u1", models.EmptySubscription())
	require.NoError(t, err)
	close(repo.release)

	first := <-done
	require.NoError(t, first.err)
	assert.True(t, first.st.HasAccess, "чтение началось до отзыва")

	_, found, err := c.GetUser(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, found, "устаревшая запись не должна попасть в кэш")

	st, err := s.Access(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, models.AccessState{HasAccess: false, DaysLeft: 0, IsTrial: true}, st)

	cached, found, err := c.GetUser(ctx, "u1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, models.EmptySubscription(), cached.Subscription)
}
