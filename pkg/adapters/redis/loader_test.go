package redis_test

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/lander/pkg/adapters/redis"
	"github.com/aretw0/lander/pkg/domain"
	"github.com/aretw0/lander/pkg/ports"
	"github.com/aretw0/lander/pkg/scripts"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLoader(t *testing.T, opts ...redis.Option) (*redis.Loader, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	l := redis.NewFromClient(client, opts...)
	t.Cleanup(func() { l.Close() })
	return l, mr
}

func publishBuiltins(t *testing.T, l *redis.Loader) []string {
	t.Helper()
	src := scripts.Loader(slog.New(slog.DiscardHandler))
	ids, err := src.List()
	require.NoError(t, err)
	for _, id := range ids {
		s, err := src.Load(id)
		require.NoError(t, err)
		require.NoError(t, l.Put(context.Background(), s))
	}
	return ids
}

func TestRedisLoader_Contract(t *testing.T) {
	l, _ := newLoader(t)
	ids := publishBuiltins(t, l)
	ports.RunScriptLoaderContract(t, l, ids)
}

func TestRedisLoader_RoundTripKeepsDurations(t *testing.T) {
	l, _ := newLoader(t)
	publishBuiltins(t, l)

	s, err := l.Load(scripts.Quiz)
	require.NoError(t, err)
	assert.Equal(t, 850*time.Millisecond, s.Loader.Interval)
	assert.Equal(t, 5*time.Minute, s.Countdown)
}

func TestRedisLoader_PutRejectsInvalid(t *testing.T) {
	l, mr := newLoader(t)
	err := l.Put(context.Background(), &domain.Script{ID: "broken"})
	require.Error(t, err)
	assert.NotEmpty(t, domain.ValidationErrors(err))
	assert.False(t, mr.Exists(redis.DefaultPrefix+"broken"))
}

func TestRedisLoader_Delete(t *testing.T) {
	l, _ := newLoader(t)
	publishBuiltins(t, l)
	ctx := context.Background()

	require.NoError(t, l.Delete(ctx, scripts.Chat))
	_, err := l.Load(scripts.Chat)
	assert.ErrorIs(t, err, domain.ErrFunnelNotFound)
	ids, err := l.List()
	require.NoError(t, err)
	assert.NotContains(t, ids, scripts.Chat)

	assert.ErrorIs(t, l.Delete(ctx, scripts.Chat), domain.ErrFunnelNotFound)
}

func TestRedisLoader_CorruptValue(t *testing.T) {
	l, mr := newLoader(t, redis.WithPrefix("test:"))
	require.NoError(t, mr.Set("test:bad", "{not json"))

	_, err := l.Load("bad")
	assert.ErrorContains(t, err, "failed to unmarshal")
}

func TestRedisLoader_Unavailable(t *testing.T) {
	l, mr := newLoader(t, redis.WithTimeout(200*time.Millisecond))
	require.NoError(t, l.Ping(context.Background()))
	mr.Close()

	_, err := l.List()
	assert.Error(t, err)
	_, err = l.Load(scripts.Quiz)
	assert.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrFunnelNotFound)
}

func TestNewFromURL(t *testing.T) {
	mr := miniredis.RunT(t)
	l, err := redis.NewFromURL("redis://" + mr.Addr() + "/0")
	require.NoError(t, err)
	defer l.Close()
	assert.NoError(t, l.Ping(context.Background()))

	_, err = redis.NewFromURL("http://nope")
	assert.Error(t, err)
}
