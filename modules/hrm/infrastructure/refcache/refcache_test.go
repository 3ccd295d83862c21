package refcache

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/campus-hr/hrdesk/modules/hrm/domain/aggregates/employee"
)

type countingProvider struct {
	branchCalls int
	roleCalls   int
	err         error
}

func (p *countingProvider) Branches(ctx context.Context, campus string) ([]employee.Branch, error) {
	p.branchCalls++
	if p.err != nil {
		return nil, p.err
	}
	return []employee.Branch{{Code: campus + "-CSE", IsActive: true}}, nil
}

func (p *countingProvider) Roles(ctx context.Context, campus string) ([]employee.Role, error) {
	p.roleCalls++
	if p.err != nil {
		return nil, p.err
	}
	return []employee.Role{{Value: "hod", Label: "HOD"}}, nil
}

func TestMemory_CachesPerCampusUntilExpiry(t *testing.T) {
	p := &countingProvider{}
	m := NewMemory(p, time.Minute)
	now := time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }
	ctx := context.Background()

	b, err := m.Branches(ctx, "eng")
	require.NoError(t, err)
	require.Equal(t, "eng-CSE", b[0].Code)
	_, _ = m.Branches(ctx, "eng")
	require.Equal(t, 1, p.branchCalls)

	_, _ = m.Branches(ctx, "med")
	require.Equal(t, 2, p.branchCalls)

	_, _ = m.Roles(ctx, "eng")
	_, _ = m.Roles(ctx, "eng")
	require.Equal(t, 1, p.roleCalls)

	now = now.Add(time.Minute)
	_, _ = m.Branches(ctx, "eng")
	require.Equal(t, 3, p.branchCalls)

	require.NoError(t, m.Invalidate(ctx, "eng"))
	_, _ = m.Roles(ctx, "eng")
	require.Equal(t, 2, p.roleCalls)
}

func TestMemory_DoesNotCacheErrors(t *testing.T) {
	p := &countingProvider{err: errors.New("backend down")}
	m := NewMemory(p, time.Minute)

	_, err := m.Branches(context.Background(), "eng")
	require.Error(t, err)

	p.err = nil
	_, err = m.Branches(context.Background(), "eng")
	require.NoError(t, err)
	require.Equal(t, 2, p.branchCalls)
}

func TestRedis_FallsBackWhenRedisIsDown(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { _ = client.Close() })

	logger := logrus.New()
	logger.SetOutput(io.Discard)
	p := &countingProvider{}
	r := NewRedis(p, client, time.Minute, logger)

	roles, err := r.Roles(context.Background(), "eng")
	require.NoError(t, err)
	require.Equal(t, []employee.Role{{Value: "hod", Label: "HOD"}}, roles)
	require.Equal(t, 1, p.roleCalls)

	require.Error(t, r.Invalidate(context.Background(), "eng"))
}

func TestNewRedisClient(t *testing.T) {
	c, err := NewRedisClient("redis://localhost:6379/2")
	require.NoError(t, err)
	require.Equal(t, 2, c.Options().DB)

	c, err = NewRedisClient("localhost:6380")
	require.NoError(t, err)
	require.Equal(t, "localhost:6380", c.Options().Addr)

	_, err = NewRedisClient("")
	require.Error(t, err)
}
