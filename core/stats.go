package core

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	userCountsKey = "econnect:stats:user_counts"
	userCountsTTL = 60 * time.Second
)

// UserCounts are the platform-wide numbers shown on every dashboard.
type UserCounts struct {
	TotalStudents  int `json:"total_students"`
	TotalEducators int `json:"total_educators"`
	TotalAdmins    int `json:"total_admins"`
}

// StatsService computes dashboard statistics from the directory and caches
// them in Redis for a short TTL. A nil redis client disables caching.
type StatsService struct {
	users UserDirectory
	redis *redis.Client
}

func NewStatsService(users UserDirectory, redisClient *redis.Client) *StatsService {
	return &StatsService{users: users, redis: redisClient}
}

// NewRedisClient returns a configured go-redis client from URL (e.g., redis://localhost:6379/0).
func NewRedisClient(redisURL string) (*redis.Client, error) {
	if redisURL == "" {
		return nil, errors.New("empty redis url")
	}
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return client, nil
}

// UserCounts returns active-account counts per role, serving from cache when
// fresh. Staleness is bounded by userCountsTTL; a cache failure falls through
// to the directory rather than failing the request.
func (s *StatsService) UserCounts(ctx context.Context) (UserCounts, error) {
	if s.redis != nil {
		if val, err := s.redis.Get(ctx, userCountsKey).Result(); err == nil {
			var cached UserCounts
			if json.Unmarshal([]byte(val), &cached) == nil {
				return cached, nil
			}
		}
	}

	counts, err := s.countFromDirectory(ctx)
	if err != nil {
		return UserCounts{}, err
	}

	if s.redis != nil {
		if data, err := json.Marshal(counts); err == nil {
			_ = s.redis.Set(ctx, userCountsKey, data, userCountsTTL).Err()
		}
	}
	return counts, nil
}

// Invalidate drops the cached counts; called after registration and
// activation changes so dashboards do not show stale totals for a full TTL.
func (s *StatsService) Invalidate(ctx context.Context) {
	if s.redis == nil {
		return
	}
	_ = s.redis.Del(ctx, userCountsKey).Err()
}

func (s *StatsService) countFromDirectory(ctx context.Context) (UserCounts, error) {
	students, err := s.users.CountByRole(ctx, RoleStudent, true)
	if err != nil {
		return UserCounts{}, err
	}
	educators, err := s.users.CountByRole(ctx, RoleEducator, true)
	if err != nil {
		return UserCounts{}, err
	}
	admins, err := s.users.CountByRole(ctx, RoleAdmin, true)
	if err != nil {
		return UserCounts{}, err
	}
	return UserCounts{TotalStudents: students, TotalEducators: educators, TotalAdmins: admins}, nil
}
