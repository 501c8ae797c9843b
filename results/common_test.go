package results

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/hairizuan-noorazman/testpilot/logger"
	"github.com/hairizuan-noorazman/testpilot/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// setupSQLStore creates an in-memory database and run store.
func setupSQLStore(t *testing.T) (*gorm.DB, *SQLStore) {
	db := testutil.SetupTestDB(t)
	testutil.AutoMigrate(t, db, &Run{})
	return db, NewSQLStore(db, logger.NewTestLogger())
}

func setupRedisStore(t *testing.T, ttl time.Duration) (*miniredis.Miniredis, *RedisStore) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return mr, NewRedisStore(client, ttl, logger.NewTestLogger())
}

// backends returns a fresh instance of every Store implementation.
func backends(t *testing.T) map[string]Store {
	_, sqlStore := setupSQLStore(t)
	_, redisStore := setupRedisStore(t, time.Hour)
	return map[string]Store{
		"memory": NewMemoryStore(10, time.Hour),
		"redis":  redisStore,
		"sql":    sqlStore,
	}
}
