package database

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_DSN(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		want    string
		wantErr error
	}{
		{
			name: "mysql",
			cfg:  Config{Driver: DriverMySQL, User: "root", Password: "pw", Host: "db", Port: 3306, Database: "testpilot"},
			want: "root:pw@tcp(db:3306)/testpilot?charset=utf8mb4&parseTime=True&loc=UTC&multiStatements=true",
		},
		{
			name: "empty driver defaults to mysql",
			cfg:  Config{User: "u", Password: "p", Host: "h", Port: 1, Database: "d"},
			want: "u:p@tcp(h:1)/d?charset=utf8mb4&parseTime=True&loc=UTC&multiStatements=true",
		},
		{name: "sqlite", cfg: Config{Driver: DriverSQLite, Path: "/tmp/x.db"}, want: "/tmp/x.db"},
		{name: "sqlite without path", cfg: Config{Driver: DriverSQLite}, wantErr: ErrUnsupportedDriver},
		{name: "unknown", cfg: Config{Driver: "postgres"}, wantErr: ErrUnsupportedDriver},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.cfg.DSN()
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMigrations_SQLite(t *testing.T) {
	db, err := Connect(Config{Driver: DriverSQLite, Path: filepath.Join(t.TempDir(), "runs.db")})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	defer sqlDB.Close()

	require.NoError(t, RunMigrations(sqlDB, DriverSQLite))
	assert.True(t, db.Migrator().HasTable("test_runs"))

	// applying twice is a no-op
	require.NoError(t, RunMigrations(sqlDB, DriverSQLite))

	v, dirty, err := Version(sqlDB, DriverSQLite)
	require.NoError(t, err)
	assert.Equal(t, uint(1), v)
	assert.False(t, dirty)

	require.NoError(t, RollbackMigration(sqlDB, DriverSQLite))
	assert.False(t, db.Migrator().HasTable("test_runs"))
}

func TestMigrations_UnsupportedDriver(t *testing.T) {
	err := RunMigrations(nil, "postgres")
	assert.ErrorIs(t, err, ErrUnsupportedDriver)
}
