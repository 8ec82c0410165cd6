package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var configEnvVars = []string{
	"CONFIG_FILE", "PORT", "ENV", "LOG_LEVEL", "STORE_DRIVER", "SQLITE_PATH",
	"DB_HOST", "DB_PORT", "DB_NAME", "DB_USER", "DB_PASSWORD", "DB_POOL_MIN", "DB_POOL_MAX",
	"READABLE_KINDS", "STYLE_DIR", "CORS_ORIGINS",
}

// clearConfigEnv blanks every key; viper ignores empty variables.
func clearConfigEnv(t *testing.T) {
	t.Helper()
	for _, key := range configEnvVars {
		t.Setenv(key, "")
	}
}

func TestLoad_WithDefaults(t *testing.T) {
	clearConfigEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "development", cfg.Server.Env)
	assert.Empty(t, cfg.Log.Level)
	assert.Equal(t, DriverMemory, cfg.Store.Driver)
	assert.Equal(t, "artscene.db", cfg.Store.SQLitePath)
	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, 2, cfg.Database.PoolMin)
	assert.Equal(t, 10, cfg.Database.PoolMax)
	assert.Equal(t, []string{"curve"}, cfg.Drawing.ReadableKinds)
	assert.Equal(t, "styles", cfg.Drawing.StyleDir)
	assert.Equal(t, []string{"http://localhost:3000", "http://localhost:3001"}, cfg.CORS.Origins)
}

func TestLoad_WithEnvironmentVariables(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("PORT", "9090")
	t.Setenv("ENV", "production")
	t.Setenv("LOG_LEVEL", "warn")
	t.Setenv("STORE_DRIVER", "Postgres")
	t.Setenv("DB_HOST", "db")
	t.Setenv("DB_PORT", "5433")
	t.Setenv("DB_NAME", "scenes")
	t.Setenv("DB_USER", "cad")
	t.Setenv("DB_PASSWORD", "secret")
	t.Setenv("DB_POOL_MIN", "5")
	t.Setenv("DB_POOL_MAX", "20")
	t.Setenv("READABLE_KINDS", "curve, textdot")
	t.Setenv("STYLE_DIR", "/var/lib/artscene/styles")
	t.Setenv("CORS_ORIGINS", "http://example.com, ,https://app.example.com")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, "production", cfg.Server.Env)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, DriverPostgres, cfg.Store.Driver)
	assert.Equal(t, DatabaseConfig{
		Host:     "db",
		Port:     "5433",
		Name:     "scenes",
		User:     "cad",
		Password: "secret",
		PoolMin:  5,
		PoolMax:  20,
	}, cfg.Database)
	assert.Equal(t, []string{"curve", "textdot"}, cfg.Drawing.ReadableKinds)
	assert.Equal(t, "/var/lib/artscene/styles", cfg.Drawing.StyleDir)
	assert.Equal(t, []string{"http://example.com", "https://app.example.com"}, cfg.CORS.Origins)
}

func TestLoad_ConfigFile(t *testing.T) {
	clearConfigEnv(t)
	path := filepath.Join(t.TempDir(), "artscene.yaml")
	body := "port: \"7070\"\nstore_driver: sqlite\nsqlite_path: /tmp/scenes.db\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("SQLITE_PATH", "/override.db")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "7070", cfg.Server.Port)
	assert.Equal(t, DriverSQLite, cfg.Store.Driver)
	assert.Equal(t, "/override.db", cfg.Store.SQLitePath, "environment wins over the file")
}

func TestLoad_MissingConfigFile(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "absent.yaml"))

	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_PostgresNeedsPassword(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("STORE_DRIVER", "postgres")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DB_PASSWORD is required")
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Server: ServerConfig{Port: "8080", Env: "development"},
			Store:  StoreConfig{Driver: DriverMemory},
			Database: DatabaseConfig{
				Host: "localhost", Port: "5432", Name: "artscene", User: "postgres",
				Password: "pw", PoolMin: 2, PoolMax: 10,
			},
			Drawing: DrawingConfig{ReadableKinds: []string{"curve"}, StyleDir: "styles"},
			CORS:    CORSConfig{Origins: []string{"http://localhost:3000"}},
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "valid memory", mutate: func(c *Config) {}},
		{name: "valid postgres", mutate: func(c *Config) { c.Store.Driver = DriverPostgres }},
		{name: "memory ignores database", mutate: func(c *Config) { c.Database = DatabaseConfig{} }},
		{name: "missing port", mutate: func(c *Config) { c.Server.Port = "" }, wantErr: "PORT is required"},
		{name: "unknown driver", mutate: func(c *Config) { c.Store.Driver = "redis" }, wantErr: "STORE_DRIVER"},
		{
			name:    "sqlite without path",
			mutate:  func(c *Config) { c.Store = StoreConfig{Driver: DriverSQLite} },
			wantErr: "SQLITE_PATH",
		},
		{
			name: "postgres pool inverted",
			mutate: func(c *Config) {
				c.Store.Driver = DriverPostgres
				c.Database.PoolMin = 20
			},
			wantErr: "DB_POOL_MIN must be less than or equal to DB_POOL_MAX",
		},
		{
			name: "postgres without host",
			mutate: func(c *Config) {
				c.Store.Driver = DriverPostgres
				c.Database.Host = ""
			},
			wantErr: "DB_HOST is required",
		},
		{name: "unknown kind", mutate: func(c *Config) { c.Drawing.ReadableKinds = []string{"mesh"} }, wantErr: "unknown kind"},
		{name: "no kinds", mutate: func(c *Config) { c.Drawing.ReadableKinds = nil }, wantErr: "READABLE_KINDS"},
		{name: "no style dir", mutate: func(c *Config) { c.Drawing.StyleDir = "" }, wantErr: "STYLE_DIR"},
		{name: "no origins", mutate: func(c *Config) { c.CORS.Origins = nil }, wantErr: "CORS_ORIGINS"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestSplitList(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{in: "", want: []string{}},
		{in: "a", want: []string{"a"}},
		{in: " a , b ,, c ", want: []string{"a", "b", "c"}},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, splitList(tt.in))
		})
	}
}
