package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yorukot/apikeys/internal/config"
)

func TestOpen(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		cfg     *config.Config
		want    Store
		wantErr bool
	}{
		{
			name: "sqlite",
			cfg:  &config.Config{StoreBackend: config.BackendSQLite, DBPath: filepath.Join(dir, "db", "apikeys.db")},
			want: &SQLiteStore{},
		},
		{
			name: "local",
			cfg:  &config.Config{StoreBackend: config.BackendLocal, DataDir: filepath.Join(dir, "creds")},
			want: &LocalStore{},
		},
		{
			name:    "unknown backend",
			cfg:     &config.Config{StoreBackend: "memcached"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, err := Open(context.Background(), tt.cfg)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "unknown store backend")
				assert.Nil(t, store)
				return
			}
			require.NoError(t, err)
			defer store.Close()

			assert.IsType(t, tt.want, store)
			assert.NoError(t, store.Ping(context.Background()))
		})
	}
}
