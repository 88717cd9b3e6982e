package l2

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-route-guard/internal/config"
)

func testKeyDBConfig() *config.KeyDBConfig {
	cfg := &config.KeyDBConfig{}
	cfg.Connection.ConnectTimeout = 2 * time.Second
	cfg.Connection.ReadTimeout = time.Second
	cfg.Connection.SendTimeout = 500 * time.Millisecond
	cfg.Keepalive.PoolSize = 7
	cfg.Keepalive.MaxIdleTimeout = time.Minute
	return cfg
}

func TestParseKeyDBOptions(t *testing.T) {
	cfg := testKeyDBConfig()

	tests := []struct {
		name     string
		url      string
		wantAddr string
		wantDB   int
		wantUser string
		wantPass string
		wantTLS  bool
		wantErr  bool
	}{
		{name: "host only", url: "redis://keydb", wantAddr: "keydb:6379"},
		{name: "host and port", url: "redis://keydb:6380", wantAddr: "keydb:6380"},
		{name: "password and db", url: "redis://:secret@keydb:6379/3", wantAddr: "keydb:6379", wantDB: 3, wantPass: "secret"},
		{name: "user and password", url: "redis://guard:pw@keydb", wantAddr: "keydb:6379", wantUser: "guard", wantPass: "pw"},
		{name: "tls", url: "rediss://keydb.example.com:6390", wantAddr: "keydb.example.com:6390", wantTLS: true},
		{name: "bad scheme", url: "http://keydb", wantErr: true},
		{name: "bad db", url: "redis://keydb/abc", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts, err := parseKeyDBOptions(cfg, tt.url)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantAddr, opts.Addr)
			assert.Equal(t, tt.wantDB, opts.DB)
			assert.Equal(t, tt.wantUser, opts.Username)
			assert.Equal(t, tt.wantPass, opts.Password)
			assert.Equal(t, tt.wantTLS, opts.TLSConfig != nil)
			assert.Equal(t, 7, opts.PoolSize)
			assert.Equal(t, 500*time.Millisecond, opts.WriteTimeout)
		})
	}
}
