package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfig(t *testing.T) {
	tcases := []struct {
		name         string
		serverAddr   string
		databaseDSN  string
		base64Secret string
		errMsg       string
	}{
		{
			name:         "valid config",
			serverAddr:   "localhost:8000",
			databaseDSN:  "host=localhost user=postgres",
			base64Secret: "c2VjcmV0",
		},
		{
			name:         "empty server address",
			databaseDSN:  "host=localhost user=postgres",
			base64Secret: "c2VjcmV0",
			errMsg:       "server address cannot be empty",
		},
		{
			name:         "empty database DSN",
			serverAddr:   "localhost:8000",
			base64Secret: "c2VjcmV0",
			errMsg:       "database DSN cannot be empty",
		},
		{
			name:        "empty signing secret",
			serverAddr:  "localhost:8000",
			databaseDSN: "host=localhost user=postgres",
			errMsg:      "signing secret cannot be empty",
		},
		{
			name:         "invalid base64 signing secret",
			serverAddr:   "localhost:8000",
			databaseDSN:  "host=localhost user=postgres",
			base64Secret: "not-base64!",
			errMsg:       "decode signing secret",
		},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			cfg, err := NewConfig(tc.serverAddr, tc.databaseDSN, tc.base64Secret, "", nil)
			if tc.errMsg != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tc.errMsg)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tc.serverAddr, cfg.ServerAddr)
			assert.Equal(t, tc.databaseDSN, cfg.DatabaseDSN)
			assert.Equal(t, []byte("secret"), cfg.SigningKey)
		})
	}
}
