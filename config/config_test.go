package config

import (
	"os"
	"path/filepath"
	"testing"

	"blocklucky/models"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("ENVIRONMENT", "test")

	c, err := load()
	require.NoError(t, err)

	assert.Equal(t, StoreDriverPostgres, c.StoreDriver)
	assert.Equal(t, int64(1), c.LotteryID)
	assert.Equal(t, uint64(3), c.MinParticipants)
	assert.Equal(t, 0, c.TicketPrice().Cmp(models.DefaultTicketPrice))
	assert.Equal(t, ":8080", c.HTTPAddr)
	assert.Empty(t, c.NATSServerList())
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("LOTTERY_ID", "7")
	t.Setenv("MIN_PARTICIPANTS", "5")
	t.Setenv("TICKET_PRICE_WEI", "20000000000000000")
	t.Setenv("OWNER_ADDRESS", "0x00000000000000000000000000000000000000aa")
	t.Setenv("NATS_SERVERS", "nats://a:4222, nats://b:4222")
	t.Setenv("DATABASE_MAX_CONNS", "12")

	c, err := load()
	require.NoError(t, err)

	assert.Equal(t, int64(7), c.LotteryID)
	assert.Equal(t, uint64(5), c.MinParticipants)
	assert.Equal(t, "20000000000000000", c.TicketPrice().String())
	assert.Equal(t, common.HexToAddress("0xaa"), c.Owner())
	assert.Equal(t, []string{"nats://a:4222", "nats://b:4222"}, c.NATSServerList())
	assert.Equal(t, int32(12), c.DatabaseMaxConns)
}

func TestLoad_TOMLFileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "blocklucky.toml")
	err := os.WriteFile(path, []byte(`
store_driver = "memory"
lottery_id = 3
min_participants = 10
http_addr = ":9000"
log_format = "json"
`), 0o600)
	require.NoError(t, err)

	t.Setenv("BLOCKLUCKY_CONFIG", path)
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("HTTP_ADDR", ":9100")

	c, err := load()
	require.NoError(t, err)

	assert.Equal(t, StoreDriverMemory, c.StoreDriver)
	assert.Equal(t, int64(3), c.LotteryID)
	assert.Equal(t, uint64(10), c.MinParticipants)
	assert.Equal(t, "json", c.LogFormat)
	assert.Equal(t, ":9100", c.HTTPAddr)
}

func TestLoad_Validation(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"postgres without url", map[string]string{"STORE_DRIVER": "postgres"}},
		{"unknown driver", map[string]string{"STORE_DRIVER": "redis"}},
		{"bad owner", map[string]string{"STORE_DRIVER": "memory", "OWNER_ADDRESS": "not-an-address"}},
		{"zero participants", map[string]string{"STORE_DRIVER": "memory", "MIN_PARTICIPANTS": "0"}},
		{"zero price", map[string]string{"STORE_DRIVER": "memory", "TICKET_PRICE_WEI": "0"}},
		{"malformed lottery id", map[string]string{"STORE_DRIVER": "memory", "LOTTERY_ID": "abc"}},
		{"malformed pool size", map[string]string{"STORE_DRIVER": "memory", "DATABASE_MAX_CONNS": "many"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("ENVIRONMENT", "production")
			t.Setenv("DATABASE_URL", "")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := load()
			assert.Error(t, err)
		})
	}
}

func TestGetDatabaseURL(t *testing.T) {
	c := NewTestConfig()
	c.DatabaseURL = "postgres://u:p@localhost:5432"
	c.DatabaseName = "blocklucky"
	assert.Equal(t, "postgres://u:p@localhost:5432/blocklucky?sslmode=disable", c.GetDatabaseURL())
}

func TestSetTestConfig(t *testing.T) {
	t.Cleanup(ResetConfig)

	c := NewTestConfig()
	c.LotteryID = 42
	SetTestConfig(c)

	assert.Same(t, c, Get())
}
