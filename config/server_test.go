package config

import (
	"strings"
	"testing"

	logging "github.com/op/go-logging"
	"github.com/stretchr/testify/require"
)

const fullCfg = `[main]
bind = 127.0.0.1:4000
log = /var/log/slotstore.log
log_level = debug

[storage]
file = /var/lib/slotstore/data.slots
slot_capacity = 512
create = true

[engine]
queue_size = 16
max_batch = 4
sync = true
`

const minimalCfg = `[main]
bind = :4000
[storage]
file = data.slots
`

func TestReadServerConfig(t *testing.T) {
	cfg, err := ReadServerConfig(strings.NewReader(fullCfg))
	require.NoError(t, err)
	require.Equal(t, &ServerCfg{
		Bind:            "127.0.0.1:4000",
		LogFileName:     "/var/log/slotstore.log",
		LogLevel:        logging.DEBUG,
		StorageFileName: "/var/lib/slotstore/data.slots",
		SlotCapacity:    512,
		CreateStorage:   true,
		QueueSize:       16,
		MaxBatch:        4,
		SyncWrites:      true,
	}, cfg)
}

func TestReadServerConfigDefaults(t *testing.T) {
	cfg, err := ReadServerConfig(strings.NewReader(minimalCfg))
	require.NoError(t, err)
	require.Equal(t, "", cfg.LogFileName)
	require.Equal(t, logging.INFO, cfg.LogLevel)
	require.Equal(t, uint32(defaultSlotCapacity), cfg.SlotCapacity)
	require.False(t, cfg.CreateStorage)
	require.Equal(t, defaultQueueSize, cfg.QueueSize)
	require.Equal(t, defaultMaxBatch, cfg.MaxBatch)
	require.False(t, cfg.SyncWrites)
}

func TestReadServerConfigErrors(t *testing.T) {
	cases := map[string]string{
		"missing bind":         "[storage]\nfile = x\n",
		"missing file":         "[main]\nbind = :1\n",
		"bad level":            minimalCfg + "[main]\nlog_level = loud\n",
		"zero capacity":        minimalCfg + "slot_capacity = 0\n",
		"huge capacity":        minimalCfg + "slot_capacity = 999999999\n",
		"zero queue":           minimalCfg + "[engine]\nqueue_size = 0\n",
		"negative batch":       minimalCfg + "[engine]\nmax_batch = -3\n",
		"broken ini line":      "[main\nbind = :1\n",
		"malformed capacity":   minimalCfg + "slot_capacity = 12k\n",
		"malformed create":     minimalCfg + "create = maybe\n",
		"malformed queue size": minimalCfg + "[engine]\nqueue_size = lots\n",
		"malformed batch":      minimalCfg + "[engine]\nmax_batch = 1.5\n",
		"malformed sync":       minimalCfg + "[engine]\nsync = sometimes\n",
	}
	for name, src := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ReadServerConfig(strings.NewReader(src))
			require.Error(t, err)
		})
	}
}
