package config

import (
	"fmt"
	"io"

	logging "github.com/op/go-logging"
	"gopkg.in/ini.v1"

	"github.com/viert/slotstore/storage"
)

const (
	defaultLogLevel     = "INFO"
	defaultSlotCapacity = 4096
	defaultQueueSize    = 1024
	defaultMaxBatch     = 64
)

// ServerCfg represents a server config
type ServerCfg struct {
	Bind            string
	LogFileName     string
	LogLevel        logging.Level
	StorageFileName string
	SlotCapacity    uint32
	CreateStorage   bool
	QueueSize       int
	MaxBatch        int
	SyncWrites      bool
}

// ReadServerConfig reads and returns a slotstore server config
// from an io.Reader object
func ReadServerConfig(r io.Reader) (*ServerCfg, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("error reading config: %s", err)
	}

	f, err := ini.Load(data)
	if err != nil {
		return nil, fmt.Errorf("error parsing config: %s", err)
	}

	cfg := &ServerCfg{}

	main := f.Section("main")
	if !main.HasKey("bind") {
		return nil, fmt.Errorf("error reading main.bind: key not found")
	}
	cfg.Bind = main.Key("bind").String()
	cfg.LogFileName = main.Key("log").String()

	levelName := main.Key("log_level").MustString(defaultLogLevel)
	cfg.LogLevel, err = logging.LogLevel(levelName)
	if err != nil {
		return nil, fmt.Errorf("error reading main.log_level: %s", err)
	}

	st := f.Section("storage")
	if !st.HasKey("file") {
		return nil, fmt.Errorf("error reading storage.file: key not found")
	}
	cfg.StorageFileName = st.Key("file").String()
	cfg.CreateStorage, err = boolKey(st, "create", false)
	if err != nil {
		return nil, err
	}

	capacity, err := intKey(st, "slot_capacity", defaultSlotCapacity)
	if err != nil {
		return nil, err
	}
	if capacity < storage.MinSlotCapacity || capacity > storage.MaxSlotCapacity {
		return nil, fmt.Errorf("storage.slot_capacity can not be less than %d or greater than %d",
			storage.MinSlotCapacity, storage.MaxSlotCapacity)
	}
	cfg.SlotCapacity = uint32(capacity)

	eng := f.Section("engine")
	cfg.QueueSize, err = intKey(eng, "queue_size", defaultQueueSize)
	if err != nil {
		return nil, err
	}
	if cfg.QueueSize < 1 {
		return nil, fmt.Errorf("engine.queue_size can not be less than 1")
	}
	cfg.MaxBatch, err = intKey(eng, "max_batch", defaultMaxBatch)
	if err != nil {
		return nil, err
	}
	if cfg.MaxBatch < 1 {
		return nil, fmt.Errorf("engine.max_batch can not be less than 1")
	}
	cfg.SyncWrites, err = boolKey(eng, "sync", false)
	if err != nil {
		return nil, err
	}

	return cfg, nil
}

// intKey returns def for a missing key and fails on a malformed one
func intKey(sec *ini.Section, name string, def int) (int, error) {
	if !sec.HasKey(name) {
		return def, nil
	}
	v, err := sec.Key(name).Int()
	if err != nil {
		return 0, fmt.Errorf("error reading %s.%s: %s", sec.Name(), name, err)
	}
	return v, nil
}

func boolKey(sec *ini.Section, name string, def bool) (bool, error) {
	if !sec.HasKey(name) {
		return def, nil
	}
	v, err := sec.Key(name).Bool()
	if err != nil {
		return false, fmt.Errorf("error reading %s.%s: %s", sec.Name(), name, err)
	}
	return v, nil
}
