package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"

	logging "github.com/op/go-logging"
	"golang.org/x/sync/errgroup"

	"github.com/viert/slotstore/common"
	"github.com/viert/slotstore/config"
	"github.com/viert/slotstore/engine"
	"github.com/viert/slotstore/server"
	"github.com/viert/slotstore/storage"
)

const (
	defaultConfigFilename = "/etc/ssserver.cfg"
)

var (
	log = logging.MustGetLogger("ssserver")
)

func openStorage(cfg *config.ServerCfg) (*storage.Storage, error) {
	_, err := os.Stat(cfg.StorageFileName)
	if errors.Is(err, os.ErrNotExist) && cfg.CreateStorage {
		log.Noticef("storage file %s not found, creating with slot capacity %d",
			cfg.StorageFileName, cfg.SlotCapacity)
		return storage.Create(cfg.StorageFileName, cfg.SlotCapacity)
	}
	return storage.Open(cfg.StorageFileName)
}

func main() {
	var configFilename string
	flag.StringVar(&configFilename, "c", "", "configuration filename")
	flag.Parse()

	if configFilename == "" {
		configFilename = defaultConfigFilename
	}

	f, err := os.Open(configFilename)
	if err != nil {
		log.Fatalf("can not open config file %s: %s", configFilename, err)
	}
	defer f.Close()

	cfg, err := config.ReadServerConfig(f)
	if err != nil {
		log.Fatalf("error reading config: %s", err)
	}

	lf, err := common.ConfigureLogging(cfg.LogFileName, cfg.LogLevel)
	if err != nil {
		log.Fatalf("error opening logfile: %s", err)
	}
	if lf != nil {
		defer lf.Close()
	}

	st, err := openStorage(cfg)
	if err != nil {
		log.Fatalf("error opening storage: %s", err)
	}
	log.Infof("storage %s opened: slot capacity %d, %d slots, %d free",
		cfg.StorageFileName, st.SlotCapacity(), st.EndSlotCount(), st.NumFree())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	eng := engine.New(st, engine.Options{
		QueueSize:  cfg.QueueSize,
		MaxBatch:   cfg.MaxBatch,
		SyncWrites: cfg.SyncWrites,
	})
	srv := server.NewServer(eng, cfg)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return eng.Run(gctx) })
	g.Go(func() error { return srv.Run(gctx) })

	err = g.Wait()
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Errorf("server stopped: %s", err)
	}

	err = st.Close()
	if err != nil {
		log.Errorf("error closing storage: %s", err)
	}
	log.Info("bye")
}
