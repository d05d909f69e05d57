package main

import (
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/rl1809/warehouse/internal/adapter/storage"
	"github.com/rl1809/warehouse/internal/config"
)

func migrateSchema(c *cli.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	db, err := openMySQL(c.Context, cfg.MySQLDSN)
	if err != nil {
		return err
	}
	m, err := storage.Migrate(db)
	if err != nil {
		db.Close()
		return err
	}
	defer m.Close()

	version, dirty, err := m.Version()
	if err != nil {
		return err
	}
	log.WithFields(log.Fields{"version": version, "dirty": dirty}).Info("schema up to date")
	return nil
}
