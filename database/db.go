package database

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/igor04091968/v2panel/config"
	"github.com/igor04091968/v2panel/database/model"
	"github.com/igor04091968/v2panel/util/common"

	sqlitegorm "github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func initUser(db *gorm.DB) error {
	var count int64
	err := db.Model(&model.User{}).Count(&count).Error
	if err != nil {
		return err
	}
	if count == 0 {
		hash, err := common.HashPassword("admin")
		if err != nil {
			return err
		}
		user := &model.User{
			Username: "admin",
			Password: hash,
		}
		return db.Create(user).Error
	}
	return nil
}

func OpenDB(dbPath string) (*gorm.DB, error) {
	dir := filepath.Dir(dbPath)
	err := os.MkdirAll(dir, 01740)
	if err != nil {
		return nil, err
	}

	var gormLogger logger.Interface

	if config.IsDebug() {
		gormLogger = logger.Default
	} else {
		gormLogger = logger.Discard
	}

	c := &gorm.Config{
		Logger: gormLogger,
	}
	db, err := gorm.Open(sqlitegorm.Open(dbPath+"?_pragma=foreign_keys(1)"), c)
	if err != nil {
		return nil, err
	}

	if config.IsDebug() {
		db = db.Debug()
	}
	return db, nil
}

func InitDB(dbPath string) (*gorm.DB, error) {
	db, err := OpenDB(dbPath)
	if err != nil {
		return nil, err
	}

	err = db.AutoMigrate(
		&model.ServerConfig{},
		&model.User{},
	)
	if err != nil {
		return nil, err
	}
	err = initUser(db)
	if err != nil {
		return nil, err
	}

	return db, nil
}

func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
