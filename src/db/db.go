package db

import (
	"log"
	"os"
	"pbs/src/config"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

var db *gorm.DB

func GetDb() *gorm.DB {
	if db != nil {
		return db
	}
	_db, err := gorm.Open(dialector(config.GetDBDriver()))
	if err != nil {
		log.Printf("Error connecting to database: %s\n", err.Error())
		panic(err)
	}
	sqlDB, err := _db.DB()
	if err != nil {
		log.Fatalf("Error establishing connection to database: %s\n", err.Error())
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	if config.GetDBDriver() == "sqlite" {
		// sqlite serializes writers; one connection keeps row locks meaningful
		sqlDB.SetMaxOpenConns(1)
	}

	db = _db
	return _db
}

func dialector(driver string) gorm.Dialector {
	switch driver {
	case "sqlite":
		name := os.Getenv("DATABASE_NAME")
		if name == "" {
			name = "pbs.db"
		}
		return sqlite.Open(name)
	default:
		return postgres.Open(config.GetDSN())
	}
}

func NewDB(newdb *gorm.DB) {
	db = newdb
}
