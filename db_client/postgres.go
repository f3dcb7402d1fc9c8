package db_client

import (
	"time"

	"github.com/Strum355/log"
	"github.com/spf13/viper"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var (
	DB *gorm.DB
)

// Init connects to Postgres, waiting for it to come up, and migrates the
// catalogue schema.
func Init() {
	dsn := viper.GetString("postgres.dsn")

	var err error
	for attempt := 0; attempt < 10; attempt++ {
		DB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{})
		if err == nil {
			sqlDB, _ := DB.DB()
			if pingErr := sqlDB.Ping(); pingErr == nil {
				break
			}
		}
		log.Info("Waiting for Postgres to be ready...")
		time.Sleep(time.Second)
	}
	if err != nil {
		log.WithError(err).Error("Unable to connect to database")
		return
	}

	if err := DB.AutoMigrate(&CatalogueSong{}, &GuildConfig{}); err != nil {
		log.WithError(err).Error("Unable to migrate schema")
	}
}
