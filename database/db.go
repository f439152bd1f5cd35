package database

import (
	"log"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"file-manager/config"
	"file-manager/models"
)

var DB *gorm.DB

// InitDB opens the metadata database and migrates the schema.
func InitDB() {
	var err error

	dbPath := config.GetConfig().DBPath

	DB, err = gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	err = DB.AutoMigrate(
		&models.File{},
	)
	if err != nil {
		log.Fatal("Failed to migrate database:", err)
	}

	log.Printf("Database initialized successfully at: %s", dbPath)
}
