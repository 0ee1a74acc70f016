// database_utils should be the canonical place to put shared DB utils.
// It should not include:
// 1. Any util that doesn't manipulate DB
// 2. Any util that contains business logic
package utils

import (
	"fmt"
	"os"
	"testing"

	"github.com/pubky-app/social-core/model"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// GetDBConnection opens the local cache database. On-device runs use a
// sqlite file (CACHE_DB_PATH, default "pubky-cache.db"); setting DB_HOST
// switches to postgres for hosted deployments and CI.
func GetDBConnection() (*gorm.DB, error) {
	if os.Getenv("DB_HOST") != "" {
		dsn := fmt.Sprintf(
			"host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
			os.Getenv("DB_HOST"), os.Getenv("DB_USER"), os.Getenv("DB_PASS"),
			os.Getenv("DB_NAME"), os.Getenv("DB_PORT"))
		return getDB(postgres.Open(dsn))
	}

	path := os.Getenv("CACHE_DB_PATH")
	if path == "" {
		path = "pubky-cache.db"
	}
	return getDB(sqlite.Open(path))
}

func getDB(dialector gorm.Dialector) (*gorm.DB, error) {
	return gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
}

// DatabaseSetupAndMigration creates every local cache table: one logical
// table per entity kind plus the stream/queue/notification tables.
func DatabaseSetupAndMigration(db *gorm.DB) error {
	return db.AutoMigrate(
		&model.PostDetails{},
		&model.PostCounts{},
		&model.PostRelationships{},
		&model.PostTags{},
		&model.UserDetails{},
		&model.UserCounts{},
		&model.UserTags{},
		&model.UserRelationship{},
		&model.PostStream{},
		&model.PostStreamQueue{},
		&model.UserStream{},
		&model.Notification{},
	)
}

// CreateTempDB creates a private in-memory sqlite cache for one test case.
// Each test gets its own database; the shared-cache dsn keeps it alive for
// every connection of the test and it vanishes when the test ends.
func CreateTempDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", RandomAlphabetString(8))
	db, err := getDB(sqlite.Open(dsn))
	if err != nil {
		t.Fatal("cannot open temp cache DB: ", err)
	}
	if err := DatabaseSetupAndMigration(db); err != nil {
		t.Fatal("cannot migrate temp cache DB: ", err)
	}

	t.Cleanup(func() {
		conn, _ := db.DB()
		conn.Close()
	})

	return db
}
