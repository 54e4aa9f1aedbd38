package depotdb

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/materials-commons/depot/pkg/depotdb/model"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// SqliteInMemoryDSN is the DSN used by tests that want a throwaway
// catalog. cache=shared keeps every connection in a test pointed at the
// same in-memory database.
const SqliteInMemoryDSN = "file::memory:?cache=shared"

func MakeDSNFromEnv() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		os.Getenv("DB_USERNAME"),
		os.Getenv("DB_PASSWORD"),
		os.Getenv("DB_HOST"),
		os.Getenv("DB_PORT"),
		os.Getenv("DB_DATABASE"))
}

const maxDBRetries = 5

// MustConnectToDB will attempt to connect to the database maxDBRetries times. If it isn't successful
// after that number of retries then it will call log.Fatalf(), which will cause the server to exit.
// Between retry attempts it will sleep for 3 seconds.
func MustConnectToDB() *gorm.DB {
	var (
		err error
		db  *gorm.DB
	)

	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	}

	retryCount := 1
	for {
		db, err = gorm.Open(mysql.Open(MakeDSNFromEnv()), gormConfig)
		switch {
		case err == nil:
			return db
		case retryCount >= maxDBRetries:
			log.Fatalf("Failed to open db (%s): %s", MakeDSNFromEnv(), err)
		default:
			retryCount++
			time.Sleep(3 * time.Second)
		}
	}
}

// OpenSqlite opens a sqlite catalog at the given DSN. Used by tests and
// by single-node deployments that don't want to run mysql.
func OpenSqlite(dsn string) (*gorm.DB, error) {
	return gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
}

// RunMigrations creates or updates the catalog tables.
func RunMigrations(db *gorm.DB) error {
	return db.AutoMigrate(
		&model.File{},
		&model.Multipart{},
		&model.Owner{},
		&model.TransferHistory{},
	)
}
