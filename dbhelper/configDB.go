package dbhelper

import (
	"fmt"
	"os"

	"github.com/recetario/apiv1/models"
	"github.com/recetario/apiv1/utils"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

// OpenDB connects to MySQL using the environment configuration and returns
// the handle; callers pass it explicitly into each store constructor.
func OpenDB() (*gorm.DB, error) {
	host := os.Getenv(utils.DBHOST)
	if host == "" {
		host = utils.DEFAULT_DB_HOST
	}
	dsn := fmt.Sprintf(
		"%s:%s@tcp(%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		os.Getenv(utils.DBUSER),
		os.Getenv(utils.DBPASS),
		host,
		os.Getenv(utils.DBNAME),
	)
	return gorm.Open(mysql.Open(dsn), &gorm.Config{})
}

func InitDB(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.BlacklistedToken{},
	)
}
