package persistence

import (
	"database/sql"
	"fmt"
	"os"

	"github.com/go-sql-driver/mysql"
)

type DatabaseConfig struct {
	DriverType string
	DriverArgs string
}

// ParseDatabaseConfigFromEnv reads DB_DRIVER_TYPE and DB_DRIVER_ARGS. When DB_DRIVER_ARGS is absent the mysql DSN
// is assembled from MYSQL_USERNAME, MYSQL_PASSWORD, MYSQL_HOST, MYSQL_PORT and MYSQL_DATABASE.
func ParseDatabaseConfigFromEnv() (*DatabaseConfig, error) {
	driverType := os.Getenv("DB_DRIVER_TYPE")
	if driverType == "" {
		driverType = "mysql"
	}
	if driverType != "mysql" {
		return nil, fmt.Errorf("unsupported database driver type '%s'", driverType)
	}

	driverArgs := os.Getenv("DB_DRIVER_ARGS")
	if driverArgs == "" {
		c := mysql.NewConfig()
		c.User = envOrDefault("MYSQL_USERNAME", "root")
		c.Passwd = envOrDefault("MYSQL_PASSWORD", "root")
		c.Net = "tcp"
		c.Addr = envOrDefault("MYSQL_HOST", "127.0.0.1") + ":" + envOrDefault("MYSQL_PORT", "3306")
		c.DBName = envOrDefault("MYSQL_DATABASE", "approvalflow")
		c.ParseTime = true
		c.Params = map[string]string{"charset": "utf8mb4"}
		driverArgs = c.FormatDSN() + "&loc=Local"
	}
	return &DatabaseConfig{DriverType: driverType, DriverArgs: driverArgs}, nil
}

// PrepareMysqlDatabase creates the database named in the DSN if it does not exist yet.
func PrepareMysqlDatabase(driverArgs string) error {
	c, err := mysql.ParseDSN(driverArgs)
	if err != nil {
		return err
	}
	dbName := c.DBName
	if dbName == "" {
		return fmt.Errorf("database name is missing in '%s'", driverArgs)
	}
	c.DBName = ""

	db, err := sql.Open("mysql", c.FormatDSN())
	if err != nil {
		return err
	}
	defer db.Close()

	_, err = db.Exec("CREATE DATABASE IF NOT EXISTS `" + dbName + "` DEFAULT CHARACTER SET utf8mb4 COLLATE utf8mb4_unicode_ci")
	return err
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
