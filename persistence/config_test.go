package persistence

import (
	"os"
	"testing"

	. "github.com/onsi/gomega"
)

func TestParseDatabaseConfigFromEnv(t *testing.T) {
	RegisterTestingT(t)

	t.Run("should use driver args from env when present", func(t *testing.T) {
		os.Setenv("DB_DRIVER_TYPE", "")
		os.Setenv("DB_DRIVER_ARGS", "u:p@(db:3306)/x?parseTime=True")
		defer os.Unsetenv("DB_DRIVER_ARGS")

		c, err := ParseDatabaseConfigFromEnv()
		Expect(err).To(BeNil())
		Expect(*c).To(Equal(DatabaseConfig{DriverType: "mysql", DriverArgs: "u:p@(db:3306)/x?parseTime=True"}))
	})

	t.Run("should assemble mysql dsn from pieces", func(t *testing.T) {
		os.Unsetenv("DB_DRIVER_ARGS")
		os.Setenv("MYSQL_HOST", "mysql.local")
		os.Setenv("MYSQL_DATABASE", "approvals")
		defer os.Unsetenv("MYSQL_HOST")
		defer os.Unsetenv("MYSQL_DATABASE")

		c, err := ParseDatabaseConfigFromEnv()
		Expect(err).To(BeNil())
		Expect(c.DriverType).To(Equal("mysql"))
		Expect(c.DriverArgs).To(HavePrefix("root:root@tcp(mysql.local:3306)/approvals?"))
		Expect(c.DriverArgs).To(ContainSubstring("parseTime=true"))
	})

	t.Run("should reject unsupported driver", func(t *testing.T) {
		os.Setenv("DB_DRIVER_TYPE", "sqlite3")
		defer os.Unsetenv("DB_DRIVER_TYPE")

		c, err := ParseDatabaseConfigFromEnv()
		Expect(c).To(BeNil())
		Expect(err).To(MatchError("unsupported database driver type 'sqlite3'"))
	})
}
