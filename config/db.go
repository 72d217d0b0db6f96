package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"accommodation-backend/models"
	"accommodation-backend/utils"

	mysqldrv "github.com/go-sql-driver/mysql"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func baseMySQLConfig() *mysqldrv.Config {
	c := mysqldrv.NewConfig()
	c.Net = "tcp"
	c.ParseTime = true
	c.Loc = time.UTC
	c.Params = map[string]string{"charset": "utf8mb4"}
	return c
}

func mysqlDSNFromURL(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}

	c := baseMySQLConfig()
	c.User = u.User.Username()
	c.Passwd, _ = u.User.Password()
	port := u.Port()
	if port == "" {
		port = "3306"
	}
	c.Addr = u.Hostname() + ":" + port

	c.DBName = strings.TrimPrefix(u.Path, "/")
	if c.DBName == "" {
		return "", fmt.Errorf("mysql url missing database name")
	}
	for k, v := range u.Query() {
		if len(v) == 0 {
			continue
		}
		switch k {
		case "parseTime", "loc":
			// fixed: the engine stores UTC timestamps
		default:
			c.Params[k] = v[0]
		}
	}
	return c.FormatDSN(), nil
}

// ResolveMySQLDSN builds the driver DSN from MYSQL_URL / DATABASE_URL or the
// DB_* parts. A URL without the mysql:// scheme is taken as a ready DSN.
func ResolveMySQLDSN(db DBConfig) (string, error) {
	if raw := strings.TrimSpace(db.URL); raw != "" {
		if strings.HasPrefix(raw, "mysql://") {
			return mysqlDSNFromURL(raw)
		}
		return raw, nil
	}

	c := baseMySQLConfig()
	c.User = db.User
	c.Passwd = db.Pass
	c.Addr = db.Host + ":" + db.Port
	c.DBName = db.Name
	return c.FormatDSN(), nil
}

func gormLogLevel(level string) logger.LogLevel {
	switch level {
	case "silent":
		return logger.Silent
	case "error":
		return logger.Error
	case "info":
		return logger.Info
	default:
		return logger.Warn
	}
}

// NewGormLogger routes gorm's output through the shared logrus logger.
func NewGormLogger(level string) logger.Interface {
	return logger.New(
		utils.Logger,
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  gormLogLevel(level),
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
}

// ConnectDatabase opens MySQL and applies migrations.
func ConnectDatabase(cfg *Config) (*gorm.DB, error) {
	dsn, err := ResolveMySQLDSN(cfg.DB)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger:         NewGormLogger(cfg.GormLogLevel),
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}

	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(25)
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetConnMaxLifetime(30 * time.Minute)
	} else {
		utils.Logger.WithError(err).Warn("cannot get raw sql.DB")
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}

	return db, nil
}

// Migrate creates or updates the schema, parents before children.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.VendorAccommodation{},
		&models.VendorRoomPool{},
		&models.GuestHouse{},
		&models.Room{},
		&models.EventParticipant{},
		&models.Allocation{},
		&models.RefreshRun{},
	)
}
