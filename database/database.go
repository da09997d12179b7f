package database

import (
	"fmt"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"mySocialApp/domain"
)

// Config holds the database connection settings.
type Config struct {
	Driver          string `mapstructure:"driver"` // postgres, mysql or sqlite
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	Name            string `mapstructure:"name"`
	SSLMode         string `mapstructure:"sslmode"`   // postgres only
	FilePath        string `mapstructure:"file_path"` // sqlite only
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"` // minutes
}

// Dialector returns the gorm dialector matching the configured driver.
func (c Config) Dialector() (gorm.Dialector, error) {
	switch c.Driver {
	case "postgres", "":
		dsn := fmt.Sprintf("host=%s port=%d user=%s dbname=%s sslmode=%s", c.Host, c.Port, c.User, c.Name, c.sslMode())
		if c.Password != "" {
			dsn += " password=" + c.Password
		}
		return postgres.Open(dsn), nil
	case "mysql":
		dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
			c.User, c.Password, c.Host, c.Port, c.Name)
		return mysql.Open(dsn), nil
	case "sqlite":
		if c.FilePath == "" {
			return nil, fmt.Errorf("sqlite file path required")
		}
		return sqlite.Open(c.FilePath), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.Driver)
	}
}

func (c Config) sslMode() string {
	if c.SSLMode == "" {
		return "disable"
	}
	return c.SSLMode
}

// DB provides the database connection.
type DB struct {
	// Object-relational mapping.
	Gorm *gorm.DB
	// Connection settings.
	Config Config
}

// NewDB returns a new instance of DB.
func NewDB(cfg Config) *DB {
	return &DB{
		Config: cfg,
	}
}

// Open opens a new database connection. Logging is silent in production
// and verbose in development. Driver errors are translated into gorm errors,
// so a unique violation comes back as gorm.ErrDuplicatedKey.
func Open(db *DB, isProd bool) error {
	dialector, err := db.Config.Dialector()
	if err != nil {
		return err
	}
	gormConfig := &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
		NowFunc:        func() time.Time { return time.Now().UTC() },
	}
	if !isProd {
		gormConfig.Logger = logger.Default.LogMode(logger.Info)
	}
	db.Gorm, err = gorm.Open(dialector, gormConfig)
	if err != nil {
		return fmt.Errorf("err opening gorm %s connection: %w", db.Config.Driver, err)
	}

	sqlDB, err := db.Gorm.DB()
	if err != nil {
		return fmt.Errorf("err getting sql.DB: %w", err)
	}
	if db.Config.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(db.Config.MaxIdleConns)
	}
	if db.Config.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(db.Config.MaxOpenConns)
	}
	if db.Config.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(time.Duration(db.Config.ConnMaxLifetime) * time.Minute)
	}
	return nil
}

// models lists every table of the app, parents first.
func models() []interface{} {
	return []interface{}{
		&domain.User{},
		&domain.Follow{},
		&domain.Friendship{},
		&domain.FriendRequest{},
		&domain.Post{},
		&domain.Like{},
		&domain.Comment{},
		&domain.Share{},
	}
}

// AutoMigrate runs database migrations for all tables.
func AutoMigrate(db *DB) error {
	return db.Gorm.AutoMigrate(models()...)
}

// DestructiveReset drops all tables and rebuilds them.
func DestructiveReset(db *DB) error {
	m := models()
	// Children go first so foreign keys don't get in the way.
	for i, j := 0, len(m)-1; i < j; i, j = i+1, j-1 {
		m[i], m[j] = m[j], m[i]
	}
	if err := db.Gorm.Migrator().DropTable(m...); err != nil {
		return err
	}
	return AutoMigrate(db)
}

// Close closes the database connection.
func Close(db *DB) error {
	sqlDB, err := db.Gorm.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
