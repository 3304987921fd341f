package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
)

type StorageDriver string

const (
	MemoryStorage   StorageDriver = "memory"
	SQLiteStorage   StorageDriver = "sqlite"
	PostgresStorage StorageDriver = "postgres"
	BoltStorage     StorageDriver = "bolt"
)

type Storage struct {
	Driver     StorageDriver
	SQLitePath string
	BoltPath   string
}

// NewStorage reads STORAGE_DRIVER (memory by default) and the file path of
// the file based drivers.
func NewStorage() (*Storage, error) {
	driver := MemoryStorage
	if s, ok := os.LookupEnv("STORAGE_DRIVER"); ok && s != "" {
		driver = StorageDriver(strings.ToLower(s))
	}

	storage := &Storage{Driver: driver}
	switch driver {
	case MemoryStorage, PostgresStorage:
	case SQLiteStorage:
		path, ok := os.LookupEnv("SQLITE_PATH")
		if !ok || path == "" {
			return nil, fmt.Errorf("no SQLITE_PATH env variable set")
		}
		storage.SQLitePath = path
	case BoltStorage:
		path, ok := os.LookupEnv("BOLT_PATH")
		if !ok || path == "" {
			return nil, fmt.Errorf("no BOLT_PATH env variable set")
		}
		storage.BoltPath = path
	default:
		return nil, fmt.Errorf("unknown STORAGE_DRIVER %q", driver)
	}
	return storage, nil
}

type Database struct {
	Username string
	Password string
	Host     string
	Port     uint16
	DBName   string
	SSLMode  string
}

func lookupRequired(key string) (string, error) {
	value, ok := os.LookupEnv(key)
	if !ok {
		return "", fmt.Errorf("no %s env variable set", key)
	}
	return value, nil
}

// lookupSecret reads key from the environment or from the file named by
// key_FILE.
func lookupSecret(key string) (string, error) {
	if value, ok := os.LookupEnv(key); ok {
		return value, nil
	}
	path, ok := os.LookupEnv(key + "_FILE")
	if !ok {
		return "", fmt.Errorf("no %s or %s_FILE env variable set", key, key)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("unable to read %s: %w", path, err)
	}
	return strings.TrimSpace(string(data)), nil
}

func NewDatabase() (*Database, error) {
	username, err := lookupRequired("POSTGRES_USER")
	if err != nil {
		return nil, err
	}
	password, err := lookupSecret("POSTGRES_PASSWORD")
	if err != nil {
		return nil, fmt.Errorf("unable to load password: %w", err)
	}
	host, err := lookupRequired("POSTGRES_HOST")
	if err != nil {
		return nil, err
	}
	portStr, err := lookupRequired("POSTGRES_PORT")
	if err != nil {
		return nil, err
	}
	port, err := strconv.ParseUint(portStr, 10, 16)
	if err != nil {
		return nil, fmt.Errorf("unable to convert port to int: %w", err)
	}
	dbName, err := lookupRequired("POSTGRES_DB")
	if err != nil {
		return nil, err
	}
	sslMode, ok := os.LookupEnv("POSTGRES_SSLMODE")
	if !ok {
		sslMode = "disable"
	}

	return &Database{
		Username: username,
		Password: password,
		Host:     host,
		Port:     uint16(port),
		DBName:   dbName,
		SSLMode:  sslMode,
	}, nil
}

func (c Database) URL() string {
	return fmt.Sprintf(
		"postgresql://%s:%s@%s:%d/%s?sslmode=%s",
		url.QueryEscape(c.Username),
		url.QueryEscape(c.Password),
		c.Host,
		c.Port,
		c.DBName,
		c.SSLMode,
	)
}

// DbURL prefers DATABASE_URL over the POSTGRES_* variables.
func DbURL() (string, error) {
	if dbURL, ok := os.LookupEnv("DATABASE_URL"); ok {
		return dbURL, nil
	}
	cfg, err := NewDatabase()
	if err != nil {
		return "", fmt.Errorf("no DATABASE_URL set; %w", err)
	}
	return cfg.URL(), nil
}

func NewPgxpoolConfig() (*pgxpool.Config, error) {
	dbURL, err := DbURL()
	if err != nil {
		return nil, err
	}
	return pgxpool.ParseConfig(dbURL)
}
