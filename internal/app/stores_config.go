package app

import (
	"github.com/vitalboard/server/internal/database"
	"github.com/vitalboard/server/internal/records"
	"github.com/vitalboard/server/internal/secrets"
)

// RedisStoreConfig converts SecretsConfig to the secret store representation.
func (c SecretsConfig) RedisStoreConfig() secrets.RedisConfig {
	return secrets.RedisConfig{
		Address:  c.Redis.Address,
		Username: c.Redis.Username,
		Password: c.Redis.Password,
		DB:       c.Redis.DB,
		Timeout:  c.Redis.Timeout,
	}
}

// S3StoreConfig converts RecordsConfig to the record store representation.
func (c RecordsConfig) S3StoreConfig() records.S3Config {
	return records.S3Config{
		Endpoint:  c.S3.Endpoint,
		Region:    c.S3.Region,
		Bucket:    c.S3.Bucket,
		AccessKey: c.S3.AccessKey,
		SecretKey: c.S3.SecretKey,
	}
}

// DatabaseOptions converts DatabaseConfig into connection options for
// the configured driver.
func (c DatabaseConfig) DatabaseOptions() database.Config {
	cfg := database.Config{
		Driver: c.Driver,
		Path:   c.Path,
		DSN:    c.DSN,
	}

	switch c.Driver {
	case "postgres":
		cfg.Host = c.Postgres.Host
		cfg.Port = c.Postgres.Port
		cfg.Name = c.Postgres.Database
		cfg.User = c.Postgres.Username
		cfg.Password = c.Postgres.Password
	case "mysql":
		cfg.Host = c.MySQL.Host
		cfg.Port = c.MySQL.Port
		cfg.Name = c.MySQL.Database
		cfg.User = c.MySQL.Username
		cfg.Password = c.MySQL.Password
	}

	return cfg
}
