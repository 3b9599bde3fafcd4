package config

import (
	"fmt"
	"net/url"
)

type DatabaseConfig struct {
	Host     string `yaml:"host" env:"DB_HOST" env-default:"localhost"`
	Port     int    `yaml:"port" env:"DB_PORT" env-default:"5432"`
	User     string `yaml:"user" env:"DB_USER" env-default:"postgres"`
	Password string `yaml:"password" env:"DB_PASSWORD"`
	Name     string `yaml:"name" env:"DB_NAME" env-default:"happyphone"`
	SSLMode  string `yaml:"sslmode" env:"DB_SSLMODE" env-default:"disable"`
	MaxConns int32  `yaml:"max_conns" env:"DB_MAX_CONNS" env-default:"10"`
}

func (c DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:     c.Name,
		RawQuery: "sslmode=" + url.QueryEscape(c.SSLMode),
	}
	return u.String()
}

const (
	StorageBackendPostgres = "postgres"
	StorageBackendS3       = "s3"
	StorageBackendMemory   = "memory"
)

type StorageConfig struct {
	Backend string   `yaml:"backend" env:"STORAGE_BACKEND" env-default:"postgres"`
	S3      S3Config `yaml:"s3"`
}

type S3Config struct {
	Endpoint  string `yaml:"endpoint" env:"S3_ENDPOINT"`
	Bucket    string `yaml:"bucket" env:"S3_BUCKET" env-default:"happyphone"`
	Region    string `yaml:"region" env:"S3_REGION" env-default:"us-east-1"`
	AccessKey string `yaml:"access_key" env:"S3_ACCESS_KEY"`
	SecretKey string `yaml:"secret_key" env:"S3_SECRET_KEY"`
	Prefix    string `yaml:"prefix" env:"S3_PREFIX" env-default:"terminal"`
}
