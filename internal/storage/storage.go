package storage

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"talentvault/internal/config"
)

// Storage aggregates every backing store the service talks to.
type Storage struct {
	// Object storage for raw emails and transcripts.
	MinIO *MinIO

	// Message broker.
	RabbitMQ *RabbitMQ

	// Vault database.
	Postgres *Postgres

	// Dedup and cache store.
	Redis *Redis
}

// NewStorage initializes each configured backend. A single failed backend
// logs a warning; only total failure is an error, so partial deployments
// (e.g. no broker in a dev setup) still come up.
func NewStorage(ctx context.Context, cfg *config.Config) (*Storage, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	storage := &Storage{}
	var err error
	var initErrors []string

	var minioLogger *log.Logger
	if cfg.Logger.Level == "debug" {
		minioLogger = log.New(os.Stderr, "[MinIOStorage] ", log.LstdFlags|log.Lshortfile)
	} else {
		minioLogger = log.New(io.Discard, "", 0)
	}

	storage.MinIO, err = NewMinIO(&cfg.MinIO, minioLogger)
	if err != nil {
		log.Printf("warning: initializing MinIO failed: %v", err)
		initErrors = append(initErrors, fmt.Sprintf("MinIO: %v", err))
	}

	if cfg.RabbitMQ.URL != "" {
		storage.RabbitMQ, err = NewRabbitMQ(&cfg.RabbitMQ)
		if err != nil {
			log.Printf("warning: initializing RabbitMQ failed: %v", err)
			initErrors = append(initErrors, fmt.Sprintf("RabbitMQ: %v", err))
		} else if err := storage.RabbitMQ.SetupTopology(); err != nil {
			log.Printf("warning: setting up broker topology failed: %v", err)
			initErrors = append(initErrors, fmt.Sprintf("RabbitMQ topology: %v", err))
		}
	}

	if cfg.Postgres.Host != "" {
		storage.Postgres, err = NewPostgres(&cfg.Postgres)
		if err != nil {
			log.Printf("warning: initializing Postgres failed: %v", err)
			initErrors = append(initErrors, fmt.Sprintf("Postgres: %v", err))
		}
	}

	if cfg.Redis.Address != "" {
		storage.Redis, err = NewRedisAdapter(&cfg.Redis)
		if err != nil {
			log.Printf("warning: initializing Redis failed: %v", err)
			initErrors = append(initErrors, fmt.Sprintf("Redis: %v", err))
		}
	} else {
		log.Printf("redis not configured, skipping")
	}

	if storage.MinIO == nil && storage.RabbitMQ == nil && storage.Postgres == nil && storage.Redis == nil {
		return nil, fmt.Errorf("all storage backends failed to initialize: %s", strings.Join(initErrors, "; "))
	}

	if len(initErrors) > 0 {
		log.Printf("warning: some storage backends failed to initialize: %s", strings.Join(initErrors, "; "))
	}

	return storage, nil
}

// Close shuts down every open connection.
func (s *Storage) Close() {
	if s.RabbitMQ != nil {
		if err := s.RabbitMQ.Close(); err != nil {
			log.Printf("closing RabbitMQ connection failed: %v", err)
		}
	}
	if s.Postgres != nil {
		if err := s.Postgres.Close(); err != nil {
			log.Printf("closing Postgres connection failed: %v", err)
		}
	}
	if s.Redis != nil {
		if err := s.Redis.Close(); err != nil {
			log.Printf("closing Redis connection failed: %v", err)
		}
	}
	// The MinIO client holds no long-lived connection needing explicit close.
}
