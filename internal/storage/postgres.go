package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"talentvault/internal/config"
	"talentvault/internal/constants"
	"talentvault/internal/storage/models"
	"talentvault/internal/tracing"

	"github.com/gofrs/uuid/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

var pgTracer = otel.Tracer("talentvault/storage/postgres")

// GormTracingPlugin adds OpenTelemetry spans around every GORM operation.
type GormTracingPlugin struct {
	tracer         trace.Tracer
	dbName         string
	disableErrSkip bool
}

func (p *GormTracingPlugin) Name() string {
	return "GormOpenTelemetryPlugin"
}

// Initialize registers before/after callbacks for all CRUD operation kinds.
func (p *GormTracingPlugin) Initialize(db *gorm.DB) error {
	cb := db.Callback()

	if err := cb.Create().Before("gorm:create").Register("otel:before_create", p.before("CREATE")); err != nil {
		return err
	}
	if err := cb.Create().After("gorm:create").Register("otel:after_create", p.after()); err != nil {
		return err
	}

	if err := cb.Query().Before("gorm:query").Register("otel:before_query", p.before("SELECT")); err != nil {
		return err
	}
	if err := cb.Query().After("gorm:query").Register("otel:after_query", p.after()); err != nil {
		return err
	}

	if err := cb.Update().Before("gorm:update").Register("otel:before_update", p.before("UPDATE")); err != nil {
		return err
	}
	if err := cb.Update().After("gorm:update").Register("otel:after_update", p.after()); err != nil {
		return err
	}

	if err := cb.Delete().Before("gorm:delete").Register("otel:before_delete", p.before("DELETE")); err != nil {
		return err
	}
	if err := cb.Delete().After("gorm:delete").Register("otel:after_delete", p.after()); err != nil {
		return err
	}

	if err := cb.Row().Before("gorm:row").Register("otel:before_row", p.before("ROW")); err != nil {
		return err
	}
	if err := cb.Row().After("gorm:row").Register("otel:after_row", p.after()); err != nil {
		return err
	}

	if err := cb.Raw().Before("gorm:raw").Register("otel:before_raw", p.before("RAW")); err != nil {
		return err
	}
	if err := cb.Raw().After("gorm:raw").Register("otel:after_raw", p.after()); err != nil {
		return err
	}

	return nil
}

func (p *GormTracingPlugin) before(operation string) func(db *gorm.DB) {
	return func(db *gorm.DB) {
		if p.disableErrSkip && db.Statement.SkipHooks {
			return
		}

		ctx := db.Statement.Context
		if ctx == nil {
			ctx = context.Background()
		}

		tableName := db.Statement.Table
		if tableName == "" {
			tableName = "unknown"
		}

		spanName := fmt.Sprintf("%s %s", operation, tableName)
		opts := []trace.SpanStartOption{
			trace.WithSpanKind(trace.SpanKindClient),
			trace.WithAttributes(
				semconv.DBSystemPostgreSQL,
				attribute.String("db.name", p.dbName),
				attribute.String("db.operation", operation),
				attribute.String("db.sql.table", tableName),
			),
		}

		sqlStatement := db.Statement.SQL.String()
		if sqlStatement != "" {
			opts = append(opts, trace.WithAttributes(
				attribute.String("db.statement", sqlStatement),
			))
		}

		newCtx, span := p.tracer.Start(ctx, spanName, opts...)
		db.Statement.Context = context.WithValue(newCtx, gormSpanKey{}, span)
	}
}

type gormSpanKey struct{}

func (p *GormTracingPlugin) after() func(db *gorm.DB) {
	return func(db *gorm.DB) {
		span, ok := db.Statement.Context.Value(gormSpanKey{}).(trace.Span)
		if !ok {
			return
		}
		defer span.End()

		span.SetAttributes(attribute.Int64("db.rows_affected", db.Statement.RowsAffected))

		if db.Error != nil {
			if errors.Is(db.Error, gorm.ErrRecordNotFound) {
				// Not-found is a normal outcome, not a span failure.
				span.SetAttributes(attribute.String("error.type", "record_not_found"))
				span.SetStatus(codes.Ok, "record not found")
			} else {
				tracing.RecordError(span, db.Error, tracing.ErrorTypeDB)
			}
		} else {
			span.SetStatus(codes.Ok, "")
		}
	}
}

// NewGormTracingPlugin builds the tracing plugin for one database.
func NewGormTracingPlugin(dbName string) *GormTracingPlugin {
	return &GormTracingPlugin{
		tracer:         pgTracer,
		dbName:         dbName,
		disableErrSkip: true,
	}
}

func (p *GormTracingPlugin) WithDisableErrSkip(disable bool) *GormTracingPlugin {
	p.disableErrSkip = disable
	return p
}

// Database is the relational-store surface the rest of the service uses.
type Database interface {
	DB() *gorm.DB
	Close() error
	GetByID(id interface{}, dest interface{}) error
	Find(dest interface{}, query interface{}, args ...interface{}) error
	Save(value interface{}) error
	Delete(value interface{}, query interface{}, args ...interface{}) error
}

var _ Database = (*Postgres)(nil)

// Postgres backs the vault with a PostgreSQL database via GORM.
type Postgres struct {
	db  *gorm.DB
	cfg *config.PostgresConfig
}

// NewPostgres connects, installs the tracing plugin, and migrates the
// schema.
func NewPostgres(cfg *config.PostgresConfig) (*Postgres, error) {
	if cfg == nil {
		return nil, fmt.Errorf("postgres config must not be nil")
	}

	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.Username, cfg.Password, cfg.Database, sslMode)

	var logLevel logger.LogLevel
	switch cfg.LogLevel {
	case 1:
		logLevel = logger.Silent
	case 2:
		logLevel = logger.Error
	case 3:
		logLevel = logger.Warn
	case 4:
		logLevel = logger.Info
	default:
		logLevel = logger.Info
	}

	gormConfig := &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		Logger:                                   logger.Default.LogMode(logLevel),
		PrepareStmt:                              true,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	}

	db, err := gorm.Open(postgres.Open(dsn), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("getting underlying sql.DB: %w", err)
	}
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetimeMinutes) * time.Minute)
	sqlDB.SetConnMaxIdleTime(time.Duration(cfg.ConnMaxIdleTimeMinutes) * time.Minute)

	p := &Postgres{
		db:  db,
		cfg: cfg,
	}

	tracingPlugin := NewGormTracingPlugin(cfg.Database).WithDisableErrSkip(true)
	if err := db.Use(tracingPlugin); err != nil {
		return nil, fmt.Errorf("registering tracing plugin: %w", err)
	}

	if err := p.autoMigrateSchema(); err != nil {
		if sqlDB, _ := db.DB(); sqlDB != nil {
			sqlDB.Close()
		}
		return nil, fmt.Errorf("migrating schema: %w", err)
	}

	return p, nil
}

// autoMigrateSchema migrates all vault tables with SQL logging silenced.
func (p *Postgres) autoMigrateSchema() error {
	currentLogger := p.db.Logger

	silentLogger := logger.New(
		log.New(log.Writer(), "", log.LstdFlags),
		logger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  logger.Silent,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	silentDB := p.db.Session(&gorm.Session{Logger: silentLogger})
	err := silentDB.AutoMigrate(
		&models.VaultCandidate{},
		&models.IntakeSubmission{},
		&models.DigestLog{},
		&models.OutboxMessage{},
	)

	p.db = p.db.Session(&gorm.Session{Logger: currentLogger})

	if err != nil {
		return fmt.Errorf("gorm auto-migration: %w", err)
	}
	return nil
}

func (p *Postgres) DB() *gorm.DB {
	return p.db
}

func (p *Postgres) Close() error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return fmt.Errorf("getting underlying sql.DB: %w", err)
	}
	return sqlDB.Close()
}

func (p *Postgres) GetByID(id interface{}, dest interface{}) error {
	return p.db.First(dest, "id = ?", id).Error
}

func (p *Postgres) Find(dest interface{}, query interface{}, args ...interface{}) error {
	return p.db.Where(query, args...).Find(dest).Error
}

func (p *Postgres) Save(value interface{}) error {
	return p.db.Save(value).Error
}

func (p *Postgres) Delete(value interface{}, query interface{}, args ...interface{}) error {
	return p.db.Where(query, args...).Delete(value).Error
}

// CreateIntakeSubmission inserts a submission row, idempotently on the
// primary key so webhook retries do not fail.
func (p *Postgres) CreateIntakeSubmission(ctx context.Context, submission *models.IntakeSubmission) error {
	ctx, span := pgTracer.Start(ctx, "Postgres.CreateIntakeSubmission",
		trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	span.SetAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.sql.table", "intake_submissions"),
		attribute.String("submission.uuid", submission.SubmissionUUID),
	)

	err := p.db.WithContext(ctx).Clauses(
		clause.OnConflict{
			Columns:   []clause.Column{{Name: "submission_uuid"}},
			DoNothing: true,
		}).Create(submission).Error
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeDB)
		return err
	}
	span.SetStatus(codes.Ok, "")
	return nil
}

// UpdateSubmissionStatus advances a submission's processing status.
func (p *Postgres) UpdateSubmissionStatus(ctx context.Context, submissionUUID string, status string) error {
	return p.db.WithContext(ctx).Model(&models.IntakeSubmission{}).
		Where("submission_uuid = ?", submissionUUID).
		Update("processing_status", status).Error
}

// MarkSubmissionFailed records the failure reason alongside the status.
func (p *Postgres) MarkSubmissionFailed(ctx context.Context, submissionUUID string, cause error) error {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	return p.db.WithContext(ctx).Model(&models.IntakeSubmission{}).
		Where("submission_uuid = ?", submissionUUID).
		Updates(map[string]interface{}{
			"processing_status": constants.StatusSubmissionFailed,
			"error_message":     msg,
		}).Error
}

// AttachCandidateToSubmission links a submission to the vault profile it
// produced and advances its status.
func (p *Postgres) AttachCandidateToSubmission(ctx context.Context, submissionUUID, candidateID, status string) error {
	return p.db.WithContext(ctx).Model(&models.IntakeSubmission{}).
		Where("submission_uuid = ?", submissionUUID).
		Updates(map[string]interface{}{
			"candidate_id":      candidateID,
			"processing_status": status,
		}).Error
}

// GetSubmissionByUUID loads one intake submission.
func (p *Postgres) GetSubmissionByUUID(ctx context.Context, submissionUUID string) (*models.IntakeSubmission, error) {
	var submission models.IntakeSubmission
	if err := p.db.WithContext(ctx).
		Where("submission_uuid = ?", submissionUUID).
		First(&submission).Error; err != nil {
		return nil, err
	}
	return &submission, nil
}

// GetCandidateByLocator loads a vault profile by its public locator.
func (p *Postgres) GetCandidateByLocator(ctx context.Context, locator string) (*models.VaultCandidate, error) {
	var candidate models.VaultCandidate
	if err := p.db.WithContext(ctx).
		Where("locator = ?", locator).
		First(&candidate).Error; err != nil {
		return nil, err
	}
	return &candidate, nil
}

// ListActiveCandidates returns the freshest active profiles for digest
// assembly, newest first.
func (p *Postgres) ListActiveCandidates(ctx context.Context, limit int) ([]models.VaultCandidate, error) {
	if limit <= 0 {
		limit = 12
	}
	var candidates []models.VaultCandidate
	err := p.db.WithContext(ctx).
		Where("status = ?", constants.StatusCandidateActive).
		Order("updated_at DESC").
		Limit(limit).
		Find(&candidates).Error
	if err != nil {
		return nil, err
	}
	return candidates, nil
}

// UpsertCandidateWithOutbox writes the vault profile and its
// candidate.upserted outbox row in one transaction. The event is only ever
// published if the profile committed.
func (p *Postgres) UpsertCandidateWithOutbox(ctx context.Context, candidate *models.VaultCandidate, exchange, routingKey string) error {
	ctx, span := pgTracer.Start(ctx, "Postgres.UpsertCandidateWithOutbox",
		trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	span.SetAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("candidate.locator", candidate.Locator),
	)

	err := p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "locator"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"headline", "firm_generalized", "aum_range", "production_range",
				"location_generalized", "anonymized_profile", "bullets",
				"enrichment_json", "source_submission_uuid", "transcript_path_oss",
				"updated_at",
			}),
		}).Create(candidate).Error; err != nil {
			return fmt.Errorf("upserting vault candidate: %w", err)
		}

		var bulletCount int
		var bullets []json.RawMessage
		if len(candidate.Bullets) > 0 {
			if err := json.Unmarshal(candidate.Bullets, &bullets); err == nil {
				bulletCount = len(bullets)
			}
		}

		submissionUUID := ""
		if candidate.SourceSubmissionUUID != nil {
			submissionUUID = *candidate.SourceSubmissionUUID
		}
		payload, err := json.Marshal(CandidateUpsertedEvent{
			CandidateID:    candidate.CandidateID,
			Locator:        candidate.Locator,
			SubmissionUUID: submissionUUID,
			Headline:       candidate.Headline,
			AUMRange:       candidate.AUMRange,
			BulletCount:    bulletCount,
			UpsertedAt:     time.Now().UTC(),
		})
		if err != nil {
			return fmt.Errorf("serializing candidate.upserted payload: %w", err)
		}

		outboxMsg := &models.OutboxMessage{
			AggregateID:      candidate.CandidateID,
			EventType:        constants.EventCandidateUpserted,
			Payload:          string(payload),
			TargetExchange:   exchange,
			TargetRoutingKey: routingKey,
			Status:           constants.StatusOutboxPending,
		}
		if err := tx.Create(outboxMsg).Error; err != nil {
			return fmt.Errorf("creating outbox message: %w", err)
		}
		return nil
	})
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeDB)
		return err
	}
	span.SetStatus(codes.Ok, "")
	return nil
}

// SaveDigestLogWithOutbox records a digest and its digest.issued event in
// one transaction.
func (p *Postgres) SaveDigestLogWithOutbox(ctx context.Context, digest *models.DigestLog, locators []string, exchange, routingKey string) error {
	return p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(digest).Error; err != nil {
			return fmt.Errorf("creating digest log: %w", err)
		}

		payload, err := json.Marshal(DigestIssuedEvent{
			DigestID:    digest.DigestID,
			Title:       digest.Title,
			ItemCount:   digest.ItemCount,
			Locators:    locators,
			GeneratedAt: digest.GeneratedAt,
		})
		if err != nil {
			return fmt.Errorf("serializing digest.issued payload: %w", err)
		}

		outboxMsg := &models.OutboxMessage{
			AggregateID:      fmt.Sprintf("digest-%d", digest.DigestID),
			EventType:        constants.EventDigestIssued,
			Payload:          string(payload),
			TargetExchange:   exchange,
			TargetRoutingKey: routingKey,
			Status:           constants.StatusOutboxPending,
		}
		if err := tx.Create(outboxMsg).Error; err != nil {
			return fmt.Errorf("creating outbox message: %w", err)
		}
		return nil
	})
}

// NewCandidateID mints a time-ordered candidate UUID.
func NewCandidateID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("generating candidate UUID: %w", err)
	}
	return id.String(), nil
}
