package digest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"time"

	"talentvault/internal/anonymizer"
	"talentvault/internal/config"
	"talentvault/internal/constants"
	"talentvault/internal/evidence"
	"talentvault/internal/logger"
	"talentvault/internal/storage"
	"talentvault/internal/storage/models"
	"talentvault/internal/tracing"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var digestTracer = otel.Tracer("talentvault/digest")

// DigestItem is one candidate card in the rendered digest. Candidates are
// identified by locator only.
type DigestItem struct {
	Locator  string   `json:"locator"`
	Headline string   `json:"headline"`
	Bullets  []string `json:"bullets"`
	Metro    string   `json:"metro"`
	AUMRange string   `json:"aum_range"`
}

// Digest is a rendered digest plus its structured items.
type Digest struct {
	Title       string       `json:"title"`
	GeneratedAt time.Time    `json:"generated_at"`
	Items       []DigestItem `json:"items"`
	HTML        string       `json:"html"`
}

// Builder assembles digests from vaulted candidates.
type Builder struct {
	store *storage.Storage
	anon  *anonymizer.Anonymizer
	cfg   *config.Config
	tmpl  *template.Template
	log   zerolog.Logger
}

// NewBuilder prepares the digest template.
func NewBuilder(store *storage.Storage, anon *anonymizer.Anonymizer, cfg *config.Config) (*Builder, error) {
	tmpl, err := template.New("digest").Parse(digestTemplate)
	if err != nil {
		return nil, fmt.Errorf("parsing digest template: %w", err)
	}
	return &Builder{
		store: store,
		anon:  anon,
		cfg:   cfg,
		tmpl:  tmpl,
		log:   logger.Logger.With().Str("component", "digest_builder").Logger(),
	}, nil
}

// BuildDigest assembles a digest from the most recently updated active
// candidates. Stored fields are run through the anonymizer again before
// rendering; the transforms are idempotent, so clean data passes through
// and anything that slipped in raw gets generalized on the way out.
func (b *Builder) BuildDigest(ctx context.Context, limit int) (*Digest, error) {
	ctx, span := digestTracer.Start(ctx, "Builder.BuildDigest")
	defer span.End()

	if limit <= 0 {
		limit = b.cfg.Digest.MaxCandidates
	}

	candidates, err := b.store.Postgres.ListActiveCandidates(ctx, limit)
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeDB)
		return nil, fmt.Errorf("listing vault candidates: %w", err)
	}

	items := make([]DigestItem, 0, len(candidates))
	for i := range candidates {
		items = append(items, b.itemFromCandidate(&candidates[i]))
	}

	digest := &Digest{
		Title:       b.cfg.Digest.Title,
		GeneratedAt: time.Now().UTC(),
		Items:       items,
	}

	var buf bytes.Buffer
	if err := b.tmpl.Execute(&buf, digest); err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeInternal)
		return nil, fmt.Errorf("rendering digest: %w", err)
	}
	digest.HTML = buf.String()

	span.SetAttributes(attribute.Int("digest.items", len(items)))
	span.SetStatus(codes.Ok, "")
	return digest, nil
}

// IssueDigest builds a digest, records it in the digest log, and queues the
// digest.issued event through the outbox. A short Redis lock keeps
// concurrent issuers from double-sending; when Redis is down the digest
// still goes out.
func (b *Builder) IssueDigest(ctx context.Context, limit int) (*Digest, error) {
	if b.store.Redis != nil {
		token, err := b.store.Redis.AcquireLock(ctx, constants.KeyDigestBuildLock, 2*time.Minute)
		if err != nil {
			b.log.Warn().Err(err).Msg("digest lock unavailable, continuing without it")
		} else if token == "" {
			return nil, fmt.Errorf("a digest build is already in progress")
		} else {
			defer func() {
				if _, err := b.store.Redis.ReleaseLock(context.WithoutCancel(ctx), constants.KeyDigestBuildLock, token); err != nil {
					b.log.Warn().Err(err).Msg("releasing digest lock failed")
				}
			}()
		}
	}

	digest, err := b.BuildDigest(ctx, limit)
	if err != nil {
		return nil, err
	}

	locators := make([]string, len(digest.Items))
	for i, item := range digest.Items {
		locators[i] = item.Locator
	}
	locatorsJSON, err := json.Marshal(locators)
	if err != nil {
		return nil, fmt.Errorf("serializing digest locators: %w", err)
	}

	log := &models.DigestLog{
		Title:             digest.Title,
		ItemCount:         len(digest.Items),
		CandidateLocators: locatorsJSON,
		GeneratedAt:       digest.GeneratedAt,
	}
	if err := b.store.Postgres.SaveDigestLogWithOutbox(ctx, log, locators,
		b.cfg.RabbitMQ.CRMEventsExchange, b.cfg.RabbitMQ.DigestIssuedKey); err != nil {
		return nil, fmt.Errorf("recording digest: %w", err)
	}

	b.log.Info().
		Uint64("digest_id", log.DigestID).
		Int("items", len(digest.Items)).
		Msg("digest issued")
	return digest, nil
}

// itemFromCandidate renders one stored candidate into a digest card.
func (b *Builder) itemFromCandidate(c *models.VaultCandidate) DigestItem {
	item := DigestItem{
		Locator:  c.Locator,
		Headline: b.anon.GeneralizeFreeText(c.Headline),
		Metro:    b.anon.GeneralizeLocation(c.LocationGeneralized),
		AUMRange: b.anon.GeneralizeDollarRange(c.AUMRange),
	}

	var bullets []evidence.BulletPoint
	if len(c.Bullets) > 0 {
		if err := json.Unmarshal(c.Bullets, &bullets); err != nil {
			b.log.Warn().Err(err).Str("locator", c.Locator).Msg("stored bullets unreadable")
		}
	}
	for i := range bullets {
		if !bullets[i].HasValidEvidence() {
			continue
		}
		item.Bullets = append(item.Bullets, b.anon.GeneralizeFreeText(bullets[i].Text))
	}
	return item
}

const digestTemplate = `<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>{{.Title}}</title></head>
<body>
<h1>{{.Title}}</h1>
<p>Generated {{.GeneratedAt.Format "January 2, 2006"}} &middot; {{len .Items}} candidates</p>
{{range .Items}}
<div class="candidate">
  <h2>{{.Locator}}</h2>
  {{if .Headline}}<p class="headline">{{.Headline}}</p>{{end}}
  <p class="meta">{{if .Metro}}{{.Metro}}{{end}}{{if .AUMRange}} &middot; AUM: {{.AUMRange}}{{end}}</p>
  {{if .Bullets}}<ul>
  {{range .Bullets}}<li>{{.}}</li>
  {{end}}</ul>{{end}}
</div>
{{end}}
</body>
</html>
`
