package intake

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"talentvault/internal/logger"

	"github.com/cloudwego/eino-ext/components/document/parser/pdf"
	einoParser "github.com/cloudwego/eino/components/document/parser"
	"github.com/rs/zerolog"
)

// PDFTextExtractor pulls plain text out of PDF attachments (resumes,
// printed profiles) so the parsed content can join the candidate's
// experience text.
type PDFTextExtractor struct {
	parser *pdf.PDFParser
	log    zerolog.Logger
}

// NewPDFTextExtractor initializes the extractor. ToPages is off: we want
// the document as one continuous string.
func NewPDFTextExtractor(ctx context.Context) (*PDFTextExtractor, error) {
	p, err := pdf.NewPDFParser(ctx, &pdf.Config{
		ToPages: false,
	})
	if err != nil {
		return nil, fmt.Errorf("creating eino PDF parser: %w", err)
	}
	return &PDFTextExtractor{
		parser: p,
		log:    logger.Logger.With().Str("component", "pdf_extractor").Logger(),
	}, nil
}

// ExtractTextFromReader parses one PDF stream into plain text.
func (e *PDFTextExtractor) ExtractTextFromReader(ctx context.Context, reader io.Reader, uri string) (string, error) {
	start := time.Now()

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	docs, err := e.parser.Parse(ctx, reader,
		einoParser.WithURI(uri),
	)
	if err != nil {
		return "", fmt.Errorf("eino PDF parser failed for %s: %w", uri, err)
	}
	if len(docs) == 0 {
		return "", fmt.Errorf("eino PDF parser returned no documents for %s", uri)
	}

	var full bytes.Buffer
	for i, doc := range docs {
		full.WriteString(doc.Content)
		if i < len(docs)-1 {
			full.WriteString("\n\n")
		}
	}

	e.log.Debug().
		Str("uri", uri).
		Int("chars", full.Len()).
		Dur("elapsed", time.Since(start)).
		Msg("pdf attachment extracted")
	return full.String(), nil
}

// ExtractTextFromBytes parses a decoded attachment body.
func (e *PDFTextExtractor) ExtractTextFromBytes(ctx context.Context, data []byte, uri string) (string, error) {
	return e.ExtractTextFromReader(ctx, bytes.NewReader(data), uri)
}
