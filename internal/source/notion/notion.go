// Package notion fetches the rows of a Notion database and turns them into
// ingestable records.
package notion

import (
	"context"
	"fmt"
	"strings"

	"github.com/jomei/notionapi"
	"go.uber.org/zap"

	"github.com/cosmos-nexus/nexus/internal/domain/record"
	"github.com/cosmos-nexus/nexus/internal/source"
)

// pageSize is the Notion maximum per query call.
const pageSize = 100

// Config holds the connection settings for one Notion database.
type Config struct {
	APIKey     string
	DatabaseID string
	Logger     *zap.Logger
}

// Source reads all pages of a single Notion database, following the cursor
// until has_more is false.
type Source struct {
	db     databaseQuerier
	dbID   notionapi.DatabaseID
	logger *zap.Logger
}

// databaseQuerier is the slice of the Notion client the source needs.
type databaseQuerier interface {
	Query(ctx context.Context, id notionapi.DatabaseID, req *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error)
}

// New creates a Notion source.
func New(cfg Config) (*Source, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("notion: API key is required")
	}
	if cfg.DatabaseID == "" {
		return nil, fmt.Errorf("notion: database ID is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	client := notionapi.NewClient(notionapi.Token(cfg.APIKey))
	return &Source{
		db:     client.Database,
		dbID:   notionapi.DatabaseID(cfg.DatabaseID),
		logger: cfg.Logger,
	}, nil
}

// Name identifies the source in reports and logs.
func (s *Source) Name() string { return "notion" }

// Fetch pages through the database query endpoint and maps every page's
// properties into a record. A cursor failure after at least one successful
// page returns the fetched subset wrapped in a *source.PartialError.
func (s *Source) Fetch(ctx context.Context) ([]record.Record, error) {
	var records []record.Record
	req := &notionapi.DatabaseQueryRequest{PageSize: pageSize}
	pages := 0

	for {
		resp, err := s.db.Query(ctx, s.dbID, req)
		if err != nil {
			if len(records) == 0 {
				return nil, fmt.Errorf("notion: query database: %w", err)
			}
			return records, &source.PartialError{
				Fetched: len(records),
				Err:     fmt.Errorf("notion: query database after page %d: %w", pages, err),
			}
		}
		pages++

		for i := range resp.Results {
			page := &resp.Results[i]
			rec, err := record.New(page.ID.String(), mapProperties(page.Properties))
			if err != nil {
				s.logger.Warn("Skipping page without ID", zap.Int("page", pages))
				continue
			}
			records = append(records, rec)
		}

		if !resp.HasMore {
			break
		}
		req.StartCursor = resp.NextCursor
	}

	s.logger.Info("Notion fetch complete",
		zap.String("database", string(s.dbID)),
		zap.Int("pages", pages),
		zap.Int("records", len(records)),
	)
	return records, nil
}

// mapProperties classifies page properties into field values. People, files,
// relations and formula results land on Unsupported and are dropped by
// normalization.
func mapProperties(props notionapi.Properties) map[string]record.Value {
	out := make(map[string]record.Value, len(props))
	for name, p := range props {
		out[name] = propertyValue(p)
	}
	return out
}

func propertyValue(p notionapi.Property) record.Value {
	switch t := p.(type) {
	case *notionapi.TitleProperty:
		return record.StringValue(plainText(t.Title))
	case *notionapi.RichTextProperty:
		return record.StringValue(plainText(t.RichText))
	case *notionapi.NumberProperty:
		return record.NumberValue(t.Number)
	case *notionapi.CheckboxProperty:
		return record.BoolValue(t.Checkbox)
	case *notionapi.SelectProperty:
		return record.StringValue(t.Select.Name)
	case *notionapi.MultiSelectProperty:
		names := make([]string, 0, len(t.MultiSelect))
		for _, opt := range t.MultiSelect {
			names = append(names, opt.Name)
		}
		return record.StringListValue(names)
	case *notionapi.URLProperty:
		return record.StringValue(t.URL)
	case *notionapi.EmailProperty:
		return record.StringValue(t.Email)
	case *notionapi.PhoneNumberProperty:
		return record.StringValue(t.PhoneNumber)
	default:
		return record.UnsupportedValue()
	}
}

func plainText(rts []notionapi.RichText) string {
	parts := make([]string, 0, len(rts))
	for _, rt := range rts {
		parts = append(parts, rt.PlainText)
	}
	return strings.Join(parts, "")
}
