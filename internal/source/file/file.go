// Package file reads an exported message archive from a local JSON dump and
// turns it into ingestable records.
//
// The dump layout is guild name → channels → channel name → message list,
// each message carrying id, author, content and timestamp.
package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"go.uber.org/zap"

	"github.com/cosmos-nexus/nexus/internal/domain/record"
	"github.com/cosmos-nexus/nexus/internal/source"
)

// Config holds the dump location.
type Config struct {
	Path   string
	Logger *zap.Logger
}

// Source reads one JSON dump file per Fetch call.
type Source struct {
	path   string
	logger *zap.Logger
}

// New creates a file source.
func New(cfg Config) (*Source, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("file: path is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Source{path: cfg.Path, logger: cfg.Logger}, nil
}

// Name identifies the source in reports and logs.
func (s *Source) Name() string { return "file" }

type dumpGuild struct {
	Channels map[string][]dumpMessage `json:"channels"`
}

// dumpMessage is one archived message. IDs are numeric snowflakes larger
// than float64 can hold exactly, so they decode as json.Number.
type dumpMessage struct {
	ID        json.Number `json:"id"`
	Author    string      `json:"author"`
	Content   string      `json:"content"`
	Timestamp string      `json:"timestamp"`
}

// Fetch parses the dump and maps every message to a record, walking guilds
// and channels in sorted order so repeated runs produce the same sequence.
// Messages without an id are skipped and reported via *source.PartialError.
func (s *Source) Fetch(ctx context.Context) ([]record.Record, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("file: open dump: %w", err)
	}
	defer f.Close()

	var dump map[string]dumpGuild
	if err := json.NewDecoder(f).Decode(&dump); err != nil {
		return nil, fmt.Errorf("file: decode dump: %w", err)
	}

	var records []record.Record
	skipped := 0

	for _, guildName := range sortedKeys(dump) {
		guild := dump[guildName]
		for _, channelName := range sortedKeys(guild.Channels) {
			for _, msg := range guild.Channels[channelName] {
				if err := ctx.Err(); err != nil {
					return nil, err
				}
				rec, err := record.New(msg.ID.String(), map[string]record.Value{
					"guild":     record.StringValue(guildName),
					"channel":   record.StringValue(channelName),
					"author":    record.StringValue(msg.Author),
					"content":   record.StringValue(msg.Content),
					"timestamp": record.StringValue(msg.Timestamp),
				})
				if err != nil {
					skipped++
					continue
				}
				records = append(records, rec)
			}
		}
	}

	s.logger.Info("File fetch complete",
		zap.String("path", s.path),
		zap.Int("records", len(records)),
		zap.Int("skipped", skipped),
	)

	if skipped > 0 {
		return records, &source.PartialError{
			Fetched: len(records),
			Skipped: skipped,
			Err:     fmt.Errorf("file: %d messages missing an id", skipped),
		}
	}
	return records, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
