// Package chat holds the conversation-side core: recency grouping for the
// chat list, the per-conversation message session, and title normalization.
package chat

import (
	"embed"
	"fmt"
	"sort"
	"time"

	"gopkg.in/yaml.v3"

	"snaptext/internal/domain/models"
)

//go:embed config/*.yaml
var configFiles embed.FS

// Bucket is a named, ordered time-range grouping of chats. Derived at
// read time for display, never stored.
type Bucket struct {
	Label string        `json:"label"`
	Chats []models.Chat `json:"chats"`
}

type bucketDef struct {
	Label       string  `yaml:"label"`
	MaxAgeHours float64 `yaml:"max_age_hours"`
	// Inclusive makes the limit itself still belong to this bucket
	// (exactly 168h is still "Last 7 Days").
	Inclusive bool `yaml:"inclusive"`
}

type bucketConfig struct {
	Buckets  []bucketDef `yaml:"buckets"`
	CatchAll string      `yaml:"catch_all"`
}

// Grouper partitions chats into recency buckets. It is a pure function of
// (now, chats): no side effects, no I/O after construction.
type Grouper struct {
	buckets  []bucketDef
	catchAll string
}

// NewGrouper creates a Grouper from the embedded bucket configuration
func NewGrouper() (*Grouper, error) {
	data, err := configFiles.ReadFile("config/buckets.yaml")
	if err != nil {
		return nil, fmt.Errorf("read bucket config: %w", err)
	}

	var cfg bucketConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal bucket config: %w", err)
	}
	if len(cfg.Buckets) == 0 || cfg.CatchAll == "" {
		return nil, fmt.Errorf("bucket config must define buckets and a catch_all label")
	}

	return &Grouper{
		buckets:  cfg.Buckets,
		catchAll: cfg.CatchAll,
	}, nil
}

// Group partitions chats by age into the configured buckets. Every input
// chat lands in exactly one bucket; buckets are emitted in configured
// order with empty buckets omitted; input order is preserved within a
// bucket. Sorting inside a bucket is the caller's concern, not the
// grouper's.
func (g *Grouper) Group(now time.Time, chats []models.Chat) []Bucket {
	grouped := make(map[string][]models.Chat)
	for _, chat := range chats {
		label := g.labelFor(now, chat.LastModifiedAt)
		grouped[label] = append(grouped[label], chat)
	}

	result := []Bucket{}
	for _, def := range g.buckets {
		if members, ok := grouped[def.Label]; ok {
			result = append(result, Bucket{Label: def.Label, Chats: members})
		}
	}
	if members, ok := grouped[g.catchAll]; ok {
		result = append(result, Bucket{Label: g.catchAll, Chats: members})
	}

	return result
}

func (g *Grouper) labelFor(now, lastModified time.Time) string {
	ageHours := now.Sub(lastModified).Hours()

	for _, def := range g.buckets {
		if ageHours < def.MaxAgeHours || (def.Inclusive && ageHours == def.MaxAgeHours) {
			return def.Label
		}
	}
	return g.catchAll
}

// SortByLastModifiedDesc orders chats most recently modified first. Applied
// per bucket by the consumer; kept separate from grouping on purpose.
func SortByLastModifiedDesc(chats []models.Chat) {
	sort.SliceStable(chats, func(i, j int) bool {
		return chats[i].LastModifiedAt.After(chats[j].LastModifiedAt)
	})
}
