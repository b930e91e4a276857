package memory

import (
	"encoding/json"
	"sort"
	"strings"
	"time"

	"github.com/scrypster/socratic/internal/text"
	"github.com/scrypster/socratic/pkg/types"
)

// maxKeywords bounds the keywords kept on a long-term entry.
const maxKeywords = 10

// GeneralCluster is the cluster every long-term entry belongs to.
const GeneralCluster = "general"

// Content is the opaque payload of a memory event.
type Content map[string]any

// Clone returns a shallow copy of c.
func (c Content) Clone() Content {
	if c == nil {
		return nil
	}
	out := make(Content, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}

// String returns a deterministic rendering of c, used for substring search.
func (c Content) String() string {
	b, err := json.Marshal(map[string]any(c))
	if err != nil {
		return ""
	}
	return string(b)
}

// Keywords extracts up to limit distinct keywords from the string fields of c,
// visiting fields in key order.
func (c Content) Keywords(limit int) []string {
	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	seen := make(map[string]struct{})
	var out []string
	for _, k := range keys {
		s, ok := c[k].(string)
		if !ok {
			continue
		}
		for _, kw := range text.Keywords(s) {
			if _, dup := seen[kw]; dup {
				continue
			}
			seen[kw] = struct{}{}
			out = append(out, kw)
			if len(out) == limit {
				return out
			}
		}
	}
	return out
}

// WorkingEntry is a short-term learning event.
type WorkingEntry struct {
	ID                 string           `json:"memory_id"`
	Content            Content          `json:"content"`
	Type               types.MemoryType `json:"memory_type"`
	CreatedAt          time.Time        `json:"creation_time"`
	LastAccess         time.Time        `json:"last_access_time"`
	AccessCount        int              `json:"access_count"`
	Strength           float64          `json:"strength"`
	ConsolidationScore float64          `json:"consolidation_score"`

	decayedAt time.Time
}

func (e *WorkingEntry) touch(now time.Time) {
	e.LastAccess = now
	e.AccessCount++
}

func (e *WorkingEntry) rescore(now time.Time) {
	e.ConsolidationScore = consolidationScore(now.Sub(e.CreatedAt).Hours(), e.AccessCount, e.Strength)
}

func (e WorkingEntry) clone() WorkingEntry {
	e.Content = e.Content.Clone()
	return e
}

// LongTermEntry is a consolidated memory. It is also the cold-storage record.
type LongTermEntry struct {
	ID                 string           `json:"memory_id"`
	Content            Content          `json:"content"`
	Type               types.MemoryType `json:"memory_type"`
	CreatedAt          time.Time        `json:"creation_time"`
	LastAccess         time.Time        `json:"last_access_time"`
	AccessCount        int              `json:"access_count"`
	Strength           float64          `json:"strength"`
	ConsolidationScore float64          `json:"consolidation_score"`
	ConsolidatedAt     time.Time        `json:"consolidation_time"`
	FadeResistance     float64          `json:"fade_resistance"`
	Importance         float64          `json:"importance_score"`
	Keywords           []string         `json:"keywords"`
	ClusterTags        []string         `json:"cluster_tags"`
	DecayedAt          time.Time        `json:"decayed_at,omitempty"`
}

func (e LongTermEntry) clone() LongTermEntry {
	e.Content = e.Content.Clone()
	e.Keywords = append([]string(nil), e.Keywords...)
	e.ClusterTags = append([]string(nil), e.ClusterTags...)
	return e
}

// Clusterer derives the cluster tags of a new long-term entry. The general
// cluster is always added.
type Clusterer func(e LongTermEntry) []string

// TopicClusterer tags an entry with the normalized value of its "topic"
// content field.
func TopicClusterer(e LongTermEntry) []string {
	topic, ok := e.Content["topic"].(string)
	if !ok {
		return nil
	}
	topic = NormalizeTag(topic)
	if topic == "" {
		return nil
	}
	return []string{topic}
}

// NormalizeTag lowercases a tag and joins its words with underscores.
func NormalizeTag(s string) string {
	return strings.Join(text.Tokenize(strings.ReplaceAll(s, "_", " ")), "_")
}

// SearchResult is one hit from Search or ByCluster.
type SearchResult struct {
	ID        string  `json:"memory_id"`
	Content   Content `json:"content"`
	Relevance float64 `json:"relevance"`
}
