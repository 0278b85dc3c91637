package query

import (
	"fmt"
	"math/rand"
	"sort"
	"time"

	"github.com/gujimy/KVideo/pkg/history"
)

// GeneratorConfig holds reference generator configuration.
type GeneratorConfig struct {
	// MaxQueries caps the number of queries fanned out per feed.
	MaxQueries int

	// MaxPageStart bounds the randomized base offset (exclusive).
	MaxPageStart int

	// Rand is the source for PageStart randomization (default: time-seeded).
	Rand *rand.Rand
}

// DefaultGeneratorConfig returns a default generator configuration.
func DefaultGeneratorConfig() GeneratorConfig {
	return GeneratorConfig{
		MaxQueries:   3,
		MaxPageStart: 36,
	}
}

// Generator derives fan-out query sets from watch history.
//
// This is the reference implementation of the query-generation collaborator:
// (tag, type) pairs of the viewer's recent records ranked by frequency, most
// recent watch breaking ties. The ranking is deterministic for a given
// history, so the identity key of the generated set is too; only PageStart
// is randomized.
type Generator struct {
	cfg GeneratorConfig
	rng *rand.Rand
}

// NewGenerator creates a generator with the given configuration.
func NewGenerator(cfg GeneratorConfig) *Generator {
	def := DefaultGeneratorConfig()
	if cfg.MaxQueries <= 0 {
		cfg.MaxQueries = def.MaxQueries
	}
	if cfg.MaxPageStart <= 0 {
		cfg.MaxPageStart = def.MaxPageStart
	}

	rng := cfg.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	return &Generator{cfg: cfg, rng: rng}
}

// Generate returns the ordered query set for the given records, most
// frequent (tag, type) pair first. Records missing a tag or type are
// ignored. An empty result means no recommendations are possible.
func (g *Generator) Generate(records []history.Record) []Descriptor {
	type pairStat struct {
		tag    string
		typ    string
		count  int
		newest int // index of the most recent record with this pair
	}

	stats := make(map[string]*pairStat)
	var ranked []*pairStat

	for i, rec := range records {
		if rec.Tag == "" || rec.Type == "" {
			continue
		}
		k := rec.Tag + "\x00" + rec.Type
		st, ok := stats[k]
		if !ok {
			st = &pairStat{tag: rec.Tag, typ: rec.Type, newest: i}
			stats[k] = st
			ranked = append(ranked, st)
		}
		st.count++
	}

	sort.Slice(ranked, func(a, b int) bool {
		if ranked[a].count != ranked[b].count {
			return ranked[a].count > ranked[b].count
		}
		return ranked[a].newest < ranked[b].newest
	})

	n := g.cfg.MaxQueries
	if n > len(ranked) {
		n = len(ranked)
	}
	selected := ranked[:n]

	// A tag selected for more than one content type needs the type in its
	// label to stay distinguishable.
	tagCount := make(map[string]int, len(selected))
	for _, st := range selected {
		tagCount[st.tag]++
	}

	queries := make([]Descriptor, 0, n)
	for _, st := range selected {
		label := st.tag
		if tagCount[st.tag] > 1 {
			label = fmt.Sprintf("%s (%s)", st.tag, st.typ)
		}
		queries = append(queries, Descriptor{
			Tag:       st.tag,
			Type:      st.typ,
			Label:     label,
			PageStart: g.rng.Intn(g.cfg.MaxPageStart),
		})
	}
	return queries
}
