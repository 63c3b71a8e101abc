package offline

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/paharikhet/sahayak/internal/data"
)

// DefaultSimilarityThreshold is the minimum score for an embedding
// match. The token-overlap fallback does not filter by it.
const DefaultSimilarityThreshold = 0.3

// NoHistoryMessage is returned when the chat log holds nothing similar.
const NoHistoryMessage = "I'm currently offline and couldn't find any similar questions in your chat history. " +
	"Please check your internet connection to get real-time answers."

// Match is a history record scored against the current query.
type Match struct {
	Record data.ChatRecord
	Score  float64
}

// HistorySource yields the stored interactions to search over.
type HistorySource interface {
	All(ctx context.Context, limit int) ([]data.ChatRecord, error)
}

// Searcher finds similar past interactions in the chat log. Searching
// never mutates the log.
type Searcher struct {
	history   HistorySource
	embedder  Embedder
	threshold float64
	log       zerolog.Logger
}

// NewSearcher creates a Searcher. A threshold <= 0 uses the default.
func NewSearcher(history HistorySource, embedder Embedder, threshold float64, logger zerolog.Logger) *Searcher {
	if threshold <= 0 {
		threshold = DefaultSimilarityThreshold
	}
	if embedder == nil {
		embedder = NullEmbedder{}
	}
	return &Searcher{
		history:   history,
		embedder:  embedder,
		threshold: threshold,
		log:       logger.With().Str("component", "offline").Logger(),
	}
}

// FindSimilar returns up to topK stored interactions whose question is
// similar to the query, best first. Embedding similarity is tried
// first; if the embedder is unavailable or fails, a token-overlap
// heuristic decides instead.
func (s *Searcher) FindSimilar(ctx context.Context, query string, topK int) ([]Match, error) {
	if topK <= 0 {
		topK = 3
	}

	records, err := s.history.All(ctx, 0)
	if err != nil {
		return nil, fmt.Errorf("load chat history: %w", err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	if s.embedder.Available() {
		matches, err := s.embeddingSearch(ctx, query, records, topK)
		if err == nil {
			return matches, nil
		}
		s.log.Warn().Err(err).Msg("embedding search failed, using token overlap")
	}

	return s.overlapSearch(query, records, topK), nil
}

// embeddingSearch ranks records by cosine similarity of their stored
// question against the query.
func (s *Searcher) embeddingSearch(ctx context.Context, query string, records []data.ChatRecord, topK int) ([]Match, error) {
	queryVec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}
	queryVec = normalize(queryVec)

	var matches []Match
	for _, rec := range records {
		vec, err := s.embedder.Embed(ctx, rec.UserQuery)
		if err != nil {
			return nil, err
		}
		score := dot(normalize(vec), queryVec)
		if score >= s.threshold {
			matches = append(matches, Match{Record: rec, Score: score})
		}
	}

	sortMatches(matches)
	if len(matches) > topK {
		matches = matches[:topK]
	}
	return matches, nil
}

// overlapSearch scores records by the fraction of query tokens present
// in the stored question. Unlike the embedding path it applies no
// threshold: any record with at least one token hit ranks, so a long
// query can still surface a loosely related answer.
func (s *Searcher) overlapSearch(query string, records []data.ChatRecord, topK int) []Match {
	terms := strings.Fields(strings.ToLower(query))
	if len(terms) == 0 {
		return nil
	}

	var matches []Match
	for _, rec := range records {
		stored := strings.ToLower(rec.UserQuery)
		hits := 0
		for _, term := range terms {
			if strings.Contains(stored, term) {
				hits++
			}
		}
		if hits == 0 {
			continue
		}
		matches = append(matches, Match{Record: rec, Score: float64(hits) / float64(len(terms))})
	}

	sortMatches(matches)
	if len(matches) > topK {
		matches = matches[:topK]
	}
	return matches
}

func sortMatches(matches []Match) {
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
}

// normalize scales a vector to unit length. The epsilon guards against
// division by zero for degenerate all-zero vectors.
func normalize(v Embedding) Embedding {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	norm := math.Sqrt(sum) + 1e-8

	out := make(Embedding, len(v))
	for i, x := range v {
		out[i] = float32(float64(x) / norm)
	}
	return out
}

func dot(a, b Embedding) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var sum float64
	for i := 0; i < n; i++ {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

// FormatResponse renders matches as the offline-mode answer. Phrasing
// is banded by the best match's score.
func FormatResponse(matches []Match, query string) string {
	if len(matches) == 0 {
		return NoHistoryMessage
	}

	best := matches[0]

	var sb strings.Builder
	sb.WriteString("**Offline Mode**\n\n")

	switch {
	case best.Score >= 0.7:
		sb.WriteString("I found a very similar question in your chat history. Here's what I answered before:\n\n")
	case best.Score >= 0.5:
		sb.WriteString("I found a related question in your chat history. Here's a similar answer:\n\n")
	default:
		sb.WriteString("I found a somewhat related question in your chat history. This might help:\n\n")
	}

	fmt.Fprintf(&sb, "**Previous Question:** %s\n\n", best.Record.UserQuery)
	fmt.Fprintf(&sb, "**Previous Answer:**\n%s\n\n", best.Record.AssistantResponse)

	sb.WriteString("---\n")
	sb.WriteString("*Note: This is from your chat history. For the most current information, please check your internet connection.*")

	if len(matches) > 1 {
		fmt.Fprintf(&sb, "\n\n*I also found %d other related conversation(s) in your history.*", len(matches)-1)
	}

	return sb.String()
}
