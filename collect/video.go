package collect

import (
	"context"
	"fmt"

	"github.com/wyrmwatch/sentinel/pattern"
)

// DefaultChunkSize and DefaultChunkOverlap govern how transcript text is
// split before being handed to the LLM-backed TaskManager.
const (
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 200
)

// Chunk is one overlapping slice of concatenated transcript text.
type Chunk struct {
	Text  string
	Start int
	End   int
}

// VideoTranscriptCollector fetches a transcript, chunks it for LLM-backed
// entity/topic extraction, and separately classifies propaganda spans via
// PatternSourceManager.
type VideoTranscriptCollector struct {
	source      VideoTranscriptSource
	taskManager TaskManager
}

// NewVideoTranscriptCollector returns a VideoTranscriptCollector.
// taskManager may be nil to skip LLM-backed extraction.
func NewVideoTranscriptCollector(source VideoTranscriptSource, taskManager TaskManager) *VideoTranscriptCollector {
	return &VideoTranscriptCollector{source: source, taskManager: taskManager}
}

// Result is everything VideoTranscriptCollector.Collect produces for one video.
type Result struct {
	Entities          []ExtractedEntity
	Topics            []string
	ManipulationSpans []pattern.Pattern
}

// Collect fetches videoID's transcript, chunks it for entity/topic
// extraction, and classifies manipulation spans over the full segment list.
func (c *VideoTranscriptCollector) Collect(ctx context.Context, videoID string) (Result, error) {
	segments, err := c.source.Transcript(ctx, videoID)
	if err != nil {
		return Result{}, fmt.Errorf("collect: transcript %s: %w", videoID, err)
	}

	patternSegments := make([]pattern.TranscriptSegment, len(segments))
	var full string
	for i, s := range segments {
		patternSegments[i] = pattern.TranscriptSegment{Text: s.Text, Start: s.Start, Duration: s.Duration}
		full += s.Text + " "
	}

	var result Result
	result.ManipulationSpans = pattern.ClassifySpans(patternSegments)

	if c.taskManager == nil {
		return result, nil
	}

	for _, chunk := range ChunkText(full, DefaultChunkSize, DefaultChunkOverlap) {
		entities, err := c.taskManager.ExtractEntities(ctx, chunk.Text)
		if err != nil {
			return result, fmt.Errorf("collect: extract entities: %w", err)
		}
		result.Entities = append(result.Entities, entities...)

		topics, err := c.taskManager.SegmentTopics(ctx, chunk.Text)
		if err != nil {
			return result, fmt.Errorf("collect: segment topics: %w", err)
		}
		result.Topics = append(result.Topics, topics...)
	}
	return result, nil
}

// ChunkText splits text into overlapping chunks of size chunkSize with
// overlap characters shared between consecutive chunks.
func ChunkText(text string, chunkSize, overlap int) []Chunk {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if overlap < 0 || overlap >= chunkSize {
		overlap = DefaultChunkOverlap
	}

	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}

	var chunks []Chunk
	step := chunkSize - overlap
	for start := 0; start < len(runes); start += step {
		end := start + chunkSize
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, Chunk{Text: string(runes[start:end]), Start: start, End: end})
		if end == len(runes) {
			break
		}
	}
	return chunks
}
