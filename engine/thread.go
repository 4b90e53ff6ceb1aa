package engine

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// MaxThreadSegmentLen is THREAD_ANALYSIS's per-post character budget.
const MaxThreadSegmentLen = 280

// SplitThread breaks content into segments no longer than maxLen runes
// (including the "🧵 i/N " prefix), preferring to break at sentence
// boundaries and falling back to word boundaries. The prefix's width
// depends on N, so segmentation is repeated until the prefix-reserved
// budget and the resulting segment count agree.
func SplitThread(content string, maxLen int) []string {
	if maxLen <= 0 {
		maxLen = MaxThreadSegmentLen
	}

	content = strings.TrimSpace(content)
	if content == "" {
		return nil
	}

	segments := splitBody(content, maxLen-prefixWidth(1, 1))
	for i := 0; i < 5; i++ {
		n := len(segments)
		budget := maxLen - prefixWidth(n, n)
		resplit := splitBody(content, budget)
		if len(resplit) == n {
			segments = resplit
			break
		}
		segments = resplit
	}

	n := len(segments)
	out := make([]string, n)
	for i, seg := range segments {
		prefix := fmt.Sprintf("\U0001F9F5 %d/%d ", i+1, n)
		out[i] = prefix + seg
	}
	return out
}

func prefixWidth(i, n int) int {
	return utf8.RuneCountInString(fmt.Sprintf("\U0001F9F5 %d/%d ", i, n))
}

// splitBody greedily fills segments up to budget runes, preferring the
// last sentence boundary inside the window, then the last word boundary,
// then a hard cut.
func splitBody(content string, budget int) []string {
	if budget <= 0 {
		budget = 1
	}
	runes := []rune(content)
	var segments []string

	for len(runes) > 0 {
		if len(runes) <= budget {
			segments = append(segments, strings.TrimSpace(string(runes)))
			break
		}

		window := runes[:budget]
		cut := lastSentenceBoundary(window)
		if cut == -1 {
			cut = lastWordBoundary(window)
		}
		if cut <= 0 {
			cut = budget
		}

		segments = append(segments, strings.TrimSpace(string(runes[:cut])))
		runes = runes[cut:]
		for len(runes) > 0 && runes[0] == ' ' {
			runes = runes[1:]
		}
	}
	return segments
}

func lastSentenceBoundary(window []rune) int {
	for i := len(window) - 1; i >= 0; i-- {
		if window[i] == '.' || window[i] == '!' || window[i] == '?' {
			return i + 1
		}
	}
	return -1
}

func lastWordBoundary(window []rune) int {
	for i := len(window) - 1; i >= 0; i-- {
		if window[i] == ' ' {
			return i
		}
	}
	return -1
}
