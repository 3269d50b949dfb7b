package text

import "strings"

// StopSet is a set of words dropped before vectorizing.
type StopSet map[string]struct{}

// NewStopSet builds a set from words, lowercased.
func NewStopSet(words ...string) StopSet {
	s := make(StopSet, len(words))
	for _, w := range words {
		s[strings.ToLower(w)] = struct{}{}
	}
	return s
}

func (s StopSet) Contains(w string) bool {
	_, ok := s[w]
	return ok
}

// With returns a copy of s extended by extra words.
func (s StopSet) With(extra ...string) StopSet {
	out := make(StopSet, len(s)+len(extra))
	for w := range s {
		out[w] = struct{}{}
	}
	for _, w := range extra {
		out[strings.ToLower(w)] = struct{}{}
	}
	return out
}

// RemoveStopwords returns tokens not in stop, preserving order.
func RemoveStopwords(tokens []string, stop StopSet) []string {
	out := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if !stop.Contains(t) {
			out = append(out, t)
		}
	}
	return out
}

// DefaultStopwords is a common English stop word list.
var DefaultStopwords = NewStopSet(
	"a", "about", "above", "after", "again", "against", "all", "am", "an", "and",
	"any", "are", "aren't", "as", "at", "be", "because", "been", "before", "being",
	"below", "between", "both", "but", "by", "can", "can't", "cannot", "could",
	"couldn't", "did", "didn't", "do", "does", "doesn't", "doing", "don't", "down",
	"during", "each", "few", "for", "from", "further", "had", "hadn't", "has",
	"hasn't", "have", "haven't", "having", "he", "he'd", "he'll", "he's", "her",
	"here", "here's", "hers", "herself", "him", "himself", "his", "how", "how's",
	"i", "i'd", "i'll", "i'm", "i've", "if", "in", "into", "is", "isn't", "it",
	"it's", "its", "itself", "let's", "me", "more", "most", "mustn't", "my",
	"myself", "no", "nor", "not", "of", "off", "on", "once", "only", "or", "other",
	"ought", "our", "ours", "ourselves", "out", "over", "own", "same", "shan't",
	"she", "she'd", "she'll", "she's", "should", "shouldn't", "so", "some", "such",
	"than", "that", "that's", "the", "their", "theirs", "them", "themselves",
	"then", "there", "there's", "these", "they", "they'd", "they'll", "they're",
	"they've", "this", "those", "through", "to", "too", "under", "until", "up",
	"very", "was", "wasn't", "we", "we'd", "we'll", "we're", "we've", "were",
	"weren't", "what", "what's", "when", "when's", "where", "where's", "which",
	"while", "who", "who's", "whom", "why", "why's", "will", "with", "won't",
	"would", "wouldn't", "you", "you'd", "you'll", "you're", "you've", "your",
	"yours", "yourself", "yourselves", "said", "says", "also",
)
