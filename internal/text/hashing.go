package text

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/james-bowman/nlp"
	"gonum.org/v1/gonum/mat"

	"github.com/oho/clusterlab/internal/mathutil"
)

// ErrNoDocuments is returned when there is nothing to vectorize.
var ErrNoDocuments = errors.New("text: no documents")

var tokenFieldRE = regexp.MustCompile(`\S+`)

// DefaultFeatures is the hashed vector width when none is configured.
const DefaultFeatures = 1 << 10

// HashVectorize maps each token list onto a features-wide term count vector
// with the hashing trick, optionally reweighted by inverse document
// frequency, and L2-normalizes every row.
func HashVectorize(docs [][]string, features int, idf bool) ([][]float64, error) {
	if len(docs) == 0 {
		return nil, ErrNoDocuments
	}
	if features <= 0 {
		features = DefaultFeatures
	}
	corpus := make([]string, len(docs))
	for i, toks := range docs {
		corpus[i] = strings.Join(toks, " ")
	}

	// tokens arrive final from the tokenize and stop word stages; the
	// vectoriser only splits them back apart on whitespace
	vectoriser := nlp.NewHashingVectoriser(features)
	vectoriser.Tokeniser = &nlp.RegExpTokeniser{RegExp: tokenFieldRE}
	counts, err := vectoriser.FitTransform(corpus...)
	if err != nil {
		return nil, fmt.Errorf("hash vectorize: %w", err)
	}
	if idf {
		tfidf := nlp.NewTfidfTransformer()
		if counts, err = tfidf.FitTransform(counts); err != nil {
			return nil, fmt.Errorf("tf-idf: %w", err)
		}
	}
	return documentRows(counts), nil
}

// documentRows turns a terms x documents matrix into one normalized row per
// document.
func documentRows(m mat.Matrix) [][]float64 {
	terms, n := m.Dims()
	rows := make([][]float64, n)
	for j := 0; j < n; j++ {
		row := make([]float64, terms)
		for i := 0; i < terms; i++ {
			row[i] = m.At(i, j)
		}
		rows[j] = mathutil.Normalize(row)
	}
	return rows
}

// TopTerms returns up to n tokens that occur most often across docs, ties
// broken alphabetically. Used to describe what a cluster is about.
func TopTerms(docs [][]string, n int) []string {
	counts := make(map[string]int)
	for _, toks := range docs {
		for _, t := range toks {
			counts[t]++
		}
	}
	terms := make([]string, 0, len(counts))
	for t := range counts {
		terms = append(terms, t)
	}
	sort.Slice(terms, func(a, b int) bool {
		if counts[terms[a]] != counts[terms[b]] {
			return counts[terms[a]] > counts[terms[b]]
		}
		return terms[a] < terms[b]
	})
	if n > len(terms) {
		n = len(terms)
	}
	return terms[:n]
}
