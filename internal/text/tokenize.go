// Package text turns raw documents into numeric feature rows: tokenize,
// drop stop words, then hash tokens into a fixed-width vector.
package text

import (
	"crypto/sha256"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/james-bowman/nlp"
	"github.com/pkoukk/tiktoken-go"
)

var encoder *tiktoken.Tiktoken

func init() {
	var err error
	encoder, err = tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		slog.Warn("tiktoken cl100k_base unavailable, using word-based estimate")
	}
}

// CountTokens counts tokens using tiktoken, fallback to word-based estimate.
func CountTokens(text string) int {
	if encoder != nil {
		return len(encoder.Encode(text, nil, nil))
	}
	return int(float64(len(strings.Fields(text))) * 1.33)
}

var wsRE = regexp.MustCompile(`\s+`)

// NormalizeText collapses whitespace and lowercases for stable hashing.
func NormalizeText(text string) string {
	return wsRE.ReplaceAllString(strings.TrimSpace(strings.ToLower(text)), " ")
}

// ComputeDocumentID derives a 32-char ID from a document's name and
// normalized content.
func ComputeDocumentID(name, text string) string {
	h := sha256.Sum256([]byte(name + ":" + NormalizeText(text)))
	return fmt.Sprintf("%x", h)[:32]
}

var wordTokeniser nlp.Tokeniser = &nlp.RegExpTokeniser{
	RegExp: regexp.MustCompile(`[\p{L}\p{N}]+(?:'[\p{L}]+)?`),
}

// Tokenize lowercases s and splits it into runs of letters and digits.
// Apostrophe contractions stay in one token.
func Tokenize(s string) []string {
	return wordTokeniser.Tokenise(strings.ToLower(s))
}

// Document is one text in a corpus.
type Document struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Text string `json:"text"`
}

// NewDocument builds a Document with a content-derived ID.
func NewDocument(name, text string) Document {
	return Document{ID: ComputeDocumentID(name, text), Name: name, Text: text}
}
