package rag

import (
	"math"
	"regexp"
	"sort"
	"strings"

	"studi-rag/internal/vectorindex"
)

// Blend weights when lexical re-ranking is enabled. The vector score
// stays dominant; exact keyword overlap nudges ties and near-ties.
const (
	vectorWeight  = 0.8
	lexicalWeight = 0.2
)

var wordRe = regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*`)

// rerank blends each hit's similarity score with the Ochiai coefficient
// of query/chunk token overlap, preserving the deterministic tie-break
// of the underlying index order.
func rerank(query string, hits []vectorindex.Hit) []vectorindex.Hit {
	qset := tokenSet(query)
	for i := range hits {
		lex := ochiai(qset, hits[i].Text)
		hits[i].Score = float32(vectorWeight*float64(hits[i].Score) + lexicalWeight*lex)
	}
	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Score > hits[j].Score
	})
	return hits
}

func tokenSet(s string) map[string]struct{} {
	tokens := wordRe.FindAllString(strings.ToLower(s), -1)
	set := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		set[t] = struct{}{}
	}
	return set
}

// ochiai is |A∩B| / sqrt(|A||B|) over the distinct token sets.
func ochiai(qset map[string]struct{}, text string) float64 {
	if len(qset) == 0 {
		return 0
	}
	tset := tokenSet(text)
	if len(tset) == 0 {
		return 0
	}
	inter := 0
	for t := range tset {
		if _, ok := qset[t]; ok {
			inter++
		}
	}
	return float64(inter) / (math.Sqrt(float64(len(qset))) * math.Sqrt(float64(len(tset))))
}
