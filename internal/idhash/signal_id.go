// Package idhash computes deterministic identifiers.
// Identical phenomena must always hash to the same id so that candidates
// produced by different detectors collapse during deduplication.
package idhash

import (
	"crypto/sha256"
	"sort"
	"strings"

	"github.com/mr-tron/base58"

	"signal-lab/internal/domain"
)

// HourMs is the id time-bucket width in milliseconds.
const HourMs int64 = 3600000

// ComputeSignalID computes a deterministic signal id.
// Formula: base58(SHA256(type|kw1,kw2,...|hourBucket)) where keywords are
// normalized (lowercased, trimmed, deduplicated) and sorted, and hourBucket
// is firstDetectedMs truncated to the hour. Keyword order and duplicates do
// not affect the result.
func ComputeSignalID(signalType domain.SignalType, keywords []string, firstDetectedMs int64) string {
	normalized := NormalizeKeywords(keywords)

	var b strings.Builder
	b.WriteString(string(signalType))
	b.WriteByte('|')
	b.WriteString(strings.Join(normalized, ","))
	b.WriteByte('|')
	writeInt(&b, firstDetectedMs/HourMs)

	hash := sha256.Sum256([]byte(b.String()))
	return base58.Encode(hash[:])
}

// NormalizeKeywords lowercases, trims, deduplicates and sorts keywords.
// Empty strings are dropped. The input slice is not modified.
func NormalizeKeywords(keywords []string) []string {
	seen := make(map[string]bool, len(keywords))
	var result []string
	for _, kw := range keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw == "" || seen[kw] {
			continue
		}
		seen[kw] = true
		result = append(result, kw)
	}
	sort.Strings(result)
	return result
}

// writeInt appends the decimal representation of v without allocation churn.
func writeInt(b *strings.Builder, v int64) {
	if v < 0 {
		b.WriteByte('-')
		v = -v
	}
	var buf [20]byte
	i := len(buf)
	for {
		i--
		buf[i] = byte('0' + v%10)
		v /= 10
		if v == 0 {
			break
		}
	}
	b.Write(buf[i:])
}
