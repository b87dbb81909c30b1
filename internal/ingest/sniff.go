package ingest

import (
	"bytes"
	"io"
)

// sniffBytes is how much decoded content SniffFormat looks at.
const sniffBytes = 64 * 1024

// Guess is a content-based format guess.
type Guess struct {
	Format     Format
	Confidence float64
}

// SniffFormat guesses the format from the first lines of a decoded sample.
// NDJSON starts with a complete metadata object on its own line followed by
// array rows; a Dataset-JSON document is one object spread over many lines
// or a single line carrying "rows".
func SniffFormat(sample []byte) Guess {
	lines := bytes.Split(sample, []byte("\n"))
	// the last line may be cut by the sample size
	if len(lines) > 1 && len(sample) >= sniffBytes {
		lines = lines[:len(lines)-1]
	}
	var n, objects, arrays int
	for _, l := range lines {
		s := bytes.TrimSpace(l)
		if len(s) == 0 {
			continue
		}
		n++
		switch {
		case s[0] == '{' && s[len(s)-1] == '}':
			objects++
		case s[0] == '[' && s[len(s)-1] == ']':
			arrays++
		}
	}
	if n == 0 {
		return Guess{}
	}
	first := bytes.TrimSpace(sample)
	if len(first) == 0 || first[0] != '{' {
		return Guess{}
	}
	if objects == 1 && arrays == n-1 && n > 1 {
		return Guess{Format: FormatNDJSON, Confidence: conf(n, objects+arrays)}
	}
	if n == 1 && objects == 1 && findRowsOffset(first) < 0 {
		// metadata line alone: an NDJSON file with no rows
		return Guess{Format: FormatNDJSON, Confidence: 0.5}
	}
	return Guess{Format: FormatJSON, Confidence: conf(n, n-arrays)}
}

func conf(total, hits int) float64 {
	if total == 0 {
		return 0
	}
	c := float64(hits) / float64(total)
	if c > 1 {
		c = 1
	}
	return c
}

// sniffSource decodes the head of src and runs SniffFormat on it.
func sniffSource(src Source) (Guess, error) {
	r, _, err := openDecoded(src)
	if err != nil {
		return Guess{}, err
	}
	defer r.Close()
	buf, err := io.ReadAll(io.LimitReader(r, sniffBytes))
	if err != nil {
		return Guess{}, err
	}
	return SniffFormat(buf), nil
}
