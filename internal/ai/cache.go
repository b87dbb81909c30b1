package ai

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"trialscope/internal/model"
	"trialscope/internal/util/logx"
)

// DefaultCacheDir returns a directory under the OS temp dir holding answered
// questions.
func DefaultCacheDir() string {
	return filepath.Join(os.TempDir(), "trialscope-ask-cache")
}

// cacheKey derives a stable key from the endpoint, the dataset shape and the
// question.
func (c *OpenAIClient) cacheKey(question string, ds *model.Dataset) (string, error) {
	q := strings.Join(strings.Fields(strings.ToLower(question)), " ")
	if q == "" {
		return "", errors.New("empty question")
	}
	h := sha1.New()
	fmt.Fprintf(h, "%s\x00%s\x00", c.baseURL, c.model)
	if ds != nil {
		fmt.Fprintf(h, "%s\x00%s\x00", ds.Name, strings.Join(ds.ColumnNames(), ","))
	}
	h.Write([]byte(q))
	return hex.EncodeToString(h.Sum(nil)), nil
}

func (c *OpenAIClient) loadCached(question string, ds *model.Dataset) (Suggestion, bool) {
	if c.cacheDir == "" {
		return Suggestion{}, false
	}
	key, err := c.cacheKey(question, ds)
	if err != nil {
		return Suggestion{}, false
	}
	f, err := os.Open(filepath.Join(c.cacheDir, "ask_"+key+".json"))
	if err != nil {
		return Suggestion{}, false
	}
	defer f.Close()
	var s Suggestion
	if err := json.NewDecoder(f).Decode(&s); err != nil || s.Filter == "" {
		return Suggestion{}, false
	}
	return s, true
}

func (c *OpenAIClient) saveCached(question string, ds *model.Dataset, s Suggestion) error {
	if c.cacheDir == "" {
		return nil
	}
	key, err := c.cacheKey(question, ds)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(c.cacheDir, 0o755); err != nil {
		return err
	}
	p := filepath.Join(c.cacheDir, "ask_"+key+".json")
	tmp := p + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(s); err != nil {
		f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, p); err != nil {
		return err
	}
	logx.Debugf("ai: cached suggestion saved to %s", p)
	return nil
}
