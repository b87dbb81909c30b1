package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	altai "github.com/sashabaranov/go-openai"

	"trialscope/internal/filter"
	"trialscope/internal/freq"
	"trialscope/internal/model"
	"trialscope/internal/util/logx"
	"trialscope/internal/version"
)

var ErrDisabled = errors.New("openai disabled")

// OpenAIClient drafts filter text from a plain-language question. It never
// applies anything itself: every suggestion is compiled against the dataset
// before it is returned.
type OpenAIClient struct {
	apiKey  string
	baseURL string
	model   string
	timeout time.Duration
	// answered questions are kept here when set
	cacheDir string
}

func NewOpenAIClient(apiKey, baseURL, model string, timeout time.Duration) *OpenAIClient {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &OpenAIClient{apiKey: apiKey, baseURL: baseURL, model: model, timeout: timeout}
}

// WithCache stores compiled suggestions under dir and answers repeated
// questions from there. An empty dir disables the cache.
func (c *OpenAIClient) WithCache(dir string) *OpenAIClient {
	c.cacheDir = dir
	return c
}

type Suggestion struct {
	Filter      string `json:"filter"`
	Explanation string `json:"explanation"`
}

// SuggestFilter asks the model for a filter answering question and checks
// that it compiles against ds. values may be nil.
func (c *OpenAIClient) SuggestFilter(ctx context.Context, question string, ds *model.Dataset, values *freq.Index) (Suggestion, error) {
	if c == nil || c.apiKey == "" {
		return Suggestion{}, ErrDisabled
	}
	if strings.TrimSpace(question) == "" {
		return Suggestion{}, errors.New("empty question")
	}
	if s, ok := c.loadCached(question, ds); ok {
		if _, err := filter.Compile(s.Filter, ds); err == nil {
			logx.Debugf("ai: answered %q from cache", question)
			return s, nil
		}
	}
	ctx2, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	resp, err := c.callAlt(ctx2, buildFilterPrompt(question, ds, values))
	if err != nil {
		return Suggestion{}, fmt.Errorf("openai: %w", err)
	}
	var out Suggestion
	if err := json.Unmarshal([]byte(resp), &out); err != nil {
		return Suggestion{}, fmt.Errorf("openai: malformed response: %w", err)
	}
	out.Filter = strings.TrimSpace(out.Filter)
	if _, err := filter.Compile(out.Filter, ds); err != nil {
		return out, fmt.Errorf("suggested filter %q does not compile: %w", out.Filter, err)
	}
	if err := c.saveCached(question, ds, out); err != nil {
		logx.Warnf("ai: cache save failed: %v", err)
	}
	return out, nil
}

func (c *OpenAIClient) callAlt(ctx context.Context, prompt string) (string, error) {
	cfg := altai.DefaultConfig(c.apiKey)
	if c.baseURL != "" {
		cfg.BaseURL = c.baseURL
	}
	cfg.HTTPClient = &http.Client{Transport: userAgent{base: http.DefaultTransport}}
	cli := altai.NewClientWithConfig(cfg)
	resp, err := cli.CreateChatCompletion(ctx, altai.ChatCompletionRequest{
		Model: c.model,
		Messages: []altai.ChatCompletionMessage{
			{Role: altai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: altai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature:    0.1,
		ResponseFormat: &altai.ChatCompletionResponseFormat{Type: altai.ChatCompletionResponseFormatTypeJSONObject},
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("empty choices")
	}
	return resp.Choices[0].Message.Content, nil
}

type userAgent struct{ base http.RoundTripper }

func (u userAgent) RoundTrip(r *http.Request) (*http.Response, error) {
	r = r.Clone(r.Context())
	r.Header.Set("User-Agent", version.UserAgent())
	return u.base.RoundTrip(r)
}

const systemPrompt = `You write filters for a clinical-trial dataset viewer and return ONLY strict JSON {"filter": string, "explanation": string}. No prose, no code fences.
Filter grammar: comparisons joined by "and"/"or", evaluated left to right, no parentheses for grouping.
A comparison is: COLUMN OP VALUE, or COLUMN in (V1, V2), or COLUMN not in (V1, V2).
OP is one of = != > < >= <= eq ne gt lt ge le contains. Quote text values with double quotes; leave numbers unquoted for numeric columns.
Use only the column names listed.`

// maximum values listed per column in the prompt
const promptValues = 15

func buildFilterPrompt(question string, ds *model.Dataset, values *freq.Index) string {
	var b strings.Builder
	b.WriteString("Question: ")
	b.WriteString(strings.TrimSpace(question))
	b.WriteString("\n")
	if ds != nil {
		if keys := ds.KeyColumns(); len(keys) > 0 {
			names := make([]string, len(keys))
			for i, k := range keys {
				names[i] = k.Name
			}
			fmt.Fprintf(&b, "Record keys: %s\n", strings.Join(names, ", "))
		}
	}
	b.WriteString("Columns:\n")
	if ds != nil {
		for i, c := range ds.Columns {
			kind := "text"
			if ds.IsNumeric(i) {
				kind = "numeric"
			}
			fmt.Fprintf(&b, "- %s (%s", c.Name, kind)
			if c.Label != "" {
				fmt.Fprintf(&b, ", %s", c.Label)
			}
			b.WriteString(")")
			if vals := values.Values(c.Name); len(vals) > 0 {
				n := min(len(vals), promptValues)
				parts := make([]string, n)
				for j := 0; j < n; j++ {
					parts[j] = redact(vals[j].Value)
				}
				fmt.Fprintf(&b, " values: %s", strings.Join(parts, ", "))
				if len(vals) > n {
					b.WriteString(", ...")
				}
			}
			b.WriteByte('\n')
		}
	}
	return b.String()
}
