// Package remote fetches posts from the upstream JSON API.
package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/rcliao/postcache/internal/model"
)

// DefaultEndpoint is the upstream posts collection.
const DefaultEndpoint = "https://jsonplaceholder.typicode.com/posts"

// maxBody caps how much of a response is read before decoding.
const maxBody = 10 * 1024 * 1024

var (
	// ErrNetwork covers transport failures and non-2xx responses.
	ErrNetwork = errors.New("network error")
	// ErrDecode covers bodies that are not a JSON array.
	ErrDecode = errors.New("decode error")
)

// Fetcher retrieves the remote post collection.
type Fetcher struct {
	client   *http.Client
	endpoint string
	logger   *slog.Logger
}

// New creates a Fetcher. A nil client uses http.DefaultClient, an empty
// endpoint uses DefaultEndpoint.
func New(client *http.Client, endpoint string, logger *slog.Logger) *Fetcher {
	if client == nil {
		client = http.DefaultClient
	}
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Fetcher{client: client, endpoint: endpoint, logger: logger}
}

// Endpoint returns the URL the fetcher calls.
func (f *Fetcher) Endpoint() string { return f.endpoint }

// FetchPosts performs a single GET against the endpoint and decodes the
// response into posts, in response order. On error the result is nil.
func (f *Fetcher) FetchPosts(ctx context.Context) ([]model.Post, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: get %s: %v", ErrNetwork, f.endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: http %d: %s", ErrNetwork, resp.StatusCode, strings.TrimSpace(string(b)))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", ErrNetwork, err)
	}

	posts, err := Decode(body)
	if err != nil {
		return nil, err
	}
	f.logger.Debug("fetched posts", "endpoint", f.endpoint, "count", len(posts))
	return posts, nil
}

// Decode parses a JSON array of post objects. Fields are coerced loosely:
// missing values default to zero, numeric strings become ids, and scalar
// titles are rendered as text. Non-object elements decode as a zero Post.
func Decode(body []byte) ([]model.Post, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if raw == nil {
		// a literal null unmarshals without error
		return nil, fmt.Errorf("%w: not an array", ErrDecode)
	}

	posts := make([]model.Post, 0, len(raw))
	for _, item := range raw {
		var obj map[string]any
		if err := json.Unmarshal(item, &obj); err != nil {
			posts = append(posts, model.Post{})
			continue
		}
		posts = append(posts, model.Post{
			ID:    asInt(obj["id"]),
			Title: asString(obj["title"]),
		})
	}
	return posts, nil
}

// Titles projects posts into an id to title mapping. Later duplicates win.
func Titles(posts []model.Post) map[int]string {
	m := make(map[int]string, len(posts))
	for _, p := range posts {
		m[p.ID] = p.Title
	}
	return m
}

// Dedupe is the ordered form of Titles: each id keeps the position of its
// first occurrence and the title of its last.
func Dedupe(posts []model.Post) []model.Post {
	idx := make(map[int]int, len(posts))
	out := make([]model.Post, 0, len(posts))
	for _, p := range posts {
		if i, ok := idx[p.ID]; ok {
			out[i].Title = p.Title
			continue
		}
		idx[p.ID] = len(out)
		out = append(out, p)
	}
	return out
}

func asInt(v any) int {
	switch x := v.(type) {
	case float64:
		return floatToInt(x)
	case string:
		if n, err := strconv.Atoi(strings.TrimSpace(x)); err == nil {
			return n
		}
		if f, err := strconv.ParseFloat(strings.TrimSpace(x), 64); err == nil {
			return floatToInt(f)
		}
	case bool:
		if x {
			return 1
		}
	}
	return 0
}

// floatToInt truncates f, mapping NaN, infinities and values outside the
// int range to 0.
func floatToInt(f float64) int {
	if math.IsNaN(f) || f < math.MinInt || f >= math.MaxInt {
		return 0
	}
	return int(f)
}

func asString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	default:
		// objects and arrays have no title form
		return ""
	}
}
