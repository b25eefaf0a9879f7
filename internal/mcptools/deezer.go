package mcptools

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/hubenschmidt/voice-gateway/internal/metrics"
)

const deezerSearchURL = "https://api.deezer.com/search"

type deezerSearchResponse struct {
	Data []deezerTrack `json:"data"`
}

type deezerTrack struct {
	Title    string `json:"title"`
	Duration int    `json:"duration"`
	Link     string `json:"link"`
	Preview  string `json:"preview"`
	Artist   struct {
		Name string `json:"name"`
	} `json:"artist"`
	Album struct {
		Title string `json:"title"`
	} `json:"album"`
}

// Track is the flattened metadata shape returned to callers.
type Track struct {
	Title      string `json:"title"`
	Artist     string `json:"artist"`
	Album      string `json:"album"`
	DeezerURL  string `json:"deezer_url"`
	PreviewURL string `json:"preview_url"`
	Duration   int    `json:"duration"`
}

func (r *Registry) searchVietnameseMusic(ctx context.Context, arguments map[string]any) Result {
	songName := strings.TrimSpace(stringArg(arguments, "song_name"))
	query := songName
	if query == "" {
		query = strings.TrimSpace(stringArg(arguments, "query"))
	}
	if query == "" {
		return textResult(false, "Thiếu tham số song_name hoặc query")
	}

	limit := clampLimit(arguments["limit"])

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, deezerSearchURL, nil)
	if err != nil {
		return textResult(false, fmt.Sprintf("Lỗi gọi Deezer API: %v", err))
	}
	q := url.Values{}
	q.Set("q", query)
	req.URL.RawQuery = q.Encode()

	resp, err := r.httpClient.Do(req)
	if err != nil {
		metrics.Errors.WithLabelValues("mcp_search_music", "http").Inc()
		return textResult(false, fmt.Sprintf("Lỗi gọi Deezer API: %v", err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		metrics.Errors.WithLabelValues("mcp_search_music", "read_body").Inc()
		return textResult(false, fmt.Sprintf("Lỗi gọi Deezer API: %v", err))
	}
	if resp.StatusCode != http.StatusOK {
		metrics.Errors.WithLabelValues("mcp_search_music", "status").Inc()
		return textResult(false, fmt.Sprintf("Lỗi gọi Deezer API: status %d", resp.StatusCode))
	}

	var parsed deezerSearchResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		metrics.Errors.WithLabelValues("mcp_search_music", "decode").Inc()
		return textResult(false, fmt.Sprintf("Lỗi gọi Deezer API: %v", err))
	}

	items := parsed.Data
	if len(items) > limit {
		items = items[:limit]
	}
	tracks := make([]Track, 0, len(items))
	for _, it := range items {
		tracks = append(tracks, Track{
			Title:      it.Title,
			Artist:     it.Artist.Name,
			Album:      it.Album.Title,
			DeezerURL:  it.Link,
			PreviewURL: it.Preview,
			Duration:   it.Duration,
		})
	}

	return Result{
		OK: true,
		Content: []ContentItem{
			{Type: "text", Text: fmt.Sprintf("Tìm thấy %d kết quả nhạc cho: %s", len(tracks), query)},
			{Type: "json", JSON: map[string]any{
				"request_body": map[string]any{"song_name": songName, "query": query, "limit": limit},
				"tracks":       tracks,
			}},
		},
	}
}

func clampLimit(raw any) int {
	n, ok := toInt(raw)
	if !ok {
		return defaultMusicLimit
	}
	if n < minMusicLimit {
		return minMusicLimit
	}
	if n > maxMusicLimit {
		return maxMusicLimit
	}
	return n
}

func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	default:
		return 0, false
	}
}
