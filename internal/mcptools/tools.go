// Package mcptools implements the small MCP-style tool registry the voice
// pipeline calls into when an assistant turn decides to act: searching
// Vietnamese music on Deezer and scheduling alarms.
package mcptools

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/google/uuid"

	"github.com/hubenschmidt/voice-gateway/internal/alarm"
)

// ContentItem is one piece of a tool result, mirroring the {type: "text" |
// "json"} shape the assistant-facing JSON-RPC layer expects.
type ContentItem struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
	JSON any    `json:"json,omitempty"`
}

// Result is the normalized outcome of a tool call.
type Result struct {
	OK      bool          `json:"ok"`
	Content []ContentItem `json:"content"`
}

func textResult(ok bool, text string) Result {
	return Result{OK: ok, Content: []ContentItem{{Type: "text", Text: text}}}
}

// Descriptor describes one callable tool in a near-JSON-Schema shape,
// suitable for returning from list_tools().
type Descriptor struct {
	Name        string             `json:"name"`
	Description string             `json:"description"`
	InputSchema *jsonschema.Schema `json:"inputSchema"`
}

const (
	toolSearchMusic = "search_vietnamese_music"
	toolSetAlarm    = "set_alarm"

	defaultMusicLimit = 5
	minMusicLimit     = 1
	maxMusicLimit     = 20

	deezerTimeout = 12 * time.Second
)

// Registry dispatches tool calls by name. It owns the alarm store and an
// HTTP client for the Deezer search API; both are shared across calls.
type Registry struct {
	alarms      *alarm.Store
	httpClient  *http.Client
	descriptors []Descriptor
	resolved    map[string]*jsonschema.Resolved
}

// NewRegistry builds the tool registry. httpClient carries the Deezer
// search requests.
func NewRegistry(alarms *alarm.Store, httpClient *http.Client) (*Registry, error) {
	r := &Registry{alarms: alarms, httpClient: httpClient}
	r.descriptors = []Descriptor{
		{
			Name:        toolSearchMusic,
			Description: "Tìm nhạc Việt theo từ khóa (artist/bài hát), trả metadata và link nghe.",
			InputSchema: searchMusicSchema(),
		},
		{
			Name:        toolSetAlarm,
			Description: "Đặt báo thức: cung cấp `time` (ISO datetime hoặc HH:MM) và `message`.",
			InputSchema: setAlarmSchema(),
		},
	}
	r.resolved = make(map[string]*jsonschema.Resolved, len(r.descriptors))
	for _, d := range r.descriptors {
		resolved, err := d.InputSchema.Resolve(nil)
		if err != nil {
			return nil, fmt.Errorf("resolve schema for %s: %w", d.Name, err)
		}
		r.resolved[d.Name] = resolved
	}
	return r, nil
}

// ListTools returns the tool descriptors in list_tools() response order.
func (r *Registry) ListTools() []Descriptor {
	return r.descriptors
}

// CallTool validates arguments against the tool's declared schema, then
// dispatches by name. Unknown tools and schema violations both surface as
// a non-OK text result rather than an error, matching the rest of the
// assistant-facing surface where tool failures are conversational, not fatal.
func (r *Registry) CallTool(ctx context.Context, name string, arguments map[string]any) Result {
	if arguments == nil {
		arguments = map[string]any{}
	}
	if resolved, ok := r.resolved[name]; ok {
		if err := resolved.Validate(arguments); err != nil {
			return textResult(false, fmt.Sprintf("Tham số không hợp lệ cho %s: %v", name, err))
		}
	}

	switch name {
	case toolSearchMusic:
		return r.searchVietnameseMusic(ctx, arguments)
	case toolSetAlarm:
		return r.setAlarm(arguments)
	default:
		return textResult(false, fmt.Sprintf("Tool không tồn tại: %s", name))
	}
}

func (r *Registry) setAlarm(arguments map[string]any) Result {
	rawTime, _ := arguments["time"].(string)
	rawTime = strings.TrimSpace(rawTime)
	if rawTime == "" {
		return textResult(false, "Thiếu tham số `time`")
	}

	message := strings.TrimSpace(stringArg(arguments, "message"))
	if message == "" {
		message = "Báo thức"
	}
	id := strings.TrimSpace(stringArg(arguments, "id"))
	if id == "" {
		id = uuid.NewString()
	}
	// ringtone is intentionally accepted though undocumented in inputSchema,
	// matching the original tool's behavior of reading it off the raw args.
	ringtone := strings.TrimSpace(stringArg(arguments, "ringtone"))

	now := time.Now()
	alarmTime, err := alarm.ParseTime(rawTime, now)
	if err != nil {
		return textResult(false, "Không hiểu định dạng `time`. Dùng ISO hoặc 'HH:MM'")
	}

	rec := alarm.Record{
		ID:        id,
		ISOTime:   alarmTime.Format(time.RFC3339),
		Message:   message,
		Ringtone:  ringtone,
		CreatedAt: now.Format(time.RFC3339),
	}
	if err := r.alarms.Append(rec); err != nil {
		return textResult(false, fmt.Sprintf("Lỗi lưu báo thức: %v", err))
	}

	return Result{
		OK: true,
		Content: []ContentItem{
			{Type: "text", Text: fmt.Sprintf("Đã đặt báo thức: %s (id=%s)", rec.ISOTime, rec.ID)},
			{Type: "json", JSON: map[string]any{"alarm": rec}},
		},
	}
}

func stringArg(arguments map[string]any, key string) string {
	v, _ := arguments[key].(string)
	return v
}
