package mcptools

import "github.com/google/jsonschema-go/jsonschema"

func ptr[T any](v T) *T { return &v }

func searchMusicSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"song_name": {
				Type:        "string",
				Description: "Tên bài hát cần tìm, ví dụ: Nơi này có anh",
			},
			"query": {
				Type:        "string",
				Description: "Từ khóa tìm kiếm, ví dụ: Sơn Tùng M-TP",
			},
			"limit": {
				Type:        "integer",
				Description: "Số kết quả tối đa (1-20)",
				Minimum:     ptr(float64(minMusicLimit)),
				Maximum:     ptr(float64(maxMusicLimit)),
			},
		},
	}
}

func setAlarmSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"time": {
				Type:        "string",
				Description: "Thời gian báo thức. ISO datetime (ví dụ 2026-02-18T07:30:00) hoặc giờ phút 'HH:MM' (ví dụ '07:30').",
			},
			"message": {
				Type:        "string",
				Description: "Nội dung thông báo",
			},
			"id": {
				Type:        "string",
				Description: "ID tùy chọn cho báo thức",
			},
		},
		Required: []string{"time"},
	}
}
