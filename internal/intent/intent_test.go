package intent

import (
	"context"
	"testing"
)

func TestDetectFastMusic(t *testing.T) {
	r := DetectFast("mở nhạc Sơn Tùng M-TP")
	if r.Intent != "music" {
		t.Fatalf("Intent = %q, want music", r.Intent)
	}
	if r.SongName == "" {
		t.Error("expected a non-empty song name")
	}
}

func TestDetectFastMusicEmptyRemainderFallsBackToDefaultSong(t *testing.T) {
	r := DetectFast("mở nhạc")
	if r.Intent != "music" {
		t.Fatalf("Intent = %q, want music", r.Intent)
	}
	if r.SongName != "nhạc việt" {
		t.Errorf("SongName = %q, want fallback %q", r.SongName, "nhạc việt")
	}
}

func TestDetectFastOther(t *testing.T) {
	r := DetectFast("hôm nay trời đẹp quá")
	if r.Intent != "other" {
		t.Errorf("Intent = %q, want other", r.Intent)
	}
}

func TestDetectFastAlarmWithHHMM(t *testing.T) {
	r := DetectFast("đặt báo thức lúc 07:30 dậy đi học")
	if r.Intent != "alarm" {
		t.Fatalf("Intent = %q, want alarm", r.Intent)
	}
	if r.AlarmTime != "07:30" {
		t.Errorf("AlarmTime = %q, want 07:30", r.AlarmTime)
	}
}

func TestDetectFastAlarmMorningDaypart(t *testing.T) {
	// No "h"/"giờ" token, so extractTime falls through to the daypart switch.
	r := DetectFast("báo thức 6 sáng")
	if r.Intent != "alarm" {
		t.Fatalf("Intent = %q, want alarm", r.Intent)
	}
	if r.AlarmTime != "06:00" {
		t.Errorf("AlarmTime = %q, want 06:00", r.AlarmTime)
	}
}

func TestDetectFastAlarmAfternoonDaypartShiftsToPM(t *testing.T) {
	r := DetectFast("báo thức 3 chiều")
	if r.Intent != "alarm" {
		t.Fatalf("Intent = %q, want alarm", r.Intent)
	}
	if r.AlarmTime != "15:00" {
		t.Errorf("AlarmTime = %q, want 15:00", r.AlarmTime)
	}
}

func TestDetectFastAlarmMessageFallback(t *testing.T) {
	r := DetectFast("báo thức 7h")
	if r.Intent != "alarm" {
		t.Fatalf("Intent = %q, want alarm", r.Intent)
	}
	if r.AlarmMessage == "" {
		t.Error("expected a non-empty alarm message")
	}
}

type fakeChatter struct {
	data map[string]any
}

func (f fakeChatter) ChatJSON(ctx context.Context, userText, systemPrompt string, maxTokens int, temperature float64) map[string]any {
	return f.data
}

func TestDetectLLMMusicWithSongName(t *testing.T) {
	r := Detect(context.Background(), fakeChatter{data: map[string]any{"intent": "music", "song_name": "Nơi này có anh"}}, "mở bài nơi này có anh")
	if r.Intent != "music" || r.SongName != "Nơi này có anh" {
		t.Errorf("got %+v", r)
	}
}

func TestDetectLLMMusicMissingSongNameFallsBack(t *testing.T) {
	r := Detect(context.Background(), fakeChatter{data: map[string]any{"intent": "music"}}, "mở nhạc")
	if r.Intent != "music" || r.SongName != "nhạc việt" {
		t.Errorf("got %+v", r)
	}
}

func TestDetectLLMNilResponseIsOther(t *testing.T) {
	r := Detect(context.Background(), fakeChatter{data: nil}, "...")
	if r.Intent != "other" {
		t.Errorf("Intent = %q, want other", r.Intent)
	}
}
