package pipeline

import "testing"

func TestTryInOrderReturnsFirstSuccess(t *testing.T) {
	items := []int{1, 2, 3}
	var tried []int
	result, ok := TryInOrder(items, func(item int, index int) (string, bool) {
		tried = append(tried, item)
		return "ok", item == 2
	}, nil)
	if !ok {
		t.Fatal("expected success")
	}
	if result != "ok" {
		t.Errorf("result = %q, want %q", result, "ok")
	}
	if len(tried) != 2 {
		t.Errorf("tried %v items, want exactly 2 (stop after first success)", tried)
	}
}

func TestTryInOrderAllFailCallsOnFailureForEach(t *testing.T) {
	items := []string{"a", "b", "c"}
	var failed []string
	_, ok := TryInOrder(items, func(item string, index int) (int, bool) {
		return 0, false
	}, func(item string, index int) {
		failed = append(failed, item)
	})
	if ok {
		t.Fatal("expected failure")
	}
	if len(failed) != len(items) {
		t.Errorf("onFailure called %d times, want %d", len(failed), len(items))
	}
}

func TestTryInOrderEmptyItems(t *testing.T) {
	_, ok := TryInOrder([]int{}, func(item int, index int) (int, bool) {
		t.Error("attempt should never be called for an empty item list")
		return 0, true
	}, nil)
	if ok {
		t.Error("expected failure for an empty item list")
	}
}
