package code

import "testing"

func TestEveryMessageHasStatus(t *testing.T) {
	for c := range codeMessageMap {
		if _, ok := codeStatusMap[c]; !ok {
			t.Errorf("错误码 %d 缺少HTTP状态映射", c)
		}
	}
	for c := range codeStatusMap {
		if _, ok := codeMessageMap[c]; !ok {
			t.Errorf("错误码 %d 缺少消息映射", c)
		}
	}
}

func TestUnknownCodeFallback(t *testing.T) {
	if got := GetMessage(999999); got != "未知错误" {
		t.Fatalf("unexpected message: %s", got)
	}
	if got := GetStatus(999999); got != StatusInternalServerError {
		t.Fatalf("unexpected status: %d", got)
	}
	if got := GetStatus(ErrBookingConflict); got != StatusConflict {
		t.Fatalf("unexpected status for booking conflict: %d", got)
	}
}
