package model

import (
	"testing"
	"time"
)

func TestDate_Scan(t *testing.T) {
	var d Date
	if err := d.Scan(time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)); err != nil {
		t.Fatalf("Scan time.Time 应成功: %v", err)
	}
	if d != "2026-01-05" {
		t.Errorf("期望 2026-01-05，实际=%s", d)
	}

	if err := d.Scan([]byte("2026-02-10T00:00:00Z")); err != nil {
		t.Fatalf("Scan 文本应成功: %v", err)
	}
	if d != "2026-02-10" {
		t.Errorf("期望 2026-02-10，实际=%s", d)
	}

	if err := d.Scan("not-a-date"); err == nil {
		t.Error("非法日期应返回错误")
	}

	if err := d.Scan(42); err == nil {
		t.Error("不支持的类型应返回错误")
	}
}

func TestDate_Value(t *testing.T) {
	v, err := Date("2026-01-05").Value()
	if err != nil || v != "2026-01-05" {
		t.Errorf("期望 2026-01-05，实际=%v err=%v", v, err)
	}
	v, _ = Date("").Value()
	if v != nil {
		t.Errorf("空日期应写入 NULL，实际=%v", v)
	}
}
