package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/xaiowei11/classmatch-web/internal/model"
)

func TestExportCalendar(t *testing.T) {
	svc, runs := setupTestExportService()
	run := seedCourseRun(runs)
	// 节次超出时间表，跳过
	run.Rows = append(run.Rows, model.ImportRunRow{
		RowNumber: 5, Label: "深夜課", Status: model.RowStatusSuccess, Weekday: 3, StartPeriod: 14, EndPeriod: 15,
	})

	// 2024-09-04 是星期三，应对齐到 09-02 星期一
	start := time.Date(2024, 9, 4, 0, 0, 0, 0, time.UTC)
	buf, filename, err := svc.ExportCalendar(context.Background(), "run-course", start, 16)
	if err != nil {
		t.Fatalf("ExportCalendar 应成功: %v", err)
	}
	if filename != "课表_20240902.ics" {
		t.Errorf("文件名不符: %s", filename)
	}

	ics := strings.ReplaceAll(buf.String(), "\r\n", "\n")
	if strings.Count(ics, "BEGIN:VEVENT") != 1 {
		t.Fatalf("期望 1 个事件，实际:\n%s", ics)
	}
	// 星期二第 3~4 节 10:10-12:00（台北时间）= 02:10-04:00 UTC
	for _, want := range []string{
		"DTSTART:20240903T021000Z",
		"DTEND:20240903T040000Z",
		"RRULE:FREQ=WEEKLY;COUNT=16",
		"SUMMARY:IM101 資料庫系統",
		"LOCATION:E301",
	} {
		if !strings.Contains(ics, want) {
			t.Errorf("ICS 缺少 %q:\n%s", want, ics)
		}
	}
}

func TestExportCalendar_StableUID(t *testing.T) {
	if eventUID("run-1", 2) != eventUID("run-1", 2) {
		t.Error("同一行的 UID 应保持不变")
	}
	if eventUID("run-1", 2) == eventUID("run-1", 3) {
		t.Error("不同行的 UID 不应相同")
	}
}

func TestExportCalendar_AccountRunRejected(t *testing.T) {
	svc, runs := setupTestExportService()
	runs.runs["run-acc"] = &model.ImportRun{ImportRunID: "run-acc", Kind: model.ImportKindAccount}

	_, _, err := svc.ExportCalendar(context.Background(), "run-acc", time.Now(), 0)
	if !errors.Is(err, ErrExportNotCourseRun) {
		t.Errorf("期望 ErrExportNotCourseRun，实际: %v", err)
	}
}

func TestExportCalendar_NoRows(t *testing.T) {
	svc, runs := setupTestExportService()
	runs.runs["run-empty"] = &model.ImportRun{ImportRunID: "run-empty", Kind: model.ImportKindCourse}

	_, _, err := svc.ExportCalendar(context.Background(), "run-empty", time.Now(), 0)
	if !errors.Is(err, ErrExportNoRows) {
		t.Errorf("期望 ErrExportNoRows，实际: %v", err)
	}
}

func TestParsePeriodTimes(t *testing.T) {
	slots, err := parsePeriodTimes([]string{"08:10-09:00", " 09:10 - 10:00 "})
	if err != nil {
		t.Fatalf("parsePeriodTimes 失败: %v", err)
	}
	if slots[1].start != 9*time.Hour+10*time.Minute || slots[1].end != 10*time.Hour {
		t.Errorf("第 2 节解析不符: %+v", slots[1])
	}

	for _, bad := range [][]string{nil, {"0810-0900"}, {"10:00-09:00"}, {"ab:cd-09:00"}} {
		if _, err := parsePeriodTimes(bad); !errors.Is(err, ErrExportInvalidPeriod) {
			t.Errorf("parsePeriodTimes(%q) 期望 ErrExportInvalidPeriod，实际: %v", bad, err)
		}
	}
}

func TestWeekStart(t *testing.T) {
	loc := time.UTC
	cases := map[string]string{
		"2024-09-02": "2024-09-02", // 星期一
		"2024-09-08": "2024-09-02", // 星期日
		"2024-09-05": "2024-09-02",
	}
	for in, want := range cases {
		d, _ := time.Parse("2006-01-02", in)
		if got := weekStart(d, loc).Format("2006-01-02"); got != want {
			t.Errorf("weekStart(%s) 期望 %s，实际 %s", in, want, got)
		}
	}
}
