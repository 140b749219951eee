package service

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xaiowei11/classmatch-web/internal/model"
)

// ── ICS 导出 ──────────────────────────────────────────────
//
// 将一次课程导入中成功的行转为按周重复的 VEVENT：
//   - DTSTART/DTEND 由学期起始周 + 星期 + 节次时间表确定
//   - RRULE:FREQ=WEEKLY;COUNT=周数
//   - UID 由 run_id + 行号派生，重复导出时保持不变
//   - 节次超出时间表的行跳过
// ─────────────────────────────────────────────────────────────

const defaultCalendarTimezone = "Asia/Taipei"

// periodSlot 单个节次的起止时间（距当天零点）
type periodSlot struct {
	start time.Duration
	end   time.Duration
}

func (s *exportService) ExportCalendar(ctx context.Context, runID string, semesterStart time.Time, weeks int) (*bytes.Buffer, string, error) {
	run, err := s.loadRun(ctx, runID, model.RowStatusSuccess)
	if err != nil {
		return nil, "", err
	}
	if run.Kind != model.ImportKindCourse {
		return nil, "", ErrExportNotCourseRun
	}

	slots, err := parsePeriodTimes(s.cfg.PeriodTimes)
	if err != nil {
		return nil, "", err
	}
	if weeks <= 0 {
		weeks = s.cfg.Weeks
	}
	tz := s.cfg.Timezone
	if tz == "" {
		tz = defaultCalendarTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		s.logger.Warn("时区无效，使用 UTC", zap.String("timezone", tz), zap.Error(err))
		loc = time.UTC
	}
	monday := weekStart(semesterStart, loc)

	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId("-//classmatch//course import//ZH")
	cal.SetXWRCalName(run.Filename)
	cal.SetXWRTimezone(loc.String())

	stamp := run.FinishedAt.UTC()
	added, skipped := 0, 0
	for _, r := range run.Rows {
		if r.Weekday < 1 || r.Weekday > 7 || r.StartPeriod < 1 || r.EndPeriod > len(slots) || r.StartPeriod > r.EndPeriod {
			skipped++
			continue
		}
		day := monday.AddDate(0, 0, r.Weekday-1)

		evt := cal.AddEvent(eventUID(run.ImportRunID, r.RowNumber))
		evt.SetDtStampTime(stamp)
		evt.SetStartAt(day.Add(slots[r.StartPeriod-1].start))
		evt.SetEndAt(day.Add(slots[r.EndPeriod-1].end))
		evt.SetSummary(summaryOf(r))
		if r.Classroom != "" {
			evt.SetLocation(r.Classroom)
		}
		if r.Teachers != "" {
			evt.SetDescription("授课教师：" + r.Teachers)
		}
		evt.AddRrule(fmt.Sprintf("FREQ=WEEKLY;COUNT=%d", weeks))
		added++
	}
	if added == 0 {
		return nil, "", ErrExportNoRows
	}
	if skipped > 0 {
		s.logger.Warn("部分课程节次超出时间表，未导出",
			zap.String("run_id", runID),
			zap.Int("skipped", skipped),
		)
	}

	buf := bytes.NewBufferString(cal.Serialize())
	filename := fmt.Sprintf("课表_%s.ics", monday.Format("20060102"))
	return buf, filename, nil
}

// ── 辅助函数 ──

// parsePeriodTimes 解析 "HH:MM-HH:MM" 列表，下标 0 对应第 1 节
func parsePeriodTimes(times []string) ([]periodSlot, error) {
	if len(times) == 0 {
		return nil, ErrExportInvalidPeriod
	}
	slots := make([]periodSlot, 0, len(times))
	for i, t := range times {
		from, to, ok := strings.Cut(strings.TrimSpace(t), "-")
		if !ok {
			return nil, fmt.Errorf("%w: 第 %d 节 %q", ErrExportInvalidPeriod, i+1, t)
		}
		start, err1 := clockOffset(from)
		end, err2 := clockOffset(to)
		if err1 != nil || err2 != nil || end <= start {
			return nil, fmt.Errorf("%w: 第 %d 节 %q", ErrExportInvalidPeriod, i+1, t)
		}
		slots = append(slots, periodSlot{start: start, end: end})
	}
	return slots, nil
}

func clockOffset(hhmm string) (time.Duration, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(hhmm))
	if err != nil {
		return 0, err
	}
	return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute, nil
}

// weekStart 返回 date 所在周的星期一零点
func weekStart(date time.Time, loc *time.Location) time.Time {
	d := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, loc)
	return d.AddDate(0, 0, 1-goWeekdayToISO(d.Weekday()))
}

// goWeekdayToISO 将 Go 的 time.Weekday (0=Sunday) 转为 ISO 8601 (1=Monday … 7=Sunday)
func goWeekdayToISO(wd time.Weekday) int {
	if wd == time.Sunday {
		return 7
	}
	return int(wd)
}

func eventUID(runID string, row int) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(fmt.Sprintf("classmatch:%s:%d", runID, row))).String() + "@classmatch"
}

func summaryOf(r model.ImportRunRow) string {
	if r.CourseCode == "" {
		return r.Label
	}
	return fmt.Sprintf("%s %s", r.CourseCode, r.Label)
}
