package models

import (
	"reflect"
	"strings"
	"testing"
	"time"
)

// gormTag extracts the gorm tag from a struct field.
func gormTag(t *testing.T, typ reflect.Type, fieldName string) string {
	t.Helper()
	f, ok := typ.FieldByName(fieldName)
	if !ok {
		t.Fatalf("%s.%s: field not found", typ.Name(), fieldName)
	}
	return f.Tag.Get("gorm")
}

// assertGormTag checks that a struct field's gorm tag contains the expected value.
func assertGormTag(t *testing.T, typ reflect.Type, fieldName, expected string) {
	t.Helper()
	tag := gormTag(t, typ, fieldName)
	if !strings.Contains(tag, expected) {
		t.Errorf("%s.%s gorm tag = %q, want to contain %q", typ.Name(), fieldName, tag, expected)
	}
}

// assertFieldType checks that a struct field has the expected Go type.
func assertFieldType(t *testing.T, typ reflect.Type, fieldName, expectedType string) {
	t.Helper()
	f, ok := typ.FieldByName(fieldName)
	if !ok {
		t.Fatalf("%s.%s: field not found", typ.Name(), fieldName)
	}
	got := f.Type.String()
	if got != expectedType {
		t.Errorf("%s.%s type = %q, want %q", typ.Name(), fieldName, got, expectedType)
	}
}

func TestActivity_Fields(t *testing.T) {
	typ := reflect.TypeOf(Activity{})

	assertGormTag(t, typ, "ID", "primaryKey")
	assertGormTag(t, typ, "ID", "size:36")
	assertGormTag(t, typ, "Owner", "not null")
	assertGormTag(t, typ, "Owner", "index")
	assertGormTag(t, typ, "Name", "not null")
	assertGormTag(t, typ, "Category", "index")
	assertGormTag(t, typ, "Origin", "default:manual")
	assertGormTag(t, typ, "StartedAt", "index")
	assertGormTag(t, typ, "Running", "index")
	assertGormTag(t, typ, "PauseLogs", "foreignKey:ActivityID")

	assertFieldType(t, typ, "ID", "string")
	assertFieldType(t, typ, "FlowID", "*string")
	assertFieldType(t, typ, "PrevStepID", "*string")
	assertFieldType(t, typ, "EndedAt", "*time.Time")
	assertFieldType(t, typ, "PausedAt", "*time.Time")
	assertFieldType(t, typ, "PausedSeconds", "int64")
}

func TestActivity_Duration(t *testing.T) {
	start := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	end := start.Add(2 * time.Hour)

	tests := []struct {
		name string
		a    Activity
		now  time.Time
		want time.Duration
	}{
		{
			name: "ended with no pauses",
			a:    Activity{StartedAt: start, EndedAt: &end},
			now:  end.Add(time.Hour),
			want: 2 * time.Hour,
		},
		{
			name: "running uses now as end",
			a:    Activity{StartedAt: start, Running: true},
			now:  start.Add(30 * time.Minute),
			want: 30 * time.Minute,
		},
		{
			name: "accumulated pauses excluded",
			a:    Activity{StartedAt: start, EndedAt: &end, PausedSeconds: 600},
			now:  end,
			want: 2*time.Hour - 10*time.Minute,
		},
		{
			name: "in-flight pause counts up to now",
			a: Activity{
				StartedAt: start,
				Running:   true,
				Paused:    true,
				PausedAt:  timePtr(start.Add(time.Hour)),
			},
			now:  start.Add(90 * time.Minute),
			want: time.Hour,
		},
		{
			name: "never negative",
			a:    Activity{StartedAt: start, EndedAt: &end, PausedSeconds: 10000},
			now:  end,
			want: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.Duration(tt.now); got != tt.want {
				t.Errorf("Duration() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestActivity_IsGhost(t *testing.T) {
	start := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

	a := Activity{StartedAt: start, Running: true}
	if a.IsGhost(start.Add(23 * time.Hour)) {
		t.Error("23h-old running activity should not be a ghost")
	}
	if !a.IsGhost(start.Add(25 * time.Hour)) {
		t.Error("25h-old running activity should be a ghost")
	}

	stopped := Activity{StartedAt: start, Running: false}
	if stopped.IsGhost(start.Add(48 * time.Hour)) {
		t.Error("stopped activity is never a ghost")
	}
}

func TestPauseLog_Open(t *testing.T) {
	p := PauseLog{PausedAt: time.Now()}
	if !p.Open() {
		t.Error("pause log without ResumedAt should be open")
	}
	now := time.Now()
	p.ResumedAt = &now
	if p.Open() {
		t.Error("pause log with ResumedAt should be closed")
	}
}

func TestFlowTemplate_Fields(t *testing.T) {
	typ := reflect.TypeOf(FlowTemplate{})

	assertGormTag(t, typ, "ID", "primaryKey")
	assertGormTag(t, typ, "Name", "uniqueIndex")
	assertGormTag(t, typ, "Category", "index")
	assertGormTag(t, typ, "Steps", "foreignKey:TemplateID")

	assertFieldType(t, typ, "LastCompletedAt", "*time.Time")
	assertFieldType(t, typ, "Steps", "[]models.FlowStep")
}

func TestFlowTemplate_HasWindow(t *testing.T) {
	if (&FlowTemplate{}).HasWindow() {
		t.Error("template with no window strings should have no window")
	}
	if (&FlowTemplate{WindowStart: "04:30"}).HasWindow() {
		t.Error("template with only a start should have no window")
	}
	if !(&FlowTemplate{WindowStart: "04:30", WindowEnd: "06:00"}).HasWindow() {
		t.Error("template with both edges should have a window")
	}
}

func TestFlowLog_IsCompleted(t *testing.T) {
	tests := []struct {
		name string
		l    FlowLog
		want bool
	}{
		{"all steps done", FlowLog{TotalSteps: 3, StepsDone: 3}, true},
		{"partial", FlowLog{TotalSteps: 3, StepsDone: 2}, false},
		{"zero total never completes", FlowLog{}, false},
		{"outcome blocks completion", FlowLog{TotalSteps: 2, StepsDone: 2, Outcome: OutcomeMissed}, false},
		{"acknowledged alone is not completion", FlowLog{TotalSteps: 2, AcknowledgedAt: timePtr(time.Now())}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.l.IsCompleted(); got != tt.want {
				t.Errorf("IsCompleted() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFlowLog_Closed(t *testing.T) {
	if (&FlowLog{}).Closed() {
		t.Error("fresh log should not be closed")
	}
	if !(&FlowLog{Outcome: OutcomeSkipped}).Closed() {
		t.Error("log with an outcome should be closed")
	}
	if !(&FlowLog{CompletedAt: timePtr(time.Now())}).Closed() {
		t.Error("completed log should be closed")
	}
}

func TestDayOf(t *testing.T) {
	d := time.Date(2025, 6, 1, 23, 59, 0, 0, time.UTC)
	if got := DayOf(d); got != "2025-06-01" {
		t.Errorf("DayOf() = %q, want 2025-06-01", got)
	}
}

func TestModeFlag_ShouldReprompt(t *testing.T) {
	now := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		m    ModeFlag
		want bool
	}{
		{"inactive", ModeFlag{}, false},
		{"active without start", ModeFlag{Active: true}, false},
		{
			"too early",
			ModeFlag{Active: true, CycleStartedAt: timePtr(now.Add(-3 * 24 * time.Hour))},
			false,
		},
		{
			"in the window",
			ModeFlag{Active: true, CycleStartedAt: timePtr(now.Add(-6 * 24 * time.Hour))},
			true,
		},
		{
			"too late",
			ModeFlag{Active: true, CycleStartedAt: timePtr(now.Add(-12 * 24 * time.Hour))},
			false,
		},
		{
			"prompted recently",
			ModeFlag{
				Active:         true,
				CycleStartedAt: timePtr(now.Add(-6 * 24 * time.Hour)),
				LastPromptedAt: timePtr(now.Add(-2 * time.Hour)),
			},
			false,
		},
		{
			"prompt cooldown elapsed",
			ModeFlag{
				Active:         true,
				CycleStartedAt: timePtr(now.Add(-6 * 24 * time.Hour)),
				LastPromptedAt: timePtr(now.Add(-25 * time.Hour)),
			},
			true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.m.ShouldReprompt(now); got != tt.want {
				t.Errorf("ShouldReprompt() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestModeFlag_Newer(t *testing.T) {
	older := ModeFlag{UpdatedAt: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)}
	newer := ModeFlag{UpdatedAt: time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)}

	if !newer.Newer(&older) {
		t.Error("later UpdatedAt should win")
	}
	if older.Newer(&newer) {
		t.Error("earlier UpdatedAt should lose")
	}
	if !older.Newer(nil) {
		t.Error("any record beats a missing one")
	}
}

func TestSyncEvent_Fields(t *testing.T) {
	typ := reflect.TypeOf(SyncEvent{})

	assertGormTag(t, typ, "ID", "primaryKey")
	assertGormTag(t, typ, "ID", "autoIncrement")
	assertGormTag(t, typ, "Owner", "not null")
	assertGormTag(t, typ, "Kind", "not null")
	assertGormTag(t, typ, "SentAt", "index")

	assertFieldType(t, typ, "SentAt", "*time.Time")
}

func timePtr(t time.Time) *time.Time { return &t }
