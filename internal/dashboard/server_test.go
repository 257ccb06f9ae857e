package dashboard

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/arielsw/dayflow/internal/activity"
	"github.com/arielsw/dayflow/internal/alarm"
	"github.com/arielsw/dayflow/internal/flow"
	"github.com/arielsw/dayflow/internal/models"
	"github.com/arielsw/dayflow/internal/repo"
	"github.com/gin-gonic/gin"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := gdb.AutoMigrate(
		&models.Activity{},
		&models.PauseLog{},
		&models.FlowTemplate{},
		&models.FlowStep{},
		&models.FlowLog{},
		&models.ModeFlag{},
		&models.SyncEvent{},
	); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	return gdb
}

// testRouter builds the full daemon wiring against in-memory stores and
// returns the HTTP router plus the pieces tests poke at.
func testRouter(t *testing.T) (*gin.Engine, StartOpts) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	r := repo.New(testDB(t), nil)
	acts := activity.New(r, "aisha", nil)
	esc := alarm.New(time.Hour)
	flows := flow.New(r, acts, esc, "aisha", []string{"ibadah"}, nil)

	opts := StartOpts{
		Owner:  "aisha",
		Repo:   r,
		Acts:   acts,
		Flows:  flows,
		Alarms: esc,
	}
	router := gin.New()
	registerRoutes(router, opts)
	return router, opts
}

func doJSON(t *testing.T, router *gin.Engine, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("{}")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var decoded map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &decoded); err != nil {
		t.Fatalf("decode %s %s response: %v (%s)", method, path, err, w.Body.String())
	}
	return w, decoded
}

func TestStatusEndpoint(t *testing.T) {
	router, opts := testRouter(t)

	if _, err := opts.Acts.Start(activity.StartOpts{Name: "Deep work", Category: "work"}); err != nil {
		t.Fatal(err)
	}

	w, body := doJSON(t, router, http.MethodGet, "/api/status", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if body["owner"] != "aisha" {
		t.Errorf("owner = %v, want aisha", body["owner"])
	}
	act, ok := body["activity"].(map[string]any)
	if !ok || act["name"] != "Deep work" {
		t.Errorf("activity = %v, want Deep work", body["activity"])
	}
	flowInfo := body["flow"].(map[string]any)
	if flowInfo["state"] != "idle" {
		t.Errorf("flow.state = %v, want idle", flowInfo["state"])
	}
}

func TestFlowActionEndpoints_StateErrors(t *testing.T) {
	router, _ := testRouter(t)

	// Nothing is waiting, in progress, or pending: every action conflicts.
	tests := []struct {
		path string
		body string
	}{
		{"/api/flow/acknowledge", ""},
		{"/api/flow/complete", ""},
		{"/api/flow/skip", `{"still_skipping":true}`},
	}
	for _, tt := range tests {
		w, body := doJSON(t, router, http.MethodPost, tt.path, tt.body)
		if w.Code != http.StatusConflict {
			t.Errorf("POST %s = %d, want 409", tt.path, w.Code)
		}
		if body["error"] == "" {
			t.Errorf("POST %s returned no error message", tt.path)
		}
	}
}

func TestFlowActionEndpoints_DriveTheMachine(t *testing.T) {
	router, opts := testRouter(t)

	// Seed a windowed template and open it.
	tmpl := &models.FlowTemplate{
		ID: "t1", Name: "subuh", Category: "ibadah",
		WindowStart: "00:00", WindowEnd: "23:59",
	}
	if err := opts.Repo.Local().Create(tmpl).Error; err != nil {
		t.Fatal(err)
	}
	step := models.FlowStep{TemplateID: "t1", Position: 0, ActivityName: "Prayer"}
	if err := opts.Repo.Local().Create(&step).Error; err != nil {
		t.Fatal(err)
	}
	opts.Flows.Evaluate(time.Now())
	if opts.Flows.State() != flow.StateWaiting {
		t.Fatalf("precondition: flow state = %v, want waiting", opts.Flows.State())
	}

	w, body := doJSON(t, router, http.MethodPost, "/api/flow/acknowledge", "")
	if w.Code != http.StatusOK || body["state"] != "in_progress" {
		t.Fatalf("acknowledge: %d %v", w.Code, body)
	}

	w, body = doJSON(t, router, http.MethodPost, "/api/flow/complete", "")
	if w.Code != http.StatusOK || body["state"] != "idle" {
		t.Fatalf("complete: %d %v", w.Code, body)
	}
}

func TestFlowSkipEndpoint_BadBody(t *testing.T) {
	router, _ := testRouter(t)
	w, _ := doJSON(t, router, http.MethodPost, "/api/flow/skip", `{"still_skipping":"maybe"}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestFlowsUnavailableWithoutCoordinator(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := repo.New(testDB(t), nil)
	router := gin.New()
	registerRoutes(router, StartOpts{Owner: "aisha", Repo: r})

	w, _ := doJSON(t, router, http.MethodPost, "/api/flow/acknowledge", "")
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", w.Code)
	}
}

func TestFlowsTodayEndpoint(t *testing.T) {
	router, opts := testRouter(t)

	l := &models.FlowLog{
		ID: "l1", TemplateID: "t1", FlowName: "subuh",
		Day: models.DayOf(time.Now()), TriggeredAt: time.Now(), TotalSteps: 2,
	}
	if err := opts.Repo.CreateFlowLog(l); err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/flows/today", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var logs []models.FlowLog
	if err := json.Unmarshal(w.Body.Bytes(), &logs); err != nil {
		t.Fatal(err)
	}
	if len(logs) != 1 || logs[0].FlowName != "subuh" {
		t.Errorf("logs = %+v", logs)
	}
}

func TestFormatStatus(t *testing.T) {
	info := &StatusInfo{
		Owner: "aisha",
		Activity: &ActivityInfo{
			Name: "Deep work", Category: "work", Started: "09:00:00", Elapsed: "25m0s",
		},
		Flow:       FlowInfo{State: "waiting", Name: "subuh", StepIndex: 1, StepTotal: 2, StepActivity: "Prayer"},
		Alerting:   []string{"t1"},
		ModeActive: true,
		Reprompt:   true,
	}
	out := FormatStatus(info)

	for _, want := range []string{
		"Deep work", "waiting", "subuh", "step 1/2", "1 window(s) sounding",
		"Cycle mode: on", "still applicable",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("FormatStatus() missing %q:\n%s", want, out)
		}
	}
}
