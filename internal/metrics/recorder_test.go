package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecorder_Counters(t *testing.T) {
	r := NewRecorder(prom.NewRegistry())

	r.IncNotice("LIGHT_AUTO_ON")
	r.IncNotice("LIGHT_AUTO_ON")
	r.IncNotice("")
	r.IncAccess("opened")
	r.IncSensorError("climate")
	r.IncCommand("light:on", true)
	r.IncCommand("light:on", false)
	r.IncJournalDropped()
	r.IncPublish(false)

	if got := testutil.ToFloat64(r.notices.WithLabelValues("LIGHT_AUTO_ON")); got != 2 {
		t.Fatalf("notices = %v, want 2", got)
	}
	if got := testutil.ToFloat64(r.accessOutcomes.WithLabelValues("opened")); got != 1 {
		t.Fatalf("access = %v", got)
	}
	if got := testutil.ToFloat64(r.commands.WithLabelValues("light:on", "rejected")); got != 1 {
		t.Fatalf("rejected commands = %v", got)
	}
	if got := testutil.ToFloat64(r.journalDropped); got != 1 {
		t.Fatalf("dropped = %v", got)
	}
	if got := testutil.ToFloat64(r.publishResults.WithLabelValues("failed")); got != 1 {
		t.Fatalf("publish failures = %v", got)
	}
}

func TestRecorder_Gauges(t *testing.T) {
	r := NewRecorder(nil)
	r.SetActuators(Actuators{Occupied: true, LightOn: true, DoorUnlocked: true})
	r.SetClimate(26, 48.5)
	r.ObserveCycle(2 * time.Millisecond)

	if testutil.ToFloat64(r.lightOn) != 1 || testutil.ToFloat64(r.fanAutoOn) != 0 {
		t.Fatalf("unexpected actuator gauges")
	}
	if testutil.ToFloat64(r.temperature) != 26 || testutil.ToFloat64(r.humidity) != 48.5 {
		t.Fatalf("unexpected climate gauges")
	}
}

func TestRecorder_NilSafe(t *testing.T) {
	var r *Recorder
	r.IncNotice("x")
	r.IncAccess("denied")
	r.SetActuators(Actuators{LightOn: true})
	r.SetClimate(1, 1)
	r.ObserveCycle(time.Millisecond)
	if r.Handler() == nil {
		t.Fatalf("nil recorder must still serve a handler")
	}
}

func TestRecorder_Handler(t *testing.T) {
	r := NewRecorder(prom.NewRegistry())
	r.SetClimate(23, 50)

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "room_temperature_celsius 23") {
		t.Fatalf("temperature gauge missing from scrape:\n%s", rec.Body.String())
	}
}
