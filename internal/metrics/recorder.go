// Package metrics exposes controller metrics in the Prometheus format.
//
// Every Recorder method is safe on a nil receiver so components can run
// without metrics in tests.
package metrics

import (
	"net/http"
	"sync"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "room"

// Recorder implements the controller metrics with Prometheus collectors.
type Recorder struct {
	once sync.Once
	reg  *prom.Registry

	cycleDuration  prom.Histogram
	notices        *prom.CounterVec
	accessOutcomes *prom.CounterVec
	sensorErrors   *prom.CounterVec
	commands       *prom.CounterVec
	journalDropped prom.Counter
	publishResults *prom.CounterVec

	occupied     prom.Gauge
	lightOn      prom.Gauge
	fanAutoOn    prom.Gauge
	fanManualOn  prom.Gauge
	doorUnlocked prom.Gauge
	temperature  prom.Gauge
	humidity     prom.Gauge
}

// Actuators is the commanded output state reported after each cycle.
type Actuators struct {
	Occupied     bool
	LightOn      bool
	FanAutoOn    bool
	FanManualOn  bool
	DoorUnlocked bool
}

// NewRecorder registers the collectors on reg; nil creates a private registry.
func NewRecorder(reg *prom.Registry) *Recorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	r := &Recorder{reg: reg}
	r.once.Do(func() {
		r.cycleDuration = prom.NewHistogram(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "cycle_duration_seconds",
			Help:      "Duration of one control cycle",
			Buckets:   []float64{.0005, .001, .0025, .005, .01, .025, .05, .1},
		})
		r.notices = prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "notices_total",
			Help:      "Notices emitted by the automation core by kind",
		}, []string{"kind"})
		r.accessOutcomes = prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "access_outcomes_total",
			Help:      "Card presentations by outcome",
		}, []string{"outcome"})
		r.sensorErrors = prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "sensor_errors_total",
			Help:      "Failed sensor reads by sensor",
		}, []string{"sensor"})
		r.commands = prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "commands_total",
			Help:      "Manual commands by name and result",
		}, []string{"command", "result"})
		r.journalDropped = prom.NewCounter(prom.CounterOpts{
			Namespace: namespace,
			Name:      "journal_dropped_total",
			Help:      "Events dropped because the journal queue was full",
		})
		r.publishResults = prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "mqtt_publish_total",
			Help:      "MQTT publish attempts by result",
		}, []string{"result"})

		gauge := func(name, help string) prom.Gauge {
			return prom.NewGauge(prom.GaugeOpts{Namespace: namespace, Name: name, Help: help})
		}
		r.occupied = gauge("occupied", "1 while the distance sensor sees a target")
		r.lightOn = gauge("light_on", "Commanded light state")
		r.fanAutoOn = gauge("fan_auto_on", "Commanded automatic fan state")
		r.fanManualOn = gauge("fan_manual_on", "Commanded manual fan state")
		r.doorUnlocked = gauge("door_unlocked", "Logical door state")
		r.temperature = gauge("temperature_celsius", "Last accepted temperature sample")
		r.humidity = gauge("humidity_percent", "Last accepted relative humidity sample")

		reg.MustRegister(r.cycleDuration, r.notices, r.accessOutcomes, r.sensorErrors,
			r.commands, r.journalDropped, r.publishResults,
			r.occupied, r.lightOn, r.fanAutoOn, r.fanManualOn, r.doorUnlocked,
			r.temperature, r.humidity)
	})
	return r
}

// Handler serves the registry for scraping.
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return promhttp.HandlerFor(prom.NewRegistry(), promhttp.HandlerOpts{})
	}
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

func (r *Recorder) ObserveCycle(d time.Duration) {
	if r == nil {
		return
	}
	r.cycleDuration.Observe(d.Seconds())
}

func (r *Recorder) IncNotice(kind string) {
	if r == nil || kind == "" {
		return
	}
	r.notices.WithLabelValues(kind).Inc()
}

func (r *Recorder) IncAccess(outcome string) {
	if r == nil {
		return
	}
	r.accessOutcomes.WithLabelValues(outcome).Inc()
}

func (r *Recorder) IncSensorError(sensor string) {
	if r == nil {
		return
	}
	r.sensorErrors.WithLabelValues(sensor).Inc()
}

// IncCommand counts a manual command; rejected is true when it changed nothing.
func (r *Recorder) IncCommand(command string, rejected bool) {
	if r == nil {
		return
	}
	res := "applied"
	if rejected {
		res = "rejected"
	}
	r.commands.WithLabelValues(command, res).Inc()
}

func (r *Recorder) IncJournalDropped() {
	if r == nil {
		return
	}
	r.journalDropped.Inc()
}

func (r *Recorder) IncPublish(success bool) {
	if r == nil {
		return
	}
	res := "failed"
	if success {
		res = "success"
	}
	r.publishResults.WithLabelValues(res).Inc()
}

// SetActuators reports the commanded outputs.
func (r *Recorder) SetActuators(a Actuators) {
	if r == nil {
		return
	}
	r.occupied.Set(b2f(a.Occupied))
	r.lightOn.Set(b2f(a.LightOn))
	r.fanAutoOn.Set(b2f(a.FanAutoOn))
	r.fanManualOn.Set(b2f(a.FanManualOn))
	r.doorUnlocked.Set(b2f(a.DoorUnlocked))
}

// SetClimate reports the last accepted climate sample.
func (r *Recorder) SetClimate(tempC int, humidityPct float64) {
	if r == nil {
		return
	}
	r.temperature.Set(float64(tempC))
	r.humidity.Set(humidityPct)
}

func b2f(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
