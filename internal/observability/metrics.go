package observability

import "github.com/prometheus/client_golang/prometheus"

var (
	timerTransitions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "karmalog",
		Subsystem: "timer",
		Name:      "transitions_total",
		Help:      "Number of timer start/stop transitions applied to the store.",
	}, []string{"state"})
	alarmsTriggered = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "karmalog",
		Subsystem: "alarm",
		Name:      "triggered_total",
		Help:      "Number of alarms armed by the wall-clock monitor.",
	})
	coachRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "karmalog",
		Subsystem: "coach",
		Name:      "requests_total",
		Help:      "Number of advisory requests by outcome (ok, empty, error).",
	}, []string{"outcome"})
)

func init() {
	prometheus.MustRegister(timerTransitions, alarmsTriggered, coachRequests)
}

// RecordTimerTransition 记录一次计时器状态迁移
func RecordTimerTransition(state string) {
	timerTransitions.WithLabelValues(state).Inc()
}

// RecordAlarmTriggered 记录一次闹钟触发
func RecordAlarmTriggered() {
	alarmsTriggered.Inc()
}

// RecordCoachRequest 按结果记录一次教练分析请求
func RecordCoachRequest(outcome string) {
	coachRequests.WithLabelValues(outcome).Inc()
}
