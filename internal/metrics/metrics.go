// Package metrics регистрирует метрики Prometheus сервиса.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mmeshcher/comedor/internal/model"
)

// Metrics содержит счётчики заказов и закрытий недели. Нулевой указатель допустим: методы ничего не делают.
type Metrics struct {
	ordersSaved    *prometheus.CounterVec
	lateSelections *prometheus.CounterVec
	rollovers      *prometheus.CounterVec
	archivedOrders prometheus.Counter
	gatherer       prometheus.Gatherer
}

// New создаёт и регистрирует метрики в указанном реестре.
func New(reg *prometheus.Registry) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		ordersSaved: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "comedor",
			Name:      "orders_saved_total",
			Help:      "Weekly orders created or updated.",
		}, []string{"slot", "actor"}),
		lateSelections: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "comedor",
			Name:      "late_selections_total",
			Help:      "Day selections flagged as late when saved.",
		}, []string{"slot"}),
		rollovers: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "comedor",
			Name:      "rollovers_total",
			Help:      "Weekly close-out runs by outcome.",
		}, []string{"status"}),
		archivedOrders: f.NewCounter(prometheus.CounterOpts{
			Namespace: "comedor",
			Name:      "archived_orders_total",
			Help:      "Orders moved to history by the weekly close-out.",
		}),
		gatherer: reg,
	}
}

// OrderSaved учитывает сохранённый заказ.
func (m *Metrics) OrderSaved(slot model.Slot, actor string, late int) {
	if m == nil {
		return
	}
	m.ordersSaved.WithLabelValues(string(slot), actor).Inc()
	if late > 0 {
		m.lateSelections.WithLabelValues(string(slot)).Add(float64(late))
	}
}

// RolloverFinished учитывает завершённое закрытие недели.
func (m *Metrics) RolloverFinished(run model.RolloverRun) {
	if m == nil {
		return
	}
	m.rollovers.WithLabelValues(string(run.Status)).Inc()
	if run.Status == model.RolloverSucceeded {
		m.archivedOrders.Add(float64(run.Archived))
	}
}

// RolloverSkipped учитывает запуск, не нашедший меню следующей недели.
func (m *Metrics) RolloverSkipped() {
	if m == nil {
		return
	}
	m.rollovers.WithLabelValues("nothing_to_roll").Inc()
}

// Handler возвращает HTTP-обработчик для выдачи метрик.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
