package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// CommerceMetrics содержит метрики сервисов клиентов, каталога и заказов.
type CommerceMetrics struct {
	// Счётчики операций
	customersCreated prometheus.Counter
	productsCreated  prometheus.Counter
	ordersCreated    prometheus.Counter
	orderRejections  *prometheus.CounterVec

	// Складские единицы, списанные заказами
	stockUnitsDecremented prometheus.Counter

	orderDuration  prometheus.Histogram
	orderLineItems prometheus.Histogram

	outboxEvents prometheus.Counter
}

// NewCommerceMetrics создаёт метрики в default registry.
func NewCommerceMetrics() *CommerceMetrics {
	return NewCommerceMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

// NewCommerceMetricsWithRegisterer создаёт метрики в заданном registry (используется в тестах).
func NewCommerceMetricsWithRegisterer(registerer prometheus.Registerer) *CommerceMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &CommerceMetrics{
		customersCreated: registerCounter(registerer, prometheus.CounterOpts{
			Name: "commerce_customers_created_total",
			Help: "Total number of customers created",
		}),
		productsCreated: registerCounter(registerer, prometheus.CounterOpts{
			Name: "commerce_products_created_total",
			Help: "Total number of catalog products created",
		}),
		ordersCreated: registerCounter(registerer, prometheus.CounterOpts{
			Name: "commerce_orders_created_total",
			Help: "Total number of orders created successfully",
		}),
		orderRejections: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "commerce_order_rejections_total",
			Help: "Total number of rejected order creations grouped by reason",
		}, []string{"reason"}),
		stockUnitsDecremented: registerCounter(registerer, prometheus.CounterOpts{
			Name: "commerce_stock_units_decremented_total",
			Help: "Total number of stock units decremented by orders",
		}),
		orderDuration: registerHistogram(registerer, prometheus.HistogramOpts{
			Name:    "commerce_order_create_duration_seconds",
			Help:    "Duration of order creation in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
		}),
		orderLineItems: registerHistogram(registerer, prometheus.HistogramOpts{
			Name:    "commerce_order_line_items",
			Help:    "Number of line items per created order",
			Buckets: []float64{1, 2, 3, 5, 10, 20, 50},
		}),
		outboxEvents: registerCounter(registerer, prometheus.CounterOpts{
			Name: "commerce_outbox_events_total",
			Help: "Total number of outbox events enqueued",
		}),
	}
}

func registerCounter(registerer prometheus.Registerer, opts prometheus.CounterOpts) prometheus.Counter {
	collector := prometheus.NewCounter(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Counter)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register counter %q: %v", opts.Name, err))
	}
	return collector
}

func registerCounterVec(registerer prometheus.Registerer, opts prometheus.CounterOpts, labels []string) *prometheus.CounterVec {
	collector := prometheus.NewCounterVec(opts, labels)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(*prometheus.CounterVec)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register counter vec %q: %v", opts.Name, err))
	}
	return collector
}

func registerHistogram(registerer prometheus.Registerer, opts prometheus.HistogramOpts) prometheus.Histogram {
	collector := prometheus.NewHistogram(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Histogram)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register histogram %q: %v", opts.Name, err))
	}
	return collector
}

// RecordCustomerCreated увеличивает счётчик созданных клиентов.
func (m *CommerceMetrics) RecordCustomerCreated() {
	if m == nil {
		return
	}
	m.customersCreated.Inc()
}

// RecordProductCreated увеличивает счётчик созданных товаров.
func (m *CommerceMetrics) RecordProductCreated() {
	if m == nil {
		return
	}
	m.productsCreated.Inc()
}

// RecordOrderCreated фиксирует успешный заказ, число позиций и списанные единицы.
func (m *CommerceMetrics) RecordOrderCreated(lineItems, units int) {
	if m == nil {
		return
	}
	m.ordersCreated.Inc()
	m.orderLineItems.Observe(float64(lineItems))
	m.stockUnitsDecremented.Add(float64(units))
}

// RecordOrderRejected увеличивает счётчик отказов с указанной причиной.
func (m *CommerceMetrics) RecordOrderRejected(reason string) {
	if m == nil {
		return
	}
	m.orderRejections.WithLabelValues(reason).Inc()
}

// RecordOrderDuration записывает время создания заказа.
func (m *CommerceMetrics) RecordOrderDuration(duration time.Duration) {
	if m == nil {
		return
	}
	m.orderDuration.Observe(duration.Seconds())
}

// RecordOutboxEvent увеличивает счётчик событий outbox.
func (m *CommerceMetrics) RecordOutboxEvent() {
	if m == nil {
		return
	}
	m.outboxEvents.Inc()
}
