package httpserver

import (
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	log "github.com/sirupsen/logrus"
)

// NewRouter собирает echo-приложение с маршрутами API.
func NewRouter(h *Handler) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = errorHandler(h.logger)

	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(requestLogger(h.logger))

	e.POST("/customers", h.CreateCustomer)
	e.GET("/customers/:id/orders", h.ListCustomerOrders)
	e.POST("/products", h.CreateProduct)
	e.POST("/orders", h.CreateOrder)
	e.GET("/orders/:id", h.GetOrder)

	return e
}

func requestLogger(logger *log.Entry) echo.MiddlewareFunc {
	return echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		LogValuesFunc: func(_ echo.Context, v echomw.RequestLoggerValues) error {
			entry := logger.WithFields(log.Fields{
				"method":     v.Method,
				"uri":        v.URI,
				"status":     v.Status,
				"latency_ms": v.Latency.Milliseconds(),
				"request_id": v.RequestID,
			})
			if v.Error != nil {
				entry = entry.WithError(v.Error)
			}
			entry.Debug("http request")
			return nil
		},
	})
}
