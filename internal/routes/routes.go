package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"gorm.io/gorm"

	handler "wire-payment-backend/internal/handlers"
	"wire-payment-backend/internal/repository"
	"wire-payment-backend/internal/services/ledger"
	service "wire-payment-backend/internal/services/payments"
)

func RegisterRoutes(r *gin.Engine, db *gorm.DB, gl *ledger.Simulator, log *zap.Logger) {
	paymentRepo := repository.NewWirePaymentRepository(db)
	auditRepo := repository.NewAuditLogRepository(db)

	paymentService := service.NewService(paymentRepo, auditRepo, gl, log)
	paymentHandler := handler.NewPaymentHandler(paymentService)

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Wire payment routes
	payments := r.Group("/payments")
	{
		payments.GET("", paymentHandler.ListPayments)
		payments.POST("/:id/clear", paymentHandler.ClearPayment)
		payments.POST("/:id/manual-post", paymentHandler.ManualPost)
		payments.POST("/:id/revert", paymentHandler.RevertPayment)
	}
}
