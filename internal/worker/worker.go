package worker

import (
	"context"

	"reservation-service/internal/broker"
	"reservation-service/internal/service"
	"reservation-service/internal/util"

	"go.uber.org/zap"
)

// PaymentWorker applies payment results published by the payment provider
type PaymentWorker struct {
	consumer     *broker.Consumer
	eventHandler *broker.EventHandler
	logger       *zap.Logger
}

// NewPaymentWorker creates a new payment worker
func NewPaymentWorker(
	consumer *broker.Consumer,
	paymentService *service.PaymentService,
) *PaymentWorker {
	eventHandler := broker.NewEventHandler()
	eventHandler.OnPaymentSucceeded(paymentService.HandlePaymentSucceeded)

	return &PaymentWorker{
		consumer:     consumer,
		eventHandler: eventHandler,
		logger:       util.ComponentLogger("payment-worker"),
	}
}

// Start starts the payment worker
func (pw *PaymentWorker) Start(ctx context.Context) error {
	pw.logger.Info("Starting payment worker")
	return pw.consumer.StartConsuming(ctx, pw.eventHandler.HandleMessage)
}

// Stop stops the payment worker
func (pw *PaymentWorker) Stop() error {
	pw.logger.Info("Stopping payment worker")
	return pw.consumer.Close()
}
