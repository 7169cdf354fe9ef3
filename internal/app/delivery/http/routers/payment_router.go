package routers

import (
	"github.com/go-chi/chi/v5"
	"github.com/nqluong/appointment-project-sub001/internal/app/delivery/http/controllers"
)

func attachPaymentRouter(router chi.Router, paymentController *controllers.PaymentController) {
	router.Post("/payments", paymentController.CreatePayment)
	router.Get("/payments/{paymentID}", paymentController.GetPayment)
	router.Post("/payments/{paymentID}/cancel", paymentController.CancelPayment)
	router.Get("/appointments/{appointmentID}/payments", paymentController.ListPaymentsByAppointment)

	// Gateway-facing callback paths.
	router.Get("/payments/vnpay/ipn", paymentController.IPNCallback)
	router.Get("/payments/vnpay/return", paymentController.ReturnCallback)
}
