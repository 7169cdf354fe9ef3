package constvars

const (
	MongoCollectionPayments     = "payments"
	MongoCollectionAppointments = "appointments"
	MongoCollectionSlots        = "slots"
)
