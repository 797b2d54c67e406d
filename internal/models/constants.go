package models

const (
	StatusPending   = "pending"
	StatusConfirmed = "confirmed"
	StatusCancelled = "cancelled"
	StatusCompleted = "completed"
)

const (
	StepServiceSelection  = "service_selection"
	StepEmployeeSelection = "employee_selection"
	StepDateTimeSelection = "datetime_selection"
	StepConfirm           = "confirm"
)

const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)

const (
	// DefaultWizardTTL lifetime of an in-progress wizard session in Redis, seconds.
	DefaultWizardTTL = 24 * 60 * 60

	// DefaultDayStart start of the default business-day slot grid.
	DefaultDayStart = "09:00"

	// DefaultDayEnd end of the default business-day slot grid.
	DefaultDayEnd = "18:00"

	// DefaultSlotMinutes step of the slot grid.
	DefaultSlotMinutes = 60

	// DefaultBookingWindowDays how far ahead a reservation may be placed.
	DefaultBookingWindowDays = 90

	// DefaultExportRangeDays schedule export period.
	DefaultExportRangeDays = 14

	// WorkerQueueSize size of the sync worker in-memory queue.
	WorkerQueueSize = 1000

	// RatingMin and RatingMax bound a rating score.
	RatingMin = 1
	RatingMax = 5
)
