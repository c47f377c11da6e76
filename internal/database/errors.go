package database

import "errors"

// Типизированные ошибки уровня хранилища. Верхние слои различают их
// через errors.Is и транслируют в коды ответов.
var (
	ErrMachineNotFound    = errors.New("machine not found")
	ErrMachineUnavailable = errors.New("machine is not available")
	ErrInvalidInterval    = errors.New("end time must be after start time")
	ErrSlotConflict       = errors.New("time slot conflicts with existing booking")
	ErrRateLimited        = errors.New("user already has an active booking in the next 10 days")
	ErrBookingNotFound    = errors.New("booking not found")
	ErrUserNotFound       = errors.New("user not found")
	ErrDuplicateStudentID = errors.New("student id already registered")
	ErrInvalidStatus      = errors.New("invalid machine status")
	ErrInvalidState       = errors.New("cannot cancel completed booking")
)
