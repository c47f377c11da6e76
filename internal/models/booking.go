package models

import "time"

type Booking struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	MachineID int64     `json:"machine_id"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`

	// Заполняются JOIN-ами в списковых выборках, в таблице bookings не хранятся.
	MachineName string `json:"machine_name,omitempty"`
	Username    string `json:"username,omitempty"`
	StudentID   string `json:"student_id,omitempty"`
}

// Session связывает выданный токен с пользователем и ролью.
type Session struct {
	Token     string    `json:"token"`
	UserID    int64     `json:"user_id"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}
