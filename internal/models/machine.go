package models

import "time"

type Machine struct {
	ID             int64      `json:"id" yaml:"id"`
	Name           string     `json:"machine_name" yaml:"name"`
	Status         string     `json:"status" yaml:"status"`
	LastUsedBy     *int64     `json:"last_used_by,omitempty" yaml:"-"`
	LastUsedByName string     `json:"last_used_by_name,omitempty" yaml:"-"`
	LastUsedTime   *time.Time `json:"last_used_time,omitempty" yaml:"-"`
	CreatedAt      time.Time  `json:"created_at" yaml:"-"`
}
