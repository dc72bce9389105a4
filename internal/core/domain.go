package core

import (
	"errors"
	"strings"
	"time"

	"settlements/internal/month"
)

const (
	StatusPending Status = "pending"
	StatusSettled Status = "settled"
)

const maxDescriptionLen = 200

type (
	Status string

	Date struct {
		time.Time
	}

	// Money is an amount in pence.
	Money struct {
		Pence int64
	}

	// Settlement records that OwedBy owes PaidBy the Amount for Description.
	Settlement struct {
		ID          string
		Description string
		Amount      Money
		PaidBy      string // who paid up front
		OwedBy      string // who owes the money back
		Date        Date
		Status      Status
		CreatedAt   time.Time
		SettledAt   time.Time
		Version     int64
	}
)

var (
	ErrInvalidDay       = errors.New("invalid day")
	ErrInvalidMonth     = errors.New("invalid month")
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrEmptyDescription = errors.New("empty description")
	ErrDescriptionLong  = errors.New("description too long (max 200 characters)")
	ErrEmptyParty       = errors.New("paid by and owed by are required")
	ErrSameParty        = errors.New("paid by and owed by must differ")
	ErrInvalidStatus    = errors.New("invalid status")
	ErrNotFound         = errors.New("settlement not found")
	ErrAlreadySettled   = errors.New("settlement already settled")
	ErrVersionConflict  = errors.New("settlement was modified concurrently")
)

func (d Date) Validate() error {
	if d.IsZero() {
		return errors.New("date cannot be zero")
	}
	_, m, day := d.Date()
	if day < 1 || day > 31 {
		return ErrInvalidDay
	}
	if m < 1 || m > 12 {
		return ErrInvalidMonth
	}
	return nil
}

// NewDate creates a new Date from year, month, day
func NewDate(year, m, day int) Date {
	return Date{Time: time.Date(year, time.Month(m), day, 0, 0, 0, 0, time.UTC)}
}

// MonthKey returns the month the date falls in.
func (d Date) MonthKey() month.Key {
	return month.FromTime(d.Time)
}

func (m Money) Validate() error {
	if m.Pence <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (s Status) Valid() bool {
	return s == StatusPending || s == StatusSettled
}

func (s Settlement) Validate() error {
	if err := s.Date.Validate(); err != nil {
		return err
	}
	if len(strings.TrimSpace(s.Description)) == 0 {
		return ErrEmptyDescription
	}
	if len(s.Description) > maxDescriptionLen {
		return ErrDescriptionLong
	}
	if err := s.Amount.Validate(); err != nil {
		return err
	}
	paidBy, owedBy := strings.TrimSpace(s.PaidBy), strings.TrimSpace(s.OwedBy)
	if paidBy == "" || owedBy == "" {
		return ErrEmptyParty
	}
	if strings.EqualFold(paidBy, owedBy) {
		return ErrSameParty
	}
	if s.Status != "" && !s.Status.Valid() {
		return ErrInvalidStatus
	}
	return nil
}

// MonthKey is the month the settlement is filed under.
func (s Settlement) MonthKey() month.Key {
	return s.Date.MonthKey()
}

func (s Settlement) IsSettled() bool {
	return s.Status == StatusSettled
}
