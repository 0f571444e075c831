package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type Child struct {
	ID        string    `json:"id"`
	FamilyID  string    `json:"family_id"`
	Name      string    `json:"name"`
	BirthDate time.Time `json:"birth_date"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func NewChild(familyID string, name string, birthDate time.Time) Child {
	now := time.Now().UTC()
	return Child{
		ID:        uuid.New().String(),
		FamilyID:  familyID,
		Name:      name,
		BirthDate: birthDate,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (c Child) UpdateFields(name *string, birthDate *time.Time) Child {
	updated := c

	if name != nil {
		updated.Name = *name
	}
	if birthDate != nil {
		updated.BirthDate = *birthDate
	}
	updated.UpdatedAt = time.Now().UTC()

	return updated
}

func IsValidChildName(name string) bool {
	return strings.TrimSpace(name) != ""
}

func IsValidBirthDate(birthDate time.Time) bool {
	return !birthDate.IsZero() && !birthDate.After(time.Now())
}
