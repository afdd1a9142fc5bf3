package model

import "time"

// SourceExternalSearch marks records discovered through the AI search enricher.
const SourceExternalSearch = "external-search"

// Resource describes a community-support resource. The pair (ID, Location) is the
// primary key; (Type, Location) is the secondary index.
type Resource struct {
	ID          string    `json:"id" dynamodbav:"id" gorm:"primaryKey;size:64"`
	Location    string    `json:"location" dynamodbav:"location" gorm:"primaryKey;size:255;index:idx_resources_type_location,priority:2"`
	Type        string    `json:"type" dynamodbav:"type" gorm:"size:128;not null;index:idx_resources_type_location,priority:1"`
	Name        string    `json:"name" dynamodbav:"name" gorm:"type:text;not null"`
	Description string    `json:"description" dynamodbav:"description,omitempty" gorm:"type:text"`
	Address     string    `json:"address" dynamodbav:"address,omitempty" gorm:"type:text"`
	PhoneNumber string    `json:"phoneNumber" dynamodbav:"phoneNumber,omitempty" gorm:"size:64"`
	Email       string    `json:"email" dynamodbav:"email,omitempty" gorm:"size:255"`
	Website     string    `json:"website" dynamodbav:"website,omitempty" gorm:"type:text"`
	Hours       string    `json:"hours" dynamodbav:"hours,omitempty" gorm:"type:text"`
	Source      string    `json:"source" dynamodbav:"source,omitempty" gorm:"size:64"`
	CreatedAt   time.Time `json:"createdAt" dynamodbav:"createdAt" gorm:"not null"`
	UpdatedAt   time.Time `json:"updatedAt" dynamodbav:"updatedAt" gorm:"not null"`
	// ExpiresAt is epoch seconds; the store drops the record once it passes.
	ExpiresAt *int64 `json:"expiresAt,omitempty" dynamodbav:"expiresAt,omitempty" gorm:"index"`
}

// TableName pins the GORM table name.
func (Resource) TableName() string {
	return "resources"
}

// Expired reports whether the record's expiry has passed at now.
func (r *Resource) Expired(now time.Time) bool {
	return r.ExpiresAt != nil && *r.ExpiresAt <= now.Unix()
}

// ExpiryAfter returns the epoch-seconds expiry for a record written at now.
func ExpiryAfter(now time.Time, days int) *int64 {
	ts := now.Add(time.Duration(days) * 24 * time.Hour).Unix()
	return &ts
}
