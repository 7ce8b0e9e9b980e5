// internal/models/admin.go
package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

type AdminSettings struct {
	BaseModel
	Category    string    `json:"category" gorm:"size:50;not null;index"`
	Key         string    `json:"key" gorm:"size:100;not null;index"`
	Value       JSONB     `json:"value" gorm:"type:jsonb;not null"`
	DataType    string    `json:"data_type" gorm:"size:20;not null"`
	Description string    `json:"description" gorm:"type:text"`
	UpdatedBy   uuid.UUID `json:"updated_by" gorm:"type:uuid"`

	// Relationships
	UpdatedByUser User `json:"updated_by_user,omitempty" gorm:"foreignKey:UpdatedBy"`
}

type AuditLog struct {
	BaseModel
	UserID       *uuid.UUID `json:"user_id" gorm:"type:uuid;index"`
	Action       string     `json:"action" gorm:"size:100;not null;index"`
	ResourceType string     `json:"resource_type" gorm:"size:50;not null;index"`
	ResourceID   *uuid.UUID `json:"resource_id" gorm:"type:uuid;index"`
	OldValues    JSONB      `json:"old_values" gorm:"type:jsonb"`
	NewValues    JSONB      `json:"new_values" gorm:"type:jsonb"`
	IPAddress    string     `json:"ip_address" gorm:"size:45"`
	UserAgent    string     `json:"user_agent" gorm:"type:text"`

	// Relationships
	User *User `json:"user,omitempty" gorm:"foreignKey:UserID"`
}

type AdminNotification struct {
	BaseModel
	Type                string     `json:"type" gorm:"type:varchar(50);not null;index"`
	Title               string     `json:"title" gorm:"size:255;not null"`
	Message             string     `json:"message" gorm:"type:text;not null"`
	Priority            string     `json:"priority" gorm:"type:varchar(20);default:'medium';index"`
	Status              string     `json:"status" gorm:"type:varchar(20);default:'unread';index"`
	RelatedResourceType string     `json:"related_resource_type,omitempty" gorm:"size:50"`
	RelatedResourceID   *uuid.UUID `json:"related_resource_id" gorm:"type:uuid"`
	ReadAt              *time.Time `json:"read_at"`
}

// ReconciliationLog records every external payment signal the matcher saw,
// matched or not. Operators answer "what money came in that we couldn't
// place" from this table; signals are never silently dropped.
type ReconciliationLog struct {
	BaseModel
	Source              string         `json:"source" gorm:"type:varchar(20);not null;index"` // manual | sms | webhook
	RawSignal           string         `json:"raw_signal" gorm:"type:text"`
	ExtractedRefs       pq.StringArray `json:"extracted_refs" gorm:"type:text[]"`
	MatchedOrderNumbers pq.StringArray `json:"matched_order_numbers" gorm:"type:text[]"`
	UnmatchedRefs       pq.StringArray `json:"unmatched_refs" gorm:"type:text[]"`
	AmbiguousRefs       pq.StringArray `json:"ambiguous_refs" gorm:"type:text[]"`
	MatchedCount        int            `json:"matched_count" gorm:"default:0"`
	Status              string         `json:"status" gorm:"type:varchar(20);not null;index"` // matched | partial | unmatched | unparseable
	ProcessedBy         *uuid.UUID     `json:"processed_by" gorm:"type:uuid"`
}
