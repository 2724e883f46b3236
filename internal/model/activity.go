package model

import (
	"time"

	"github.com/google/uuid"
)

const (
	ActionCreateLoan    = "CREATE_LOAN"
	ActionSubmitReturn  = "SUBMIT_RETURN"
	ActionConfirmReturn = "CONFIRM_RETURN"
	ActionRejectReturn  = "REJECT_RETURN"
	ActionDirectReturn  = "DIRECT_RETURN"
	ActionExtendLoan    = "EXTEND_LOAN"
)

// EntityLoan is the entity_type value for loan lifecycle events.
const EntityLoan = "loan"

// ActivityLog tracks Who, What, and When for loan lifecycle changes. Writes
// are best-effort: they happen after the primary transaction commits and a
// failure never fails the operation that produced them.
type ActivityLog struct {
	ID          uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID      *uint     `gorm:"index" json:"user_id"`
	User        *User     `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Action      string    `gorm:"type:varchar(50);not null;index" json:"action"`
	EntityType  string    `gorm:"type:varchar(50);not null;index" json:"entity_type"`
	EntityID    uint      `gorm:"index" json:"entity_id"`
	OldData     string    `gorm:"type:jsonb" json:"old_data,omitempty"`
	NewData     string    `gorm:"type:jsonb" json:"new_data,omitempty"`
	Description string    `gorm:"type:text" json:"description"`
	CreatedAt   time.Time `gorm:"index" json:"created_at"`
}
