// internal/models/audit.go
package models

type AuditLog struct {
	BaseModel
	RequestID    string `json:"request_id" gorm:"size:36;index"`
	UserID       *uint  `json:"user_id" gorm:"index"`
	Action       string `json:"action" gorm:"size:100;not null;index"`
	ResourceType string `json:"resource_type" gorm:"size:50;not null;index"`
	ResourceID   *uint  `json:"resource_id" gorm:"index"`
	StatusCode   int    `json:"status_code"`
	NewValues    JSONB  `json:"new_values" gorm:"type:text"`
	IPAddress    string `json:"ip_address" gorm:"size:45"`
	UserAgent    string `json:"user_agent" gorm:"type:text"`

	// Relationships
	User *User `json:"user,omitempty" gorm:"foreignKey:UserID"`
}
