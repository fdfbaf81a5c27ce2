package models

import (
	"encoding/json"
	"strings"
	"time"

	"gorm.io/datatypes"
)

// User is the shared account record for clients, service providers and admins.
// Role-specific profile fields live in the Details JSONB blob keyed by role;
// the chat core only ever reads it, never patches it.
type User struct {
	UUID         string         `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"uuid"`
	Useremail    string         `gorm:"size:190;uniqueIndex;not null" json:"useremail"`
	PasswordHash string         `gorm:"size:255" json:"-"`
	RoleType     string         `gorm:"size:50;index" json:"role_type"`
	ProfileImg   string         `json:"profile_img"`
	Details      datatypes.JSON `json:"details"`
	ApprovedBy   string         `gorm:"type:uuid" json:"approved_by"`
	CreatedBy    string         `gorm:"type:uuid" json:"created_by"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

const (
	RoleClient          = "client"
	RoleServiceProvider = "service_provider"
	RoleAdmin           = "admin"
	RoleSubAdmin        = "sub_admin"
)

// DisplayName digs the user's name out of the role-keyed details blob.
func (u *User) DisplayName() string {
	d := u.roleDetails()
	if d == nil {
		return ""
	}
	if name, _ := d["name"].(string); name != "" {
		return name
	}
	first, _ := d["first_name"].(string)
	last, _ := d["last_name"].(string)
	return strings.TrimSpace(first + " " + last)
}

// ContactEmail prefers the role-profile email and falls back to the account email.
func (u *User) ContactEmail() string {
	if d := u.roleDetails(); d != nil {
		if email, _ := d["email"].(string); email != "" {
			return email
		}
	}
	return u.Useremail
}

func (u *User) Region() string {
	if d := u.roleDetails(); d != nil {
		if region, _ := d["region"].(string); region != "" {
			return region
		}
	}
	return ""
}

func (u *User) roleDetails() map[string]any {
	if len(u.Details) == 0 {
		return nil
	}
	var details map[string]map[string]any
	if err := json.Unmarshal(u.Details, &details); err != nil {
		return nil
	}
	return details[u.RoleType]
}

// Chat is a durable conversation thread between exactly two participants.
// Sender/receiver record who initiated the thread; messaging is symmetric.
type Chat struct {
	ChatID     uint           `gorm:"primaryKey" json:"chat_id"`
	SenderID   string         `gorm:"type:uuid;index;not null" json:"sender_id"`
	ReceiverID string         `gorm:"type:uuid;index;not null" json:"receiver_id"`
	Message    string         `gorm:"type:text" json:"message"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	IsDeleted  bool           `gorm:"default:false" json:"is_deleted"`
	DeletedAt  *time.Time     `json:"deleted_at"`
	DeletedBy  datatypes.JSON `json:"deleted_by"`
	EndChat    bool           `gorm:"default:false" json:"end_chat"`
}

// DeletedByList decodes the deleted_by JSONB array.
func (c *Chat) DeletedByList() []string {
	if len(c.DeletedBy) == 0 {
		return nil
	}
	var ids []string
	if err := json.Unmarshal(c.DeletedBy, &ids); err != nil {
		return nil
	}
	return ids
}

// Message belongs to exactly one chat. Body is nullable: a message may be
// attachment-only, but never both empty.
type Message struct {
	MessageID  uint           `gorm:"primaryKey" json:"message_id"`
	ChatID     uint           `gorm:"index;not null" json:"chat_id"`
	SenderID   string         `gorm:"type:uuid;index;not null" json:"sender_id"`
	Body       *string        `gorm:"column:message;type:text" json:"message"`
	Attachment datatypes.JSON `json:"attachment"`
	SentAt     time.Time      `gorm:"index;autoCreateTime" json:"sent_at"`
	IsRead     bool           `gorm:"default:false" json:"is_read"`
	IsDeleted  bool           `gorm:"default:false" json:"is_deleted"`
	DeletedAt  *time.Time     `json:"deleted_at"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

// Text returns the body or "" for attachment-only messages.
func (m *Message) Text() string {
	if m.Body == nil {
		return ""
	}
	return *m.Body
}

// Attachments decodes the attachment JSONB list; bad blobs read as empty.
func (m *Message) Attachments() []Attachment {
	if len(m.Attachment) == 0 {
		return nil
	}
	var atts []Attachment
	if err := json.Unmarshal(m.Attachment, &atts); err != nil {
		return nil
	}
	return atts
}

// Attachment is embedded in a message's JSONB list, not an independent row.
// URL is only valid once the attachment processor has persisted the bytes.
type Attachment struct {
	Name string `json:"name"`
	URL  string `json:"url"`
	Type string `json:"type"`
	Size int64  `json:"size"`
}

// Notification is a durable record: broadcasts, connection-request events and
// status changes. Chat pending notifications live in the cache instead.
type Notification struct {
	NotificationID uint      `gorm:"primaryKey" json:"notification_id"`
	UserID         string    `gorm:"type:uuid;index" json:"user_id"`
	Title          string    `gorm:"size:255" json:"title"`
	Message        string    `gorm:"type:text;not null" json:"message"`
	IsRead         bool      `gorm:"default:false" json:"is_read"`
	Type           string    `gorm:"size:100" json:"type"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// PendingNotification is one entry of a recipient's offline queue. The id is
// synthetic: "r_<recipient>_<1001+position>".
type PendingNotification struct {
	ID       string `json:"notification_id"`
	SenderID string `json:"sender_id"`
	SendTime string `json:"send_time"`
	Message  string `json:"message"`
}

// SendTimeLayout is the wire format of PendingNotification.SendTime.
const SendTimeLayout = "2006_01_02_15_04_05"

// Subscription is a billing plan; the chat core only reads the
// chat_with_prospective_clients flag.
type Subscription struct {
	SubscriptionID             uint           `gorm:"primaryKey" json:"subscription_id"`
	Name                       string         `gorm:"size:150;not null" json:"name"`
	Description                string         `gorm:"size:255" json:"description"`
	ClientsCount               int            `json:"clients_count"`
	ViewOtherClient            string         `gorm:"size:150" json:"view_other_client"`
	ChatWithProspectiveClients bool           `gorm:"default:false" json:"chat_with_prospective_clients"`
	ChatRestriction            bool           `gorm:"default:false" json:"chat_restriction"`
	PriceDetails               datatypes.JSON `json:"price_details"`
	CreatedAt                  time.Time      `json:"created_at"`
	UpdatedAt                  time.Time      `json:"updated_at"`
}

// Membership links a provider to their subscription plan.
type Membership struct {
	ID             uint       `gorm:"primaryKey" json:"id"`
	UUID           string     `gorm:"type:uuid;index;not null" json:"uuid"`
	SubscriptionID uint       `gorm:"not null" json:"subscription_id"`
	Status         string     `gorm:"size:50" json:"status"`
	StartDate      *time.Time `json:"start_date"`
	ExpiryDate     *time.Time `json:"expiry_date"`
	BillingDate    *time.Time `json:"billing_date"`
	PaymentStatus  string     `gorm:"size:50;default:pending" json:"payment_status"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

const (
	MembershipActive = "active"
	MembershipTrial  = "trial"
)
