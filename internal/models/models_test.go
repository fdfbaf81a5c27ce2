package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"gorm.io/datatypes"
)

func TestUserDisplayName(t *testing.T) {
	u := &User{
		RoleType: RoleServiceProvider,
		Details:  datatypes.JSON([]byte(`{"service_provider":{"name":"Pat Provider","email":"pat@clinic.example"}}`)),
	}
	assert.Equal(t, "Pat Provider", u.DisplayName())
	assert.Equal(t, "pat@clinic.example", u.ContactEmail())
}

func TestUserDisplayNameFromFirstLast(t *testing.T) {
	u := &User{
		RoleType: RoleClient,
		Details:  datatypes.JSON([]byte(`{"client":{"first_name":"Ana","last_name":"Diaz"}}`)),
	}
	assert.Equal(t, "Ana Diaz", u.DisplayName())
}

func TestUserContactEmailFallsBack(t *testing.T) {
	u := &User{Useremail: "account@example.com", RoleType: RoleClient}
	assert.Equal(t, "account@example.com", u.ContactEmail())
	assert.Empty(t, u.DisplayName())
}

func TestUserBadDetailsBlob(t *testing.T) {
	u := &User{RoleType: RoleClient, Details: datatypes.JSON([]byte(`{broken`))}
	assert.Empty(t, u.DisplayName())
}

func TestChatDeletedByList(t *testing.T) {
	c := &Chat{DeletedBy: datatypes.JSON([]byte(`["u1","u2"]`))}
	assert.Equal(t, []string{"u1", "u2"}, c.DeletedByList())

	assert.Nil(t, (&Chat{}).DeletedByList())
	assert.Nil(t, (&Chat{DeletedBy: datatypes.JSON([]byte(`{bad`))}).DeletedByList())
}

func TestMessageHelpers(t *testing.T) {
	body := "hello"
	m := &Message{Body: &body, Attachment: datatypes.JSON([]byte(`[{"name":"a.png","url":"http://x/a","type":"image/png","size":3}]`))}
	assert.Equal(t, "hello", m.Text())

	atts := m.Attachments()
	assert.Len(t, atts, 1)
	assert.Equal(t, "a.png", atts[0].Name)

	assert.Empty(t, (&Message{}).Text())
	assert.Nil(t, (&Message{}).Attachments())
}
