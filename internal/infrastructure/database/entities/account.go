package entities

import (
	"time"

	"github.com/quangtuanitmo18/qr-order-server/internal/domain/account"
)

// Account represents the database schema for staff accounts
type Account struct {
	ID        uint      `gorm:"primaryKey"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`

	Name   string  `gorm:"type:varchar(100);not null"`
	Email  string  `gorm:"type:varchar(255);uniqueIndex;not null"`
	Avatar *string `gorm:"type:varchar(512)"`
	Role   string  `gorm:"type:varchar(20);not null;default:'Employee';index"`
}

// TableName specifies the table name for Account.
func (Account) TableName() string {
	return "accounts"
}

// EtoD converts database entity to domain model
func (a *Account) EtoD() *account.Account {
	return &account.Account{
		ID:     a.ID,
		Name:   a.Name,
		Email:  a.Email,
		Avatar: a.Avatar,
		Role:   account.Role(a.Role),
	}
}

// NewSchemaAccount creates a database entity from domain model
func NewSchemaAccount(a *account.Account) *Account {
	return &Account{
		ID:     a.ID,
		Name:   a.Name,
		Email:  a.Email,
		Avatar: a.Avatar,
		Role:   string(a.Role),
	}
}
