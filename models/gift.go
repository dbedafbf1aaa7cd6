package models

import (
	"time"
)

// GiftStatus is the lifecycle state of a gift.
type GiftStatus string

const (
	GiftStatusPending  GiftStatus = "pending"
	GiftStatusFunded   GiftStatus = "funded"
	GiftStatusClaimed  GiftStatus = "claimed"
	GiftStatusExpired  GiftStatus = "expired"
	GiftStatusRefunded GiftStatus = "refunded" // provider-initiated; never written by this service
)

// Valid reports whether s is one of the stored status values.
func (s GiftStatus) Valid() bool {
	switch s {
	case GiftStatusPending, GiftStatusFunded, GiftStatusClaimed, GiftStatusExpired, GiftStatusRefunded:
		return true
	}
	return false
}

// Terminal reports whether no further transition can leave s.
func (s GiftStatus) Terminal() bool {
	return s == GiftStatusClaimed || s == GiftStatusExpired || s == GiftStatusRefunded
}

// GiftCard is a sender-funded, recipient-redeemable cross-asset transfer.
//
// Deposit-side fields are written once at creation; only DepositStatus and
// SettlementAmount are refreshed afterwards. Redeem-side fields stay empty until
// the gift is claimed and are never rewritten.
type GiftCard struct {
	GiftID        string     `gorm:"primaryKey;size:36" json:"giftId"`
	Status        GiftStatus `gorm:"size:16;not null;index" json:"status"`
	AmountUSD     float64    `gorm:"not null" json:"amountUsd"`
	Message       string     `gorm:"type:text" json:"message,omitempty"`
	SenderAddress string     `gorm:"size:255" json:"senderAddress,omitempty"`
	ExpiresAt     *time.Time `json:"expiresAt,omitempty"`
	CreatedAt     time.Time  `gorm:"index" json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`

	// Deposit side
	DepositShiftID string `gorm:"size:64" json:"depositShiftId,omitempty"`
	DepositCoin    string `gorm:"size:32" json:"depositCoin,omitempty"`
	DepositNetwork string `gorm:"size:64" json:"depositNetwork,omitempty"`
	DepositAddress string `gorm:"size:255" json:"depositAddress,omitempty"`
	DepositAmount  string `gorm:"size:64" json:"depositAmount,omitempty"`
	DepositStatus  string `gorm:"size:32" json:"depositStatus,omitempty"`

	// Settlement side
	SettlementCoin    string `gorm:"size:32;not null" json:"settlementCoin"`
	SettlementNetwork string `gorm:"size:64;not null" json:"settlementNetwork"`
	SettlementAmount  string `gorm:"size:64" json:"settlementAmount,omitempty"`

	// Redeem side
	RedeemShiftID string     `gorm:"size:64" json:"redeemShiftId,omitempty"`
	RedeemCoin    string     `gorm:"size:32" json:"redeemCoin,omitempty"`
	RedeemNetwork string     `gorm:"size:64" json:"redeemNetwork,omitempty"`
	RedeemAddress string     `gorm:"size:255" json:"redeemAddress,omitempty"`
	RedeemStatus  string     `gorm:"size:32" json:"redeemStatus,omitempty"`
	ClaimedAt     *time.Time `json:"claimedAt,omitempty"`
}

func (GiftCard) TableName() string {
	return "gifts"
}

// Expired reports whether the gift has a deadline that lies before now.
func (g *GiftCard) Expired(now time.Time) bool {
	return g.ExpiresAt != nil && g.ExpiresAt.Before(now)
}
