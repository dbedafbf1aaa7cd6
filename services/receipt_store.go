// services/receipt_store.go
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"crypto-gift-system/models"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gosimple/slug"
)

// ReceiptStore archives a record of each claimed gift.
type ReceiptStore interface {
	PutClaimReceipt(ctx context.Context, gift *models.GiftCard) (string, error)
}

// NoopReceiptStore is used when no object storage is configured.
type NoopReceiptStore struct{}

func (NoopReceiptStore) PutClaimReceipt(context.Context, *models.GiftCard) (string, error) {
	return "", nil
}

// ClaimReceipt is the archived JSON document.
type ClaimReceipt struct {
	GiftID            string     `json:"giftId"`
	AmountUSD         float64    `json:"amountUsd"`
	DepositShiftID    string     `json:"depositShiftId"`
	DepositCoin       string     `json:"depositCoin"`
	DepositNetwork    string     `json:"depositNetwork"`
	SettlementCoin    string     `json:"settlementCoin"`
	SettlementNetwork string     `json:"settlementNetwork"`
	SettlementAmount  string     `json:"settlementAmount,omitempty"`
	RedeemShiftID     string     `json:"redeemShiftId"`
	RedeemCoin        string     `json:"redeemCoin"`
	RedeemNetwork     string     `json:"redeemNetwork"`
	RedeemAddress     string     `json:"redeemAddress"`
	RedeemStatus      string     `json:"redeemStatus"`
	CreatedAt         time.Time  `json:"createdAt"`
	ClaimedAt         *time.Time `json:"claimedAt"`
}

// R2ReceiptStore writes receipts to an S3-compatible bucket.
type R2ReceiptStore struct {
	Client *s3.Client
	Bucket string
}

func NewR2ReceiptStore(client *s3.Client, bucket string) *R2ReceiptStore {
	return &R2ReceiptStore{Client: client, Bucket: bucket}
}

// ReceiptKey groups receipts by the redeemed asset, e.g. receipts/eth-ethereum/<id>.json.
func ReceiptKey(gift *models.GiftCard) string {
	asset := slug.Make(strings.TrimSpace(gift.RedeemCoin + " " + gift.RedeemNetwork))
	if asset == "" {
		asset = "unknown"
	}
	return fmt.Sprintf("receipts/%s/%s.json", asset, gift.GiftID)
}

func (s *R2ReceiptStore) PutClaimReceipt(ctx context.Context, gift *models.GiftCard) (string, error) {
	payload, err := json.Marshal(ClaimReceipt{
		GiftID:            gift.GiftID,
		AmountUSD:         gift.AmountUSD,
		DepositShiftID:    gift.DepositShiftID,
		DepositCoin:       gift.DepositCoin,
		DepositNetwork:    gift.DepositNetwork,
		SettlementCoin:    gift.SettlementCoin,
		SettlementNetwork: gift.SettlementNetwork,
		SettlementAmount:  gift.SettlementAmount,
		RedeemShiftID:     gift.RedeemShiftID,
		RedeemCoin:        gift.RedeemCoin,
		RedeemNetwork:     gift.RedeemNetwork,
		RedeemAddress:     gift.RedeemAddress,
		RedeemStatus:      gift.RedeemStatus,
		CreatedAt:         gift.CreatedAt,
		ClaimedAt:         gift.ClaimedAt,
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode receipt: %w", err)
	}

	key := ReceiptKey(gift)
	_, err = s.Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(payload),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload receipt to R2: %w", err)
	}
	return key, nil
}
