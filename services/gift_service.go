// services/gift_service.go
package services

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"crypto-gift-system/config"
	"crypto-gift-system/models"
	"crypto-gift-system/utils"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"golang.org/x/text/cases"
)

// ShiftStatusSettled is the provider status that marks a deposit as paid out.
const ShiftStatusSettled = "settled"

// depositAmountPlaces matches the provider's asset precision.
const depositAmountPlaces = 8

const maxMessageLength = 500

// GiftServiceOptions wires the orchestrator's fixed settings.
type GiftServiceOptions struct {
	Settlement      config.SettlementConfig
	PublicBaseURL   string
	ProviderTimeout time.Duration
	StoreTimeout    time.Duration
}

// GiftService owns the gift state machine:
// pending -> funded -> claimed, and funded -> expired when redeemed too late.
// Every operation re-reads the record; nothing is cached across requests.
type GiftService struct {
	repo     GiftRepository
	swaps    SwapProvider
	receipts ReceiptStore
	opts     GiftServiceOptions

	now   func() time.Time
	newID func() string
}

func NewGiftService(repo GiftRepository, swaps SwapProvider, receipts ReceiptStore, opts GiftServiceOptions) *GiftService {
	if receipts == nil {
		receipts = NoopReceiptStore{}
	}
	return &GiftService{
		repo:     repo,
		swaps:    swaps,
		receipts: receipts,
		opts:     opts,
		now:      func() time.Time { return time.Now().UTC() },
		newID:    uuid.NewString,
	}
}

// CreateGiftInput is the validated create request plus the caller's origin.
type CreateGiftInput struct {
	AmountUSD      float64
	Message        string
	ExpiresAt      *time.Time
	DepositCoin    string
	DepositNetwork string
	SenderAddress  string
	CallerOrigin   string
}

// CreateGiftResult tells the sender where and roughly how much to pay.
// DepositAmount is an estimate at the creation-time rate: the swap is variable
// and the provider re-rates when the deposit confirms.
type CreateGiftResult struct {
	GiftID         string `json:"giftId"`
	DepositAddress string `json:"depositAddress"`
	DepositAmount  string `json:"depositAmount"`
	DepositCoin    string `json:"depositCoin"`
	DepositNetwork string `json:"depositNetwork"`
	ShiftID        string `json:"shiftId"`
	Min            string `json:"min"`
	Max            string `json:"max"`
	GiftLink       string `json:"giftLink"`
}

// RedeemGiftInput names the asset and address the recipient wants.
type RedeemGiftInput struct {
	GiftID        string
	RedeemCoin    string
	RedeemNetwork string
	RedeemAddress string
	CallerOrigin  string
}

// RedeemGiftResult describes the redeem-side swap.
type RedeemGiftResult struct {
	ShiftID        string `json:"shiftId"`
	DepositAddress string `json:"depositAddress"`
	RedeemCoin     string `json:"redeemCoin"`
	RedeemNetwork  string `json:"redeemNetwork"`
	RedeemAddress  string `json:"redeemAddress"`
	Status         string `json:"status"`
}

// CreateGift quotes the deposit, opens the deposit-side swap and persists a pending gift.
// The record is written only after the swap exists.
func (s *GiftService) CreateGift(ctx context.Context, in CreateGiftInput) (*CreateGiftResult, error) {
	depositCoin := strings.TrimSpace(in.DepositCoin)
	depositNetwork := strings.TrimSpace(in.DepositNetwork)
	if in.AmountUSD <= 0 {
		return nil, newError(CodeValidation, "amountUsd must be greater than zero", nil)
	}
	if depositCoin == "" || depositNetwork == "" {
		return nil, newError(CodeValidation, "Missing required fields: amountUsd, depositCoin, depositNetwork", nil)
	}
	if utf8.RuneCountInString(in.Message) > maxMessageLength {
		return nil, newError(CodeValidation, fmt.Sprintf("message must be at most %d characters", maxMessageLength), nil)
	}
	if in.ExpiresAt != nil && !in.ExpiresAt.After(s.now()) {
		return nil, newError(CodeValidation, "expiresAt must be in the future", nil)
	}

	settlement := s.opts.Settlement
	if sameAsset(depositCoin, depositNetwork, settlement.Coin, settlement.Network) {
		return nil, newError(CodeValidation, fmt.Sprintf(
			"Cannot create gift with %s on %s network. Please choose a different cryptocurrency.",
			settlement.Coin, settlement.Network), nil)
	}

	origin := utils.PublicOrigin(in.CallerOrigin)
	if origin == "" {
		return nil, newError(CodeOriginRequired,
			"Unable to determine your public IP address. This is required for compliance. Please disable any VPN/proxy and try again.", nil)
	}

	logger := log.WithField("component", "GIFT")

	pair, err := withProviderTimeout(ctx, s.opts.ProviderTimeout, func(ctx context.Context) (*PairInfo, error) {
		return s.swaps.GetRate(ctx, depositCoin, depositNetwork, settlement.Coin, settlement.Network)
	})
	if err != nil {
		return nil, err
	}
	depositAmount, err := estimateDepositAmount(in.AmountUSD, pair.Rate)
	if err != nil {
		return nil, err
	}

	shift, err := withProviderTimeout(ctx, s.opts.ProviderTimeout, func(ctx context.Context) (*Shift, error) {
		return s.swaps.OpenSwap(ctx, SwapRequest{
			DepositCoin:    depositCoin,
			DepositNetwork: depositNetwork,
			SettleCoin:     settlement.Coin,
			SettleNetwork:  settlement.Network,
			SettleAddress:  settlement.Address,
			RefundAddress:  strings.TrimSpace(in.SenderAddress),
		}, origin)
	})
	if err != nil {
		return nil, err
	}

	now := s.now()
	gift := &models.GiftCard{
		GiftID:            s.newID(),
		Status:            models.GiftStatusPending,
		AmountUSD:         in.AmountUSD,
		Message:           in.Message,
		SenderAddress:     strings.TrimSpace(in.SenderAddress),
		ExpiresAt:         in.ExpiresAt,
		CreatedAt:         now,
		UpdatedAt:         now,
		DepositShiftID:    shift.ID,
		DepositCoin:       depositCoin,
		DepositNetwork:    depositNetwork,
		DepositAddress:    shift.DepositAddress,
		DepositAmount:     depositAmount,
		DepositStatus:     shift.Status,
		SettlementCoin:    settlement.Coin,
		SettlementNetwork: settlement.Network,
	}

	storeCtx, cancel := context.WithTimeout(ctx, s.opts.StoreTimeout)
	defer cancel()
	if err := s.repo.Create(storeCtx, gift); err != nil {
		logger.WithError(err).Errorf("deposit shift %s opened but gift was not persisted", shift.ID)
		if IsCode(err, CodeDuplicateID) {
			return nil, err
		}
		return nil, newError(CodeInternal, "failed to save gift", err)
	}

	logger.WithFields(log.Fields{
		"gift_id":  gift.GiftID,
		"shift_id": shift.ID,
		"coin":     depositCoin,
		"network":  depositNetwork,
	}).Info("gift created")

	return &CreateGiftResult{
		GiftID:         gift.GiftID,
		DepositAddress: shift.DepositAddress,
		DepositAmount:  depositAmount,
		DepositCoin:    depositCoin,
		DepositNetwork: depositNetwork,
		ShiftID:        shift.ID,
		Min:            shift.DepositMin,
		Max:            shift.DepositMax,
		GiftLink:       s.GiftLink(gift.GiftID),
	}, nil
}

// GetGift returns the gift after reconciling it against the deposit shift.
// Provider or persistence failures during reconciliation fall back to the stored view.
func (s *GiftService) GetGift(ctx context.Context, giftID, callerOrigin string) (*models.GiftCard, error) {
	gift, err := s.load(ctx, giftID)
	if err != nil {
		return nil, err
	}
	if gift.DepositShiftID == "" {
		return gift, nil
	}

	logger := log.WithFields(log.Fields{"component": "GIFT", "gift_id": gift.GiftID})

	shift, err := withProviderTimeout(ctx, s.opts.ProviderTimeout, func(ctx context.Context) (*Shift, error) {
		return s.swaps.GetSwapStatus(ctx, gift.DepositShiftID, callerOrigin)
	})
	if err != nil {
		logger.WithError(err).Warn("error fetching shift status, returning stored gift")
		return gift, nil
	}

	storeCtx, cancel := context.WithTimeout(ctx, s.opts.StoreTimeout)
	defer cancel()

	switch {
	case shift.Status == ShiftStatusSettled && gift.Status == models.GiftStatusPending:
		updated, errUpdate := s.repo.UpdateFieldsIfStatus(storeCtx, gift.GiftID, models.GiftStatusPending, map[string]any{
			"status":            models.GiftStatusFunded,
			"deposit_status":    shift.Status,
			"settlement_amount": shift.SettleAmount,
		})
		if errUpdate != nil {
			logger.WithError(errUpdate).Warn("failed to mark gift funded")
			return gift, nil
		}
		if !updated {
			// Another request moved the gift first; report what it wrote.
			if fresh, errLoad := s.load(storeCtx, gift.GiftID); errLoad == nil {
				return fresh, nil
			}
			return gift, nil
		}
		gift.Status = models.GiftStatusFunded
		gift.DepositStatus = shift.Status
		gift.SettlementAmount = shift.SettleAmount
		gift.UpdatedAt = s.now()
		logger.WithField("settle_amount", shift.SettleAmount).Info("gift funded")

	case shift.Status != gift.DepositStatus:
		if errUpdate := s.repo.UpdateFields(storeCtx, gift.GiftID, map[string]any{
			"deposit_status": shift.Status,
		}); errUpdate != nil {
			logger.WithError(errUpdate).Warn("failed to refresh deposit status")
			return gift, nil
		}
		gift.DepositStatus = shift.Status
		gift.UpdatedAt = s.now()
	}

	return gift, nil
}

// RedeemGift opens the redeem-side swap for a funded gift and marks it claimed.
// The funded -> claimed write is conditional, so only one of two racing calls wins;
// the loser gets INVALID_STATE and its swap is never funded by the operator.
func (s *GiftService) RedeemGift(ctx context.Context, in RedeemGiftInput) (*RedeemGiftResult, error) {
	redeemCoin := strings.TrimSpace(in.RedeemCoin)
	redeemNetwork := strings.TrimSpace(in.RedeemNetwork)
	redeemAddress := strings.TrimSpace(in.RedeemAddress)
	if strings.TrimSpace(in.GiftID) == "" || redeemCoin == "" || redeemNetwork == "" || redeemAddress == "" {
		return nil, newError(CodeValidation, "Missing required fields", nil)
	}

	gift, err := s.load(ctx, in.GiftID)
	if err != nil {
		return nil, err
	}
	logger := log.WithFields(log.Fields{"component": "GIFT", "gift_id": gift.GiftID})

	if gift.Status != models.GiftStatusFunded {
		return nil, newError(CodeInvalidState, fmt.Sprintf("Gift cannot be redeemed. Current status: %s", gift.Status), nil)
	}

	if gift.Expired(s.now()) {
		storeCtx, cancel := context.WithTimeout(ctx, s.opts.StoreTimeout)
		defer cancel()
		if _, errUpdate := s.repo.UpdateFieldsIfStatus(storeCtx, gift.GiftID, models.GiftStatusFunded, map[string]any{
			"status": models.GiftStatusExpired,
		}); errUpdate != nil {
			logger.WithError(errUpdate).Warn("failed to mark gift expired")
		}
		logger.Info("gift expired at redemption")
		return nil, newError(CodeGiftExpired, "Gift has expired", nil)
	}

	origin := utils.PublicOrigin(in.CallerOrigin)
	if origin == "" {
		return nil, newError(CodeOriginRequired,
			"Unable to determine your public IP address. This is required for compliance. Please disable any VPN/proxy and try again.", nil)
	}

	shift, err := withProviderTimeout(ctx, s.opts.ProviderTimeout, func(ctx context.Context) (*Shift, error) {
		return s.swaps.OpenSwap(ctx, SwapRequest{
			DepositCoin:    gift.SettlementCoin,
			DepositNetwork: gift.SettlementNetwork,
			SettleCoin:     redeemCoin,
			SettleNetwork:  redeemNetwork,
			SettleAddress:  redeemAddress,
		}, origin)
	})
	if err != nil {
		return nil, err
	}

	claimedAt := s.now()
	storeCtx, cancel := context.WithTimeout(ctx, s.opts.StoreTimeout)
	defer cancel()
	updated, err := s.repo.UpdateFieldsIfStatus(storeCtx, gift.GiftID, models.GiftStatusFunded, map[string]any{
		"status":          models.GiftStatusClaimed,
		"redeem_shift_id": shift.ID,
		"redeem_coin":     redeemCoin,
		"redeem_network":  redeemNetwork,
		"redeem_address":  redeemAddress,
		"redeem_status":   shift.Status,
		"claimed_at":      claimedAt,
	})
	if err != nil {
		logger.WithError(err).Errorf("redeem shift %s opened but claim was not persisted", shift.ID)
		return nil, newError(CodeInternal, "failed to save redemption", err)
	}
	if !updated {
		logger.Warnf("lost redemption race, redeem shift %s left orphaned", shift.ID)
		return nil, newError(CodeInvalidState, "Gift cannot be redeemed. It was claimed by another request", nil)
	}

	gift.Status = models.GiftStatusClaimed
	gift.RedeemShiftID = shift.ID
	gift.RedeemCoin = redeemCoin
	gift.RedeemNetwork = redeemNetwork
	gift.RedeemAddress = redeemAddress
	gift.RedeemStatus = shift.Status
	gift.ClaimedAt = &claimedAt
	gift.UpdatedAt = claimedAt
	s.archiveReceipt(ctx, gift)

	logger.WithFields(log.Fields{
		"shift_id": shift.ID,
		"coin":     redeemCoin,
		"network":  redeemNetwork,
	}).Info("gift claimed")

	return &RedeemGiftResult{
		ShiftID:        shift.ID,
		DepositAddress: shift.DepositAddress,
		RedeemCoin:     redeemCoin,
		RedeemNetwork:  redeemNetwork,
		RedeemAddress:  redeemAddress,
		Status:         shift.Status,
	}, nil
}

// ListGifts returns stored gifts without reconciling them.
func (s *GiftService) ListGifts(ctx context.Context, status models.GiftStatus, limit int) ([]models.GiftCard, error) {
	if status != "" && !status.Valid() {
		return nil, newError(CodeValidation, "unknown status: "+string(status), nil)
	}
	storeCtx, cancel := context.WithTimeout(ctx, s.opts.StoreTimeout)
	defer cancel()
	gifts, err := s.repo.List(storeCtx, status, limit)
	if err != nil {
		return nil, newError(CodeInternal, "failed to list gifts", err)
	}
	return gifts, nil
}

// GiftLink is the redemption URL handed to the sender.
func (s *GiftService) GiftLink(giftID string) string {
	return s.opts.PublicBaseURL + "/redeem/" + giftID
}

func (s *GiftService) load(ctx context.Context, giftID string) (*models.GiftCard, error) {
	storeCtx, cancel := context.WithTimeout(ctx, s.opts.StoreTimeout)
	defer cancel()
	gift, found, err := s.repo.FindByID(storeCtx, giftID)
	if err != nil {
		return nil, newError(CodeInternal, "failed to load gift", err)
	}
	if !found {
		return nil, newError(CodeNotFound, "Gift not found", nil)
	}
	return gift, nil
}

func (s *GiftService) archiveReceipt(ctx context.Context, gift *models.GiftCard) {
	storeCtx, cancel := context.WithTimeout(ctx, s.opts.StoreTimeout)
	defer cancel()
	key, err := s.receipts.PutClaimReceipt(storeCtx, gift)
	if err != nil {
		log.WithField("component", "GIFT").WithError(err).Warnf("claim receipt for %s not archived", gift.GiftID)
		return
	}
	if key != "" {
		log.WithField("component", "GIFT").Debugf("claim receipt archived at %s", key)
	}
}

func sameAsset(coinA, networkA, coinB, networkB string) bool {
	fold := cases.Fold()
	return fold.String(coinA) == fold.String(coinB) && fold.String(networkA) == fold.String(networkB)
}

// withProviderTimeout bounds a single provider call by the configured timeout.
func withProviderTimeout[T any](ctx context.Context, timeout time.Duration, call func(context.Context) (T, error)) (T, error) {
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return call(callCtx)
}

// estimateDepositAmount is amountUSD / rate rounded to the provider's precision.
func estimateDepositAmount(amountUSD float64, rate string) (string, error) {
	r, err := decimal.NewFromString(strings.TrimSpace(rate))
	if err != nil || !r.IsPositive() {
		return "", newError(CodePairUnavailable, fmt.Sprintf("invalid rate from provider: %q", rate), err)
	}
	return decimal.NewFromFloat(amountUSD).Div(r).StringFixed(depositAmountPlaces), nil
}
