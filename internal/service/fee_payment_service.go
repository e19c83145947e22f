package service

import (
	"context"
	"crypto/sha512"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nitishgupta522/CampusConnect-sub000/internal/config"
	"github.com/nitishgupta522/CampusConnect-sub000/internal/docstore"
	"github.com/nitishgupta522/CampusConnect-sub000/internal/model"
	"github.com/nitishgupta522/CampusConnect-sub000/internal/pkg/logger"
	"github.com/nitishgupta522/CampusConnect-sub000/pkg/events"

	"github.com/midtrans/midtrans-go"
	"github.com/midtrans/midtrans-go/snap"
)

const feeOrderPrefix = "FEE-"

// CheckoutResponse carries the Snap token and redirect URL to the dashboard.
type CheckoutResponse struct {
	FeeID           string `json:"feeId"`
	SnapToken       string `json:"snapToken"`
	SnapRedirectUrl string `json:"snapRedirectUrl"`
}

// WebhookRequest is the payment gateway's transaction notification payload.
type WebhookRequest struct {
	OrderId           string `json:"order_id"`
	TransactionStatus string `json:"transaction_status"`
	StatusCode        string `json:"status_code"`
	GrossAmount       string `json:"gross_amount"`
	SignatureKey      string `json:"signature_key"`
}

type IFeePaymentService interface {
	CreateCheckout(ctx context.Context, feeID string, payer model.SessionUser) (*CheckoutResponse, error)
	HandleNotification(ctx context.Context, req *WebhookRequest) error
}

// feePaymentService runs online fee payments: a pending fee document becomes a
// gateway checkout, and the settlement webhook flips it to paid. The fee
// document update flows back to dashboards through the change pipeline; the
// fee.paid event drives the notification side.
type feePaymentService struct {
	store          docstore.Store
	eventPublisher *EventPublisher
	serverKey      string
	env            midtrans.EnvironmentType
	clientURL      string
	logger         logger.ILogger
}

func NewFeePaymentService(cfg *config.Config, store docstore.Store, eventPublisher *EventPublisher, log logger.ILogger) IFeePaymentService {
	env := midtrans.Sandbox
	if cfg.Payment.Production {
		env = midtrans.Production
	}
	return &feePaymentService{
		store:          store,
		eventPublisher: eventPublisher,
		serverKey:      cfg.Payment.MidtransServerKey,
		env:            env,
		clientURL:      cfg.App.ClientURL,
		logger:         log,
	}
}

func (s *feePaymentService) CreateCheckout(ctx context.Context, feeID string, payer model.SessionUser) (*CheckoutResponse, error) {
	if s.store == nil {
		return nil, &docstore.RetryableError{Err: errors.New("document store unavailable")}
	}
	fee, err := s.store.Get(ctx, model.CollectionFees, feeID)
	if err != nil {
		return nil, err
	}
	if fee == nil {
		return nil, errors.New("fee not found")
	}
	if fee.String("status") == "paid" {
		return nil, errors.New("fee already paid")
	}

	// Students pay their own fees; parents pay their ward's.
	studentID := fee.String("studentId")
	switch payer.Role {
	case model.RoleStudent:
		if studentID != payer.ID {
			return nil, docstore.ErrPermissionDenied
		}
	case model.RoleParent:
		if studentID != payer.WardID {
			return nil, docstore.ErrPermissionDenied
		}
	case model.RoleAdmin:
		// Admins may initiate checkout on anyone's behalf.
	default:
		return nil, docstore.ErrPermissionDenied
	}

	amount, ok := fee["amount"].(float64)
	if !ok || amount <= 0 {
		return nil, errors.New("fee has no payable amount")
	}

	var sClient snap.Client
	sClient.New(s.serverKey, s.env)

	snapReq := &snap.Request{
		TransactionDetails: midtrans.TransactionDetails{
			OrderID:  feeOrderPrefix + feeID,
			GrossAmt: int64(amount),
		},
		CreditCard: &snap.CreditCardDetails{
			Secure: true,
		},
		Callbacks: &snap.Callbacks{
			Finish: fmt.Sprintf("%s/fees?payment=success", s.clientURL),
		},
		CustomerDetail: &midtrans.CustomerDetails{
			FName: payer.DisplayName,
			Email: payer.Email,
		},
		Items: &[]midtrans.ItemDetails{
			{
				ID:    feeID,
				Price: int64(amount),
				Qty:   1,
				Name:  fee.String("feeType"),
			},
		},
		EnabledPayments: snap.AllSnapPaymentType,
	}

	snapResp, midErr := sClient.CreateTransaction(snapReq)
	if midErr != nil {
		return nil, fmt.Errorf("midtrans error: %v", midErr.GetMessage())
	}

	return &CheckoutResponse{
		FeeID:           feeID,
		SnapToken:       snapResp.Token,
		SnapRedirectUrl: snapResp.RedirectURL,
	}, nil
}

func (s *feePaymentService) HandleNotification(ctx context.Context, req *WebhookRequest) error {
	s.logger.Info("FeePayment", "Processing gateway notification", map[string]interface{}{
		"order_id": req.OrderId,
		"status":   req.TransactionStatus,
	})

	if s.serverKey == "" {
		return errors.New("payment gateway not configured")
	}

	// Midtrans signature = SHA512(order_id + status_code + gross_amount + server_key)
	signatureInput := req.OrderId + req.StatusCode + req.GrossAmount + s.serverKey
	expectedSignature := fmt.Sprintf("%x", sha512.Sum512([]byte(signatureInput)))
	if req.SignatureKey != expectedSignature {
		s.logger.Warn("FeePayment", "Webhook signature mismatch", map[string]interface{}{"order_id": req.OrderId})
		return errors.New("invalid signature")
	}

	if !strings.HasPrefix(req.OrderId, feeOrderPrefix) {
		return errors.New("unrecognized order id")
	}
	feeID := strings.TrimPrefix(req.OrderId, feeOrderPrefix)

	switch req.TransactionStatus {
	case "capture", "settlement":
		return s.settle(ctx, feeID)
	case "deny", "cancel", "expire":
		s.logger.Warn("FeePayment", "Payment failed, fee stays pending", map[string]interface{}{"fee_id": feeID})
		return nil
	case "pending":
		return nil
	default:
		s.logger.Warn("FeePayment", "Unknown transaction status ignored", map[string]interface{}{"status": req.TransactionStatus})
		return nil
	}
}

func (s *feePaymentService) settle(ctx context.Context, feeID string) error {
	if s.store == nil {
		return &docstore.RetryableError{Err: errors.New("document store unavailable")}
	}
	fee, err := s.store.Get(ctx, model.CollectionFees, feeID)
	if err != nil {
		return err
	}
	if fee == nil {
		return errors.New("fee not found for settled order")
	}
	if fee.String("status") == "paid" {
		// Gateways retry webhooks; settling twice is a no-op.
		return nil
	}

	paidAt := time.Now().UTC().Format(time.RFC3339Nano)
	if _, err := s.store.Update(ctx, model.CollectionFees, feeID, model.Record{
		"status": "paid",
		"paidAt": paidAt,
	}); err != nil {
		return err
	}

	if s.eventPublisher != nil {
		evt := events.New(events.FeePaid, map[string]interface{}{
			"feeId":         feeID,
			"amount":        fee["amount"],
			"feeType":       fee.String("feeType"),
			"recipientId":   fee.String("studentId"),
			"recipientType": model.RoleStudent,
			"paidAt":        paidAt,
		})
		if err := s.eventPublisher.Publish(ctx, evt); err != nil {
			s.logger.Warn("FeePayment", "Failed to publish fee.paid", map[string]interface{}{"fee_id": feeID, "error": err.Error()})
		}
	}

	s.logger.Info("FeePayment", "Fee settled", map[string]interface{}{"fee_id": feeID})
	return nil
}
