// Package authorizenet implements the gateway contract against the
// Authorize.Net JSON API.
package authorizenet

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	retryablehttp "github.com/hashicorp/go-retryablehttp"
	"github.com/recurra/billing/internal/gateway"
	"go.uber.org/zap"
)

const (
	sandboxEndpoint    = "https://apitest.authorize.net/xml/v1/request.api"
	productionEndpoint = "https://api.authorize.net/xml/v1/request.api"

	defaultTimeout = 30 * time.Second

	// Transaction response codes.
	responseApproved = "1"
	responseDeclined = "2"
	responseHeld     = "4"
)

// Client talks to Authorize.Net. Safe for concurrent use.
type Client struct {
	cfg      gateway.Config
	endpoint string
	http     *retryablehttp.Client
	log      *zap.Logger
}

var _ gateway.Client = (*Client)(nil)

func New(cfg gateway.Config, log *zap.Logger) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	endpoint := sandboxEndpoint
	if cfg.Environment == gateway.Production {
		endpoint = productionEndpoint
	}
	if cfg.Endpoint != "" {
		endpoint = cfg.Endpoint
	}

	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	rc := retryablehttp.NewClient()
	rc.RetryMax = 2
	rc.Logger = nil
	rc.HTTPClient.Timeout = timeout

	return &Client{
		cfg:      cfg,
		endpoint: endpoint,
		http:     rc,
		log:      log.Named("gateway.authorizenet"),
	}, nil
}

func (c *Client) auth() merchantAuthentication {
	return merchantAuthentication{
		Name:           c.cfg.LoginID,
		TransactionKey: c.cfg.TransactionKey,
	}
}

// refID produces the per-request correlation reference. The gateway caps it
// at 20 characters.
func refID() string {
	return "ref" + strings.ReplaceAll(uuid.NewString(), "-", "")[:17]
}

func (c *Client) post(ctx context.Context, ref string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal gateway request: %w", err)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, body)
	if err != nil {
		return fmt.Errorf("build gateway request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Warn("gateway unreachable", zap.String("ref_id", ref), zap.Error(err))
		return fmt.Errorf("%w: %v", gateway.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: read response: %v", gateway.ErrUnavailable, err)
	}
	// The gateway prefixes JSON responses with a UTF-8 BOM.
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: decode response: %v", gateway.ErrUnavailable, err)
	}
	return nil
}

func rejection(messages apiMessages) error {
	msg := messages.first()
	return &gateway.RejectionError{Code: msg.Code, Message: msg.Text}
}

func (c *Client) CreateCustomerProfile(ctx context.Context, profile gateway.CustomerProfile) (gateway.ProfileResult, error) {
	ref := refID()

	var req createCustomerProfileRequest
	req.CreateCustomerProfileRequest.MerchantAuthentication = c.auth()
	req.CreateCustomerProfileRequest.RefID = ref
	req.CreateCustomerProfileRequest.ValidationMode = "none"
	req.CreateCustomerProfileRequest.Profile = customerProfile{
		MerchantCustomerID: profile.MerchantCustomerID,
		Email:              profile.Email,
		PaymentProfiles: []paymentProfile{{
			CustomerType: "individual",
			BillTo:       toAddress(profile.BillTo),
			Payment:      toPayment(profile.Card),
		}},
	}

	var resp createCustomerProfileResponse
	if err := c.post(ctx, ref, req, &resp); err != nil {
		return gateway.ProfileResult{}, err
	}
	if !resp.Messages.ok() {
		return gateway.ProfileResult{}, rejection(resp.Messages)
	}
	result := gateway.ProfileResult{CustomerProfileID: resp.CustomerProfileID}
	if len(resp.CustomerPaymentProfileIDList) > 0 {
		result.PaymentProfileID = resp.CustomerPaymentProfileIDList[0]
	}
	return result, nil
}

func (c *Client) UpdateCustomerPaymentProfile(ctx context.Context, customerProfileID, paymentProfileID string, card gateway.Card, billTo gateway.Address) error {
	ref := refID()

	var req updateCustomerPaymentProfileRequest
	req.UpdateCustomerPaymentProfileRequest.MerchantAuthentication = c.auth()
	req.UpdateCustomerPaymentProfileRequest.RefID = ref
	req.UpdateCustomerPaymentProfileRequest.CustomerProfileID = customerProfileID
	req.UpdateCustomerPaymentProfileRequest.PaymentProfile = paymentProfileEx{
		CustomerPaymentProfileID: paymentProfileID,
		BillTo:                   toAddress(billTo),
		Payment:                  toPayment(card),
	}

	var resp messagesOnlyResponse
	if err := c.post(ctx, ref, req, &resp); err != nil {
		return err
	}
	if !resp.Messages.ok() {
		return rejection(resp.Messages)
	}
	return nil
}

func (c *Client) DeleteCustomerProfile(ctx context.Context, customerProfileID string) error {
	ref := refID()

	var req deleteCustomerProfileRequest
	req.DeleteCustomerProfileRequest.MerchantAuthentication = c.auth()
	req.DeleteCustomerProfileRequest.RefID = ref
	req.DeleteCustomerProfileRequest.CustomerProfileID = customerProfileID

	var resp messagesOnlyResponse
	if err := c.post(ctx, ref, req, &resp); err != nil {
		return err
	}
	if !resp.Messages.ok() {
		return rejection(resp.Messages)
	}
	return nil
}

func (c *Client) Charge(ctx context.Context, chargeReq gateway.ChargeRequest) (gateway.ChargeResult, error) {
	ref := refID()

	var req createTransactionRequest
	req.CreateTransactionRequest.MerchantAuthentication = c.auth()
	req.CreateTransactionRequest.RefID = ref
	req.CreateTransactionRequest.TransactionRequest = transactionRequest{
		TransactionType: "authCaptureTransaction",
		Amount:          chargeReq.Amount,
		CurrencyCode:    chargeReq.Currency,
		Order:           order{Description: chargeReq.Description},
		Profile: profileToCharge{
			CustomerProfileID: chargeReq.CustomerProfileID,
		},
	}
	req.CreateTransactionRequest.TransactionRequest.Profile.PaymentProfile.PaymentProfileID = chargeReq.PaymentProfileID

	var resp createTransactionResponse
	if err := c.post(ctx, ref, req, &resp); err != nil {
		return gateway.ChargeResult{}, err
	}

	tr := resp.TransactionResponse
	if tr == nil {
		return gateway.ChargeResult{}, rejection(resp.Messages)
	}

	switch tr.ResponseCode {
	case responseApproved:
		return gateway.ChargeResult{
			Outcome:       gateway.ChargeApproved,
			AuthCode:      tr.AuthCode,
			TransactionID: tr.TransID,
		}, nil
	case responseDeclined:
		return gateway.ChargeResult{Outcome: gateway.ChargeDeclined, TransactionID: tr.TransID}, nil
	case responseHeld:
		return gateway.ChargeResult{}, fmt.Errorf("%w: transaction %s", gateway.ErrHeldForReview, tr.TransID)
	default:
		return gateway.ChargeResult{}, rejection(resp.Messages)
	}
}

func (c *Client) CreateSubscription(ctx context.Context, spec gateway.SubscriptionSpec) (string, error) {
	ref := refID()

	var req arbCreateSubscriptionRequest
	req.ARBCreateSubscriptionRequest.MerchantAuthentication = c.auth()
	req.ARBCreateSubscriptionRequest.RefID = ref
	req.ARBCreateSubscriptionRequest.Subscription = arbSubscription{
		Name: spec.PlanName,
		PaymentSchedule: paymentSchedule{
			Interval: paymentScheduleInterval{
				Length: spec.Interval.Length,
				Unit:   string(spec.Interval.Unit),
			},
			StartDate:        spec.StartDate.Format("2006-01-02"),
			TotalOccurrences: spec.TotalOccurrences,
			TrialOccurrences: spec.TrialOccurrences,
		},
		Amount:      spec.Amount,
		TrialAmount: spec.TrialAmount,
		Profile: subscriptionProfile{
			CustomerProfileID:        spec.CustomerProfileID,
			CustomerPaymentProfileID: spec.PaymentProfileID,
		},
	}

	var resp arbCreateSubscriptionResponse
	if err := c.post(ctx, ref, req, &resp); err != nil {
		return "", err
	}
	if !resp.Messages.ok() {
		return "", rejection(resp.Messages)
	}
	return resp.SubscriptionID, nil
}

func (c *Client) CancelSubscription(ctx context.Context, subscriptionID string) error {
	ref := refID()

	var req arbCancelSubscriptionRequest
	req.ARBCancelSubscriptionRequest.MerchantAuthentication = c.auth()
	req.ARBCancelSubscriptionRequest.RefID = ref
	req.ARBCancelSubscriptionRequest.SubscriptionID = subscriptionID

	var resp messagesOnlyResponse
	if err := c.post(ctx, ref, req, &resp); err != nil {
		return err
	}
	if !resp.Messages.ok() {
		return rejection(resp.Messages)
	}
	return nil
}

func (c *Client) GetSubscriptionStatus(ctx context.Context, subscriptionID string) (gateway.SubscriptionStatus, error) {
	ref := refID()

	var req arbGetSubscriptionRequest
	req.ARBGetSubscriptionRequest.MerchantAuthentication = c.auth()
	req.ARBGetSubscriptionRequest.RefID = ref
	req.ARBGetSubscriptionRequest.SubscriptionID = subscriptionID

	var resp arbGetSubscriptionResponse
	if err := c.post(ctx, ref, req, &resp); err != nil {
		return gateway.SubscriptionStatus{}, err
	}
	if !resp.Messages.ok() {
		return gateway.SubscriptionStatus{}, rejection(resp.Messages)
	}
	return gateway.SubscriptionStatus{
		Status:            resp.Subscription.Status,
		Name:              resp.Subscription.Name,
		Amount:            resp.Subscription.Amount,
		Description:       resp.Subscription.Profile.Description,
		CustomerProfileID: resp.Subscription.Profile.CustomerProfileID,
	}, nil
}

func (c *Client) GetTransactionDetails(ctx context.Context, transactionID string) (gateway.TransactionDetails, error) {
	ref := refID()

	var req getTransactionDetailsRequest
	req.GetTransactionDetailsRequest.MerchantAuthentication = c.auth()
	req.GetTransactionDetailsRequest.RefID = ref
	req.GetTransactionDetailsRequest.TransID = transactionID

	var resp getTransactionDetailsResponse
	if err := c.post(ctx, ref, req, &resp); err != nil {
		return gateway.TransactionDetails{}, err
	}
	if !resp.Messages.ok() {
		return gateway.TransactionDetails{}, rejection(resp.Messages)
	}
	return gateway.TransactionDetails{
		TransactionID: resp.Transaction.TransID,
		Amount:        resp.Transaction.AuthAmount,
		Status:        resp.Transaction.TransactionStatus,
	}, nil
}

func toAddress(a gateway.Address) customerAddress {
	return customerAddress{
		FirstName: a.FirstName,
		LastName:  a.LastName,
		Address:   a.Street,
		City:      a.City,
		State:     a.State,
		Zip:       a.Zip,
		Country:   a.Country,
	}
}

func toPayment(card gateway.Card) payment {
	return payment{CreditCard: creditCard{
		CardNumber:     card.Number,
		ExpirationDate: card.Expiration,
	}}
}
