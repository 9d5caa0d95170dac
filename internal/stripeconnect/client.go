package stripeconnect

import (
	"context"

	"github.com/stripe/stripe-go/v80"
	"github.com/stripe/stripe-go/v80/account"
	"github.com/stripe/stripe-go/v80/accountlink"
	"github.com/stripe/stripe-go/v80/loginlink"
	"github.com/stripe/stripe-go/v80/oauth"
	"github.com/stripe/stripe-go/v80/paymentintent"
	"github.com/stripe/stripe-go/v80/refund"
)

// LiveClient calls the real Stripe API
type LiveClient struct{}

// NewLiveClient configures the stripe-go global key and returns the client
func NewLiveClient(secretKey string) *LiveClient {
	stripe.Key = secretKey
	return &LiveClient{}
}

func (c *LiveClient) ExchangeOAuthCode(ctx context.Context, code string) (string, error) {
	params := &stripe.OAuthTokenParams{
		GrantType: stripe.String("authorization_code"),
		Code:      stripe.String(code),
	}
	params.Context = ctx
	token, err := oauth.New(params)
	if err != nil {
		return "", err
	}
	return token.StripeUserID, nil
}

func (c *LiveClient) GetAccount(ctx context.Context, accountID string) (*stripe.Account, error) {
	params := &stripe.AccountParams{}
	params.Context = ctx
	return account.GetByID(accountID, params)
}

func (c *LiveClient) NewPaymentIntent(ctx context.Context, params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error) {
	params.Context = ctx
	return paymentintent.New(params)
}

func (c *LiveClient) NewRefund(ctx context.Context, params *stripe.RefundParams) (*stripe.Refund, error) {
	params.Context = ctx
	return refund.New(params)
}

func (c *LiveClient) NewAccountLink(ctx context.Context, params *stripe.AccountLinkParams) (*stripe.AccountLink, error) {
	params.Context = ctx
	return accountlink.New(params)
}

func (c *LiveClient) NewLoginLink(ctx context.Context, accountID string) (*stripe.LoginLink, error) {
	params := &stripe.LoginLinkParams{Account: stripe.String(accountID)}
	params.Context = ctx
	return loginlink.New(params)
}
