package mpesa

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/shopspring/decimal"
)

// Client talks to the Daraja sandbox/production APIs. Credentials and URLs come
// from the environment; see FromEnv.
type Client struct {
	ConsumerKey    string
	ConsumerSecret string
	TokenURL       string
	STKPushURL     string
	RegisterURL    string
	ShortCode      string
	PassKey        string
	CallbackURL    string
	HTTPClient     *http.Client

	// now is stubbed in tests to pin the password timestamp.
	now func() time.Time
}

func FromEnv() *Client {
	return &Client{
		ConsumerKey:    os.Getenv("MPESA_CONSUMER_KEY"),
		ConsumerSecret: os.Getenv("MPESA_CONSUMER_SECRET"),
		TokenURL:       os.Getenv("MPESA_TOKEN_URL"),
		STKPushURL:     os.Getenv("MPESA_STK_PUSH_URL"),
		RegisterURL:    os.Getenv("MPESA_REGISTER_URL"),
		ShortCode:      os.Getenv("MPESA_SHORTCODE"),
		PassKey:        os.Getenv("MPESA_PASSKEY"),
		CallbackURL:    os.Getenv("MPESA_CALLBACK_URL"),
		HTTPClient:     &http.Client{Timeout: 30 * time.Second},
		now:            time.Now,
	}
}

func (c *Client) timeNow() time.Time {
	if c.now != nil {
		return c.now()
	}
	return time.Now()
}

// Password builds the Lipa na M-Pesa password for the given instant:
// base64(shortcode + passkey + timestamp).
func (c *Client) Password(t time.Time) (password, timestamp string) {
	timestamp = t.Format("20060102150405")
	password = base64.StdEncoding.EncodeToString([]byte(c.ShortCode + c.PassKey + timestamp))
	return password, timestamp
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
}

// AccessToken authenticates against the token endpoint with basic auth and
// returns the bearer token. Every failure comes back as a *GatewayError.
func (c *Client) AccessToken(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.TokenURL, nil)
	if err != nil {
		return "", &GatewayError{Kind: ErrNetwork, Op: "token", Err: err}
	}
	req.SetBasicAuth(c.ConsumerKey, c.ConsumerSecret)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return "", &GatewayError{Kind: ErrNetwork, Op: "token", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 && resp.StatusCode < 500 {
		return "", &GatewayError{Kind: ErrAuth, Op: "token", Err: fmt.Errorf("gateway returned %s", resp.Status)}
	}
	if resp.StatusCode != http.StatusOK {
		return "", &GatewayError{Kind: ErrNetwork, Op: "token", Err: fmt.Errorf("gateway returned %s", resp.Status)}
	}

	var token tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
		return "", &GatewayError{Kind: ErrMalformed, Op: "token", Err: err}
	}
	if token.AccessToken == "" {
		return "", &GatewayError{Kind: ErrMalformed, Op: "token", Err: fmt.Errorf("response missing access_token")}
	}
	return token.AccessToken, nil
}

type stkPushRequest struct {
	BusinessShortCode string `json:"BusinessShortCode"`
	Password          string `json:"Password"`
	Timestamp         string `json:"Timestamp"`
	TransactionType   string `json:"TransactionType"`
	Amount            string `json:"Amount"`
	PartyA            string `json:"PartyA"`
	PartyB            string `json:"PartyB"`
	PhoneNumber       string `json:"PhoneNumber"`
	CallBackURL       string `json:"CallBackURL"`
	AccountReference  string `json:"AccountReference"`
	TransactionDesc   string `json:"TransactionDesc"`
}

// STKPush asks the gateway to prompt phone for amount. The synchronous response
// body is returned for logging only; the authoritative result arrives later on
// the callback URL.
func (c *Client) STKPush(ctx context.Context, token, phone string, amount decimal.Decimal) ([]byte, error) {
	password, timestamp := c.Password(c.timeNow())
	payload := stkPushRequest{
		BusinessShortCode: c.ShortCode,
		Password:          password,
		Timestamp:         timestamp,
		TransactionType:   "CustomerPayBillOnline",
		Amount:            amount.Round(0).String(),
		PartyA:            phone,
		PartyB:            c.ShortCode,
		PhoneNumber:       phone,
		CallBackURL:       c.CallbackURL,
		AccountReference:  "Beta Milk",
		TransactionDesc:   "Beta Milk order payment",
	}
	return c.post(ctx, "stkpush", c.STKPushURL, token, payload)
}

type registerURLsRequest struct {
	ShortCode       string `json:"ShortCode"`
	ResponseType    string `json:"ResponseType"`
	ConfirmationURL string `json:"ConfirmationURL"`
	ValidationURL   string `json:"ValidationURL"`
}

// RegisterURLs points the gateway's C2B confirmation and validation hooks at us.
func (c *Client) RegisterURLs(ctx context.Context, token, confirmationURL, validationURL string) ([]byte, error) {
	payload := registerURLsRequest{
		ShortCode:       c.ShortCode,
		ResponseType:    "Completed",
		ConfirmationURL: confirmationURL,
		ValidationURL:   validationURL,
	}
	return c.post(ctx, "registerurl", c.RegisterURL, token, payload)
}

func (c *Client) post(ctx context.Context, op, url, token string, payload interface{}) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, &GatewayError{Kind: ErrMalformed, Op: op, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, &GatewayError{Kind: ErrNetwork, Op: op, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, &GatewayError{Kind: ErrNetwork, Op: op, Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &GatewayError{Kind: ErrNetwork, Op: op, Err: err}
	}
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return respBody, &GatewayError{Kind: ErrAuth, Op: op, Err: fmt.Errorf("gateway returned %s", resp.Status)}
	}
	return respBody, nil
}
