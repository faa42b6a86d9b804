package fcm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	messagingScope = "https://www.googleapis.com/auth/firebase.messaging"
	jwtBearerGrant = "urn:ietf:params:oauth:grant-type:jwt-bearer"

	assertionLifetime = time.Hour
	// expiryMargin is subtracted from the token lifetime so a token is
	// never handed out moments before the gateway would reject it.
	expiryMargin = 60 * time.Second
)

// Credential provider errors
var (
	ErrNoServiceAccount = errors.New("no service account configured")
	ErrSigningFailed    = errors.New("assertion signing failed")
	ErrExchangeFailed   = errors.New("token exchange failed")
)

// ServiceAccount is the stored push service account blob.
type ServiceAccount struct {
	Type        string `json:"type"`
	ProjectID   string `json:"project_id"`
	PrivateKey  string `json:"private_key"`
	ClientEmail string `json:"client_email"`
	TokenURI    string `json:"token_uri"`
}

// LoadServiceAccount reads the service account from an inline JSON blob or
// a file path. The inline form wins when both are given.
func LoadServiceAccount(file, inline string) (*ServiceAccount, error) {
	var raw []byte
	switch {
	case inline != "":
		raw = []byte(inline)
	case file != "":
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		raw = data
	default:
		return nil, ErrNoServiceAccount
	}

	var sa ServiceAccount
	if err := json.Unmarshal(raw, &sa); err != nil {
		return nil, fmt.Errorf("parse service account: %w", err)
	}
	if sa.ClientEmail == "" || sa.PrivateKey == "" {
		return nil, ErrNoServiceAccount
	}
	if sa.TokenURI == "" {
		sa.TokenURI = "https://oauth2.googleapis.com/token"
	}
	return &sa, nil
}

// CredentialProvider exchanges a signed service-account assertion for a
// short-lived bearer token and caches it until near expiry. The cache is a
// single in-process slot; it is never persisted. The provider performs no
// retries of its own: on an auth rejection from the gateway the caller
// invalidates the cache via ClearCache and asks again.
type CredentialProvider struct {
	account    *ServiceAccount
	httpClient *http.Client
	now        func() time.Time

	mu     sync.Mutex
	token  string
	expiry time.Time
}

func NewCredentialProvider(account *ServiceAccount) *CredentialProvider {
	return &CredentialProvider{
		account:    account,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		now:        time.Now,
	}
}

// AccessToken returns a bearer token for the push gateway, reusing the
// cached one while it is still comfortably within its lifetime.
func (p *CredentialProvider) AccessToken(ctx context.Context) (string, error) {
	if p == nil || p.account == nil {
		return "", ErrNoServiceAccount
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.token != "" && p.now().Before(p.expiry) {
		return p.token, nil
	}

	assertion, err := p.signAssertion()
	if err != nil {
		return "", err
	}

	token, err := p.exchange(ctx, assertion)
	if err != nil {
		return "", err
	}

	p.token = token
	p.expiry = p.now().Add(assertionLifetime - expiryMargin)
	return token, nil
}

// ClearCache drops the cached token so the next AccessToken call performs a
// fresh exchange. Called by the gateway client on an authentication
// rejection.
func (p *CredentialProvider) ClearCache() {
	if p == nil {
		return
	}
	p.mu.Lock()
	p.token = ""
	p.expiry = time.Time{}
	p.mu.Unlock()
}

// signAssertion builds the RS256-signed OAuth2 assertion.
func (p *CredentialProvider) signAssertion() (string, error) {
	key, err := jwt.ParseRSAPrivateKeyFromPEM([]byte(p.account.PrivateKey))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSigningFailed, err)
	}

	now := p.now()
	claims := jwt.MapClaims{
		"iss":   p.account.ClientEmail,
		"scope": messagingScope,
		"aud":   p.account.TokenURI,
		"iat":   now.Unix(),
		"exp":   now.Add(assertionLifetime).Unix(),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(key)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSigningFailed, err)
	}
	return signed, nil
}

// exchange posts the assertion to the token endpoint. Only an HTTP 200 with
// a non-empty access_token field counts as success.
func (p *CredentialProvider) exchange(ctx context.Context, assertion string) (string, error) {
	form := url.Values{
		"grant_type": {jwtBearerGrant},
		"assertion":  {assertion},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.account.TokenURI, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrExchangeFailed, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrExchangeFailed, err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: token endpoint returned %d", ErrExchangeFailed, resp.StatusCode)
	}

	var payload struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal(body, &payload); err != nil || payload.AccessToken == "" {
		return "", fmt.Errorf("%w: token endpoint response missing access_token", ErrExchangeFailed)
	}
	return payload.AccessToken, nil
}
