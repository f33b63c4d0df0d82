package github

import (
	"context"
	"crypto/rsa"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/agentstation/codeinventory/internal/transport"
	"github.com/agentstation/codeinventory/pkg/constants"
	"github.com/agentstation/codeinventory/pkg/errors"
)

// tokenRefreshMargin renews installation tokens shortly before they expire.
const tokenRefreshMargin = time.Minute

// AppTokenSource exchanges a GitHub App JWT for installation access tokens
// and caches the token until it is about to expire.
type AppTokenSource struct {
	apiURL         string
	appID          int64
	installationID int64
	key            *rsa.PrivateKey
	opts           []transport.Option
	now            func() time.Time

	mu      sync.Mutex
	token   string
	expires time.Time
}

// NewAppTokenSource creates a token source for one App installation.
func NewAppTokenSource(apiURL string, appID, installationID int64, key *rsa.PrivateKey, opts ...transport.Option) *AppTokenSource {
	return &AppTokenSource{
		apiURL:         apiURL,
		appID:          appID,
		installationID: installationID,
		key:            key,
		opts:           opts,
		now:            time.Now,
	}
}

// AppJWT signs the short-lived JWT that identifies the App itself.
func (s *AppTokenSource) AppJWT() (string, error) {
	now := s.now()
	claims := jwt.RegisteredClaims{
		Issuer:    strconv.FormatInt(s.appID, 10),
		IssuedAt:  jwt.NewNumericDate(now.Add(-constants.AppTokenClockSkew)),
		ExpiresAt: jwt.NewNumericDate(now.Add(constants.AppTokenLifetime)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(s.key)
	if err != nil {
		return "", &errors.AuthenticationError{Host: HostName, Method: "app", Message: "cannot sign app token", Err: err}
	}
	return signed, nil
}

type installationToken struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Token returns a valid installation access token.
func (s *AppTokenSource) Token(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.token != "" && s.now().Add(tokenRefreshMargin).Before(s.expires) {
		return s.token, nil
	}

	appJWT, err := s.AppJWT()
	if err != nil {
		return "", err
	}

	opts := append([]transport.Option{WithGitHubHeaders()}, s.opts...)
	client := transport.New(HostName, &transport.BearerAuth{Token: appJWT}, opts...)
	url := fmt.Sprintf("%s/app/installations/%d/access_tokens", s.apiURL, s.installationID)
	resp, err := client.Request(ctx, http.MethodPost, url, nil)
	if err != nil {
		return "", err
	}

	var tok installationToken
	if err := transport.DecodeResponse(resp, HostName, &tok); err != nil {
		return "", &errors.AuthenticationError{Host: HostName, Method: "app", Message: "installation token exchange failed", Err: err}
	}
	if tok.Token == "" {
		return "", &errors.AuthenticationError{Host: HostName, Method: "app", Message: "installation token exchange returned no token"}
	}

	s.token = tok.Token
	s.expires = tok.ExpiresAt
	return s.token, nil
}
