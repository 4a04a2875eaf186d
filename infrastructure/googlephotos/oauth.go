package googlephotos

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"smart-gallery/domain/services"
	"smart-gallery/pkg/config"
)

// LibraryReadonlyScope grants read access to the user's albums and media items.
const LibraryReadonlyScope = "https://www.googleapis.com/auth/photoslibrary.readonly"

// OAuthClient wraps the authorization-code flow against Google's endpoints.
type OAuthClient struct {
	authURL     string
	tokenURL    string
	redirectURL string
	httpClient  *http.Client
}

func NewOAuthClient(cfg config.GooglePhotosConfig) *OAuthClient {
	return &OAuthClient{
		authURL:     cfg.AuthURL,
		tokenURL:    cfg.TokenURL,
		redirectURL: cfg.RedirectURL,
		httpClient:  &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *OAuthClient) config(clientID, clientSecret string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  c.redirectURL,
		Scopes:       []string{LibraryReadonlyScope},
		Endpoint: oauth2.Endpoint{
			AuthURL:   c.authURL,
			TokenURL:  c.tokenURL,
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
}

func (c *OAuthClient) withHTTPClient(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
}

// AuthCodeURL asks for offline access with forced consent so a refresh token is issued.
func (c *OAuthClient) AuthCodeURL(clientID, clientSecret, state string) string {
	return c.config(clientID, clientSecret).AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
}

// Exchange trades an authorization code for tokens.
func (c *OAuthClient) Exchange(ctx context.Context, clientID, clientSecret, code string) (*oauth2.Token, error) {
	token, err := c.config(clientID, clientSecret).Exchange(c.withHTTPClient(ctx), code)
	if err != nil {
		return nil, &services.ProviderError{Op: "token exchange", Message: providerMessage(err), Err: err}
	}
	return token, nil
}

// Refresh mints a new access token from a refresh token. An empty refresh token fails
// with ErrAuthExpired without contacting the provider.
func (c *OAuthClient) Refresh(ctx context.Context, clientID, clientSecret, refreshToken string) (*oauth2.Token, error) {
	if refreshToken == "" {
		return nil, services.ErrAuthExpired
	}

	source := c.config(clientID, clientSecret).TokenSource(c.withHTTPClient(ctx), &oauth2.Token{RefreshToken: refreshToken})
	token, err := source.Token()
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) && retrieveErr.ErrorCode == "invalid_grant" {
			return nil, fmt.Errorf("%w: %s", services.ErrAuthExpired, providerMessage(err))
		}
		return nil, &services.ProviderError{Op: "token refresh", Message: providerMessage(err), Err: err}
	}
	return token, nil
}

// providerMessage pulls the human readable part out of an oauth2 error.
func providerMessage(err error) string {
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		switch {
		case retrieveErr.ErrorDescription != "":
			return retrieveErr.ErrorDescription
		case retrieveErr.ErrorCode != "":
			return retrieveErr.ErrorCode
		case len(retrieveErr.Body) > 0:
			return strings.TrimSpace(string(retrieveErr.Body))
		}
	}
	return err.Error()
}
