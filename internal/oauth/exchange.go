// Package oauth exchanges a marketplace authorization code for API tokens.
package oauth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

// TokenPath is the token endpoint relative to the API base URL.
const TokenPath = "/oauth/token"

// Credentials identify the marketplace application.
type Credentials struct {
	AppID        string
	ClientSecret string
	RedirectURI  string
}

// Tokens is the outcome of a successful exchange.
type Tokens struct {
	AccessToken  string
	RefreshToken string
	TokenType    string
	Expiry       time.Time
	UserID       any
	Scope        any
}

// ProviderError is a rejection from the token endpoint. Body is the raw
// answer so it can be shown to the operator as-is.
type ProviderError struct {
	StatusCode int
	Code       string
	Body       []byte
}

func (e *ProviderError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("token endpoint rejected the code: %s (status %d)", e.Code, e.StatusCode)
	}
	return fmt.Sprintf("token endpoint rejected the code: status %d", e.StatusCode)
}

// Exchanger performs the authorization_code grant.
type Exchanger struct {
	config     *oauth2.Config
	httpClient *http.Client
}

// NewExchanger creates an exchanger against baseURL. transport may be nil.
func NewExchanger(baseURL string, creds Credentials, timeout time.Duration, transport http.RoundTripper) *Exchanger {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Exchanger{
		config: &oauth2.Config{
			ClientID:     creds.AppID,
			ClientSecret: creds.ClientSecret,
			RedirectURL:  creds.RedirectURI,
			Endpoint: oauth2.Endpoint{
				TokenURL:  strings.TrimSuffix(baseURL, "/") + TokenPath,
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		httpClient: &http.Client{Timeout: timeout, Transport: transport},
	}
}

// Exchange trades a one-time authorization code for access and refresh tokens.
// The code is never retried: it is single use.
func (e *Exchanger) Exchange(ctx context.Context, code string) (*Tokens, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, errors.New("authorization code is empty")
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, e.httpClient)
	token, err := e.config.Exchange(ctx, code)
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) {
			status := 0
			if retrieveErr.Response != nil {
				status = retrieveErr.Response.StatusCode
			}
			return nil, &ProviderError{StatusCode: status, Code: retrieveErr.ErrorCode, Body: retrieveErr.Body}
		}
		return nil, fmt.Errorf("exchange code: %w", err)
	}

	return &Tokens{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		TokenType:    token.TokenType,
		Expiry:       token.Expiry,
		UserID:       token.Extra("user_id"),
		Scope:        token.Extra("scope"),
	}, nil
}

// Preview returns the first n characters of a secret for logging.
func Preview(secret string, n int) string {
	if len(secret) <= n {
		return secret
	}
	return secret[:n] + "..."
}
