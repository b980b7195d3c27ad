package oauth

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/jarcoal/httpmock"
)

const testBaseURL = "http://ml.test"

func testCredentials() Credentials {
	return Credentials{AppID: "123", ClientSecret: "s3cret", RedirectURI: "https://www.google.com"}
}

func TestExchange_SendsFormAndReturnsTokens(t *testing.T) {
	transport := httpmock.NewMockTransport()
	var form map[string]string
	transport.RegisterResponder(http.MethodPost, testBaseURL+TokenPath, func(req *http.Request) (*http.Response, error) {
		if err := req.ParseForm(); err != nil {
			return nil, err
		}
		form = map[string]string{}
		for key := range req.PostForm {
			form[key] = req.PostForm.Get(key)
		}
		return httpmock.NewJsonResponse(http.StatusOK, map[string]any{
			"access_token":  "APP_USR-access",
			"refresh_token": "TG-refresh",
			"token_type":    "Bearer",
			"expires_in":    21600,
			"user_id":       42,
		})
	})

	tokens, err := NewExchanger(testBaseURL+"/", testCredentials(), 0, transport).Exchange(context.Background(), " TG-code ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tokens.AccessToken != "APP_USR-access" || tokens.RefreshToken != "TG-refresh" {
		t.Fatalf("unexpected tokens %+v", tokens)
	}

	want := map[string]string{
		"grant_type":    "authorization_code",
		"client_id":     "123",
		"client_secret": "s3cret",
		"code":          "TG-code",
		"redirect_uri":  "https://www.google.com",
	}
	for key, value := range want {
		if form[key] != value {
			t.Fatalf("form %s = %q, want %q", key, form[key], value)
		}
	}
}

func TestExchange_ProviderErrorKeepsRawBody(t *testing.T) {
	body := `{"message":"Error validating grant. Your authorization code or refresh token may be expired or it was already used","error":"invalid_grant","status":400,"cause":[]}`
	transport := httpmock.NewMockTransport()
	resp := httpmock.NewStringResponse(http.StatusBadRequest, body)
	resp.Header.Set("Content-Type", "application/json")
	transport.RegisterResponder(http.MethodPost, testBaseURL+TokenPath, httpmock.ResponderFromResponse(resp))

	_, err := NewExchanger(testBaseURL, testCredentials(), 0, transport).Exchange(context.Background(), "TG-expired")

	var providerErr *ProviderError
	if !errors.As(err, &providerErr) {
		t.Fatalf("expected ProviderError, got %v", err)
	}
	if string(providerErr.Body) != body {
		t.Fatalf("expected raw body, got %s", providerErr.Body)
	}
	if providerErr.StatusCode != http.StatusBadRequest || providerErr.Code != "invalid_grant" {
		t.Fatalf("unexpected provider error %+v", providerErr)
	}
}

func TestExchange_EmptyCodeMakesNoCall(t *testing.T) {
	transport := httpmock.NewMockTransport()

	if _, err := NewExchanger(testBaseURL, testCredentials(), 0, transport).Exchange(context.Background(), "  "); err == nil {
		t.Fatalf("expected error")
	}
	if n := transport.GetTotalCallCount(); n != 0 {
		t.Fatalf("expected no calls, got %d", n)
	}
}

func TestPreview(t *testing.T) {
	if got := Preview("TG-0123456789abcdef", 10); got != "TG-0123456..." {
		t.Fatalf("unexpected preview %q", got)
	}
	if got := Preview("short", 10); got != "short" {
		t.Fatalf("unexpected preview %q", got)
	}
}
