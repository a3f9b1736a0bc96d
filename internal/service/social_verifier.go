package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"travelo/internal/entity"
)

const (
	googleTokenInfoURL  = "https://oauth2.googleapis.com/tokeninfo"
	facebookProfileURL  = "https://graph.facebook.com/v19.0/me"
	facebookFieldsParam = "id,email,first_name,last_name"
)

// HTTPSocialVerifier exchanges provider tokens for verified identities by
// calling each provider's own verification endpoint.
type HTTPSocialVerifier struct {
	HTTPClient *http.Client
}

func NewHTTPSocialVerifier() *HTTPSocialVerifier {
	return &HTTPSocialVerifier{
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
	}
}

func (v *HTTPSocialVerifier) Verify(ctx context.Context, provider entity.SocialProvider, providerToken string) (*SocialIdentity, error) {
	switch provider {
	case entity.ProviderGoogle:
		return v.verifyGoogle(ctx, providerToken)
	case entity.ProviderFacebook:
		return v.verifyFacebook(ctx, providerToken)
	}
	return nil, fmt.Errorf("no verifier for provider %q", provider)
}

func (v *HTTPSocialVerifier) verifyGoogle(ctx context.Context, idToken string) (*SocialIdentity, error) {
	endpoint := googleTokenInfoURL + "?id_token=" + url.QueryEscape(idToken)

	var claims struct {
		Sub           string `json:"sub"`
		Email         string `json:"email"`
		EmailVerified string `json:"email_verified"`
		GivenName     string `json:"given_name"`
		FamilyName    string `json:"family_name"`
	}
	if err := v.get(ctx, endpoint, &claims); err != nil {
		return nil, err
	}
	if claims.Sub == "" || claims.Email == "" {
		return nil, fmt.Errorf("google tokeninfo response missing subject or email")
	}
	return &SocialIdentity{
		ProviderUserID: claims.Sub,
		Email:          claims.Email,
		EmailVerified:  claims.EmailVerified == "true",
		FirstName:      claims.GivenName,
		LastName:       claims.FamilyName,
	}, nil
}

func (v *HTTPSocialVerifier) verifyFacebook(ctx context.Context, accessToken string) (*SocialIdentity, error) {
	endpoint := fmt.Sprintf("%s?fields=%s&access_token=%s",
		facebookProfileURL, facebookFieldsParam, url.QueryEscape(accessToken))

	var profile struct {
		ID        string `json:"id"`
		Email     string `json:"email"`
		FirstName string `json:"first_name"`
		LastName  string `json:"last_name"`
	}
	if err := v.get(ctx, endpoint, &profile); err != nil {
		return nil, err
	}
	if profile.ID == "" || profile.Email == "" {
		return nil, fmt.Errorf("facebook profile response missing id or email")
	}
	// Facebook only returns an email when it has confirmed it.
	return &SocialIdentity{
		ProviderUserID: profile.ID,
		Email:          profile.Email,
		EmailVerified:  true,
		FirstName:      profile.FirstName,
		LastName:       profile.LastName,
	}, nil
}

func (v *HTTPSocialVerifier) get(ctx context.Context, endpoint string, target any) error {
	client := v.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	response, err := client.Do(request)
	if err != nil {
		return err
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		host := "provider"
		if parsed, err := url.Parse(endpoint); err == nil {
			host = parsed.Host
		}
		return fmt.Errorf("%s verification failed with status %d", host, response.StatusCode)
	}
	if err := json.NewDecoder(response.Body).Decode(target); err != nil {
		return fmt.Errorf("decode provider response: %w", err)
	}
	return nil
}
