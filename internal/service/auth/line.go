package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"rehab-service/internal/config"
)

type LineProfile struct {
	UserID      string
	DisplayName string
	PictureURL  string
}

// LineProvider turns an authorization code into a verified LINE profile.
type LineProvider interface {
	Exchange(ctx context.Context, code string) (*LineProfile, error)
}

type lineClient struct {
	conf config.LineConfig
	http *http.Client
}

func NewLineClient(conf config.LineConfig) LineProvider {
	return &lineClient{
		conf: conf,
		http: &http.Client{Timeout: 10 * time.Second},
	}
}

type lineTokenResponse struct {
	AccessToken string `json:"access_token"`
	IDToken     string `json:"id_token"`
}

type lineVerifyResponse struct {
	Sub     string `json:"sub"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

func (l *lineClient) Exchange(ctx context.Context, code string) (*LineProfile, error) {
	var token lineTokenResponse
	err := l.postForm(ctx, l.conf.TokenURL, url.Values{
		"grant_type":    {"authorization_code"},
		"code":          {code},
		"redirect_uri":  {l.conf.RedirectURI},
		"client_id":     {l.conf.ChannelID},
		"client_secret": {l.conf.ChannelSecret},
	}, &token)
	if err != nil {
		return nil, fmt.Errorf("token: %w", err)
	}
	if token.IDToken == "" {
		return nil, fmt.Errorf("token: missing id_token")
	}

	var verified lineVerifyResponse
	err = l.postForm(ctx, l.conf.VerifyURL, url.Values{
		"id_token":  {token.IDToken},
		"client_id": {l.conf.ChannelID},
	}, &verified)
	if err != nil {
		return nil, fmt.Errorf("verify: %w", err)
	}
	if verified.Sub == "" {
		return nil, fmt.Errorf("verify: missing subject")
	}

	name := verified.Name
	if name == "" {
		name = "LINE user"
	}
	return &LineProfile{
		UserID:      verified.Sub,
		DisplayName: name,
		PictureURL:  verified.Picture,
	}, nil
}

func (l *lineClient) postForm(ctx context.Context, endpoint string, form url.Values, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := l.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
