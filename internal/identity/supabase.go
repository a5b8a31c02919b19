package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	neturl "net/url"
	"strings"
	"time"

	"github.com/and161185/topupbd/internal/errs"
	"github.com/and161185/topupbd/internal/model"
	"github.com/tidwall/gjson"
)

const (
	maxSupabaseResponseBytes  = 4 << 20
	maxSupabaseErrorBodyBytes = 32 << 10
	profilesTable             = "profiles"
)

// SupabaseBackend talks to the GoTrue auth API and the PostgREST profiles
// table of a Supabase project using its anon key.
type SupabaseBackend struct {
	url        string
	anonKey    string
	httpClient *http.Client
}

func NewSupabaseBackend(url, anonKey string, timeout time.Duration) *SupabaseBackend {
	return &SupabaseBackend{
		url:        strings.TrimRight(url, "/"),
		anonKey:    anonKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type credentialsBody struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (c *SupabaseBackend) SignUp(ctx context.Context, email, password string) (*Session, error) {
	body, err := c.request(ctx, http.MethodPost, "/auth/v1/signup", "", credentialsBody{email, password}, false)
	if err != nil {
		return nil, err
	}
	if !gjson.GetBytes(body, "access_token").Exists() {
		// email confirmation enabled, only the user comes back
		return nil, nil
	}
	return parseSession(body)
}

func (c *SupabaseBackend) SignIn(ctx context.Context, email, password string) (*Session, error) {
	body, err := c.request(ctx, http.MethodPost, "/auth/v1/token?grant_type=password", "", credentialsBody{email, password}, false)
	if err != nil {
		return nil, err
	}
	return parseSession(body)
}

func (c *SupabaseBackend) Refresh(ctx context.Context, refreshToken string) (*Session, error) {
	payload := map[string]string{"refresh_token": refreshToken}
	body, err := c.request(ctx, http.MethodPost, "/auth/v1/token?grant_type=refresh_token", "", payload, false)
	if err != nil {
		return nil, err
	}
	return parseSession(body)
}

func (c *SupabaseBackend) SignOut(ctx context.Context, accessToken string) error {
	_, err := c.request(ctx, http.MethodPost, "/auth/v1/logout", accessToken, nil, false)
	return err
}

func (c *SupabaseBackend) GetUser(ctx context.Context, accessToken string) (Identity, error) {
	body, err := c.request(ctx, http.MethodGet, "/auth/v1/user", accessToken, nil, false)
	if err != nil {
		return Identity{}, err
	}

	var id Identity
	if err := json.Unmarshal(body, &id); err != nil {
		return Identity{}, fmt.Errorf("decode user: %w", err)
	}
	return id, nil
}

func (c *SupabaseBackend) GetProfile(ctx context.Context, accessToken, id string) (model.Profile, error) {
	query := neturl.Values{}
	query.Set("id", "eq."+id)
	query.Set("select", "*")

	body, err := c.request(ctx, http.MethodGet, "/rest/v1/"+profilesTable+"?"+query.Encode(), accessToken, nil, false)
	if err != nil {
		return model.Profile{}, err
	}

	var rows []model.Profile
	if err := json.Unmarshal(body, &rows); err != nil {
		return model.Profile{}, fmt.Errorf("decode profiles: %w", err)
	}
	if len(rows) == 0 {
		return model.Profile{}, errs.ErrProfileNotFound
	}
	return rows[0], nil
}

func (c *SupabaseBackend) InsertProfile(ctx context.Context, accessToken string, profile model.Profile) (model.Profile, error) {
	body, err := c.request(ctx, http.MethodPost, "/rest/v1/"+profilesTable, accessToken, profile, true)
	if err != nil {
		return model.Profile{}, err
	}

	var rows []model.Profile
	if err := json.Unmarshal(body, &rows); err != nil {
		return model.Profile{}, fmt.Errorf("decode profiles: %w", err)
	}
	if len(rows) == 0 {
		return profile, nil
	}
	return rows[0], nil
}

func (c *SupabaseBackend) ListProfiles(ctx context.Context, accessToken string) ([]model.Profile, error) {
	body, err := c.request(ctx, http.MethodGet, "/rest/v1/"+profilesTable+"?select=*", accessToken, nil, false)
	if err != nil {
		return nil, err
	}

	var rows []model.Profile
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("decode profiles: %w", err)
	}
	return rows, nil
}

func (c *SupabaseBackend) request(ctx context.Context, method, path, accessToken string, body interface{}, represent bool) ([]byte, error) {
	var reqBody io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal body: %w", err)
		}
		reqBody = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.url+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	bearer := accessToken
	if bearer == "" {
		bearer = c.anonKey
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("apikey", c.anonKey)
	req.Header.Set("Authorization", "Bearer "+bearer)
	if represent {
		req.Header.Set("Prefer", "return=representation")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxSupabaseErrorBodyBytes))
		return nil, apiError(resp.StatusCode, respBody)
	}

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxSupabaseResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	return respBody, nil
}

// apiError maps the GoTrue and PostgREST error shapes onto errs sentinels
// where one fits.
func apiError(status int, body []byte) error {
	msg := ""
	for _, key := range []string{"error_description", "msg", "message", "error"} {
		if v := gjson.GetBytes(body, key); v.Type == gjson.String && v.String() != "" {
			msg = v.String()
			break
		}
	}
	if msg == "" {
		msg = strings.TrimSpace(string(body))
	}

	code := gjson.GetBytes(body, "error_code").String()
	lower := strings.ToLower(msg)

	switch {
	case code == "user_already_exists" || strings.Contains(lower, "already registered") || gjson.GetBytes(body, "code").String() == "23505":
		return fmt.Errorf("%s: %w", msg, errs.ErrLoginAlreadyExists)
	case code == "invalid_credentials" || strings.Contains(lower, "invalid login credentials"):
		return fmt.Errorf("%s: %w", msg, errs.ErrInvalidCredentials)
	case status == http.StatusUnauthorized || code == "bad_jwt":
		return fmt.Errorf("%s: %w", msg, errs.ErrInvalidToken)
	}

	return fmt.Errorf("supabase API error %d: %s", status, msg)
}

type sessionBody struct {
	AccessToken  string   `json:"access_token"`
	RefreshToken string   `json:"refresh_token"`
	ExpiresIn    int64    `json:"expires_in"`
	ExpiresAt    int64    `json:"expires_at"`
	User         Identity `json:"user"`
}

func parseSession(body []byte) (*Session, error) {
	var sb sessionBody
	if err := json.Unmarshal(body, &sb); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	if sb.AccessToken == "" {
		return nil, fmt.Errorf("decode session: %w", errs.ErrInvalidToken)
	}

	s := &Session{
		AccessToken:  sb.AccessToken,
		RefreshToken: sb.RefreshToken,
		User:         sb.User,
	}
	switch {
	case sb.ExpiresAt > 0:
		s.ExpiresAt = time.Unix(sb.ExpiresAt, 0)
	case sb.ExpiresIn > 0:
		s.ExpiresAt = time.Now().Add(time.Duration(sb.ExpiresIn) * time.Second)
	}
	return s, nil
}
