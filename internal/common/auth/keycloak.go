// internal/common/auth/keycloak.go
package auth

import (
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"

	"dashboard-gateway/internal/common/errors"
	"dashboard-gateway/internal/upstream"
)

type GrantType string

const (
	GrantClientCredentials GrantType = "client_credentials"
	GrantPassword          GrantType = "password"
)

const maxCredentialBodyBytes = 64 << 10

// Credentials is what a caller may post to the token route.
type Credentials struct {
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
	Username     string `json:"username"`
	Password     string `json:"password"`
}

// KeycloakEndpoint builds token requests against a Keycloak realm. The
// gateway only relays the grant; the token envelope is the caller's to use.
type KeycloakEndpoint struct {
	tokenURL       string
	publicClientID string
}

func NewKeycloakEndpoint(baseURL, realm, publicClientID string) *KeycloakEndpoint {
	return &KeycloakEndpoint{
		tokenURL:       fmt.Sprintf("%s/realms/%s/protocol/openid-connect/token", strings.TrimSuffix(baseURL, "/"), realm),
		publicClientID: publicClientID,
	}
}

func (k *KeycloakEndpoint) TokenURL() string {
	return k.tokenURL
}

// Grant picks client_credentials when a client id and secret are present,
// otherwise the password grant with the configured public client.
func (k *KeycloakEndpoint) Grant(c Credentials) (GrantType, url.Values, error) {
	data := url.Values{}

	switch {
	case c.ClientID != "" && c.ClientSecret != "":
		data.Set("grant_type", string(GrantClientCredentials))
		data.Set("client_id", c.ClientID)
		data.Set("client_secret", c.ClientSecret)
		return GrantClientCredentials, data, nil
	case c.Username != "" && c.Password != "":
		data.Set("grant_type", string(GrantPassword))
		data.Set("client_id", k.publicClientID)
		data.Set("username", c.Username)
		data.Set("password", c.Password)
		return GrantPassword, data, nil
	default:
		return "", nil, errors.NewPreconditionFailedError("client_id and client_secret, or username and password, are required")
	}
}

// TokenCall turns credentials into the form-encoded upstream call.
func (k *KeycloakEndpoint) TokenCall(c Credentials) (GrantType, upstream.Call, error) {
	grant, data, err := k.Grant(c)
	if err != nil {
		return "", upstream.Call{}, err
	}
	return grant, upstream.Call{
		Method: http.MethodPost,
		URL:    k.tokenURL,
		Headers: map[string]string{
			"Content-Type": "application/x-www-form-urlencoded",
		},
		Body: []byte(data.Encode()),
	}, nil
}

// ParseCredentials reads credentials from a JSON or form-encoded body.
func ParseCredentials(r *http.Request) (Credentials, error) {
	var c Credentials

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		body, err := io.ReadAll(io.LimitReader(r.Body, maxCredentialBodyBytes))
		if err != nil {
			return c, errors.NewInvalidParameterError("body", err.Error())
		}
		if len(body) == 0 {
			return c, nil
		}
		if err := json.Unmarshal(body, &c); err != nil {
			return c, errors.NewInvalidParameterError("body", "malformed JSON body")
		}
		return c, nil
	}

	r.Body = http.MaxBytesReader(nil, r.Body, maxCredentialBodyBytes)
	if err := r.ParseForm(); err != nil {
		return c, errors.NewInvalidParameterError("body", "malformed form body")
	}
	c.ClientID = r.PostForm.Get("client_id")
	c.ClientSecret = r.PostForm.Get("client_secret")
	c.Username = r.PostForm.Get("username")
	c.Password = r.PostForm.Get("password")
	return c, nil
}
