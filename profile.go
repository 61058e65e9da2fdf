package polyauth

import (
	"fmt"
	"time"
)

// AuthMethod identifies the protocol a provider used to authenticate a user.
type AuthMethod string

const (
	MethodOAuth1            AuthMethod = "oauth1"
	MethodOAuth2            AuthMethod = "oauth2"
	MethodOpenID            AuthMethod = "openid"
	MethodOpenIDOAuthHybrid AuthMethod = "openid_oauth_hybrid"
	MethodUsernamePassword  AuthMethod = "userpass"
)

// UserKey is the natural key for a profile: the user id is unique only
// within the provider that authenticated it.
type UserKey struct {
	ProviderID string `json:"provider_id"`
	UserID     string `json:"user_id"`
}

func (k UserKey) String() string {
	return k.ProviderID + "/" + k.UserID
}

func (k UserKey) IsZero() bool {
	return k.ProviderID == "" && k.UserID == ""
}

// ServiceInfo holds the endpoints and consumer credentials needed to sign
// OAuth1 API calls on behalf of a user. It is attached to OAuth1 and hybrid
// profiles by the provider and is never persisted by the stores.
type ServiceInfo struct {
	RequestTokenURL string `json:"request_token_url"`
	AccessTokenURL  string `json:"access_token_url"`
	AuthorizeURL    string `json:"authorize_url"`
	ConsumerKey     string `json:"consumer_key"`
	ConsumerSecret  string `json:"-"`
}

// OAuth1Info holds the long-lived token pair obtained at the end of an
// OAuth1 (or hybrid) flow.
type OAuth1Info struct {
	Token       string      `json:"token"`
	Secret      string      `json:"secret"`
	ServiceInfo ServiceInfo `json:"service_info"`
}

// OAuth2Info holds the access token obtained at the end of an OAuth2 flow.
// RefreshToken and Expiry are zero when the provider did not return them.
type OAuth2Info struct {
	AccessToken  string    `json:"access_token"`
	TokenType    string    `json:"token_type,omitempty"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	Expiry       time.Time `json:"expiry,omitempty"`
}

// PasswordInfo holds a stored password hash together with the id of the
// hasher that produced it, so verification can dispatch to the right
// algorithm even after the default hasher has been rotated.
type PasswordInfo struct {
	HasherID string `json:"hasher_id"`
	Hash     string `json:"hash"`
	Salt     string `json:"salt,omitempty"`
}

// Profile is the normalized identity record produced by any provider.
//
// Exactly one of OAuth1, OAuth2 or Password is populated, consistent with
// AuthMethod. Uniqueness of Key is enforced by the UserStore, not here.
type Profile struct {
	Key         UserKey    `json:"key"`
	DisplayName string     `json:"display_name"`
	Email       string     `json:"email,omitempty"`
	AvatarURL   string     `json:"avatar_url,omitempty"`
	AuthMethod  AuthMethod `json:"auth_method"`

	// Activated reports whether the account may log in. Accounts created
	// through the sign-up flow stay false until the activation email is
	// confirmed; provider-authenticated profiles are always true.
	Activated bool `json:"activated"`

	LastAccess time.Time `json:"last_access,omitempty"`

	OAuth1   *OAuth1Info   `json:"oauth1,omitempty"`
	OAuth2   *OAuth2Info   `json:"oauth2,omitempty"`
	Password *PasswordInfo `json:"password,omitempty"`
}

// Validate checks the one-credential invariant against the auth method.
func (p *Profile) Validate() error {
	if p.Key.ProviderID == "" || p.Key.UserID == "" {
		return fmt.Errorf("profile %q: missing provider or user id", p.Key)
	}
	n := 0
	if p.OAuth1 != nil {
		n++
	}
	if p.OAuth2 != nil {
		n++
	}
	if p.Password != nil {
		n++
	}
	if n > 1 {
		return fmt.Errorf("profile %q: more than one credential set populated", p.Key)
	}
	switch p.AuthMethod {
	case MethodOAuth1, MethodOpenIDOAuthHybrid:
		if p.OAuth2 != nil || p.Password != nil {
			return fmt.Errorf("profile %q: credentials do not match auth method %q", p.Key, p.AuthMethod)
		}
	case MethodOAuth2:
		if p.OAuth1 != nil || p.Password != nil {
			return fmt.Errorf("profile %q: credentials do not match auth method %q", p.Key, p.AuthMethod)
		}
	case MethodOpenID:
		if n != 0 {
			return fmt.Errorf("profile %q: openid profiles carry no credentials", p.Key)
		}
	case MethodUsernamePassword:
		if p.OAuth1 != nil || p.OAuth2 != nil {
			return fmt.Errorf("profile %q: credentials do not match auth method %q", p.Key, p.AuthMethod)
		}
	default:
		return fmt.Errorf("profile %q: unknown auth method %q", p.Key, p.AuthMethod)
	}
	return nil
}
