package security

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token classes carried in the typ claim.
const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// ClaimsVersion is the claim schema version written into every token.
const ClaimsVersion = 1

var (
	// ErrTokenExpired is returned when a token's exp has passed on the verifier's clock.
	ErrTokenExpired = errors.New("token expired")
	// ErrTokenMalformed is returned when a token cannot be decoded or its claims fail validation.
	ErrTokenMalformed = errors.New("token malformed")
	// ErrTokenSignature is returned when a token's signature or algorithm does not verify.
	ErrTokenSignature = errors.New("token signature invalid")

	// ErrMissingSecret is returned by NewTokenIssuer when a signing secret is empty.
	ErrMissingSecret = errors.New("token secret must be set")
	// ErrSharedSecret is returned by NewTokenIssuer when access and refresh secrets are equal.
	ErrSharedSecret = errors.New("access and refresh token secrets must differ")
)

// AccessClaims is the versioned claim set of an access token. It carries enough
// display data to render a request without a database round trip.
type AccessClaims struct {
	jwt.RegisteredClaims
	Type     string `json:"typ"`
	Version  int    `json:"ver"`
	Handle   string `json:"handle"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
}

// Validate is called by the jwt parser after the registered claims are checked.
func (c AccessClaims) Validate() error {
	return validateClass(c.RegisteredClaims, c.Type, c.Version, TokenTypeAccess)
}

// RefreshClaims is the versioned claim set of a refresh token: only the account id and a jti.
type RefreshClaims struct {
	jwt.RegisteredClaims
	Type    string `json:"typ"`
	Version int    `json:"ver"`
}

// Validate is called by the jwt parser after the registered claims are checked.
func (c RefreshClaims) Validate() error {
	return validateClass(c.RegisteredClaims, c.Type, c.Version, TokenTypeRefresh)
}

func validateClass(rc jwt.RegisteredClaims, typ string, ver int, want string) error {
	if typ != want {
		return errors.New("unexpected token type")
	}
	if ver != ClaimsVersion {
		return errors.New("unsupported claims version")
	}
	if strings.TrimSpace(rc.Subject) == "" {
		return errors.New("missing subject")
	}
	if rc.ID == "" {
		return errors.New("missing jti")
	}
	return nil
}

// Display holds the account fields copied into an access token.
type Display struct {
	Handle   string
	Email    string
	FullName string
}

// Token is a signed token with its id and absolute expiry.
type Token struct {
	Value     string
	ID        string
	ExpiresAt time.Time
}

// TokenConfig configures a TokenIssuer.
type TokenConfig struct {
	AccessSecret  string
	RefreshSecret string
	Issuer        string
	Audience      string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	// Leeway is the clock skew tolerated on exp; zero means none.
	Leeway time.Duration
	// Now overrides the clock; nil uses time.Now.
	Now func() time.Time
}

// TokenIssuer issues and verifies HS256 access and refresh tokens. Each class
// is signed with its own secret so one leaked secret cannot forge the other class.
type TokenIssuer struct {
	accessKey  []byte
	refreshKey []byte
	issuer     string
	audience   string
	accessTTL  time.Duration
	refreshTTL time.Duration
	leeway     time.Duration
	now        func() time.Time
}

// NewTokenIssuer validates cfg and returns a TokenIssuer.
func NewTokenIssuer(cfg TokenConfig) (*TokenIssuer, error) {
	if cfg.AccessSecret == "" || cfg.RefreshSecret == "" {
		return nil, ErrMissingSecret
	}
	if cfg.AccessSecret == cfg.RefreshSecret {
		return nil, ErrSharedSecret
	}
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 {
		return nil, errors.New("token ttl must be positive")
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &TokenIssuer{
		accessKey:  []byte(cfg.AccessSecret),
		refreshKey: []byte(cfg.RefreshSecret),
		issuer:     cfg.Issuer,
		audience:   cfg.Audience,
		accessTTL:  cfg.AccessTTL,
		refreshTTL: cfg.RefreshTTL,
		leeway:     cfg.Leeway,
		now:        now,
	}, nil
}

// AccessTTL returns the access token lifetime.
func (p *TokenIssuer) AccessTTL() time.Duration { return p.accessTTL }

// RefreshTTL returns the refresh token lifetime.
func (p *TokenIssuer) RefreshTTL() time.Duration { return p.refreshTTL }

// IssueAccess issues a short-lived access token for accountID.
func (p *TokenIssuer) IssueAccess(accountID string, d Display) (Token, error) {
	rc, err := p.registered(accountID, p.accessTTL)
	if err != nil {
		return Token{}, err
	}
	claims := AccessClaims{
		RegisteredClaims: rc,
		Type:             TokenTypeAccess,
		Version:          ClaimsVersion,
		Handle:           d.Handle,
		Email:            d.Email,
		FullName:         d.FullName,
	}
	return p.sign(claims, rc, p.accessKey)
}

// IssueRefresh issues a long-lived refresh token for accountID. Every call
// yields a distinct token because the jti is random.
func (p *TokenIssuer) IssueRefresh(accountID string) (Token, error) {
	rc, err := p.registered(accountID, p.refreshTTL)
	if err != nil {
		return Token{}, err
	}
	claims := RefreshClaims{
		RegisteredClaims: rc,
		Type:             TokenTypeRefresh,
		Version:          ClaimsVersion,
	}
	return p.sign(claims, rc, p.refreshKey)
}

// VerifyAccess checks signature, expiry, issuer, audience and claim shape of an access token.
func (p *TokenIssuer) VerifyAccess(tokenString string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	if err := p.parse(tokenString, claims, p.accessKey); err != nil {
		return nil, err
	}
	return claims, nil
}

// VerifyRefresh checks signature, expiry, issuer, audience and claim shape of a refresh token.
func (p *TokenIssuer) VerifyRefresh(tokenString string) (*RefreshClaims, error) {
	claims := &RefreshClaims{}
	if err := p.parse(tokenString, claims, p.refreshKey); err != nil {
		return nil, err
	}
	return claims, nil
}

func (p *TokenIssuer) registered(accountID string, ttl time.Duration) (jwt.RegisteredClaims, error) {
	if strings.TrimSpace(accountID) == "" {
		return jwt.RegisteredClaims{}, errors.New("account id is required")
	}
	jti, err := generateJTI()
	if err != nil {
		return jwt.RegisteredClaims{}, err
	}
	now := p.now().UTC()
	rc := jwt.RegisteredClaims{
		ID:        jti,
		Subject:   accountID,
		Issuer:    p.issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	if p.audience != "" {
		rc.Audience = jwt.ClaimStrings{p.audience}
	}
	return rc, nil
}

func (p *TokenIssuer) sign(claims jwt.Claims, rc jwt.RegisteredClaims, key []byte) (Token, error) {
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(key)
	if err != nil {
		return Token{}, err
	}
	return Token{Value: s, ID: rc.ID, ExpiresAt: rc.ExpiresAt.Time}, nil
}

func (p *TokenIssuer) parse(tokenString string, claims jwt.Claims, key []byte) error {
	if strings.TrimSpace(tokenString) == "" {
		return ErrTokenMalformed
	}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(p.now),
		jwt.WithLeeway(p.leeway),
	}
	if p.issuer != "" {
		opts = append(opts, jwt.WithIssuer(p.issuer))
	}
	if p.audience != "" {
		opts = append(opts, jwt.WithAudience(p.audience))
	}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
		return key, nil
	}, opts...)
	if err != nil {
		return classify(err)
	}
	if !token.Valid {
		return ErrTokenMalformed
	}
	return nil
}

// classify maps jwt parser errors onto Expired, BadSignature or Malformed.
func classify(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrTokenExpired
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return ErrTokenSignature
	default:
		return ErrTokenMalformed
	}
}

func generateJTI() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
