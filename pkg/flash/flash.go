// Package flash carries a one-shot status banner from a form POST to the
// following GET in a signed, short-lived cookie.
package flash

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const (
	CookieName = "guestbook_flash"
	issuer     = "guestbook"
)

// Message is what survives the redirect.
type Message struct {
	Kind string `json:"kind"`
	Text string `json:"text"`
}

type claims struct {
	Kind string `json:"kind"`
	Text string `json:"text"`
	jwt.RegisteredClaims
}

// Store signs and verifies flash cookies with an HMAC key.
type Store struct {
	key    []byte
	ttl    time.Duration
	secure bool
	now    func() time.Time
}

func NewStore(secret []byte, ttl time.Duration, secure bool) *Store {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &Store{key: secret, ttl: ttl, secure: secure, now: time.Now}
}

// Encode returns the signed token for m.
func (s *Store) Encode(m Message) (string, error) {
	now := s.now()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Kind: m.Kind,
		Text: m.Text,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	})
	return tok.SignedString(s.key)
}

// Decode verifies token and returns its message.
func (s *Store) Decode(token string) (Message, error) {
	var c claims
	_, err := jwt.ParseWithClaims(token, &c, func(t *jwt.Token) (interface{}, error) {
		return s.key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return Message{}, err
	}
	if c.Text == "" {
		return Message{}, errors.New("empty flash")
	}
	return Message{Kind: c.Kind, Text: c.Text}, nil
}

// Set writes m as a cookie on the response.
func (s *Store) Set(c *gin.Context, m Message) error {
	token, err := s.Encode(m)
	if err != nil {
		return err
	}
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(s.ttl / time.Second),
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// Pop reads and clears the flash cookie. Missing, tampered or expired
// cookies yield ok == false.
func (s *Store) Pop(c *gin.Context) (Message, bool) {
	token, err := c.Cookie(CookieName)
	if err != nil || token == "" {
		return Message{}, false
	}
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})
	m, err := s.Decode(token)
	if err != nil {
		return Message{}, false
	}
	return m, true
}
