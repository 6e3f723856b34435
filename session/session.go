// Package session carries the admin flag in an HMAC-signed cookie.
package session

import (
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/securecookie"
)

// DefaultMaxAge is how long a session cookie stays valid.
const DefaultMaxAge = 30 * 24 * time.Hour

// Session is the data stored in the cookie.
type Session struct {
	IsAdmin bool `json:"isAdmin"`
}

// Options configure a Codec. They are fixed once the Codec is built.
type Options struct {
	Name string
	// Secrets sign and verify cookies. The first one signs; all of them
	// verify, so a secret can be rotated without logging everyone out.
	Secrets []string
	Secure  bool
	MaxAge  time.Duration
}

// Codec reads and writes sessions as signed cookies.
type Codec struct {
	opts   Options
	codecs []securecookie.Codec
}

// NewCodec builds a Codec from opts.
func NewCodec(opts Options) (*Codec, error) {
	if opts.Name == "" {
		return nil, errors.New("session: cookie name required")
	}
	if len(opts.Secrets) == 0 {
		return nil, errors.New("session: at least one secret required")
	}
	if opts.MaxAge <= 0 {
		opts.MaxAge = DefaultMaxAge
	}
	opts.Secrets = append([]string(nil), opts.Secrets...)

	codecs := make([]securecookie.Codec, 0, len(opts.Secrets))
	for _, secret := range opts.Secrets {
		if secret == "" {
			return nil, errors.New("session: empty secret")
		}
		sc := securecookie.New([]byte(secret), nil)
		sc.MaxAge(int(opts.MaxAge / time.Second))
		sc.SetSerializer(securecookie.JSONEncoder{})
		codecs = append(codecs, sc)
	}
	return &Codec{opts: opts, codecs: codecs}, nil
}

// Name returns the cookie name.
func (c *Codec) Name() string {
	return c.opts.Name
}

// Get returns the session carried by r. A missing, expired or tampered cookie
// yields an empty (anonymous) session.
func (c *Codec) Get(r *http.Request) Session {
	var s Session
	cookie, err := r.Cookie(c.opts.Name)
	if err != nil {
		return s
	}
	if err := securecookie.DecodeMulti(c.opts.Name, cookie.Value, &s, c.codecs...); err != nil {
		return Session{}
	}
	return s
}

// Commit writes s to the response as a signed cookie.
func (c *Codec) Commit(w http.ResponseWriter, s Session) error {
	value, err := securecookie.EncodeMulti(c.opts.Name, s, c.codecs...)
	if err != nil {
		return err
	}
	http.SetCookie(w, c.cookie(value, int(c.opts.MaxAge/time.Second)))
	return nil
}

// Destroy clears the session cookie.
func (c *Codec) Destroy(w http.ResponseWriter) {
	http.SetCookie(w, c.cookie("", -1))
}

func (c *Codec) cookie(value string, maxAge int) *http.Cookie {
	cookie := &http.Cookie{
		Name:     c.opts.Name,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   c.opts.Secure,
		SameSite: http.SameSiteLaxMode,
	}
	if maxAge > 0 {
		cookie.Expires = time.Now().Add(time.Duration(maxAge) * time.Second)
	} else {
		cookie.Expires = time.Unix(0, 0)
	}
	return cookie
}
