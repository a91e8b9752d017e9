package session

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"golang.org/x/crypto/nacl/secretbox"
)

// Flash kinds rendered by the layout.
const (
	FlashSuccess = "success"
	FlashError   = "error"
)

const nonceSize = 24

var errFlashInvalid = errors.New("flash cookie invalid")

// Flash is a one-shot message carried between two page views.
type Flash struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// Flasher seals flash messages into a cookie so they survive a redirect
// without server-side state.
type Flasher struct {
	key    [32]byte
	secure bool
}

// NewFlasher derives the sealing key from secret.
func NewFlasher(secret string, secure bool) *Flasher {
	return &Flasher{key: sha256.Sum256([]byte(secret)), secure: secure}
}

// Set stores a flash message for the next page view.
func (f *Flasher) Set(w http.ResponseWriter, kind, message string) error {
	payload, err := json.Marshal(Flash{Kind: kind, Message: message})
	if err != nil {
		return err
	}

	var nonce [nonceSize]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return err
	}
	sealed := secretbox.Seal(nonce[:], payload, &nonce, &f.key)

	http.SetCookie(w, &http.Cookie{
		Name:     FlashCookie,
		Value:    base64.RawURLEncoding.EncodeToString(sealed),
		Path:     "/",
		MaxAge:   300,
		HttpOnly: true,
		Secure:   f.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// Pop returns the pending flash message, if any, and expires the cookie.
// Tampered or foreign cookies are discarded.
func (f *Flasher) Pop(w http.ResponseWriter, r *http.Request) (Flash, bool) {
	c, err := r.Cookie(FlashCookie)
	if err != nil || c.Value == "" {
		return Flash{}, false
	}

	http.SetCookie(w, &http.Cookie{
		Name:     FlashCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   f.secure,
		SameSite: http.SameSiteLaxMode,
	})

	flash, err := f.open(c.Value)
	if err != nil {
		return Flash{}, false
	}
	return flash, true
}

func (f *Flasher) open(value string) (Flash, error) {
	sealed, err := base64.RawURLEncoding.DecodeString(value)
	if err != nil || len(sealed) < nonceSize+secretbox.Overhead {
		return Flash{}, errFlashInvalid
	}

	var nonce [nonceSize]byte
	copy(nonce[:], sealed[:nonceSize])
	payload, ok := secretbox.Open(nil, sealed[nonceSize:], &nonce, &f.key)
	if !ok {
		return Flash{}, errFlashInvalid
	}

	var flash Flash
	if err := json.Unmarshal(payload, &flash); err != nil {
		return Flash{}, errFlashInvalid
	}
	return flash, nil
}
