package utils

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"strconv"
	"strings"
	"time"
)

const stateTTL = 10 * time.Minute

var (
	ErrInvalidState = errors.New("invalid state format")
	ErrStateExpired = errors.New("state expired")
	ErrBadSignature = errors.New("invalid state signature")
)

// CreateSignedState builds random.subject.timestamp.signature for OAuth round trips.
func CreateSignedState(subject, secret string) (string, error) {
	randomBytes := make([]byte, 16)
	if _, err := rand.Read(randomBytes); err != nil {
		return "", err
	}
	data := base64.RawURLEncoding.EncodeToString(randomBytes) + "." + subject + "." + strconv.FormatInt(time.Now().Unix(), 10)
	return data + "." + signState(data, secret), nil
}

// ParseSignedState verifies the signature and age of a state and returns its subject.
func ParseSignedState(state, secret string) (string, error) {
	parts := strings.Split(state, ".")
	if len(parts) != 4 {
		return "", ErrInvalidState
	}

	timestamp, err := strconv.ParseInt(parts[2], 10, 64)
	if err != nil {
		return "", ErrInvalidState
	}
	if time.Since(time.Unix(timestamp, 0)) > stateTTL {
		return "", ErrStateExpired
	}

	data := strings.Join(parts[:3], ".")
	if !hmac.Equal([]byte(parts[3]), []byte(signState(data, secret))) {
		return "", ErrBadSignature
	}
	return parts[1], nil
}

func signState(data, secret string) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write([]byte(data))
	return base64.RawURLEncoding.EncodeToString(h.Sum(nil))
}
