package services

import "context"

type AuthService interface {
	// Login checks the administrator credentials and returns a signed JWT.
	Login(ctx context.Context, username, password string) (string, error)
}
