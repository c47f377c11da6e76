package identity

import (
	"context"
	"fmt"

	"stirka/internal/config"
	"stirka/internal/domain"

	"google.golang.org/api/idtoken"
)

// GoogleVerifier проверяет Google ID token и возвращает подтвержденную личность.
type GoogleVerifier struct {
	clientID string
}

func NewGoogleVerifier(cfg config.GoogleConfig) *GoogleVerifier {
	return &GoogleVerifier{clientID: cfg.ClientID}
}

func (v *GoogleVerifier) Verify(ctx context.Context, token string) (*domain.VerifiedIdentity, error) {
	payload, err := idtoken.Validate(ctx, token, v.clientID)
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	email, _ := payload.Claims["email"].(string)
	if email == "" {
		return nil, fmt.Errorf("token payload has no email claim")
	}
	name, _ := payload.Claims["name"].(string)

	return &domain.VerifiedIdentity{Email: email, Name: name}, nil
}
