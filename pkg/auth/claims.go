package auth

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/clips-backend/pkg/enums"
)

// Subject is who a token is minted for.
type Subject struct {
	UserID uuid.UUID
	Role   enums.Role
	// JTI is generated when empty.
	JTI string
}

// Claims is the verified token body. The user id travels in the standard
// "sub" claim; for business accounts it doubles as the business id the clip
// ledger is keyed on.
type Claims struct {
	Role enums.Role `json:"role"`
	jwt.RegisteredClaims
}

// UserID parses the subject claim.
func (c *Claims) UserID() (uuid.UUID, error) {
	id, err := uuid.Parse(c.Subject)
	if err != nil || id == uuid.Nil {
		return uuid.Nil, fmt.Errorf("%w: subject is not a user id", ErrInvalidToken)
	}
	return id, nil
}
