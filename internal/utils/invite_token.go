package utils

import (
	"strings"

	"github.com/google/uuid"
)

// InviteTokenPrefix marks invite tokens so they are recognizable in links and logs.
const InviteTokenPrefix = "inv_"

// GenerateInviteToken generates a random single-use invite token in the format inv_<32 hex chars>
func GenerateInviteToken() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", err
	}
	return InviteTokenPrefix + strings.ReplaceAll(id.String(), "-", ""), nil
}

// IsInviteToken reports whether token has the shape produced by GenerateInviteToken.
func IsInviteToken(token string) bool {
	raw, ok := strings.CutPrefix(token, InviteTokenPrefix)
	if !ok || len(raw) != 32 {
		return false
	}
	_, err := uuid.Parse(raw)
	return err == nil
}
