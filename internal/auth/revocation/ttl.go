package revocation

import (
	"time"

	dErrors "leaddesk/pkg/domain-errors"
)

func validateTTL(ttl time.Duration) error {
	if ttl <= 0 {
		return dErrors.New(dErrors.CodeBadRequest, "revocation ttl must be positive")
	}
	return nil
}
