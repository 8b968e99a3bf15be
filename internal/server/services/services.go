// Package services implements the marketplace use cases on top of the
// repositories and the external platforms (payments, storage, realtime).
package services

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/dmitrijs2005/bazaar/internal/common"
	"github.com/dmitrijs2005/bazaar/internal/server/realtime"
	"github.com/google/uuid"
)

// Pusher delivers realtime events. *realtime.Hub implements it.
type Pusher interface {
	SendToUsers(ctx context.Context, ev realtime.Event, userIDs ...string) error
	Broadcast(ctx context.Context, ev realtime.Event) error
}

// MaxAmount is the largest value a NUMERIC(12,2) price or offer column holds.
const MaxAmount = 9_999_999_999.99

// validAmount rejects NaN, infinities, values below min and values the
// database cannot store.
func validAmount(v, min float64, inclusive bool) bool {
	if math.IsNaN(v) || math.IsInf(v, 0) || v > MaxAmount {
		return false
	}
	if inclusive {
		return v >= min
	}
	return v > min
}

// validID reports whether id can be a primary key. Anything else cannot
// exist, so callers answer "not found" without a round trip.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func requireID(kind, id string) error {
	if !validID(id) {
		return fmt.Errorf("%s %q: %w", kind, id, common.ErrorNotFound)
	}
	return nil
}

func validationError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", common.ErrorValidation, fmt.Sprintf(format, args...))
}

func requireUser(userID string) error {
	if strings.TrimSpace(userID) == "" {
		return common.ErrorUnauthorized
	}
	return nil
}
