package utils

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nqluong/appointment-project-sub001/internal/pkg/constvars"
)

// GenerateRequestID produces the request id attached to every inbound request.
func GenerateRequestID() string {
	return constvars.REQUEST_ID_PREFIX + uuid.NewString()
}

// GenerateTransactionRef builds the merchant-side transaction reference sent
// to the gateway. The creation timestamp is embedded so the original
// transaction date can be reconstructed for refund signing without a
// database round-trip.
func GenerateTransactionRef(now time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("%s-%s", now.Format(constvars.VNPDateLayout), suffix)
}

// ParseTransactionRefTime recovers the embedded creation timestamp from a
// transaction reference produced by GenerateTransactionRef.
func ParseTransactionRefTime(ref string, loc *time.Location) (time.Time, error) {
	parts := strings.SplitN(ref, "-", 2)
	if len(parts) != 2 {
		return time.Time{}, fmt.Errorf("transaction ref %q has no timestamp segment", ref)
	}
	return time.ParseInLocation(constvars.VNPDateLayout, parts[0], loc)
}
