package contracts

import "context"

// CallbackArchive stores the raw wire payload of verified gateway callbacks.
// Payments are never deleted; the archived payload is the audit evidence for
// each transition driven from the outside.
type CallbackArchive interface {
	ArchiveCallback(ctx context.Context, transactionRef string, params map[string]string) error
}
