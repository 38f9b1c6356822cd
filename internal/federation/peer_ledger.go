package federation

import (
	"context"
	"time"

	"github.com/ofscp/server/internal/domain"
	"github.com/ofscp/server/internal/store"
)

// PeerLedger tracks outbound call reliability per remote domain, a
// generalization of the teacher's federation trust_ledger score-keeping
// into a plain success/failure counter this spec's reliability surface
// actually needs.
type PeerLedger struct {
	db store.DocumentStore
}

func NewPeerLedger(db store.DocumentStore) *PeerLedger {
	return &PeerLedger{db: db}
}

// RecordOutcome updates remoteDomain's record after one outbound call.
func (l *PeerLedger) RecordOutcome(ctx context.Context, remoteDomain string, success bool, callErr error) {
	var rec domain.PeerRecord
	if err := l.db.Get(ctx, store.CollectionFederationPeers, remoteDomain, &rec); err != nil {
		rec = domain.PeerRecord{Domain: remoteDomain}
	}
	if success {
		rec.SuccessCount++
		rec.LastError = ""
	} else {
		rec.FailureCount++
		if callErr != nil {
			rec.LastError = callErr.Error()
		}
	}
	rec.LastSeenAt = time.Now().UTC()

	if l.db.Update(ctx, store.CollectionFederationPeers, remoteDomain, map[string]interface{}{
		"successCount": rec.SuccessCount,
		"failureCount": rec.FailureCount,
		"lastSeenAt":   rec.LastSeenAt,
		"lastError":    rec.LastError,
	}) != nil {
		_ = l.db.Insert(ctx, store.CollectionFederationPeers, remoteDomain, rec)
	}
}

// Get returns remoteDomain's current reliability record.
func (l *PeerLedger) Get(ctx context.Context, remoteDomain string) (domain.PeerRecord, error) {
	var rec domain.PeerRecord
	if err := l.db.Get(ctx, store.CollectionFederationPeers, remoteDomain, &rec); err != nil {
		return domain.PeerRecord{Domain: remoteDomain}, nil
	}
	return rec, nil
}
