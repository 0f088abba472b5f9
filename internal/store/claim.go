package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ClaimKind is the document kind of claim records.
const ClaimKind = "launch_claim"

// DefaultClaimTTL bounds how long a crashed owner can block a name.
const DefaultClaimTTL = 5 * time.Minute

var (
	// ErrClaimBusy is returned when another owner holds an unexpired claim.
	ErrClaimBusy = errors.New("claim busy")
	// ErrClaimStolen is returned when releasing a claim now owned by someone else.
	ErrClaimStolen = errors.New("claim held by another owner")
)

// ClaimRecord is the stored body of a claim.
type ClaimRecord struct {
	Key       string    `json:"key"`
	Owner     string    `json:"owner"`
	Nonce     string    `json:"nonce"`
	Expires   time.Time `json:"expires"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Claims hands out exclusive, expiring claims on keys using the store's
// revision check as compare-and-swap.
type Claims struct {
	s     Store
	owner string
	ttl   time.Duration
	now   func() time.Time
}

// NewClaims returns a claim client. An empty owner gets a random id.
func NewClaims(s Store, owner string, ttl time.Duration) *Claims {
	if owner == "" {
		owner = uuid.NewString()
	}
	if ttl <= 0 {
		ttl = DefaultClaimTTL
	}
	return &Claims{s: s, owner: owner, ttl: ttl, now: func() time.Time { return time.Now().UTC() }}
}

// Owner reports the id this client claims under.
func (c *Claims) Owner() string { return c.owner }

func claimID(key string) string { return "claim:" + key }

// Claim takes key if it is free or expired and returns the nonce needed to
// release it.
func (c *Claims) Claim(ctx context.Context, key string) (string, error) {
	id := claimID(key)
	doc, err := c.s.Get(ctx, id)
	switch {
	case errors.Is(err, ErrNotFound):
		rev, rerr := currentRev(ctx, c.s, id)
		if rerr != nil {
			return "", rerr
		}
		doc = Document{ID: id, Rev: rev}
	case err != nil:
		return "", err
	default:
		var old ClaimRecord
		if json.Unmarshal(doc.Body, &old) == nil && old.Owner != "" && old.Expires.After(c.now()) {
			return "", fmt.Errorf("%w: %s held by %s", ErrClaimBusy, key, old.Owner)
		}
	}
	now := c.now()
	rec := ClaimRecord{Key: key, Owner: c.owner, Nonce: uuid.NewString(), Expires: now.Add(c.ttl), UpdatedAt: now}
	body, err := json.Marshal(rec)
	if err != nil {
		return "", err
	}
	doc.Kind, doc.Body, doc.Deleted = ClaimKind, body, false
	if _, err := c.s.Put(ctx, doc); err != nil {
		if errors.Is(err, ErrConflict) {
			return "", fmt.Errorf("%w: %s", ErrClaimBusy, key)
		}
		return "", err
	}
	return rec.Nonce, nil
}

// Release expires a claim held with nonce.
func (c *Claims) Release(ctx context.Context, key, nonce string) error {
	doc, err := c.s.Get(ctx, claimID(key))
	if err != nil {
		return err
	}
	var cur ClaimRecord
	if err := json.Unmarshal(doc.Body, &cur); err != nil {
		return err
	}
	if cur.Owner != c.owner || cur.Nonce != nonce {
		return ErrClaimStolen
	}
	now := c.now()
	cur.Expires = now.Add(-time.Second)
	cur.UpdatedAt = now
	if doc.Body, err = json.Marshal(cur); err != nil {
		return err
	}
	_, err = c.s.Put(ctx, doc)
	return err
}
