// Package rolegrant tells the identity service that a user became a stylist.
package rolegrant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/okian/stylematch/pkg/logger"
	"github.com/okian/stylematch/pkg/metrics"
)

// RoleStylist is the role granted on a user's first published offering.
const RoleStylist = "STYLIST"

const (
	contentType    = "application/json"
	defaultTimeout = 2 * time.Second
	userAgent      = "stylematch/rolegrant"
)

// Granter grants the stylist role to a user.
type Granter interface {
	GrantStylist(ctx context.Context, userID string) error
}

type grantRequest struct {
	UserID string `json:"userId"`
	Role   string `json:"role"`
}

// HTTPGranter posts role grants to an identity endpoint. The Idempotency-Key
// is derived from the user and role, so repeated grants for one user,
// including ones from other replicas, carry the same key.
type HTTPGranter struct {
	URL        string
	HTTPClient *http.Client
	log        logger.Logger
}

// NewHTTPGranter creates a granter posting to url.
func NewHTTPGranter(url string, opts ...Option) *HTTPGranter {
	g := &HTTPGranter{
		URL:        url,
		HTTPClient: &http.Client{Timeout: defaultTimeout},
		log:        logger.Get().Named("rolegrant"),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// GrantStylist posts {"userId": userID, "role": "STYLIST"}. Any 2xx answer
// counts as granted.
func (g *HTTPGranter) GrantStylist(ctx context.Context, userID string) error {
	const op = "rolegrant.grant_stylist"
	if strings.TrimSpace(userID) == "" {
		return fmt.Errorf("%s: %w", op, ErrMissingUser)
	}

	body, err := json.Marshal(grantRequest{UserID: userID, Role: RoleStylist})
	if err != nil {
		return fmt.Errorf("%s: encode: %w", op, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%s: build request: %w", op, err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Idempotency-Key", idempotencyKey(userID))

	g.log.Debug(ctx, "granting role", logger.String("user_id", userID), logger.String("url", g.URL))
	resp, err := g.HTTPClient.Do(req)
	if err != nil {
		metrics.RecordRoleGrant("error")
		return fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		metrics.RecordRoleGrant("rejected")
		return fmt.Errorf("%s: %w: %s", op, ErrBadStatus, resp.Status)
	}
	metrics.RecordRoleGrant("granted")
	return nil
}

// idempotencyKey is a name-based UUID of the role and user.
func idempotencyKey(userID string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(strings.ToLower(RoleStylist)+":"+userID)).String()
}

// NopGranter only logs grants. It is used when no identity endpoint is configured.
type NopGranter struct {
	Log logger.Logger
}

// GrantStylist logs the grant and returns nil.
func (n NopGranter) GrantStylist(ctx context.Context, userID string) error {
	l := n.Log
	if l == nil {
		l = logger.Get().Named("rolegrant")
	}
	l.Info(ctx, "role grant skipped, no identity endpoint", logger.String("user_id", userID), logger.String("role", RoleStylist))
	metrics.RecordRoleGrant("skipped")
	return nil
}
