package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	clientdomain "github.com/smallbiznis/paystub/internal/client/domain"
	"github.com/smallbiznis/paystub/internal/paystub/calculator"
)

// AdvanceRequest commits one calculated period for a client.
type AdvanceRequest struct {
	ClientID     snowflake.ID
	Result       calculator.Result
	Date         *time.Time
	PayFrequency string
	// ExpectedVersion makes the commit conditional on the client version the
	// calculation was based on.
	ExpectedVersion *int64
}

type AdvanceResult struct {
	Client  clientdomain.Client `json:"client"`
	Paystub Paystub             `json:"paystub"`
}

type Service interface {
	Advance(ctx context.Context, req AdvanceRequest) (AdvanceResult, error)
	List(ctx context.Context, clientID string) ([]Paystub, error)
	Get(ctx context.Context, clientID, paystubID string) (clientdomain.Client, Paystub, error)
	Delete(ctx context.Context, clientID, paystubID string) error
	RecomputeClientYTD(ctx context.Context, clientID string) (clientdomain.Client, error)
}

// CommitLocker serializes commits for one client across replicas.
type CommitLocker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (string, bool, error)
	Release(ctx context.Context, key, token string) error
}

var (
	ErrInvalidPayFrequency = errors.New("invalid_pay_frequency")
	ErrInvalidID           = errors.New("invalid_id")
	ErrInvalidResult       = errors.New("invalid_result")
	ErrNotFound            = errors.New("not_found")
	ErrVersionConflict     = errors.New("version_conflict")
	ErrCommitInProgress    = errors.New("commit_in_progress")
)
