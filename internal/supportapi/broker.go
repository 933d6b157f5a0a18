// Package supportapi retrieves support cases and their communications from
// member accounts. Access goes through a cross-account credential broker:
// each member account provisions a read-only role that the pipeline assumes
// before calling the Support API.
//
// Two failure classes are expected and non-fatal: the role may not exist in
// an account (trust not provisioned), and an account may lack the support
// tier that enables the API at all. Both are surfaced as typed errors so the
// retriever can skip the account without alerting noise.
package supportapi

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/aws/smithy-go"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/fpang/case-insights/internal/retry"
)

// ErrRoleUnavailable wraps a role-assumption failure: the target account has
// not provisioned the cross-account trust relationship.
var ErrRoleUnavailable = errors.New("cross-account role unavailable")

// ErrNotEntitled wraps a Support API rejection for accounts without the
// required support tier. An expected outcome, not an error condition.
var ErrNotEntitled = errors.New("account not entitled to the Support API")

// Broker returns a case client scoped to one member account.
type Broker interface {
	ForAccount(ctx context.Context, accountID string) (CaseClient, error)
}

// STSBroker implements Broker by assuming the named role in the target
// account and building a Support client from the temporary credentials.
type STSBroker struct {
	stsClient *sts.Client
	baseCfg   aws.Config
	roleName  string
	policy    retry.Policy
}

// Compile-time interface check.
var _ Broker = (*STSBroker)(nil)

// NewSTSBroker creates a broker that assumes roleName in each target account.
func NewSTSBroker(cfg aws.Config, roleName string) *STSBroker {
	return &STSBroker{
		stsClient: sts.NewFromConfig(cfg),
		baseCfg:   cfg,
		roleName:  roleName,
		policy:    retry.Default,
	}
}

// ForAccount assumes the broker's role in the given account and returns a
// CaseClient bound to the resulting credentials. Returns ErrRoleUnavailable
// (wrapped) when the assumption is denied.
func (b *STSBroker) ForAccount(ctx context.Context, accountID string) (CaseClient, error) {
	roleARN := fmt.Sprintf("arn:aws:iam::%s:role/%s", accountID, b.roleName)
	sessionName := "CaseInsights-" + uuid.NewString()

	var creds aws.Credentials
	err := b.policy.Do(ctx, "sts:AssumeRole", func(ctx context.Context) error {
		result, err := b.stsClient.AssumeRole(ctx, &sts.AssumeRoleInput{
			RoleArn:         aws.String(roleARN),
			RoleSessionName: aws.String(sessionName),
		})
		if err != nil {
			if isAccessDenied(err) {
				return retry.Abort(fmt.Errorf("%w: %s: %v", ErrRoleUnavailable, roleARN, err))
			}
			return err
		}
		creds = aws.Credentials{
			AccessKeyID:     aws.ToString(result.Credentials.AccessKeyId),
			SecretAccessKey: aws.ToString(result.Credentials.SecretAccessKey),
			SessionToken:    aws.ToString(result.Credentials.SessionToken),
			Expires:         aws.ToTime(result.Credentials.Expiration),
			CanExpire:       true,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Debug().
		Str("accountId", accountID).
		Str("role", b.roleName).
		Time("expires", creds.Expires).
		Msg("Cross-account role assumed")

	cfg := b.baseCfg.Copy()
	cfg.Credentials = credentials.NewStaticCredentialsProvider(
		creds.AccessKeyID, creds.SecretAccessKey, creds.SessionToken)

	return newSupportClient(cfg, b.policy), nil
}

// isAccessDenied reports whether err is an access-denied-class API error.
func isAccessDenied(err error) bool {
	var apiErr smithy.APIError
	return errors.As(err, &apiErr) && apiErr.ErrorCode() == "AccessDenied"
}

// isNotEntitled reports whether err means the account lacks the support tier
// or API access required for support-case reads.
func isNotEntitled(err error) bool {
	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	switch apiErr.ErrorCode() {
	case "SubscriptionRequiredException", "AccessDeniedException":
		return true
	}
	return false
}

// ResolvedWindow is the trailing window for case retrieval: resolved cases
// from the last 12 months.
const ResolvedWindow = 365 * 24 * time.Hour
