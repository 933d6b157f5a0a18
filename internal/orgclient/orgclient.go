// Package orgclient enumerates the organization's active accounts via the
// AWS Organizations API.
package orgclient

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/organizations"
	"github.com/aws/aws-sdk-go-v2/service/organizations/types"
	"github.com/rs/zerolog/log"

	"github.com/fpang/case-insights/internal/casestore"
)

// AccountLister returns the organization's current active account set.
// Read-only; eventual consistency is acceptable for a daily snapshot.
type AccountLister interface {
	ListActiveAccounts(ctx context.Context) ([]casestore.Account, error)
}

// OrgClient implements AccountLister over the Organizations API.
type OrgClient struct {
	client *organizations.Client
}

// Compile-time interface check.
var _ AccountLister = (*OrgClient)(nil)

// New creates an OrgClient from the shared AWS config.
func New(cfg aws.Config) *OrgClient {
	return &OrgClient{client: organizations.NewFromConfig(cfg)}
}

// ListActiveAccounts pages through ListAccounts and keeps only ACTIVE
// accounts. Suspended and pending-closure accounts are excluded from the
// snapshot so downstream stages never attempt role assumption against them.
func (o *OrgClient) ListActiveAccounts(ctx context.Context) ([]casestore.Account, error) {
	var accounts []casestore.Account

	paginator := organizations.NewListAccountsPaginator(o.client, &organizations.ListAccountsInput{})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("organizations ListAccounts: %w", err)
		}
		for _, acct := range page.Accounts {
			if acct.Status != types.AccountStatusActive {
				continue
			}
			accounts = append(accounts, casestore.Account{
				ID:   aws.ToString(acct.Id),
				Name: aws.ToString(acct.Name),
			})
		}
	}

	log.Info().Int("count", len(accounts)).Msg("Active accounts enumerated")
	return accounts, nil
}
