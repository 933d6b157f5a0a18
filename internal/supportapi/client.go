package supportapi

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/support"
	"github.com/aws/aws-sdk-go-v2/service/support/types"
	"github.com/rs/zerolog/log"

	"github.com/fpang/case-insights/internal/casestore"
	"github.com/fpang/case-insights/internal/retry"
)

// CaseClient reads support cases from a single account.
type CaseClient interface {
	// ListResolvedCases returns resolved cases created after the given time.
	// Returns ErrNotEntitled (wrapped) when the account lacks Support API
	// access.
	ListResolvedCases(ctx context.Context, after time.Time) ([]casestore.RawCase, error)

	// Communications returns the full communication thread for a case.
	Communications(ctx context.Context, caseID string) ([]casestore.Communication, error)
}

type supportClient struct {
	client *support.Client
	policy retry.Policy
}

var _ CaseClient = (*supportClient)(nil)

func newSupportClient(cfg aws.Config, policy retry.Policy) *supportClient {
	return &supportClient{
		client: support.NewFromConfig(cfg),
		policy: policy,
	}
}

func (c *supportClient) ListResolvedCases(ctx context.Context, after time.Time) ([]casestore.RawCase, error) {
	var cases []casestore.RawCase
	var nextToken *string
	afterTime := after.UTC().Format(time.RFC3339)

	for {
		var out *support.DescribeCasesOutput
		err := c.policy.Do(ctx, "support:DescribeCases", func(ctx context.Context) error {
			var err error
			out, err = c.client.DescribeCases(ctx, &support.DescribeCasesInput{
				AfterTime:             aws.String(afterTime),
				IncludeResolvedCases:  true,
				IncludeCommunications: aws.Bool(false),
				MaxResults:            aws.Int32(100),
				NextToken:             nextToken,
			})
			if err != nil && isNotEntitled(err) {
				return retry.Abort(fmt.Errorf("%w: %v", ErrNotEntitled, err))
			}
			return err
		})
		if err != nil {
			return nil, err
		}

		for _, cd := range out.Cases {
			if aws.ToString(cd.Status) != "resolved" {
				continue
			}
			cases = append(cases, caseFromDetails(cd))
		}

		if out.NextToken == nil {
			break
		}
		nextToken = out.NextToken
	}

	log.Debug().Int("cases", len(cases)).Str("afterTime", afterTime).Msg("Resolved cases listed")
	return cases, nil
}

func (c *supportClient) Communications(ctx context.Context, caseID string) ([]casestore.Communication, error) {
	var comms []casestore.Communication
	var nextToken *string

	for {
		var out *support.DescribeCommunicationsOutput
		err := c.policy.Do(ctx, "support:DescribeCommunications", func(ctx context.Context) error {
			var err error
			out, err = c.client.DescribeCommunications(ctx, &support.DescribeCommunicationsInput{
				CaseId:     aws.String(caseID),
				MaxResults: aws.Int32(100),
				NextToken:  nextToken,
			})
			if err != nil && isNotEntitled(err) {
				return retry.Abort(fmt.Errorf("%w: %v", ErrNotEntitled, err))
			}
			return err
		})
		if err != nil {
			return nil, err
		}

		for _, cm := range out.Communications {
			comms = append(comms, casestore.Communication{
				Body:        aws.ToString(cm.Body),
				SubmittedBy: aws.ToString(cm.SubmittedBy),
				TimeCreated: aws.ToString(cm.TimeCreated),
			})
		}

		if out.NextToken == nil {
			break
		}
		nextToken = out.NextToken
	}

	return comms, nil
}

func caseFromDetails(cd types.CaseDetails) casestore.RawCase {
	return casestore.RawCase{
		CaseID:       aws.ToString(cd.CaseId),
		DisplayID:    aws.ToString(cd.DisplayId),
		Subject:      aws.ToString(cd.Subject),
		Status:       aws.ToString(cd.Status),
		ServiceCode:  aws.ToString(cd.ServiceCode),
		CategoryCode: aws.ToString(cd.CategoryCode),
		SeverityCode: aws.ToString(cd.SeverityCode),
		SubmittedBy:  aws.ToString(cd.SubmittedBy),
		TimeCreated:  aws.ToString(cd.TimeCreated),
	}
}
