package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/rs/zerolog/log"
)

// DynamoDB key constants for the single-table design.
const (
	pkPrefix = "ACCOUNT#"
	skPrefix = "CASE#"
)

// DynamoStore implements StatusStore using AWS DynamoDB. All entries for an
// account share a partition key (ACCOUNT#{accountId}); the sort key is
// CASE#{caseId}.
type DynamoStore struct {
	client    *dynamodb.Client
	tableName string
}

// Compile-time interface check.
var _ StatusStore = (*DynamoStore)(nil)

// NewDynamoStore creates a DynamoStore for the given table.
// The client should be initialized from the shared AWS config.
func NewDynamoStore(client *dynamodb.Client, tableName string) *DynamoStore {
	return &DynamoStore{
		client:    client,
		tableName: tableName,
	}
}

func accountPK(accountID string) string {
	return pkPrefix + accountID
}

func caseSK(caseID string) string {
	return skPrefix + caseID
}

// transitionCondition builds the PutItem condition for a state change: a new
// entry requires the item to still be absent, an existing one requires the
// stored state to still be the one the transition validated against.
func transitionCondition(current *Entry) (string, map[string]string, map[string]types.AttributeValue) {
	if current == nil {
		return "attribute_not_exists(PK)", nil, nil
	}
	return "#state = :from",
		map[string]string{"#state": "state"},
		map[string]types.AttributeValue{
			":from": &types.AttributeValueMemberS{Value: string(current.State)},
		}
}

// keyAttrs builds the PK/SK attribute map for one case.
func keyAttrs(accountID, caseID string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: accountPK(accountID)},
		"SK": &types.AttributeValueMemberS{Value: caseSK(caseID)},
	}
}

func (d *DynamoStore) Get(ctx context.Context, accountID, caseID string) (*Entry, error) {
	result, err := d.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(d.tableName),
		Key:       keyAttrs(accountID, caseID),
	})
	if err != nil {
		return nil, fmt.Errorf("ledger GetItem %s/%s: %w", accountID, caseID, err)
	}
	if result.Item == nil {
		return nil, nil
	}

	var entry Entry
	if err := attributevalue.UnmarshalMap(result.Item, &entry); err != nil {
		return nil, fmt.Errorf("ledger unmarshal %s/%s: %w", accountID, caseID, err)
	}
	entry.AccountID = accountID
	entry.CaseID = caseID
	return &entry, nil
}

func (d *DynamoStore) Transition(ctx context.Context, accountID, caseID string, to State) error {
	current, err := d.Get(ctx, accountID, caseID)
	if err != nil {
		return err
	}

	if current == nil {
		if to != StateRetrieved {
			return &ErrBadTransition{From: "", To: to}
		}
	} else if !current.State.CanTransitionTo(to) {
		return &ErrBadTransition{From: current.State, To: to}
	}

	entry := Entry{State: to, UpdatedAt: time.Now().UTC()}
	item, err := attributevalue.MarshalMap(entry)
	if err != nil {
		return fmt.Errorf("ledger marshal %s/%s: %w", accountID, caseID, err)
	}
	item["PK"] = &types.AttributeValueMemberS{Value: accountPK(accountID)}
	item["SK"] = &types.AttributeValueMemberS{Value: caseSK(caseID)}

	// The condition pins the write to the state observed above so two
	// concurrent transitions cannot both validate against it and race the put.
	expr, names, values := transitionCondition(current)
	if _, err := d.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:                 aws.String(d.tableName),
		Item:                      item,
		ConditionExpression:       aws.String(expr),
		ExpressionAttributeNames:  names,
		ExpressionAttributeValues: values,
	}); err != nil {
		var conditionFailed *types.ConditionalCheckFailedException
		if errors.As(err, &conditionFailed) {
			return fmt.Errorf("ledger transition %s/%s to %s raced a concurrent update: %w", accountID, caseID, to, err)
		}
		return fmt.Errorf("ledger PutItem %s/%s: %w", accountID, caseID, err)
	}

	log.Debug().
		Str("accountId", accountID).
		Str("caseId", caseID).
		Str("state", string(to)).
		Msg("Case state transitioned")
	return nil
}

func (d *DynamoStore) ListByAccount(ctx context.Context, accountID string) ([]*Entry, error) {
	var entries []*Entry

	paginator := dynamodb.NewQueryPaginator(d.client, &dynamodb.QueryInput{
		TableName:              aws.String(d.tableName),
		KeyConditionExpression: aws.String("PK = :pk AND begins_with(SK, :sk)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: accountPK(accountID)},
			":sk": &types.AttributeValueMemberS{Value: skPrefix},
		},
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("ledger Query %s: %w", accountID, err)
		}
		for _, item := range page.Items {
			var entry Entry
			if err := attributevalue.UnmarshalMap(item, &entry); err != nil {
				return nil, fmt.Errorf("ledger unmarshal query item: %w", err)
			}
			entry.AccountID = accountID
			if sk, ok := item["SK"].(*types.AttributeValueMemberS); ok {
				entry.CaseID = strings.TrimPrefix(sk.Value, skPrefix)
			}
			entries = append(entries, &entry)
		}
	}
	return entries, nil
}

func (d *DynamoStore) Delete(ctx context.Context, accountID, caseID string) error {
	if _, err := d.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(d.tableName),
		Key:       keyAttrs(accountID, caseID),
	}); err != nil {
		return fmt.Errorf("ledger DeleteItem %s/%s: %w", accountID, caseID, err)
	}
	return nil
}
