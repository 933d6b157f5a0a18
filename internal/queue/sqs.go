package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"

	"github.com/fpang/case-insights/internal/retry"
)

// SQSQueue implements Queue over one SQS queue URL. Redelivery and
// dead-lettering are handled by the queue's redrive policy; this type only
// sends.
type SQSQueue struct {
	client   *sqs.Client
	queueURL string
	policy   retry.Policy
}

// Compile-time interface check.
var _ Queue = (*SQSQueue)(nil)

// NewSQSQueue creates an SQSQueue for the given queue URL.
// The client should be initialized from the shared AWS config.
func NewSQSQueue(client *sqs.Client, queueURL string) *SQSQueue {
	return &SQSQueue{
		client:   client,
		queueURL: queueURL,
		policy:   retry.Default,
	}
}

func (q *SQSQueue) Send(ctx context.Context, msg interface{}) (string, error) {
	body, err := json.Marshal(msg)
	if err != nil {
		return "", fmt.Errorf("marshal queue message: %w", err)
	}

	var messageID string
	err = q.policy.Do(ctx, "sqs:SendMessage", func(ctx context.Context) error {
		result, err := q.client.SendMessage(ctx, &sqs.SendMessageInput{
			QueueUrl:    aws.String(q.queueURL),
			MessageBody: aws.String(string(body)),
		})
		if err != nil {
			return err
		}
		messageID = aws.ToString(result.MessageId)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("SQS SendMessage %s: %w", q.queueURL, err)
	}
	return messageID, nil
}
