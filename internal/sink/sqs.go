package sink

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"

	"github.com/PratikDhanave/pixel-analytics-bridge/internal/auth"
	"github.com/PratikDhanave/pixel-analytics-bridge/internal/models"
)

// SQSAPI is the part of the SQS client the sink needs.
type SQSAPI interface {
	SendMessage(ctx context.Context, in *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// SQS sends each record as one message body, with the event name as a message attribute.
type SQS struct {
	client   SQSAPI
	queueURL string
}

// NewSQSFromEnv builds a client from the default AWS credential chain.
// AWS_ENDPOINT_URL_SQS or AWS_ENDPOINT_URL point it at LocalStack.
func NewSQSFromEnv(ctx context.Context, queueURL string) (*SQS, error) {
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}
	return NewSQS(sqs.NewFromConfig(cfg), queueURL), nil
}

func NewSQS(client SQSAPI, queueURL string) *SQS {
	return &SQS{client: client, queueURL: queueURL}
}

func (s *SQS) Emit(ctx context.Context, r models.Record) error {
	b, err := encode(r)
	if err != nil {
		return err
	}

	attrs := map[string]types.MessageAttributeValue{
		"event": {DataType: aws.String("String"), StringValue: aws.String(r.Event())},
	}
	// SQS rejects empty string attributes.
	if tenant := auth.Tenant(ctx); tenant != "" {
		attrs["tenant"] = types.MessageAttributeValue{DataType: aws.String("String"), StringValue: aws.String(tenant)}
	}

	_, err = s.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:          aws.String(s.queueURL),
		MessageBody:       aws.String(string(b)),
		MessageAttributes: attrs,
	})
	if err != nil {
		return fmt.Errorf("sqs send: %w", err)
	}
	return nil
}
