package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/rs/zerolog"

	"github.com/janhq/jan-workspace/internal/configs"
	"github.com/janhq/jan-workspace/internal/domain/embedding"
)

// sqsAPI is the subset of the SQS client the queue uses.
type sqsAPI interface {
	SendMessageBatch(ctx context.Context, params *sqs.SendMessageBatchInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageBatchOutput, error)
	ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessageBatch(ctx context.Context, params *sqs.DeleteMessageBatchInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageBatchOutput, error)
}

// SQSQueue publishes and consumes embedding work units on an SQS queue.
type SQSQueue struct {
	client   sqsAPI
	queueURL string
	wait     time.Duration
	log      zerolog.Logger
}

var (
	_ embedding.Publisher = (*SQSQueue)(nil)
	_ embedding.Consumer  = (*SQSQueue)(nil)
)

func NewSQSQueue(ctx context.Context, cfg *configs.Config, log zerolog.Logger) (*SQSQueue, error) {
	logger := log.With().Str("component", "sqs-queue").Logger()

	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.AWSRegion)}
	accessKey := strings.TrimSpace(cfg.AWSAccessKeyID)
	secretKey := strings.TrimSpace(cfg.AWSSecretAccessKey)
	if accessKey != "" && secretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(accessKey, secretKey, "")))
	}
	if cfg.SQSEndpoint != "" {
		resolver := aws.EndpointResolverWithOptionsFunc(func(service, region string, options ...interface{}) (aws.Endpoint, error) {
			return aws.Endpoint{
				URL:           cfg.SQSEndpoint,
				PartitionID:   "aws",
				SigningRegion: cfg.AWSRegion,
			}, nil
		})
		opts = append(opts, awsconfig.WithEndpointResolverWithOptions(resolver))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	return newSQSQueue(sqs.NewFromConfig(awsCfg), cfg.SQSQueueURL, cfg.WorkerPollWait, logger), nil
}

func newSQSQueue(client sqsAPI, queueURL string, wait time.Duration, log zerolog.Logger) *SQSQueue {
	return &SQSQueue{client: client, queueURL: queueURL, wait: wait, log: log}
}

// PublishBatch implements embedding.Publisher.
func (q *SQSQueue) PublishBatch(ctx context.Context, messages []embedding.QueueMessage) ([]string, error) {
	if len(messages) == 0 {
		return nil, nil
	}
	if len(messages) > embedding.QueueBatchLimit {
		return nil, fmt.Errorf("sqs batch of %d exceeds the limit of %d", len(messages), embedding.QueueBatchLimit)
	}

	entries := make([]types.SendMessageBatchRequestEntry, 0, len(messages))
	for _, m := range messages {
		body, err := json.Marshal(m.Unit)
		if err != nil {
			return nil, fmt.Errorf("encode work unit %s: %w", m.Unit.MessageID, err)
		}
		attrs := make(map[string]types.MessageAttributeValue, len(m.Attributes))
		for k, v := range m.Attributes {
			attrs[k] = types.MessageAttributeValue{DataType: aws.String("String"), StringValue: aws.String(v)}
		}
		entries = append(entries, types.SendMessageBatchRequestEntry{
			Id:                aws.String(m.ID),
			MessageBody:       aws.String(string(body)),
			MessageAttributes: attrs,
		})
	}

	out, err := q.client.SendMessageBatch(ctx, &sqs.SendMessageBatchInput{
		QueueUrl: aws.String(q.queueURL),
		Entries:  entries,
	})
	if err != nil {
		return nil, fmt.Errorf("sqs send batch: %w", err)
	}

	failed := make([]string, 0, len(out.Failed))
	for _, f := range out.Failed {
		id := aws.ToString(f.Id)
		q.log.Warn().
			Str("entry_id", id).
			Str("code", aws.ToString(f.Code)).
			Str("reason", aws.ToString(f.Message)).
			Msg("sqs rejected batch entry")
		failed = append(failed, id)
	}
	return failed, nil
}

// Receive implements embedding.Consumer. It long-polls for up to the configured wait.
func (q *SQSQueue) Receive(ctx context.Context, limit int) ([]embedding.Delivery, error) {
	limit = min(max(limit, 1), embedding.QueueBatchLimit)
	waitSeconds := int32(min(q.wait/time.Second, 20))

	out, err := q.client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
		QueueUrl:              aws.String(q.queueURL),
		MaxNumberOfMessages:   int32(limit),
		WaitTimeSeconds:       waitSeconds,
		MessageAttributeNames: []string{"All"},
	})
	if err != nil {
		return nil, fmt.Errorf("sqs receive: %w", err)
	}

	deliveries := make([]embedding.Delivery, 0, len(out.Messages))
	var poison []embedding.Delivery
	for _, m := range out.Messages {
		d := embedding.Delivery{Handle: aws.ToString(m.ReceiptHandle)}
		if err := json.Unmarshal([]byte(aws.ToString(m.Body)), &d.Unit); err != nil || d.Unit.MessageID == "" {
			q.log.Error().Err(err).Str("sqs_message_id", aws.ToString(m.MessageId)).Msg("dropping undecodable work unit")
			poison = append(poison, d)
			continue
		}
		deliveries = append(deliveries, d)
	}
	if len(poison) > 0 {
		if err := q.Ack(ctx, poison); err != nil {
			q.log.Warn().Err(err).Msg("failed to delete undecodable work units")
		}
	}
	return deliveries, nil
}

// Ack implements embedding.Consumer by deleting the messages.
func (q *SQSQueue) Ack(ctx context.Context, deliveries []embedding.Delivery) error {
	for start := 0; start < len(deliveries); start += embedding.QueueBatchLimit {
		end := min(start+embedding.QueueBatchLimit, len(deliveries))
		entries := make([]types.DeleteMessageBatchRequestEntry, 0, end-start)
		for i, d := range deliveries[start:end] {
			entries = append(entries, types.DeleteMessageBatchRequestEntry{
				Id:            aws.String(fmt.Sprintf("%d", start+i)),
				ReceiptHandle: aws.String(d.Handle),
			})
		}
		out, err := q.client.DeleteMessageBatch(ctx, &sqs.DeleteMessageBatchInput{
			QueueUrl: aws.String(q.queueURL),
			Entries:  entries,
		})
		if err != nil {
			return fmt.Errorf("sqs delete batch: %w", err)
		}
		if len(out.Failed) > 0 {
			return fmt.Errorf("sqs delete batch: %d of %d entries failed", len(out.Failed), len(entries))
		}
	}
	return nil
}
