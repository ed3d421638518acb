package aws

import (
	"context"
	"encoding/json"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"

	"mongodb-connector/internal/common/audit"
	"mongodb-connector/internal/common/logger"
)

// SNSService is the subset of the SNS API used for notifications.
type SNSService interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

func NewSNSClient(ctx context.Context, region string) (*sns.Client, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, err
	}
	return sns.NewFromConfig(cfg), nil
}

// SNSNotifier publishes a JSON summary of every finished run to one topic.
type SNSNotifier struct {
	client   SNSService
	topicARN string
	logger   logger.Logger
}

func NewSNSNotifier(client SNSService, topicARN string, log logger.Logger) *SNSNotifier {
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &SNSNotifier{client: client, topicARN: topicARN, logger: log}
}

func (n *SNSNotifier) Report(ctx context.Context, run audit.Run) {
	if err := n.NotifyRun(ctx, run); err != nil {
		n.logger.Warn("Failed to publish run notification", map[string]interface{}{
			"runId":    run.ID.String(),
			"topicArn": n.topicARN,
			"error":    err.Error(),
		})
	}
}

func (n *SNSNotifier) NotifyRun(ctx context.Context, run audit.Run) error {
	body, err := json.Marshal(run)
	if err != nil {
		return err
	}

	_, err = n.client.Publish(ctx, &sns.PublishInput{
		TopicArn: awssdk.String(n.topicARN),
		Subject:  awssdk.String("mongodb-connector " + run.Operation + " " + string(run.Status)),
		Message:  awssdk.String(string(body)),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"operation": {DataType: awssdk.String("String"), StringValue: awssdk.String(run.Operation)},
			"status":    {DataType: awssdk.String("String"), StringValue: awssdk.String(string(run.Status))},
		},
	})
	return err
}
