package pubsub

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	pubsub "cloud.google.com/go/pubsub/v2"
	"cloud.google.com/go/pubsub/v2/apiv1/pubsubpb"
	"google.golang.org/api/option"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/durationpb"

	"github.com/angelmondragon/clips-backend/pkg/config"
	"github.com/angelmondragon/clips-backend/pkg/gcp"
	"github.com/angelmondragon/clips-backend/pkg/logger"
)

const messageRetention = 7 * 24 * time.Hour

var (
	errProjectIDRequired = errors.New("gcp project id is required")
	errNoTopic           = errors.New("pubsub clips topic is required")
	errNotInitialized    = errors.New("pubsub client not initialized")
)

// Client wraps the Pub/Sub v2 client for the clips ledger topic and its
// analytics subscription.
type Client struct {
	client  *pubsub.Client
	project string
	cfg     config.PubSubConfig
}

// NewClient connects to Pub/Sub (or the emulator when configured) and checks
// that the clips topic and optional subscription exist. With cfg.AutoCreate
// missing resources are created instead.
func NewClient(ctx context.Context, gcpCfg config.GCPConfig, cfg config.PubSubConfig, logg *logger.Logger) (*Client, error) {
	project := strings.TrimSpace(gcpCfg.ProjectID)
	if project == "" {
		return nil, errProjectIDRequired
	}
	if strings.TrimSpace(cfg.ClipsTopic) == "" {
		return nil, errNoTopic
	}

	ps, err := pubsub.NewClient(ctx, project, clientOptions(gcpCfg, cfg)...)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}
	c := &Client{client: ps, project: project, cfg: cfg}
	if err := c.provision(ctx, logg); err != nil {
		_ = ps.Close()
		return nil, err
	}
	if logg != nil {
		logg.Info(logg.WithFields(ctx, map[string]any{
			"topic":        cfg.ClipsTopic,
			"subscription": cfg.ClipsSubscription,
			"emulator":     cfg.EmulatorHost != "",
		}), "pubsub client initialized")
	}
	return c, nil
}

func clientOptions(gcpCfg config.GCPConfig, cfg config.PubSubConfig) []option.ClientOption {
	host := strings.TrimSpace(cfg.EmulatorHost)
	if host == "" {
		return gcp.ClientOptions(gcpCfg)
	}
	return []option.ClientOption{
		option.WithEndpoint(host),
		option.WithoutAuthentication(),
		option.WithGRPCDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())),
	}
}

func (c *Client) provision(ctx context.Context, logg *logger.Logger) error {
	topic := c.topicName(c.cfg.ClipsTopic)
	created, err := c.ensureTopic(ctx, topic)
	if err != nil {
		return err
	}
	if created && logg != nil {
		logg.Info(logg.WithField(ctx, "topic", topic), "pubsub topic created")
	}

	if strings.TrimSpace(c.cfg.ClipsSubscription) == "" {
		return nil
	}
	sub := c.subscriptionName(c.cfg.ClipsSubscription)
	created, err = c.ensureSubscription(ctx, sub, topic)
	if err != nil {
		return err
	}
	if created && logg != nil {
		logg.Info(logg.WithField(ctx, "subscription", sub), "pubsub subscription created")
	}
	return nil
}

func (c *Client) ensureTopic(ctx context.Context, name string) (bool, error) {
	_, err := c.client.TopicAdminClient.GetTopic(ctx, &pubsubpb.GetTopicRequest{Topic: name})
	switch {
	case err == nil:
		return false, nil
	case status.Code(err) != codes.NotFound:
		return false, fmt.Errorf("checking topic %s: %w", name, err)
	case !c.cfg.AutoCreate:
		return false, fmt.Errorf("topic %s does not exist", name)
	}
	_, err = c.client.TopicAdminClient.CreateTopic(ctx, &pubsubpb.Topic{Name: name})
	if err != nil && status.Code(err) != codes.AlreadyExists {
		return false, fmt.Errorf("creating topic %s: %w", name, err)
	}
	return err == nil, nil
}

func (c *Client) ensureSubscription(ctx context.Context, name, topic string) (bool, error) {
	_, err := c.client.SubscriptionAdminClient.GetSubscription(ctx, &pubsubpb.GetSubscriptionRequest{Subscription: name})
	switch {
	case err == nil:
		return false, nil
	case status.Code(err) != codes.NotFound:
		return false, fmt.Errorf("checking subscription %s: %w", name, err)
	case !c.cfg.AutoCreate:
		return false, fmt.Errorf("subscription %s does not exist", name)
	}
	_, err = c.client.SubscriptionAdminClient.CreateSubscription(ctx, subscriptionSpec(name, topic, c.cfg))
	if err != nil && status.Code(err) != codes.AlreadyExists {
		return false, fmt.Errorf("creating subscription %s: %w", name, err)
	}
	return err == nil, nil
}

func subscriptionSpec(name, topic string, cfg config.PubSubConfig) *pubsubpb.Subscription {
	sub := &pubsubpb.Subscription{Name: name, Topic: topic}
	if secs := int32(cfg.AckDeadline.Seconds()); secs > 0 {
		sub.AckDeadlineSeconds = min(max(secs, 10), 600)
	}
	sub.MessageRetentionDuration = durationpb.New(messageRetention)
	return sub
}

// Publisher returns a publisher for a topic id or full resource name.
func (c *Client) Publisher(topic string) *pubsub.Publisher {
	if c == nil || c.client == nil || strings.TrimSpace(topic) == "" {
		return nil
	}
	return c.client.Publisher(c.topicName(topic))
}

// ClipsSubscription returns the analytics subscriber with the configured
// flow control, or nil when no subscription is configured.
func (c *Client) ClipsSubscription() *pubsub.Subscriber {
	if c == nil || c.client == nil || strings.TrimSpace(c.cfg.ClipsSubscription) == "" {
		return nil
	}
	sub := c.client.Subscriber(c.subscriptionName(c.cfg.ClipsSubscription))
	if c.cfg.MaxOutstanding > 0 {
		sub.ReceiveSettings.MaxOutstandingMessages = c.cfg.MaxOutstanding
	}
	return sub
}

// Ping re-checks that the configured topic and subscription still exist.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.client == nil {
		return errNotInitialized
	}
	return c.provision(ctx, nil)
}

func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

func (c *Client) topicName(name string) string {
	return resourceName(c.project, "topics", name)
}

func (c *Client) subscriptionName(name string) string {
	return resourceName(c.project, "subscriptions", name)
}

// resourceName expands a short id into projects/<project>/<kind>/<id>.
// Names that are already fully qualified pass through unchanged.
func resourceName(project, kind, name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	if strings.HasPrefix(name, "projects/") && strings.Contains(name, "/"+kind+"/") {
		return name
	}
	return "projects/" + project + "/" + kind + "/" + name
}
