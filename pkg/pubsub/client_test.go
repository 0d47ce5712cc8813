package pubsub

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/angelmondragon/clips-backend/pkg/config"
)

func TestResourceName(t *testing.T) {
	cases := []struct {
		kind, in, want string
	}{
		{"topics", "clips", "projects/proj/topics/clips"},
		{"topics", " clips ", "projects/proj/topics/clips"},
		{"topics", "projects/other/topics/x", "projects/other/topics/x"},
		{"subscriptions", "sub", "projects/proj/subscriptions/sub"},
		{"subscriptions", "", ""},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, resourceName("proj", tc.kind, tc.in), "%s %q", tc.kind, tc.in)
	}
}

func TestSubscriptionSpecClampsAckDeadline(t *testing.T) {
	for deadline, want := range map[time.Duration]int32{
		0:                0,
		5 * time.Second:  10,
		90 * time.Second: 90,
		time.Hour:        600,
	} {
		spec := subscriptionSpec("projects/p/subscriptions/s", "projects/p/topics/t", config.PubSubConfig{AckDeadline: deadline})
		assert.Equal(t, want, spec.GetAckDeadlineSeconds(), "deadline %s", deadline)
		assert.Equal(t, "projects/p/topics/t", spec.GetTopic())
		assert.Equal(t, messageRetention, spec.GetMessageRetentionDuration().AsDuration())
	}
}

func TestClientOptionsPreferEmulator(t *testing.T) {
	gcpCfg := config.GCPConfig{CredentialsJSON: `{"type":"service_account"}`}
	assert.Len(t, clientOptions(gcpCfg, config.PubSubConfig{}), 1)
	assert.Len(t, clientOptions(gcpCfg, config.PubSubConfig{EmulatorHost: "localhost:8085"}), 3)
}

func TestNilClientHandles(t *testing.T) {
	var c *Client
	assert.Nil(t, c.Publisher("clips"))
	assert.Nil(t, c.ClipsSubscription())
	assert.NoError(t, c.Close())
	assert.ErrorIs(t, c.Ping(context.Background()), errNotInitialized)
}

func TestNewClientValidatesConfig(t *testing.T) {
	_, err := NewClient(context.Background(), config.GCPConfig{}, config.PubSubConfig{ClipsTopic: "t"}, nil)
	assert.ErrorIs(t, err, errProjectIDRequired)
	_, err = NewClient(context.Background(), config.GCPConfig{ProjectID: "p"}, config.PubSubConfig{}, nil)
	assert.ErrorIs(t, err, errNoTopic)
}
