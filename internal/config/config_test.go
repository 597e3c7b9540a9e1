package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prashantdesale0219/withoutplan-fx-sub000/internal/workflow"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("STORE_DRIVER", "")
	t.Setenv("IMAGE_TIMEOUT", "")

	cfg := Load()

	assert.Equal(t, "5000", cfg.Port)
	assert.Equal(t, StorePostgres, cfg.StoreDriver)
	assert.Equal(t, 120*time.Second, cfg.ImageTimeout)
	assert.Equal(t, 180*time.Second, cfg.VideoTimeout)
	assert.Equal(t, 10*time.Minute, cfg.OTPTTL)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("STORE_DRIVER", "Mongo")
	t.Setenv("IMAGE_TIMEOUT", "30")
	t.Setenv("VIDEO_TIMEOUT", "2m")
	t.Setenv("KAFKA_BROKERS", "a:9092, b:9092,")
	t.Setenv("N8N_IMAGE_EDIT_URL", "http://n8n/webhook/edit")

	cfg := Load()

	assert.Equal(t, StoreMongo, cfg.StoreDriver)
	assert.Equal(t, 30*time.Second, cfg.ImageTimeout)
	assert.Equal(t, 2*time.Minute, cfg.VideoTimeout)
	assert.Equal(t, []string{"a:9092", "b:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "http://n8n/webhook/edit", cfg.Workflows.ImageEdit)
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			Env:          "production",
			StoreDriver:  StorePostgres,
			DatabaseURL:  "postgres://x",
			JWTSecret:    "s3cret",
			JWTExpiresIn: time.Hour,
		}
	}

	require.NoError(t, base().Validate())

	cfg := base()
	cfg.JWTSecret = defaultJWTSecret
	assert.ErrorContains(t, cfg.Validate(), "JWT_SECRET")

	cfg = base()
	cfg.StoreDriver = StoreMemory
	assert.ErrorContains(t, cfg.Validate(), "memory store")

	cfg = base()
	cfg.StoreDriver = "sqlite"
	assert.ErrorContains(t, cfg.Validate(), "unknown STORE_DRIVER")

	cfg = base()
	cfg.Env = "development"
	cfg.StoreDriver = StoreMemory
	assert.NoError(t, cfg.Validate())
}

func TestWorkflowEndpoints(t *testing.T) {
	cfg := &Config{
		Workflows: WorkflowURLs{
			ImageEdit:   "http://n8n/webhook/edit",
			TextToVideo: "http://n8n/webhook/t2v",
		},
		ImageTimeout: 30 * time.Second,
		VideoTimeout: 5 * time.Minute,
	}

	endpoints := cfg.WorkflowEndpoints()
	require.Len(t, endpoints, 2)
	assert.Equal(t, 30*time.Second, endpoints[workflow.ModeImageEdit].Timeout)
	assert.Equal(t, 5*time.Minute, endpoints[workflow.ModeTextToVideo].Timeout)
	assert.Equal(t, "http://n8n/webhook/t2v", endpoints[workflow.ModeTextToVideo].URL)

	_, ok := endpoints[workflow.ModeAudioToVideo]
	assert.False(t, ok)
}
