package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "disabled skips checks", mutate: func(c *Config) { c.Endpoint = "" }},
		{name: "enabled local insecure", mutate: func(c *Config) { c.Enabled = true }},
		{name: "remote insecure rejected", mutate: func(c *Config) {
			c.Enabled = true
			c.Endpoint = "otel.example.com:4317"
		}, wantErr: true},
		{name: "remote tls", mutate: func(c *Config) {
			c.Enabled = true
			c.Endpoint = "otel.example.com:4317"
			c.Insecure = false
		}},
		{name: "bad protocol", mutate: func(c *Config) {
			c.Enabled = true
			c.Protocol = "udp"
		}, wantErr: true},
		{name: "bad sample rate", mutate: func(c *Config) {
			c.Enabled = true
			c.SampleRate = 2
		}, wantErr: true},
		{name: "ipv6 loopback", mutate: func(c *Config) {
			c.Enabled = true
			c.Endpoint = "[::1]:4317"
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewDefaultConfig()
			tt.mutate(cfg)
			if tt.wantErr {
				assert.Error(t, cfg.Validate())
			} else {
				assert.NoError(t, cfg.Validate())
			}
		})
	}
}

func TestNew_Disabled(t *testing.T) {
	tel, err := New(context.Background(), nil)
	require.NoError(t, err)

	degraded, _ := tel.Degraded()
	assert.False(t, degraded)
	assert.NoError(t, tel.Shutdown(context.Background()))
}

func TestTestTelemetry(t *testing.T) {
	tt := NewTestTelemetry()

	_, span := tt.Tracer("test").Start(context.Background(), "extract")
	span.End()
	tt.AssertSpanExists(t, "extract")

	counter, err := tt.Meter("test").Int64Counter("items")
	require.NoError(t, err)
	counter.Add(context.Background(), 2)
	counter.Add(context.Background(), 3)
	assert.Equal(t, int64(5), tt.CounterValue(t, "items"))
}

func TestStripScheme(t *testing.T) {
	assert.Equal(t, "otel:4318", stripScheme("https://otel:4318"))
	assert.Equal(t, "otel:4318", stripScheme("http://otel:4318"))
	assert.Equal(t, "otel:4318", stripScheme("otel:4318"))
}
