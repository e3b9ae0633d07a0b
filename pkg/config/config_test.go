package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
)

func TestDefaults(t *testing.T) {
	v := viper.New()
	setDefaults(v)
	cfg := fromViper(v)

	assert.Equal(t, EnvDevelopment, cfg.Env)
	assert.Equal(t, "/api/v1", cfg.APIPrefix)
	assert.Equal(t, "UTC", cfg.Scheduling.DefaultTimezone)
	assert.Equal(t, 12, cfg.Scheduling.DefaultHorizonWeeks)
	assert.Equal(t, 52, cfg.Scheduling.MaxHorizonWeeks)
	assert.Equal(t, OverlapStrategyExclusion, cfg.Scheduling.OverlapStrategy)
	assert.Equal(t, 3, cfg.Scheduling.TxMaxRetries)
	assert.Equal(t, 5*time.Minute, cfg.Cache.TTL)
	assert.Nil(t, cfg.CORS.AllowedOrigins)
}

func TestOverridesAreNormalised(t *testing.T) {
	v := viper.New()
	setDefaults(v)
	v.Set("SCHEDULING_OVERLAP_STRATEGY", " Serializable ")
	v.Set("SCHEDULING_MAX_HORIZON_WEEKS", 80)
	v.Set("SCHEDULING_DEFAULT_HORIZON_WEEKS", 60)
	v.Set("CACHE_TTL", "not-a-duration")
	v.Set("OTEL_SAMPLING_RATIO", 4.0)
	v.Set("ALLOWED_ORIGINS", "https://a.example, ,https://b.example")
	cfg := fromViper(v)

	assert.Equal(t, OverlapStrategySerializable, cfg.Scheduling.OverlapStrategy)
	assert.Equal(t, 52, cfg.Scheduling.MaxHorizonWeeks)
	assert.Equal(t, 12, cfg.Scheduling.DefaultHorizonWeeks)
	assert.Equal(t, 5*time.Minute, cfg.Cache.TTL)
	assert.Equal(t, 1.0, cfg.Tracing.SampleRatio)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORS.AllowedOrigins)

	v.Set("SCHEDULING_OVERLAP_STRATEGY", "optimistic")
	assert.Equal(t, OverlapStrategyExclusion, fromViper(v).Scheduling.OverlapStrategy)
}
