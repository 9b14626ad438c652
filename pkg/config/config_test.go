package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromViperDefaults(t *testing.T) {
	v := viper.New()
	setDefaults(v)

	cfg := fromViper(v)
	require.NotNil(t, cfg)
	assert.Equal(t, EnvDevelopment, cfg.Env)
	assert.Equal(t, "/api/v1", cfg.APIPrefix)
	assert.True(t, cfg.Scheduler.Enabled)
	assert.Equal(t, 30*time.Minute, cfg.Scheduler.ProposalTTL)
	assert.Equal(t, 20, cfg.Scheduler.DefaultHMS)
	assert.InDelta(t, 0.3, cfg.Scheduler.DefaultPAR, 1e-9)
	assert.Equal(t, 1000, cfg.Scheduler.SetMaxAttempts)
	assert.Equal(t, 2, cfg.Jobs.Workers)
	assert.Equal(t, time.Hour, cfg.Jobs.ResultTTL)
	assert.False(t, cfg.Events.Enabled)
	assert.Equal(t, "timetables", cfg.Events.Exchange)
}

func TestFromViperOverrides(t *testing.T) {
	v := viper.New()
	setDefaults(v)
	v.Set("SCHEDULER_PROPOSAL_TTL", "5m")
	v.Set("JOBS_RESULT_TTL", "not-a-duration")
	v.Set("ALLOWED_ORIGINS", " https://a.example , ,https://b.example")
	v.Set("SCHEDULER_MAX_TIMETABLES", 3)

	cfg := fromViper(v)
	assert.Equal(t, 5*time.Minute, cfg.Scheduler.ProposalTTL)
	assert.Equal(t, time.Hour, cfg.Jobs.ResultTTL)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORS.AllowedOrigins)
	assert.Equal(t, 3, cfg.Scheduler.MaxTimetables)
}
