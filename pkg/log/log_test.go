package log

import (
	"context"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func TestSetup_NivelInvalidoUsaInfo(t *testing.T) {
	t.Cleanup(SetupTestLogger)

	Setup("verbose")
	assert.Equal(t, logrus.InfoLevel, logrus.GetLevel())

	Setup("warn")
	assert.Equal(t, logrus.WarnLevel, logrus.GetLevel())
}

func TestCorrelationID(t *testing.T) {
	assert.Equal(t, "", GetCorrelationID(context.Background()))

	ctx, id := WithCorrelationID(context.Background())
	assert.NotEmpty(t, id)
	assert.Equal(t, id, GetCorrelationID(ctx))
}

func TestWithFields_FiltraEmDesenvolvimento(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	base := &logger{entry: logrus.NewEntry(logrus.New())}

	filtered := base.WithFields(Fields{"collection": "orders", "deltas": 3}).(*logger)
	assert.Contains(t, filtered.entry.Data, "collection")
	assert.NotContains(t, filtered.entry.Data, "deltas")

	t.Setenv("APP_ENV", "production")
	full := base.WithFields(Fields{"collection": "orders", "deltas": 3}).(*logger)
	assert.Contains(t, full.entry.Data, "deltas")
}
