package validator

import (
	"testing"

	apperrors "github.com/RounakBanerji/Twinenergy-Demo/internal/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustPayload(t *testing.T, body string) Payload {
	t.Helper()
	payload, err := ParsePayload([]byte(body))
	require.NoError(t, err)
	return payload
}

func TestParsePayload(t *testing.T) {
	payload, err := ParsePayload(nil)
	require.NoError(t, err)
	assert.Empty(t, payload)

	payload, err = ParsePayload([]byte("null"))
	require.NoError(t, err)
	assert.NotNil(t, payload)

	_, err = ParsePayload([]byte(`{"sensorId":`))
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))

	_, err = ParsePayload([]byte(`[1,2]`))
	assert.True(t, apperrors.IsValidation(err))
}

func TestValidateCreate(t *testing.T) {
	v := NewValidator()

	t.Run("full reading", func(t *testing.T) {
		reading, err := v.ValidateCreate(mustPayload(t, `{"sensorId":"s1","powerOutput":12.5,"temperature":21,"location":"north"}`))
		require.NoError(t, err)
		assert.Equal(t, "s1", reading.SensorID)
		assert.Equal(t, 12.5, reading.PowerOutput)
		require.NotNil(t, reading.Temperature)
		assert.Equal(t, 21.0, *reading.Temperature)
		require.NotNil(t, reading.Location)
		assert.Equal(t, "north", *reading.Location)
	})

	t.Run("optional fields absent or null", func(t *testing.T) {
		reading, err := v.ValidateCreate(mustPayload(t, `{"sensorId":"s1","powerOutput":0,"temperature":null}`))
		require.NoError(t, err)
		assert.Equal(t, 0.0, reading.PowerOutput)
		assert.Nil(t, reading.Temperature)
		assert.Nil(t, reading.Location)
	})

	t.Run("coerces numeric strings and numeric sensor ids", func(t *testing.T) {
		reading, err := v.ValidateCreate(mustPayload(t, `{"sensorId":42,"powerOutput":" 7.25 ","temperature":"-3"}`))
		require.NoError(t, err)
		assert.Equal(t, "42", reading.SensorID)
		assert.Equal(t, 7.25, reading.PowerOutput)
		assert.Equal(t, -3.0, *reading.Temperature)
	})

	requiredCases := map[string]string{
		"missing sensorId":    `{"powerOutput":1}`,
		"missing powerOutput": `{"sensorId":"s1"}`,
		"empty sensorId":      `{"sensorId":"","powerOutput":1}`,
		"blank sensorId":      `{"sensorId":"   ","powerOutput":1}`,
		"null powerOutput":    `{"sensorId":"s1","powerOutput":null}`,
		"empty body":          ``,
	}
	for name, body := range requiredCases {
		t.Run(name, func(t *testing.T) {
			_, err := v.ValidateCreate(mustPayload(t, body))
			require.Error(t, err)
			appErr, ok := apperrors.As(err)
			require.True(t, ok)
			assert.Equal(t, apperrors.CodeValidation, appErr.Code)
			assert.Equal(t, "sensorId and powerOutput are required", appErr.Message)
		})
	}

	typeCases := map[string]string{
		"non numeric power":       `{"sensorId":"s1","powerOutput":"lots"}`,
		"boolean power":           `{"sensorId":"s1","powerOutput":true}`,
		"infinite power":          `{"sensorId":"s1","powerOutput":"Inf"}`,
		"non numeric temperature": `{"sensorId":"s1","powerOutput":1,"temperature":"warm"}`,
		"object location":         `{"sensorId":"s1","powerOutput":1,"location":{"x":1}}`,
		"array sensorId":          `{"sensorId":["s1"],"powerOutput":1}`,
	}
	for name, body := range typeCases {
		t.Run(name, func(t *testing.T) {
			_, err := v.ValidateCreate(mustPayload(t, body))
			require.Error(t, err)
			assert.True(t, apperrors.IsValidation(err))
		})
	}
}

func TestValidatePatch(t *testing.T) {
	v := NewValidator()

	t.Run("empty payload", func(t *testing.T) {
		patch, err := v.ValidatePatch(mustPayload(t, `{}`))
		require.NoError(t, err)
		assert.True(t, patch.Empty())
	})

	t.Run("unknown fields ignored", func(t *testing.T) {
		patch, err := v.ValidatePatch(mustPayload(t, `{"_id":"9","createdAt":"x"}`))
		require.NoError(t, err)
		assert.True(t, patch.Empty())
	})

	t.Run("partial power", func(t *testing.T) {
		patch, err := v.ValidatePatch(mustPayload(t, `{"powerOutput":99}`))
		require.NoError(t, err)
		require.NotNil(t, patch.PowerOutput)
		assert.Equal(t, 99.0, *patch.PowerOutput)
		assert.Nil(t, patch.SensorID)
		assert.False(t, patch.Temperature.Set)
		assert.False(t, patch.Location.Set)
	})

	t.Run("explicit nulls clear nullable columns", func(t *testing.T) {
		patch, err := v.ValidatePatch(mustPayload(t, `{"temperature":null,"location":null}`))
		require.NoError(t, err)
		assert.True(t, patch.Temperature.Set)
		assert.Nil(t, patch.Temperature.Value)
		assert.True(t, patch.Location.Set)
		assert.Nil(t, patch.Location.Value)
		assert.False(t, patch.Empty())
	})

	t.Run("values set nullable columns", func(t *testing.T) {
		patch, err := v.ValidatePatch(mustPayload(t, `{"sensorId":"s2","temperature":"18.5","location":"roof"}`))
		require.NoError(t, err)
		assert.Equal(t, "s2", *patch.SensorID)
		assert.Equal(t, 18.5, *patch.Temperature.Value)
		assert.Equal(t, "roof", *patch.Location.Value)
	})

	rejected := map[string]string{
		"null powerOutput": `{"powerOutput":null}`,
		"null sensorId":    `{"sensorId":null}`,
		"empty sensorId":   `{"sensorId":""}`,
		"bad temperature":  `{"temperature":"hot"}`,
	}
	for name, body := range rejected {
		t.Run(name, func(t *testing.T) {
			_, err := v.ValidatePatch(mustPayload(t, body))
			require.Error(t, err)
			assert.True(t, apperrors.IsValidation(err))
		})
	}
}

func TestParseID(t *testing.T) {
	id, err := ParseID("17")
	require.NoError(t, err)
	assert.Equal(t, int64(17), id)

	for _, raw := range []string{"", "abc", "1.5", "12abc", "99999999999999999999"} {
		_, err := ParseID(raw)
		assert.True(t, apperrors.IsValidation(err), "id %q", raw)
	}
}
