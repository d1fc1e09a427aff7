package validator

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/RounakBanerji/Twinenergy-Demo/internal/db"
	apperrors "github.com/RounakBanerji/Twinenergy-Demo/internal/pkg/errors"
)

// Reading payload field names
const (
	FieldSensorID    = "sensorId"
	FieldPowerOutput = "powerOutput"
	FieldTemperature = "temperature"
	FieldLocation    = "location"
)

// Payload is a decoded JSON object body. Keys absent from the map were not
// supplied; keys mapped to `null` were supplied as null.
type Payload map[string]json.RawMessage

// ParsePayload decodes a request body. An empty body is an empty payload.
func ParsePayload(body []byte) (Payload, error) {
	payload := Payload{}
	if len(bytes.TrimSpace(body)) == 0 {
		return payload, nil
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, apperrors.ValidationError(fmt.Sprintf("invalid JSON body: %v", err))
	}
	if payload == nil {
		// body was the literal null
		payload = Payload{}
	}
	return payload, nil
}

// Validator coerces and validates reading payloads
type Validator struct{}

// NewValidator creates a new validator
func NewValidator() *Validator {
	return &Validator{}
}

// ValidateCreate validates a create payload. sensorId and powerOutput are
// required; temperature and location are optional and nullable.
func (v *Validator) ValidateCreate(payload Payload) (db.NewReading, error) {
	var reading db.NewReading

	sensorID, sensorNull, hasSensor, err := textField(payload, FieldSensorID)
	if err != nil {
		return reading, err
	}
	power, powerNull, hasPower, err := floatField(payload, FieldPowerOutput)
	if err != nil {
		return reading, err
	}
	if !hasSensor || sensorNull || strings.TrimSpace(sensorID) == "" || !hasPower || powerNull {
		return reading, apperrors.ValidationError("sensorId and powerOutput are required")
	}

	reading.SensorID = sensorID
	reading.PowerOutput = power

	temp, tempNull, hasTemp, err := floatField(payload, FieldTemperature)
	if err != nil {
		return reading, err
	}
	if hasTemp && !tempNull {
		reading.Temperature = &temp
	}

	location, locNull, hasLoc, err := textField(payload, FieldLocation)
	if err != nil {
		return reading, err
	}
	if hasLoc && !locNull {
		reading.Location = &location
	}

	return reading, nil
}

// ValidatePatch validates a partial update payload. Unknown fields are
// ignored; an empty payload is a valid empty patch.
func (v *Validator) ValidatePatch(payload Payload) (db.ReadingPatch, error) {
	var patch db.ReadingPatch

	sensorID, sensorNull, hasSensor, err := textField(payload, FieldSensorID)
	if err != nil {
		return patch, err
	}
	if hasSensor {
		if sensorNull || strings.TrimSpace(sensorID) == "" {
			return patch, apperrors.ValidationError("sensorId must be a non-empty string")
		}
		patch.SensorID = &sensorID
	}

	power, powerNull, hasPower, err := floatField(payload, FieldPowerOutput)
	if err != nil {
		return patch, err
	}
	if hasPower {
		if powerNull {
			return patch, apperrors.ValidationError("powerOutput cannot be null")
		}
		patch.PowerOutput = &power
	}

	temp, tempNull, hasTemp, err := floatField(payload, FieldTemperature)
	if err != nil {
		return patch, err
	}
	if hasTemp {
		patch.Temperature.Set = true
		if !tempNull {
			patch.Temperature.Value = &temp
		}
	}

	location, locNull, hasLoc, err := textField(payload, FieldLocation)
	if err != nil {
		return patch, err
	}
	if hasLoc {
		patch.Location.Set = true
		if !locNull {
			patch.Location.Value = &location
		}
	}

	return patch, nil
}

// ParseID parses a path id. Only base-10 integers are accepted.
func ParseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0, apperrors.ValidationError("Invalid id")
	}
	return id, nil
}

// floatField coerces a JSON number or numeric string to a finite float64
func floatField(payload Payload, name string) (value float64, isNull, present bool, err error) {
	raw, ok := payload[name]
	if !ok {
		return 0, false, false, nil
	}
	if isJSONNull(raw) {
		return 0, true, true, nil
	}

	var number float64
	if err := json.Unmarshal(raw, &number); err == nil {
		return number, false, true, nil
	}

	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		number, perr := strconv.ParseFloat(strings.TrimSpace(text), 64)
		if perr == nil && !math.IsNaN(number) && !math.IsInf(number, 0) {
			return number, false, true, nil
		}
	}

	return 0, false, true, apperrors.ValidationError(fmt.Sprintf("%s must be a number", name))
}

// textField accepts a JSON string, or a number rendered as its literal text
func textField(payload Payload, name string) (value string, isNull, present bool, err error) {
	raw, ok := payload[name]
	if !ok {
		return "", false, false, nil
	}
	if isJSONNull(raw) {
		return "", true, true, nil
	}

	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		return text, false, true, nil
	}

	var number json.Number
	if err := json.Unmarshal(raw, &number); err == nil {
		return number.String(), false, true, nil
	}

	return "", false, true, apperrors.ValidationError(fmt.Sprintf("%s must be a string", name))
}

func isJSONNull(raw json.RawMessage) bool {
	return string(bytes.TrimSpace(raw)) == "null"
}
