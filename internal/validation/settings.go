// Package validation checks and normalizes bot settings before they reach the
// state service. The HTTP layer and the command line client share it.
package validation

import (
	"apexfolio-bot-go/internal/models"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Error carries one message per invalid field, keyed by JSON field name.
type Error struct {
	Fields map[string]string
}

func (e *Error) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s: %s", k, e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// AsError extracts a validation Error from err.
func AsError(err error) (*Error, bool) {
	var ve *Error
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}

// SettingsRequest is the raw inbound settings payload. riskPercentage may be a
// number or a numeric string; targetAssets may be a comma separated string or
// an array of strings.
type SettingsRequest struct {
	Strategy       string          `json:"strategy"`
	RiskPercentage json.RawMessage `json:"riskPercentage"`
	TargetAssets   json.RawMessage `json:"targetAssets"`
}

// settingsInput is the normalized form the validator rules run against.
type settingsInput struct {
	Strategy       string   `json:"strategy" validate:"required,oneof=momentum mean_reversion arbitrage"`
	RiskPercentage *float64 `json:"riskPercentage" validate:"required,gte=0.1,lte=10"`
	TargetAssets   []string `json:"targetAssets" validate:"min=1,dive,required"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

var messages = map[string]string{
	"strategy.required":       "Strategy is required",
	"strategy.oneof":          "Strategy must be one of momentum, mean_reversion, arbitrage",
	"riskPercentage.required": "Risk percentage is required",
	"riskPercentage.gte":      "Risk must be at least 0.1%",
	"riskPercentage.lte":      "Risk cannot exceed 10%",
	"targetAssets.min":        "At least one asset is required",
	"targetAssets.required":   "At least one asset is required",
}

// NormalizeAssets splits a comma separated list, trims and upper-cases every
// entry and drops the blanks. Duplicates are kept.
func NormalizeAssets(raw string) []string {
	return normalizeList(strings.Split(raw, ","))
}

func normalizeList(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s := strings.ToUpper(strings.TrimSpace(item)); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// ValidateSettings normalizes req and checks every field. On failure the
// returned error is an *Error listing each invalid field.
func ValidateSettings(req SettingsRequest) (models.BotSettings, error) {
	fields := make(map[string]string)
	input := settingsInput{Strategy: strings.TrimSpace(req.Strategy)}

	risk, err := parseNumber(req.RiskPercentage)
	if err != nil {
		fields["riskPercentage"] = "Risk percentage must be a number"
	}
	input.RiskPercentage = risk

	assets, err := parseAssets(req.TargetAssets)
	if err != nil {
		fields["targetAssets"] = "Target assets must be a comma separated list"
	}
	input.TargetAssets = assets

	if err := validate.Struct(input); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return models.BotSettings{}, err
		}
		for _, fe := range verrs {
			field := fe.Field()
			if strings.HasPrefix(field, "targetAssets[") {
				field = "targetAssets"
			}
			if _, taken := fields[field]; taken {
				continue
			}
			msg, ok := messages[field+"."+fe.Tag()]
			if !ok {
				msg = fmt.Sprintf("%s failed %s validation", field, fe.Tag())
			}
			fields[field] = msg
		}
	}

	if len(fields) > 0 {
		return models.BotSettings{}, &Error{Fields: fields}
	}
	return models.BotSettings{
		Strategy:       models.Strategy(input.Strategy),
		RiskPercentage: *input.RiskPercentage,
		TargetAssets:   input.TargetAssets,
	}, nil
}

// Settings validates an already decoded settings value, normalizing its assets.
func Settings(s models.BotSettings) (models.BotSettings, error) {
	risk, _ := json.Marshal(s.RiskPercentage)
	assets, _ := json.Marshal(s.TargetAssets)
	return ValidateSettings(SettingsRequest{
		Strategy:       string(s.Strategy),
		RiskPercentage: risk,
		TargetAssets:   assets,
	})
}

func isNull(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

// parseNumber mirrors a numeric coercion: numbers pass, numeric strings are parsed.
func parseNumber(raw json.RawMessage) (*float64, error) {
	if isNull(raw) {
		return nil, nil
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return &f, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, err
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return nil, err
	}
	return &f, nil
}

func parseAssets(raw json.RawMessage) ([]string, error) {
	if isNull(raw) {
		return []string{}, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return NormalizeAssets(s), nil
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err != nil {
		return []string{}, err
	}
	return normalizeList(list), nil
}
