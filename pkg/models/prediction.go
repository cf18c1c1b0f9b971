package models

import (
	"encoding/json"
	"fmt"
)

// RiskLevel is the attrition risk tier derived from a probability
type RiskLevel string

const (
	RiskLevelLow    RiskLevel = "Low"
	RiskLevelMedium RiskLevel = "Medium"
	RiskLevelHigh   RiskLevel = "High"
)

// Tier boundaries on the attrition probability
const (
	MediumRiskThreshold = 0.30
	HighRiskThreshold   = 0.60
)

var recommendedActions = map[RiskLevel][]string{
	RiskLevelLow: {
		"Continue current engagement programs",
		"Recognize and reward performance",
		"Provide growth opportunities",
	},
	RiskLevelMedium: {
		"Schedule a 1:1 career discussion",
		"Review compensation vs market rate",
		"Assess work-life balance situation",
		"Check manager relationship health",
	},
	RiskLevelHigh: {
		"Immediate retention interview recommended",
		"Review salary and promotion eligibility",
		"Explore flexible work arrangements",
		"Assign mentor or career sponsor",
		"Consider role change or lateral move",
	},
}

// RiskLevelFromProbability maps p onto Low (< 0.30), Medium (< 0.60) or High
func RiskLevelFromProbability(p float64) RiskLevel {
	switch {
	case p < MediumRiskThreshold:
		return RiskLevelLow
	case p < HighRiskThreshold:
		return RiskLevelMedium
	default:
		return RiskLevelHigh
	}
}

// RiskLevelFromString parses a tier name
func RiskLevelFromString(s string) (RiskLevel, error) {
	switch RiskLevel(s) {
	case RiskLevelLow, RiskLevelMedium, RiskLevelHigh:
		return RiskLevel(s), nil
	default:
		return "", fmt.Errorf("invalid risk level: %s", s)
	}
}

// Actions returns a copy of the canned retention actions for the tier
func (r RiskLevel) Actions() []string {
	actions := recommendedActions[r]
	out := make([]string, len(actions))
	copy(out, actions)
	return out
}

func (r RiskLevel) String() string {
	return string(r)
}

// UnmarshalJSON rejects names other than the three tiers
func (r *RiskLevel) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	lvl, err := RiskLevelFromString(s)
	if err != nil {
		return err
	}
	*r = lvl
	return nil
}

// PredictionResult is the response body of the prediction endpoint
type PredictionResult struct {
	WillAttrite          bool      `json:"will_attrite"`
	AttritionProbability float64   `json:"attrition_probability"`
	RiskLevel            RiskLevel `json:"risk_level"`
	RecommendedActions   []string  `json:"recommended_actions"`
	Status               string    `json:"status"`
}
