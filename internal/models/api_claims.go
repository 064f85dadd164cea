package models

import "github.com/golang-jwt/jwt/v5"

// APIClaims is the payload of tokens guarding the /api/v1 routes.
type APIClaims struct {
	Scope string `json:"scope"`
	jwt.RegisteredClaims
}

// ScopeSchedule grants access to the schedule, sync and export routes.
const ScopeSchedule = "schedule"
