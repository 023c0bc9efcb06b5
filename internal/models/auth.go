package models

import "github.com/golang-jwt/jwt/v5"

// Evaluator identifies the operator performing a mutation. The identity is
// extracted from the access token once at the HTTP boundary and threaded into
// every mutating operation as an explicit parameter; services never read it
// ambiently.
type Evaluator struct {
	ID       string `json:"id"`
	FullName string `json:"full_name"`
	Role     string `json:"role"`
}

// EvaluatorClaims is the JWT payload carried by access tokens.
type EvaluatorClaims struct {
	EvaluatorID string `json:"evaluator_id"`
	FullName    string `json:"full_name"`
	Role        string `json:"role"`
	jwt.RegisteredClaims
}

// Evaluator converts the claims into the identity handed to services.
func (c *EvaluatorClaims) Evaluator() Evaluator {
	return Evaluator{ID: c.EvaluatorID, FullName: c.FullName, Role: c.Role}
}
