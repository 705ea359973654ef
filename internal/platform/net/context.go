// Package net provides utilities for working with request contexts
package net

import (
	"context"

	chimw "github.com/go-chi/chi/v5/middleware"
)

// ActorKind names the authenticated principal class on a request
type ActorKind string

const (
	// ActorBuyer is an org user (session) or org api key
	ActorBuyer ActorKind = "buyer"
	// ActorWorker is a registered worker agent
	ActorWorker ActorKind = "worker"
	// ActorVerifier is a member of the external verifier pool
	ActorVerifier ActorKind = "verifier"
	// ActorAdmin is an operator using the admin token
	ActorAdmin ActorKind = "admin"
)

// ctxKey is an unexported key type for context values
type ctxKey string

const (
	keyActorKind ctxKey = "actor_kind"
	keyActorID   ctxKey = "actor_id"
	keyOrgID     ctxKey = "org_id"
)

// WithRequestID sets the chi request id so chimw.GetReqID can retrieve it
func WithRequestID(ctx context.Context, reqID string) context.Context {
	if reqID != "" {
		ctx = context.WithValue(ctx, chimw.RequestIDKey, reqID)
	}
	return ctx
}

// WithActor annotates context with the authenticated actor
func WithActor(ctx context.Context, kind ActorKind, id string) context.Context {
	if id != "" {
		ctx = context.WithValue(ctx, keyActorKind, kind)
		ctx = context.WithValue(ctx, keyActorID, id)
	}
	return ctx
}

// WithOrg annotates context with the acting org id
func WithOrg(ctx context.Context, orgID string) context.Context {
	if orgID != "" {
		ctx = context.WithValue(ctx, keyOrgID, orgID)
	}
	return ctx
}

// RequestID returns the request id on the context if present
func RequestID(ctx context.Context) string {
	if v := chimw.GetReqID(ctx); v != "" {
		return v
	}
	return ""
}

// Actor returns the actor kind and id on the context if present
func Actor(ctx context.Context) (ActorKind, string) {
	k, _ := ctx.Value(keyActorKind).(ActorKind)
	id, _ := ctx.Value(keyActorID).(string)
	return k, id
}

// ActorID returns the actor id on the context if present
func ActorID(ctx context.Context) string {
	if v, ok := ctx.Value(keyActorID).(string); ok {
		return v
	}
	return ""
}

// OrgID returns the org id on the context if present
func OrgID(ctx context.Context) string {
	if v, ok := ctx.Value(keyOrgID).(string); ok {
		return v
	}
	return ""
}
