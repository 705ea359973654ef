package domain

import "context"

// CreateInput registers an origin ownership claim
type CreateInput struct {
	Origin string `json:"origin" validate:"required,min=1,max=300"`
	Method string `json:"method" validate:"required,oneof=header http_file"`
}

// CreateOutput carries the ephemeral verification token and where to put it
type CreateOutput struct {
	OriginID    string `json:"origin_id"`
	Origin      string `json:"origin"`
	Method      string `json:"method"`
	Token       string `json:"token"`
	Instruction string `json:"instruction"`
}

// Port is the buyer-facing origin surface
type Port interface {
	Create(ctx context.Context, orgID string, in CreateInput) (CreateOutput, error)
	Verify(ctx context.Context, orgID, originID string) (Origin, error)
	List(ctx context.Context, orgID string) ([]Origin, error)
}

// CheckerPort answers whether an org has verified a given origin
// Used by bounty publish
type CheckerPort interface {
	Verified(ctx context.Context, orgID, origin string) (bool, error)
	VerifiedOrigins(ctx context.Context, orgID string) ([]string, error)
}
