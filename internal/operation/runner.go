// Package operation is the integration point for the feature gated behind
// an entitlement. The transport layer checks access, invokes the Runner,
// and records usage; what the operation actually does is the Runner
// implementation's business.
package operation

import (
	"context"

	"go.uber.org/zap"
)

type Request struct {
	ExternalID int64
	// Payload is the operation's opaque input, forwarded untouched.
	Payload string
}

type Result struct {
	Accepted  bool   `json:"accepted"`
	Reference string `json:"reference,omitempty"`
	Detail    string `json:"detail,omitempty"`
}

type Runner interface {
	Run(ctx context.Context, req Request) (Result, error)
}

// AckRunner acknowledges requests without performing any external work.
// It stands in until a real operation backend is wired.
type AckRunner struct {
	log *zap.Logger
}

func NewAckRunner(log *zap.Logger) Runner {
	return &AckRunner{log: log.Named("operation.runner")}
}

func (r *AckRunner) Run(ctx context.Context, req Request) (Result, error) {
	r.log.Info("operation accepted",
		zap.Int64("external_id", req.ExternalID))
	return Result{Accepted: true, Detail: "queued"}, nil
}
