// Package oryxcron provides utilities for building scheduled Lambda functions.
package oryxcron

import (
	"context"
	"encoding/json"

	oryxcli "github.com/oryx-news/oryx/oryx-cli"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/rs/zerolog"
)

type RunCallback func(ctx context.Context) error

type Handler struct {
	service oryxcli.Service
	logger  zerolog.Logger

	runOnce RunCallback
}

func NewHandler(
	service oryxcli.Service,
	runOnce RunCallback,
) *Handler {
	return &Handler{
		service: service,
		logger:  oryxcli.Logger(service),
		runOnce: runOnce,
	}
}

func (h *Handler) RunOnce(ctx context.Context, _ json.RawMessage) error {
	h.logger.Info().Msg("running scheduled task")
	return h.runOnce(ctx)
}

func (h *Handler) Start() error {
	switch {
	case oryxcli.CommonOpts.Console:
		return h.runOnce(context.Background())

	default:
		lambda.Start(h.RunOnce)
	}
	return nil
}
