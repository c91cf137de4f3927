// Package handlers implements the HTTP endpoints: animation submission, job
// polling, video streaming and service info.
package handlers

import (
	"time"

	"earthtour/internal/animation"
	"earthtour/internal/job"
	"earthtour/internal/pkg/logger"
	"earthtour/internal/ports"
)

// Submitter admits a created job into the render pipeline.
type Submitter interface {
	Submit(jobID string) error
}

type Deps struct {
	Validator *animation.Validator
	Registry  *job.Registry
	Scheduler Submitter
	Storage   ports.StorageProvider
	Log       *logger.Logger
}

type Handler struct {
	validator *animation.Validator
	registry  *job.Registry
	scheduler Submitter
	sp        ports.StorageProvider
	log       *logger.Logger
	started   time.Time
}

func New(d Deps) *Handler {
	log := d.Log
	if log == nil {
		log = logger.NewDefault()
	}
	return &Handler{
		validator: d.Validator,
		registry:  d.Registry,
		scheduler: d.Scheduler,
		sp:        d.Storage,
		log:       log.WithComponent("httpapi"),
		started:   time.Now().UTC(),
	}
}
