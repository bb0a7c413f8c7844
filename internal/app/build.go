package service

import (
	"fmt"

	"github.com/okian/rtmonitor/internal/adapters/source"
	"github.com/okian/rtmonitor/internal/config"
	"github.com/okian/rtmonitor/internal/domain/annotate"
	"github.com/okian/rtmonitor/internal/domain/estimate"
	"github.com/okian/rtmonitor/internal/domain/linelist"
	"github.com/okian/rtmonitor/internal/domain/rt"
)

// SourceFromConfig returns the line list source selected by cfg.Source.
func SourceFromConfig(cfg *config.Config) (source.Source, error) {
	switch cfg.Source {
	case config.SourceHTTP:
		return source.NewHTTPSource(cfg.SourceURL, source.WithLimit(cfg.SourceLimit)), nil
	case config.SourceFile:
		return source.NewFileSource(cfg.SourcePath), nil
	case config.SourceMongo:
		return source.NewMongoSource(cfg.MongoURI, cfg.MongoDatabase, cfg.MongoCollection), nil
	}
	return nil, fmt.Errorf("%w: source: unknown source %q", config.ErrInvalidConfig, cfg.Source)
}

// PipelineFromConfig builds the Rt engine, the labeler and the milestone
// list from cfg.
func PipelineFromConfig(cfg *config.Config) (*estimate.Pipeline, error) {
	policy, err := rt.ParsePolicy(cfg.NonPositivePolicy)
	if err != nil {
		return nil, err
	}
	engine, err := rt.New(
		rt.WithKernel(cfg.SmoothingKernel),
		rt.WithMinSmoothLength(cfg.SmoothingMinLength),
		rt.WithPolicy(policy, cfg.ActiveFloor),
	)
	if err != nil {
		return nil, err
	}
	labeler, err := annotate.NewLabeler(cfg.Language)
	if err != nil {
		return nil, err
	}
	dates, err := cfg.MilestoneDates()
	if err != nil {
		return nil, err
	}
	milestones := make([]linelist.Date, len(dates))
	for i, d := range dates {
		milestones[i] = linelist.DateOf(d)
	}
	return estimate.NewPipeline(
		estimate.WithEngine(engine),
		estimate.WithLabeler(labeler),
		estimate.WithMilestones(milestones),
	)
}
