// Package estimate runs the full Rt pipeline for one geographic selection:
// filter, partition, daily aggregation, recovery statistics, Rt and
// milestone annotations.
package estimate

import (
	"errors"

	"github.com/okian/rtmonitor/internal/domain/annotate"
	"github.com/okian/rtmonitor/internal/domain/daily"
	"github.com/okian/rtmonitor/internal/domain/filter"
	"github.com/okian/rtmonitor/internal/domain/linelist"
	"github.com/okian/rtmonitor/internal/domain/recovery"
	"github.com/okian/rtmonitor/internal/domain/rt"
)

// Evaluation statuses.
const (
	StatusOK     = "ok"
	StatusNoData = "no_data"
)

// Reasons reported with StatusNoData.
const (
	ReasonEmptySelection = "no records match the selection"
	ReasonShortAxis      = "fewer than two days with dated events"
	ReasonNoDurations    = "no record has both symptom onset and recovery dates"
)

// Evaluation is the outcome of one pipeline run. On StatusNoData only
// Selector, Summary and Reason are meaningful.
type Evaluation struct {
	Status      string                `json:"status"`
	Reason      string                `json:"reason,omitempty"`
	Selector    filter.Selector       `json:"selector"`
	Summary     filter.Summary        `json:"summary"`
	Recovery    recovery.Stats        `json:"recovery"`
	Daily       daily.Table           `json:"daily"`
	Rt          *rt.Result            `json:"rt,omitempty"`
	Annotations []annotate.Annotation `json:"annotations"`
}

// OK reports whether the evaluation produced an Rt series.
func (e Evaluation) OK() bool { return e.Status == StatusOK }

// Pipeline holds the per-deployment configuration of an evaluation.
type Pipeline struct {
	engine     *rt.Engine
	milestones []linelist.Date
	labeler    *annotate.Labeler
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithEngine sets the Rt engine.
func WithEngine(e *rt.Engine) Option {
	return func(p *Pipeline) {
		if e != nil {
			p.engine = e
		}
	}
}

// WithMilestones sets the intervention dates to annotate.
func WithMilestones(m []linelist.Date) Option {
	return func(p *Pipeline) { p.milestones = append([]linelist.Date(nil), m...) }
}

// WithLabeler sets the annotation text renderer.
func WithLabeler(l *annotate.Labeler) Option {
	return func(p *Pipeline) { p.labeler = l }
}

// NewPipeline builds a pipeline with the default Rt engine and no
// milestones unless options say otherwise.
func NewPipeline(opts ...Option) (*Pipeline, error) {
	p := &Pipeline{}
	for _, opt := range opts {
		opt(p)
	}
	if p.engine == nil {
		e, err := rt.New()
		if err != nil {
			return nil, err
		}
		p.engine = e
	}
	return p, nil
}

// Evaluate selects records with sel and runs every stage over them. The
// whole record set is used only as the fallback for recovery statistics.
// Evaluate is pure: it does not modify records.
func (p *Pipeline) Evaluate(records []*linelist.Record, sel filter.Selector) (Evaluation, error) {
	selected := filter.Select(records, sel)
	part := filter.Split(selected)
	ev := Evaluation{
		Selector:    sel,
		Summary:     part.Summary(),
		Daily:       daily.Table{},
		Annotations: []annotate.Annotation{},
	}
	if len(selected) == 0 {
		return noData(ev, ReasonEmptySelection), nil
	}

	stats, err := recovery.Estimate(selected, records)
	if errors.Is(err, recovery.ErrNoDurations) {
		return noData(ev, ReasonNoDurations), nil
	}
	if err != nil {
		return ev, err
	}
	ev.Recovery = stats

	ev.Daily = daily.Build(part.Local, part.Recovered, part.Deceased)
	res, err := p.engine.Estimate(ev.Daily, stats)
	if errors.Is(err, rt.ErrNoData) {
		return noData(ev, ReasonShortAxis), nil
	}
	if err != nil {
		return ev, err
	}
	ev.Rt = &res
	ev.Annotations = annotate.Locate(res.Smoothed, p.milestones, p.labeler)
	ev.Status = StatusOK
	return ev, nil
}

func noData(ev Evaluation, reason string) Evaluation {
	ev.Status = StatusNoData
	ev.Reason = reason
	return ev
}
