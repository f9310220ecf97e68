package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/parkprofile/internal/config"
	"github.com/sells-group/parkprofile/internal/export"
	"github.com/sells-group/parkprofile/internal/model"
	"github.com/sells-group/parkprofile/internal/profile"
	"github.com/sells-group/parkprofile/internal/spatial"
	"github.com/sells-group/parkprofile/internal/store"
)

// profileJob is one profiling invocation: load inputs, profile, export.
type profileJob struct {
	mode   model.RunMode
	params map[string]any
	out    string
	format export.Format
	run    func(ctx context.Context, t *tracker, in *inputs) (*profile.Result, error)
}

// tracker records the lifecycle of a run in the store.
type tracker struct {
	st      store.Store
	run     *model.Run
	started time.Time
	log     *zap.Logger
}

func startRun(ctx context.Context, st store.Store, mode model.RunMode, params map[string]any) (*tracker, error) {
	run, err := st.CreateRun(ctx, mode, params)
	if err != nil {
		return nil, eris.Wrap(err, "create run")
	}
	return &tracker{
		st:      st,
		run:     run,
		started: time.Now(),
		log: zap.L().With(
			zap.String("component", "run"),
			zap.String("run_id", run.ID),
			zap.String("mode", string(mode)),
		),
	}, nil
}

// advance moves the run to status. Store failures are logged only.
func (t *tracker) advance(ctx context.Context, status model.RunStatus) {
	if err := t.st.UpdateRunStatus(ctx, t.run.ID, status); err != nil {
		t.log.Warn("update run status", zap.String("status", string(status)), zap.Error(err))
		return
	}
	t.run.Status = status
	t.log.Debug("run status", zap.String("status", string(status)))
}

// fail records err on the run and returns it.
func (t *tracker) fail(ctx context.Context, err error) error {
	ctx = context.WithoutCancel(ctx)
	if ferr := t.st.FailRun(ctx, t.run.ID, err.Error()); ferr != nil {
		t.log.Warn("record run failure", zap.Error(ferr))
	}
	t.run.Status = model.RunStatusFailed
	t.run.Error = err.Error()
	t.log.Error("run failed", zap.Error(err))
	return err
}

// save stores the result rows. It runs before the export so a failed run
// never leaves an output file behind.
func (t *tracker) save(ctx context.Context, res *profile.Result) error {
	if _, err := t.st.SaveRows(ctx, t.run.ID, res.Table); err != nil {
		return t.fail(ctx, eris.Wrap(err, "save rows"))
	}
	return nil
}

// finish records the summary of a successful run.
func (t *tracker) finish(ctx context.Context, res *profile.Result, out string) error {
	summary := res.Audit.Summary(res.Table.Len())
	summary.OutputPath = out
	summary.DurationMs = time.Since(t.started).Milliseconds()

	if err := t.st.CompleteRun(ctx, t.run.ID, &summary); err != nil {
		return eris.Wrap(err, "complete run")
	}
	t.run.Status = model.RunStatusComplete
	t.run.Summary = &summary

	t.log.Info("run complete",
		zap.Int("rows", summary.Rows),
		zap.Int("entities", summary.Entities),
		zap.Int("nulled", summary.Nulled),
		zap.Int("unresolved", summary.Unresolved),
		zap.Any("unknown_codes", summary.UnknownCodes),
		zap.String("output", out),
		zap.Int64("duration_ms", summary.DurationMs),
	)
	return nil
}

// execute runs job against st and returns the recorded run.
func execute(ctx context.Context, st store.Store, job profileJob) (*model.Run, error) {
	t, err := startRun(ctx, st, job.mode, job.params)
	if err != nil {
		return nil, err
	}

	in := newInputs(cfg)
	defer in.Close()

	t.advance(ctx, model.RunStatusLoading)
	res, err := job.run(ctx, t, in)
	if err != nil {
		return t.run, t.fail(ctx, err)
	}

	t.advance(ctx, model.RunStatusExporting)
	if err := t.save(ctx, res); err != nil {
		return t.run, err
	}
	if err := export.Write(res.Table, job.out, job.format); err != nil {
		return t.run, t.fail(ctx, err)
	}
	return t.run, t.finish(ctx, res, job.out)
}

// profileOptions builds assembler options from the profile config.
func profileOptions(c config.ProfileConfig) (profile.Options, error) {
	mode, err := spatial.ParseDistanceMode(c.DistanceMode)
	if err != nil {
		return profile.Options{}, err
	}
	return profile.Options{
		Workers:           c.Workers,
		MinDist:           c.MinDist,
		DistanceMode:      mode,
		OtherSpeciesField: c.OtherSpeciesField,
	}, nil
}
