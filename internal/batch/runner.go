package batch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	apperrors "github.com/zsiec/smpte/internal/errors"
	"github.com/zsiec/smpte/internal/logger"
	"github.com/zsiec/smpte/internal/metrics"
	"github.com/zsiec/smpte/pkg/timecode"
)

// CodeUnknownOperation is the error code of ErrUnknownOperation.
const CodeUnknownOperation = "UNKNOWN_OPERATION"

// Resolver turns a job's rate text into a rate.
type Resolver func(ctx context.Context, text string) (timecode.Rate, error)

// Runner evaluates jobs.
type Runner struct {
	// Resolver resolves Job.Rate. Nil uses timecode.ParseRate.
	Resolver Resolver

	// DefaultRate is used when a job names no rate.
	DefaultRate string

	// Concurrency bounds the operations evaluated at once. Values below one
	// mean one.
	Concurrency int

	// MaxOperations rejects larger jobs. Zero means no limit.
	MaxOperations int

	Logger logger.Logger
}

func (r *Runner) log() logger.Logger {
	if r.Logger == nil {
		return logger.NewNullLogger()
	}
	return r.Logger
}

func (r *Runner) resolve(ctx context.Context, text string) (timecode.Rate, error) {
	if text == "" {
		text = r.DefaultRate
	}
	if r.Resolver == nil {
		return timecode.ParseRate(text)
	}
	return r.Resolver(ctx, text)
}

// Run evaluates every operation of job. Operation failures are recorded in
// the result; Run itself fails only when the rate cannot be resolved, the
// job is too large or ctx ends.
func (r *Runner) Run(ctx context.Context, job *Job) (*Result, error) {
	if r.MaxOperations > 0 && len(job.Operations) > r.MaxOperations {
		return nil, fmt.Errorf("%w: %d exceeds limit of %d", ErrTooManyOperations, len(job.Operations), r.MaxOperations)
	}

	rate, err := r.resolve(ctx, job.Rate)
	if err != nil {
		return nil, err
	}

	id := job.ID
	if id == "" {
		id = uuid.NewString()
	}
	log := r.log().WithFields(map[string]interface{}{
		"job_id":     id,
		"rate":       rate.String(),
		"operations": len(job.Operations),
	})

	metrics.BatchStarted()
	start := time.Now()
	status := "completed"
	defer func() {
		metrics.BatchFinished(status, len(job.Operations), time.Since(start))
	}()

	results := make([]OperationResult, len(job.Operations))

	g, gctx := errgroup.WithContext(ctx)
	limit := r.Concurrency
	if limit < 1 {
		limit = 1
	}
	g.SetLimit(limit)

	for i := range job.Operations {
		if gctx.Err() != nil {
			break
		}
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = evaluate(rate, i, job.Operations[i])
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		status = "cancelled"
		log.WithError(err).Warn("Batch job cancelled")
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		status = "cancelled"
		log.WithError(err).Warn("Batch job cancelled")
		return nil, err
	}

	res := &Result{JobID: id, Rate: rate.String(), Results: results}
	if failed := res.Failed(); failed > 0 {
		log.WithField("failed", failed).Info("Batch job completed with failures")
	} else {
		log.Debug("Batch job completed")
	}
	return res, nil
}

// evaluate runs one operation. It never panics on bad input.
func evaluate(rate timecode.Rate, index int, op Operation) OperationResult {
	start := time.Now()
	res := OperationResult{Index: index, Op: op.Op}

	var err error
	switch op.Op {
	case OpParse:
		res.Frames, err = rate.Parse(op.Timecode)
		if err == nil {
			res.Timecode = op.Timecode
			res.Valid = true
		}
	case OpFormat:
		res.Frames = op.Frames
		res.Timecode = rate.Format(op.Frames)
		res.Valid = true
	case OpAdd:
		res.Frames, err = rate.Offset(op.Timecode, op.Frames)
		if err == nil {
			res.Timecode = rate.Format(res.Frames)
			res.Valid = true
		}
	case OpDifference:
		res.Frames, err = rate.Difference(op.Timecode, op.Other)
		res.Valid = err == nil
	case OpValidate:
		res.Timecode = op.Timecode
		_, err = rate.Parse(op.Timecode)
		res.Valid = err == nil
		// An invalid timecode is an answer, not a failure.
		if err != nil {
			res.ErrorCode = apperrors.Code(err)
			res.Error = err.Error()
			err = nil
		}
	default:
		err = fmt.Errorf("%w: %q", ErrUnknownOperation, op.Op)
	}

	code := res.ErrorCode
	if err != nil {
		res.Error = err.Error()
		if errors.Is(err, ErrUnknownOperation) {
			res.ErrorCode = CodeUnknownOperation
		} else {
			res.ErrorCode = apperrors.Code(err)
		}
		code = res.ErrorCode
	}
	label := string(op.Op)
	if errors.Is(err, ErrUnknownOperation) {
		label = "unknown"
	}
	metrics.ObserveOperation(label, rate.DropFrame(), code, time.Since(start))
	return res
}
