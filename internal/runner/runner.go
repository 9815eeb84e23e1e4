package runner

import (
	"context"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"plp-bookstore/internal/constants"
	"plp-bookstore/internal/models"
	"plp-bookstore/internal/queries"
	"plp-bookstore/internal/utils"
)

// OperationFailure is the error for any step that did not complete,
// whatever the cause.
type OperationFailure struct {
	Step int
	Name string
	Err  error
}

func (e *OperationFailure) Error() string {
	return fmt.Sprintf("step %d (%s) failed: %v", e.Step, e.Name, e.Err)
}

func (e *OperationFailure) Unwrap() error {
	return e.Err
}

// AuditRecorder stores a record of a mutating step.
type AuditRecorder interface {
	Log(ctx context.Context, entity, action, performedBy string, data any) error
}

type Runner struct {
	Steps  []queries.Operation
	Out    io.Writer
	Logger *zap.Logger
	Audit  AuditRecorder

	// AuditCollection names the collection Execute audits into when Audit
	// is unset. Empty disables auditing.
	AuditCollection string
}

func New(out io.Writer, logger *zap.Logger) *Runner {
	return &Runner{
		Steps:  queries.Catalog(),
		Out:    out,
		Logger: logger,
	}
}

// Run executes the steps in order against coll, printing each result. It
// stops at the first failing step and returns the results gathered so far
// together with an *OperationFailure.
func (r *Runner) Run(ctx context.Context, coll *mongo.Collection) ([]queries.Result, error) {
	runID, ok := utils.RunIDFrom(ctx)
	if !ok {
		runID = uuid.NewString()
		ctx = utils.WithRunID(ctx, runID)
	}
	logger := r.logger().With(zap.String("runID", runID), zap.String("collection", coll.Name()))
	logger.Info("start run", zap.Int("steps", len(r.Steps)))

	results := make([]queries.Result, 0, len(r.Steps))
	for i, op := range r.Steps {
		step := i + 1
		res, err := r.RunStep(ctx, coll, step, op)
		if err != nil {
			logger.Error("step failed", zap.Int("step", step), zap.String("name", op.Name), zap.Error(err))
			return results, err
		}
		results = append(results, res)
	}

	logger.Info("run finished", zap.Int("steps", len(results)))
	return results, nil
}

// RunStep executes one operation as step number step and prints it.
func (r *Runner) RunStep(ctx context.Context, coll *mongo.Collection, step int, op queries.Operation) (queries.Result, error) {
	fmt.Fprintf(r.out(), "%s:\n", op.Label)

	res, err := queries.Execute(ctx, coll, op)
	if err != nil {
		return queries.Result{}, &OperationFailure{Step: step, Name: op.Name, Err: err}
	}
	res.Step = step

	if err := r.report(op, res); err != nil {
		return queries.Result{}, &OperationFailure{Step: step, Name: op.Name, Err: err}
	}
	r.logger().Debug("step done",
		zap.Int("step", step),
		zap.String("name", op.Name),
		zap.String("kind", string(op.Kind)),
		zap.String("class", string(op.Class())))

	if op.Mutates() {
		r.audit(ctx, op, res)
	}
	return res, nil
}

func (r *Runner) report(op queries.Operation, res queries.Result) error {
	out := r.out()
	switch res.Kind {
	case queries.KindFind, queries.KindAggregate:
		body, err := utils.FormatDocuments(res.Documents)
		if err != nil {
			return err
		}
		_, err = out.Write(body)
		return err
	case queries.KindUpdateOne:
		_, err := fmt.Fprintf(out, "Modified %d document(s)\n", res.Modified)
		return err
	case queries.KindDeleteOne:
		_, err := fmt.Fprintf(out, "Deleted %d document(s)\n", res.Deleted)
		return err
	case queries.KindCreateIndex:
		msg := op.Confirmation
		if msg == "" {
			msg = fmt.Sprintf("Index %s created", res.IndexName)
		}
		_, err := fmt.Fprintln(out, msg)
		return err
	case queries.KindExplain:
		body, err := utils.FormatDocument(res.Plan)
		if err != nil {
			return err
		}
		_, err = out.Write(body)
		return err
	}
	return errors.Errorf("no report for kind %q", res.Kind)
}

// audit credits the authenticated user when there is one, the run otherwise.
// Failures are logged and never fail the step.
func (r *Runner) audit(ctx context.Context, op queries.Operation, res queries.Result) {
	if r.Audit == nil {
		return
	}

	performedBy, ok := utils.UserIDFrom(ctx)
	if !ok {
		performedBy, _ = utils.RunIDFrom(ctx)
	}
	entity, action := models.BookEntity, ""
	var data any
	switch op.Kind {
	case queries.KindUpdateOne:
		action = constants.Update
		data = map[string]any{"filter": op.Filter, "update": op.Update, "modified": res.Modified}
	case queries.KindDeleteOne:
		action = constants.Delete
		data = map[string]any{"filter": op.Filter, "deleted": res.Deleted}
	case queries.KindCreateIndex:
		entity, action = models.IndexEntity, constants.CreateIndex
		data = map[string]any{"keys": op.Keys, "name": res.IndexName}
	}

	if err := r.Audit.Log(ctx, entity, action, performedBy, data); err != nil {
		r.logger().Warn("audit log failed", zap.String("name", op.Name), zap.Error(err))
	}
}

func (r *Runner) out() io.Writer {
	if r.Out == nil {
		return io.Discard
	}
	return r.Out
}

func (r *Runner) logger() *zap.Logger {
	if r.Logger == nil {
		return zap.NewNop()
	}
	return r.Logger
}
