package dictionary

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Fetcher retrieves the current field list for a CRM object.
type Fetcher interface {
	Fields(ctx context.Context, object string) ([]FieldDescriptor, error)
}

// Store reads and writes the worksheet for a CRM object. ReadRows returns
// exists=false if the object does not have a worksheet yet. WriteRows writes
// the managed columns of the changed rows and applies the formatting; anything
// else on the worksheet is left as is.
type Store interface {
	ReadRows(ctx context.Context, object string) ([]Row, bool, error)
	CreateTab(ctx context.Context, object string) error
	WriteRows(ctx context.Context, object string, result Result) error
}

type Outcome struct {
	Object  string
	Fields  int
	Created bool
	Updated int
	Added   int
	Removed int
	Skipped int
	Err     error
}

type Report struct {
	Started  time.Time
	Finished time.Time
	Outcomes []Outcome
}

type Updater struct {
	Fetcher Fetcher
	Store   Store
	DryRun  bool
	Log     *zap.Logger
}

// Update runs the fetch-reconcile-write cycle for each object in turn. A failure
// for one object is recorded in the report and processing continues with the
// next object.
func (u *Updater) Update(ctx context.Context, objects []string) Report {
	report := Report{
		Started:  time.Now(),
		Outcomes: []Outcome{},
	}

	for _, object := range objects {
		if err := ctx.Err(); err != nil {
			report.Outcomes = append(report.Outcomes, Outcome{Object: object, Err: err})
			continue
		}

		outcome, err := u.update(ctx, object)
		if err != nil {
			u.logger().Error("failed to process object", zap.String("object", object), zap.Error(err))
			outcome.Err = err
		} else {
			u.logger().Info("processed object",
				zap.String("object", object),
				zap.Int("fields", outcome.Fields),
				zap.Int("updated", outcome.Updated),
				zap.Int("added", outcome.Added),
				zap.Int("removed", outcome.Removed),
				zap.Int("skipped", outcome.Skipped))
		}

		report.Outcomes = append(report.Outcomes, outcome)
	}

	report.Finished = time.Now()

	return report
}

// Compare fetches the field list and reconciles it with the worksheet without
// creating or writing the worksheet.
func (u *Updater) Compare(ctx context.Context, object string) (Outcome, Result, error) {
	return u.plan(ctx, object)
}

func (u *Updater) update(ctx context.Context, object string) (Outcome, error) {
	log := u.logger().With(zap.String("object", object))

	outcome, result, err := u.plan(ctx, object)
	if err != nil || u.DryRun {
		return outcome, err
	}

	if outcome.Created {
		log.Info("creating worksheet")
		if err := u.Store.CreateTab(ctx, object); err != nil {
			return outcome, &FetchError{Object: object, Op: "create", Err: err}
		}
	}

	if err := u.Store.WriteRows(ctx, object, result); err != nil {
		return outcome, &FetchError{Object: object, Op: "write", Err: err}
	}

	return outcome, nil
}

func (u *Updater) plan(ctx context.Context, object string) (Outcome, Result, error) {
	log := u.logger().With(zap.String("object", object))
	outcome := Outcome{
		Object: object,
	}

	log.Debug("fetching field metadata")

	fields, err := u.Fetcher.Fields(ctx, object)
	if err != nil {
		return outcome, Result{}, &FetchError{Object: object, Op: "fetch", Err: err}
	}

	outcome.Fields = len(fields)

	log.Debug("reading worksheet", zap.Int("fields", len(fields)))

	rows, exists, err := u.Store.ReadRows(ctx, object)
	if err != nil {
		return outcome, Result{}, &FetchError{Object: object, Op: "read", Err: err}
	}

	if !exists {
		outcome.Created = true
		rows = nil
	}

	if len(rows) > 0 {
		if err := CheckHeader(rows[0]); err != nil {
			log.Warn("unexpected worksheet header", zap.Error(err))
		}
	}

	result := Reconcile(object, fields, rows)

	outcome.Updated = result.Updated
	outcome.Added = result.Added
	outcome.Removed = result.Removed
	outcome.Skipped = result.Skipped

	if result.Skipped > 0 {
		log.Debug("carried forward rows without an API name", zap.Int("rows", result.Skipped))
	}

	return outcome, result, nil
}

func (u *Updater) logger() *zap.Logger {
	if u.Log == nil {
		return zap.NewNop()
	}

	return u.Log
}

// Failed returns the outcomes that did not complete.
func (r Report) Failed() []Outcome {
	list := []Outcome{}
	for _, o := range r.Outcomes {
		if o.Err != nil {
			list = append(list, o)
		}
	}

	return list
}

func (r Report) String() string {
	s := ""
	for _, o := range r.Outcomes {
		if o.Err != nil {
			s += fmt.Sprintf("%-24v  ERROR  %v\n", o.Object, o.Err)
		} else {
			s += fmt.Sprintf("%-24v  fields:%-4v  updated:%-4v  added:%-4v  removed:%-4v  skipped:%v\n",
				o.Object, o.Fields, o.Updated, o.Added, o.Removed, o.Skipped)
		}
	}

	return s
}
