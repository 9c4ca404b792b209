package gfn

import (
	"context"
	"os"

	"github.com/kbukum/gfnkit/errors"
	"github.com/kbukum/gfnkit/logger"
	"github.com/kbukum/gfnkit/model"
	"github.com/kbukum/gfnkit/observability"
	"github.com/kbukum/gfnkit/session"
)

// FromModel builds a GraphFunction from a trained model. The adapter loads
// the model into a fresh session, linked to the adapter's registry when it
// has one, and its endpoints are captured. An in-memory source is first
// saved to a temporary directory, which is removed afterwards whether or not
// loading succeeded.
func FromModel(ctx context.Context, adapter model.Adapter, src model.Source, opts ...CaptureOption) (fn *GraphFunction, err error) {
	if adapter == nil {
		return nil, errors.InvalidInput("adapter", "nil model adapter")
	}
	if err := src.Validate(); err != nil {
		return nil, err
	}

	log := logger.Get("gfn")
	oc := observability.NewOperationContext("gfnkit", "from_model", nil)
	ctx, span := oc.StartSpanForOperation(ctx, observability.SpanFromModel)
	defer func() { oc.EndOperation(ctx, span, err) }()

	path := src.Location()
	if src.Kind() == model.KindInMemory {
		dir, err := os.MkdirTemp("", "gfn-model-*")
		if err != nil {
			return nil, errors.IO("create temp dir in", os.TempDir(), err)
		}
		defer func() {
			if rmErr := os.RemoveAll(dir); rmErr != nil {
				log.Warn("failed to remove model temp dir", logger.Fields("dir", dir, logger.FieldError, rmErr.Error()))
			}
		}()
		if err := src.Model().Save(dir); err != nil {
			return nil, errors.IO("save model to", dir, err)
		}
		path = dir
	}

	var reg *session.Registry
	if l, ok := adapter.(model.Linked); ok {
		reg = l.Registry()
	}
	s := session.New(session.WithLink(reg), session.WithLogger(log))
	err = s.Scope(func(s *session.Session) error {
		inputs, outputs, err := adapter.Load(ctx, s, path)
		if err != nil {
			return err
		}
		fn, err = Capture(s, inputs, outputs, opts...)
		return err
	})
	if err != nil {
		return nil, err
	}

	log.Info("graph function built from model", logger.Fields(
		"source", src.Kind().String(),
		"inputs", fn.NumInputs(),
		"outputs", fn.NumOutputs(),
	))
	return fn, nil
}
