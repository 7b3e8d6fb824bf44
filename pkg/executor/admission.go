package executor

import (
	"context"
	"fmt"

	"github.com/arihonda/adaptexec/pkg/pipeline"
)

// AdmissionHook runs once per Schedule call, before the task reaches the
// reactor. It may transform or reject the admitting context — e.g. to
// tag it with a request ID or enforce a payload-size limit — but it must
// never reorder admission: Schedule still hands tasks to the reactor in
// the order AdmissionHook approved them, so the FIFO-within-the-reactor
// guarantee spec §1 names as a Non-goal boundary (no priority scheduling)
// is unaffected.
type AdmissionHook = pipeline.ProcessFunc[context.Context, context.Context]

// admissionChain composes a sequence of AdmissionHooks with
// pipeline.ChainBuilder, the same generic chain-composition helper the
// teacher uses for its data pipelines, repurposed here as admission
// middleware in front of schedule.
type admissionChain struct {
	run pipeline.ProcessFunc[context.Context, context.Context]
}

// newAdmissionChain builds a chain out of hooks, run in order. An empty
// chain is a no-op pass-through.
func newAdmissionChain(hooks ...AdmissionHook) *admissionChain {
	if len(hooks) == 0 {
		return &admissionChain{run: func(ctx context.Context, in context.Context) (context.Context, error) {
			return in, nil
		}}
	}

	builder := pipeline.NewChainBuilder[context.Context]()
	for i, hook := range hooks {
		builder.Add(pipeline.NewFuncStep(fmt.Sprintf("admission-%d", i), hook))
	}
	return &admissionChain{run: builder.Build()}
}

// apply runs ctx through the chain, returning the (possibly transformed)
// context to admit, or an error if some hook rejected it.
func (c *admissionChain) apply(ctx context.Context) (context.Context, error) {
	return c.run(ctx, ctx)
}
