package viewmodel

import "context"

// mutation is one server-side change followed by a re-fetch of whatever it
// invalidated. Local state is never patched from the mutation response.
type mutation struct {
	run       func(ctx context.Context) error
	onSuccess func()
	onFailure func(err error)
	reconcile func(ctx context.Context) error
}

// mutateThenReconcile runs m. The returned error is the mutation's own; a
// failed or superseded reconcile is already reflected in the view state by
// the reconcile function.
func mutateThenReconcile(ctx context.Context, m mutation) error {
	if err := m.run(ctx); err != nil {
		if m.onFailure != nil {
			m.onFailure(err)
		}
		return err
	}
	if m.onSuccess != nil {
		m.onSuccess()
	}
	if m.reconcile != nil {
		_ = m.reconcile(ctx)
	}
	return nil
}
