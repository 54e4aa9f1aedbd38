package taskq_test

import (
	"context"
	"testing"

	"github.com/materials-commons/depot/pkg/errs"
	"github.com/materials-commons/depot/pkg/taskq"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

func TestAddOutsideScope(t *testing.T) {
	err := taskq.Add(context.Background(), taskq.TaskFunc(func(context.Context, map[string]interface{}) error {
		return nil
	}))

	var outOfQueueErr *errs.OutOfQueueError
	require.ErrorAs(t, err, &outOfQueueErr)
	require.ErrorIs(t, err, errs.ErrFiles)
}

func TestRunDrainsInFIFOOrder(t *testing.T) {
	var ran []string

	record := func(name string) taskq.Task {
		return taskq.TaskFunc(func(_ context.Context, result map[string]interface{}) error {
			require.Equal(t, "u1", result["id"])
			ran = append(ran, name)
			return nil
		})
	}

	result, err := taskq.Run(context.Background(), func(ctx context.Context) (map[string]interface{}, error) {
		require.NoError(t, taskq.Add(ctx, record("first")))
		require.NoError(t, taskq.Add(ctx, record("second")))
		require.NoError(t, taskq.Add(ctx, record("third")))

		// Nothing runs until the action returns.
		require.Empty(t, ran)

		return map[string]interface{}{"id": "u1"}, nil
	})
	require.NoErrorf(t, err, "Run failed: %s", err)
	require.Equal(t, "u1", result["id"])
	require.Equal(t, []string{"first", "second", "third"}, ran)
}

func TestActionFailureSkipsQueue(t *testing.T) {
	ran := false

	_, err := taskq.Run(context.Background(), func(ctx context.Context) (map[string]interface{}, error) {
		require.NoError(t, taskq.Add(ctx, taskq.TaskFunc(func(context.Context, map[string]interface{}) error {
			ran = true
			return nil
		})))

		return nil, errors.New("action failed")
	})
	require.Error(t, err)
	require.False(t, ran)
}

func TestFirstTaskFailureAbortsRemainder(t *testing.T) {
	var ran []string

	_, err := taskq.Run(context.Background(), func(ctx context.Context) (map[string]interface{}, error) {
		_ = taskq.Add(ctx, taskq.TaskFunc(func(context.Context, map[string]interface{}) error {
			ran = append(ran, "first")
			return nil
		}))
		_ = taskq.Add(ctx, taskq.TaskFunc(func(context.Context, map[string]interface{}) error {
			ran = append(ran, "second")
			return errors.New("boom")
		}))
		_ = taskq.Add(ctx, taskq.TaskFunc(func(context.Context, map[string]interface{}) error {
			ran = append(ran, "third")
			return nil
		}))

		return map[string]interface{}{}, nil
	})
	require.EqualError(t, err, "boom")
	require.Equal(t, []string{"first", "second"}, ran)
}

func TestNestedScopesShadowOuterQueue(t *testing.T) {
	var ran []string

	record := func(name string) taskq.Task {
		return taskq.TaskFunc(func(context.Context, map[string]interface{}) error {
			ran = append(ran, name)
			return nil
		})
	}

	_, err := taskq.Run(context.Background(), func(outer context.Context) (map[string]interface{}, error) {
		_ = taskq.Add(outer, record("outer-before"))

		_, err := taskq.Run(outer, func(inner context.Context) (map[string]interface{}, error) {
			_ = taskq.Add(inner, record("inner"))
			return map[string]interface{}{}, nil
		})
		require.NoError(t, err)

		// The inner scope drained on its own; the outer queue is intact.
		require.Equal(t, []string{"inner"}, ran)

		_ = taskq.Add(outer, record("outer-after"))

		return map[string]interface{}{}, nil
	})
	require.NoErrorf(t, err, "Run failed: %s", err)
	require.Equal(t, []string{"inner", "outer-before", "outer-after"}, ran)
}

func TestQueueLen(t *testing.T) {
	ctx, q := taskq.WithQueue(context.Background())
	require.Equal(t, 0, q.Len())

	_ = taskq.Add(ctx, taskq.TaskFunc(func(context.Context, map[string]interface{}) error { return nil }))
	_ = taskq.Add(ctx, taskq.TaskFunc(func(context.Context, map[string]interface{}) error { return nil }))
	require.Equal(t, 2, q.Len())

	require.NoError(t, q.Drain(ctx, nil))
	require.Equal(t, 0, q.Len())
}
