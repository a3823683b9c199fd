package assistant

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/alama/core"
	"github.com/trezcool/alama/core/predict"
	"github.com/trezcool/alama/tests"
)

type rowSourceFunc func(ctx context.Context, filter predict.Filter) ([]predict.Row, error)

func (f rowSourceFunc) Analyze(ctx context.Context, filter predict.Filter) ([]predict.Row, error) {
	return f(ctx, filter)
}

type fakeClient struct {
	reply   string
	err     error
	prompts []string
}

func (c *fakeClient) Complete(_ context.Context, prompt string) (string, error) {
	c.prompts = append(c.prompts, prompt)
	return c.reply, c.err
}

func rowsOf(n int) rowSourceFunc {
	return func(context.Context, predict.Filter) ([]predict.Row, error) {
		rows := make([]predict.Row, n)
		for i := range rows {
			rows[i] = predict.Row{StudentID: i + 1, StudentName: "S", SubjectName: "Math", Midterm: 5, Final: 6, Composite: 5.6,
				Tier: predict.TierGood, GroupID: 1, FailRisk: 12.5}
		}
		return rows, nil
	}
}

var conf = core.AssistantConfig{MaxRows: 3, FallbackMessage: "assistant unavailable"}

func TestService_Ask(t *testing.T) {
	logger := testutil.NewLogger()
	q := Question{Question: "Who is failing?"}

	t.Run("no data", func(t *testing.T) {
		client := &fakeClient{reply: "x"}
		got := NewService(conf, rowsOf(0), client, logger).Ask(context.Background(), q)
		assert.Equal(t, Answer{Answer: NoDataMessage}, got)
		assert.Empty(t, client.prompts)
	})

	t.Run("row source error", func(t *testing.T) {
		failing := rowSourceFunc(func(context.Context, predict.Filter) ([]predict.Row, error) {
			return nil, errors.New("db down")
		})
		got := NewService(conf, failing, &fakeClient{}, logger).Ask(context.Background(), q)
		assert.Equal(t, Answer{Answer: "assistant unavailable", Fallback: true}, got)
	})

	t.Run("no client", func(t *testing.T) {
		got := NewService(conf, rowsOf(2), nil, logger).Ask(context.Background(), q)
		assert.Equal(t, Answer{Answer: "assistant unavailable", Rows: 2, Fallback: true}, got)
	})

	t.Run("client error", func(t *testing.T) {
		client := &fakeClient{err: errors.New("quota")}
		got := NewService(conf, rowsOf(2), client, logger).Ask(context.Background(), q)
		assert.Equal(t, Answer{Answer: "assistant unavailable", Rows: 2, Fallback: true}, got)
		assert.Len(t, client.prompts, 1)
	})

	t.Run("rows are capped", func(t *testing.T) {
		client := &fakeClient{reply: "  Nobody.\n"}
		got := NewService(conf, rowsOf(5), client, logger).Ask(context.Background(), q)
		assert.Equal(t, Answer{Answer: "Nobody.", Rows: 3}, got)

		require.Len(t, client.prompts, 1)
		prompt := client.prompts[0]
		assert.True(t, strings.HasPrefix(prompt, promptPreamble))
		assert.Contains(t, prompt, "3,S,Math,5,6,5.6,Good,1,12.5\n")
		assert.NotContains(t, prompt, "4,S,Math")
		assert.Contains(t, prompt, "\nQuestion: Who is failing?\n")
	})

	t.Run("subject filter is forwarded", func(t *testing.T) {
		var got predict.Filter
		src := rowSourceFunc(func(_ context.Context, filter predict.Filter) ([]predict.Row, error) {
			got = filter
			return nil, nil
		})
		NewService(conf, src, nil, logger).Ask(context.Background(), Question{Question: "?", SubjectID: 4})
		assert.Equal(t, predict.Filter{SubjectID: 4}, got)
	})
}

func TestNewService_defaultMaxRows(t *testing.T) {
	svc := NewService(core.AssistantConfig{}, rowsOf(0), nil, testutil.NewLogger())
	assert.Equal(t, defaultMaxRows, svc.conf.MaxRows)
}

func TestSnapshot(t *testing.T) {
	got, err := Snapshot([]predict.Row{
		{StudentID: 1, StudentName: "Alice", SubjectName: "Mathematics", Midterm: 8, Final: 9, Composite: 8.6,
			Tier: predict.TierExcellent, GroupID: 2, FailRisk: 0.4},
		{StudentID: 2, StudentName: "Doe, John", SubjectName: "Physics", Final: 7.5, Composite: 4.5,
			Tier: predict.TierNeedsImprovement, FailRisk: 63},
		{StudentID: 3, StudentName: "Eve", SubjectName: "Physics", Midterm: 6, Final: 6, Composite: 6,
			Tier: predict.TierInsufficient},
	})
	require.NoError(t, err)
	assert.Equal(t, "student_id,student_name,subject,midterm,final,composite,tier,group_id,fail_risk\n"+
		"1,Alice,Mathematics,8,9,8.6,Excellent,2,0.4\n"+
		"2,\"Doe, John\",Physics,0,7.5,4.5,Needs Improvement,0,63\n"+
		"3,Eve,Physics,6,6,6,insufficient data,0,0\n", got)
}
