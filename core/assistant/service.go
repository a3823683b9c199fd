package assistant

import (
	"bytes"
	"context"
	"encoding/csv"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/alama/core"
	"github.com/trezcool/alama/core/predict"
)

const (
	NoDataMessage = "There is no grade data to analyze."

	defaultMaxRows = 60
	promptPreamble = "You are an academic data analyst. The CSV below lists student grades " +
		"(midterm, final and composite scores on a 0-10 scale; a composite below 4 is failing) " +
		"with each row's performance tier, group and fail risk in percent."
)

var snapshotHeader = []string{
	"student_id", "student_name", "subject", "midterm", "final", "composite",
	"tier", "group_id", "fail_risk",
}

type (
	// Client sends a prompt to a chat model and returns its reply.
	Client interface {
		Complete(ctx context.Context, prompt string) (string, error)
	}

	// RowSource lists scored grade rows.
	RowSource interface {
		Analyze(ctx context.Context, filter predict.Filter) ([]predict.Row, error)
	}

	Service struct {
		conf   core.AssistantConfig
		rows   RowSource
		client Client
		logger core.Logger
	}
)

type Question struct {
	Question  string `json:"question" validate:"required,max=2000"`
	SubjectID int    `json:"subject_id" validate:"omitempty,gt=0"`
}

func (q *Question) Validate(validate *validator.Validate) error {
	q.Question = core.CleanString(q.Question)
	return validate.Struct(q)
}

type Answer struct {
	Answer   string `json:"answer"`
	Rows     int    `json:"rows"`
	Fallback bool   `json:"fallback"`
}

// NewService wires the chat client with its configuration. A nil client always answers with the fallback message.
func NewService(conf core.AssistantConfig, rows RowSource, client Client, logger core.Logger) *Service {
	if conf.MaxRows <= 0 {
		conf.MaxRows = defaultMaxRows
	}
	return &Service{conf: conf, rows: rows, client: client, logger: logger}
}

// Ask never fails: data and client errors turn into the fallback answer.
func (svc *Service) Ask(ctx context.Context, q Question) Answer {
	rows, err := svc.rows.Analyze(ctx, predict.Filter{SubjectID: q.SubjectID})
	if err != nil {
		svc.logger.Error("assistant: loading grade rows", err)
		return svc.fallback(0)
	}
	if len(rows) == 0 {
		return Answer{Answer: NoDataMessage}
	}
	if len(rows) > svc.conf.MaxRows {
		rows = rows[:svc.conf.MaxRows]
	}

	snapshot, err := Snapshot(rows)
	if err != nil {
		svc.logger.Error("assistant: building snapshot", err)
		return svc.fallback(len(rows))
	}
	if svc.client == nil {
		svc.logger.Warn("assistant: no chat client configured")
		return svc.fallback(len(rows))
	}

	reply, err := svc.client.Complete(ctx, buildPrompt(snapshot, q.Question))
	if err != nil {
		svc.logger.Error("assistant: chat completion", err)
		return svc.fallback(len(rows))
	}
	return Answer{Answer: strings.TrimSpace(reply), Rows: len(rows)}
}

func (svc *Service) fallback(rows int) Answer {
	return Answer{Answer: svc.conf.FallbackMessage, Rows: rows, Fallback: true}
}

// Snapshot renders rows as CSV text with a header line.
func Snapshot(rows []predict.Row) (string, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(snapshotHeader); err != nil {
		return "", err
	}
	for _, r := range rows {
		rec := []string{
			strconv.Itoa(r.StudentID),
			r.StudentName,
			r.SubjectName,
			formatScore(r.Midterm),
			formatScore(r.Final),
			formatScore(r.Composite),
			r.Tier,
			strconv.Itoa(r.GroupID),
			formatScore(r.FailRisk),
		}
		if err := w.Write(rec); err != nil {
			return "", err
		}
	}
	w.Flush()
	return buf.String(), w.Error()
}

func buildPrompt(snapshot, question string) string {
	var sb strings.Builder
	sb.WriteString(promptPreamble)
	sb.WriteString("\n\n")
	sb.WriteString(snapshot)
	sb.WriteString("\nQuestion: ")
	sb.WriteString(question)
	sb.WriteString("\nAnswer concisely, citing the data.")
	return sb.String()
}

func formatScore(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
