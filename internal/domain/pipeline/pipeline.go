// Package pipeline wires parsing, feature extraction and scoring into one
// pure evaluation of a submission.
package pipeline

import (
	"github.com/google/uuid"

	"github.com/okian/inkcheck/internal/domain/features"
	"github.com/okian/inkcheck/internal/domain/model"
	"github.com/okian/inkcheck/internal/domain/scoring"
	"github.com/okian/inkcheck/internal/domain/trace"
)

// Evaluate parses raw, extracts features and scores them under settings.
// Rejections are returned as *trace.Error and never carry a partial score.
// A submission without a session id is assigned a random one.
func Evaluate(raw []byte, settings *Settings) (model.Report, error) {
	if settings == nil {
		settings = DefaultSettings()
	}
	session, err := Prepare(raw, settings)
	if err != nil {
		return model.Report{}, err
	}
	return EvaluateSession(session, settings), nil
}

// Prepare is the parsing half of Evaluate, for callers that want to look at
// the session before scoring it.
func Prepare(raw []byte, settings *Settings) (*model.Session, error) {
	if settings == nil {
		settings = DefaultSettings()
	}
	session, err := trace.Parse(raw, settings.limits)
	if err != nil {
		return nil, err
	}
	if session.SessionID == "" {
		session.SessionID = uuid.NewString()
	}
	return session, nil
}

// EvaluateSession scores an already validated session.
func EvaluateSession(session *model.Session, settings *Settings) model.Report {
	if settings == nil {
		settings = DefaultSettings()
	}
	fv := features.Extract(session, settings.features)
	risk := settings.scorer.Score(fv)
	return model.Report{
		SessionID: session.SessionID,
		Risk:      risk.Value,
		Severity:  scoring.SeverityOf(risk.Value),
		Reasons:   risk.Reasons,
		Rules:     risk.Rules,
		Features:  fv.Values(),
	}
}
