package parser

import (
	"strconv"
	"strings"
	"time"

	"github.com/imishinist/lbeval/internal/models"
	timeutils "github.com/imishinist/lbeval/internal/time"
)

type extractor func(tokens []string) (models.Event, error)

type rule struct {
	keyword string
	extract extractor
}

// Evaluated in order; the first keyword found in the line wins.
var freeTextRules = []rule{
	{keyword: "Response Status: 200", extract: extractResponse},
	{keyword: "Selected worker", extract: extractWorkerSelection},
	{keyword: "Creating new sandbox", extract: kindOnly(models.KindSandboxCreated)},
	{keyword: "LambdaFunc.Invoke", extract: kindOnly(models.KindFunctionInvoked)},
}

// ParseFreeText decodes a balancer or worker log line.
//
// Balancer lines look like:
//
//	2024/05/01 12:00:03 Response Status: 200 [/run/pyaes-0]
//	2024/05/01 12:00:03 Selected worker: http://10.0.0.7:8081 in 41250 ns [/run/pyaes-0]
func ParseFreeText(line string) (models.Event, bool, error) {
	for _, r := range freeTextRules {
		if !strings.Contains(line, r.keyword) {
			continue
		}
		event, err := r.extract(strings.Fields(line))
		if err != nil {
			return models.Event{}, false, err
		}
		return event, true, nil
	}
	return models.Event{}, false, nil
}

func extractResponse(tokens []string) (models.Event, error) {
	ts, err := leadingTimestamp(tokens)
	if err != nil {
		return models.Event{}, err
	}
	return models.Event{
		Timestamp: ts,
		Kind:      models.KindHTTPRequestCompleted,
		Status:    200,
	}, nil
}

func extractWorkerSelection(tokens []string) (models.Event, error) {
	if len(tokens) < 5 {
		return models.Event{}, malformed("worker selection has %d tokens", len(tokens))
	}
	ts, err := leadingTimestamp(tokens)
	if err != nil {
		return models.Event{}, err
	}

	worker := tokens[4]
	if idx := strings.LastIndex(worker, ":"); idx != -1 {
		worker = worker[idx+1:]
	}

	overhead, err := strconv.ParseInt(tokens[len(tokens)-3], 10, 64)
	if err != nil {
		return models.Event{}, malformed("invalid scheduling overhead %q", tokens[len(tokens)-3])
	}

	return models.Event{
		Timestamp:  ts,
		Kind:       models.KindWorkerSelected,
		WorkerID:   worker,
		OverheadNs: overhead,
	}, nil
}

// kindOnly builds an extractor for worker lines; the timestamp is kept when present.
func kindOnly(kind models.EventKind) extractor {
	return func(tokens []string) (models.Event, error) {
		event := models.Event{Kind: kind}
		if ts, err := leadingTimestamp(tokens); err == nil {
			event.Timestamp = ts
		}
		return event, nil
	}
}

func leadingTimestamp(tokens []string) (time.Time, error) {
	if len(tokens) < 2 {
		return time.Time{}, malformed("missing timestamp")
	}
	ts, err := timeutils.ParseLogTime(tokens[0] + " " + tokens[1])
	if err != nil {
		return time.Time{}, malformed("%v", err)
	}
	return ts, nil
}
