package report

import (
	"time"

	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
)

// Record is the summary of a run that is stored by archives.
type Record struct {
	RunID    string
	Finished time.Time
	Adapter  string
	Result   RunResult
}

// JSON returns the record as a compact JSON object. Case messages are omitted when unset.
func (r Record) JSON() []byte {
	total, failed := r.Result.CaseCounts()

	w := jwriter.NewWriter()
	obj := w.Object()
	obj.Name("runId").String(r.RunID)
	obj.Name("finished").String(r.Finished.UTC().Format(time.RFC3339))
	obj.Name("adapter").String(r.Adapter)
	obj.Name("success").Bool(r.Result.Success)
	obj.Name("statusCode").Int(r.Result.StatusCode)
	obj.Name("total").Int(total)
	obj.Name("failed").Int(failed)
	suitesArr := obj.Name("suites").Array()
	for _, suite := range r.Result.Details {
		suiteObj := suitesArr.Object()
		suiteObj.Name("name").String(suite.Name)
		testsArr := suiteObj.Name("tests").Array()
		for _, c := range suite.Tests {
			caseObj := testsArr.Object()
			caseObj.Name("name").String(c.Name)
			caseObj.Name("passed").Bool(c.Passed)
			if c.Message.IsDefined() {
				caseObj.Name("message").String(c.Message.StringValue())
			}
			caseObj.End()
		}
		testsArr.End()
		suiteObj.End()
	}
	suitesArr.End()
	obj.End()
	return w.Bytes()
}
