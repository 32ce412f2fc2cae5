package messages

import "time"

// Timestamp is a point in time as seconds and nanoseconds since the Unix epoch.
type Timestamp struct {
	Seconds int64 `json:"seconds"`
	Nanos   int64 `json:"nanos"`
}

// TimestampOf converts a time.Time.
func TimestampOf(t time.Time) Timestamp {
	return Timestamp{Seconds: t.Unix(), Nanos: int64(t.Nanosecond())}
}

// Time converts back to a time.Time in UTC.
func (t Timestamp) Time() time.Time {
	return time.Unix(t.Seconds, t.Nanos).UTC()
}

// Duration is an elapsed time as seconds and nanoseconds.
type Duration struct {
	Seconds int64 `json:"seconds"`
	Nanos   int64 `json:"nanos"`
}

// DurationOf converts a time.Duration.
func DurationOf(d time.Duration) Duration {
	return Duration{
		Seconds: int64(d / time.Second),
		Nanos:   int64(d % time.Second),
	}
}

// Product names a piece of software in Meta.
type Product struct {
	Name    string `json:"name"`
	Version string `json:"version,omitempty"`
}

// Meta describes the environment that produced the message stream.
// It is the first envelope of a run.
type Meta struct {
	ProtocolVersion string  `json:"protocolVersion"`
	Implementation  Product `json:"implementation"`
	Runtime         Product `json:"runtime"`
	OS              Product `json:"os"`
	CPU             Product `json:"cpu"`
}

// TestRunStarted opens a test run.
type TestRunStarted struct {
	Timestamp Timestamp `json:"timestamp"`
	ID        string    `json:"id,omitempty"`
}

// TestCase binds a pickle to the steps that will execute it.
type TestCase struct {
	ID               string     `json:"id"`
	PickleID         string     `json:"pickleId"`
	TestSteps        []TestStep `json:"testSteps"`
	TestRunStartedID string     `json:"testRunStartedId,omitempty"`
}

// TestStep is a pickle step or hook within a TestCase.
type TestStep struct {
	HookID            string   `json:"hookId,omitempty"`
	ID                string   `json:"id"`
	PickleStepID      string   `json:"pickleStepId,omitempty"`
	StepDefinitionIDs []string `json:"stepDefinitionIds,omitempty"`
}

// TestCaseStarted marks one attempt at executing a TestCase.
type TestCaseStarted struct {
	Attempt    int64     `json:"attempt"`
	ID         string    `json:"id"`
	TestCaseID string    `json:"testCaseId"`
	WorkerID   string    `json:"workerId,omitempty"`
	Timestamp  Timestamp `json:"timestamp"`
}

// TestStepStarted marks the start of a step within a TestCaseStarted.
type TestStepStarted struct {
	TestCaseStartedID string    `json:"testCaseStartedId"`
	TestStepID        string    `json:"testStepId"`
	Timestamp         Timestamp `json:"timestamp"`
}

// Exception describes an error raised by a step or the run.
type Exception struct {
	Type       string `json:"type"`
	Message    string `json:"message,omitempty"`
	StackTrace string `json:"stackTrace,omitempty"`
}

// TestStepResult is the outcome of one step.
type TestStepResult struct {
	Duration  Duration             `json:"duration"`
	Message   string               `json:"message,omitempty"`
	Status    TestStepResultStatus `json:"status"`
	Exception *Exception           `json:"exception,omitempty"`
}

// TestStepFinished marks the end of a step.
type TestStepFinished struct {
	TestCaseStartedID string         `json:"testCaseStartedId"`
	TestStepID        string         `json:"testStepId"`
	TestStepResult    TestStepResult `json:"testStepResult"`
	Timestamp         Timestamp      `json:"timestamp"`
}

// TestCaseFinished marks the end of one TestCaseStarted attempt.
type TestCaseFinished struct {
	TestCaseStartedID string    `json:"testCaseStartedId"`
	Timestamp         Timestamp `json:"timestamp"`
	WillBeRetried     bool      `json:"willBeRetried"`
}

// Attachment is content embedded into the message stream.
type Attachment struct {
	Body              string                    `json:"body"`
	ContentEncoding   AttachmentContentEncoding `json:"contentEncoding"`
	FileName          string                    `json:"fileName,omitempty"`
	MediaType         string                    `json:"mediaType"`
	TestCaseStartedID string                    `json:"testCaseStartedId,omitempty"`
	TestStepID        string                    `json:"testStepId,omitempty"`
	URL               string                    `json:"url,omitempty"`
	TestRunStartedID  string                    `json:"testRunStartedId,omitempty"`
	Timestamp         *Timestamp                `json:"timestamp,omitempty"`
}

// ExternalAttachment references content stored outside the message stream.
type ExternalAttachment struct {
	URL               string     `json:"url"`
	MediaType         string     `json:"mediaType"`
	TestCaseStartedID string     `json:"testCaseStartedId,omitempty"`
	TestStepID        string     `json:"testStepId,omitempty"`
	TestRunStartedID  string     `json:"testRunStartedId,omitempty"`
	Timestamp         *Timestamp `json:"timestamp,omitempty"`
}

// TestRunFinished closes a test run.
type TestRunFinished struct {
	Message          string     `json:"message,omitempty"`
	Success          bool       `json:"success"`
	Timestamp        Timestamp  `json:"timestamp"`
	Exception        *Exception `json:"exception,omitempty"`
	TestRunStartedID string     `json:"testRunStartedId,omitempty"`
}
