package models

// TranslationStatus represents the state of the machine translated title
type TranslationStatus string

const (
	TranslationPending     TranslationStatus = "pending"
	TranslationTranslating TranslationStatus = "translating"
	TranslationCompleted   TranslationStatus = "completed"
	TranslationFailed      TranslationStatus = "failed"
	TranslationSkipped     TranslationStatus = "skipped"
)

// JobState represents the state of a queued background job as seen by API consumers
type JobState string

const (
	JobPending JobState = "pending"
	JobStarted JobState = "started"
	JobSuccess JobState = "success"
	JobFailure JobState = "failure"
)

// JobType names the kind of background job
type JobType string

const (
	JobTypeDownload  JobType = "download"
	JobTypeTranslate JobType = "translate"
)

// AnySource asks the acquisition pipeline to fall back across every enabled source
const AnySource = "any"
