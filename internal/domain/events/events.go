package events

import (
	"sync"
	"time"

	"github.com/asaskevich/EventBus"
)

// Topics published by the analysis pipeline.
const (
	TopicAnalysisCompleted = "analysis.completed"
	TopicAnalysisFailed    = "analysis.failed"
)

// AnalysisCompleted describes one finished analysis.
type AnalysisCompleted struct {
	Filename   string
	MIME       string
	Model      string
	PromptLen  int
	ImageBytes int64
	Duration   time.Duration
	Cached     bool
}

// AnalysisFailed describes one rejected or errored analysis.
type AnalysisFailed struct {
	Filename string
	Reason   string
	Status   int
}

var (
	bus  EventBus.Bus
	once sync.Once
)

// Bus returns the process-wide event bus.
func Bus() EventBus.Bus {
	once.Do(func() {
		bus = EventBus.New()
	})
	return bus
}

// PublishCompleted emits a completion event asynchronously so slow
// subscribers never delay the response path.
func PublishCompleted(event AnalysisCompleted) {
	b := Bus()
	if b.HasCallback(TopicAnalysisCompleted) {
		b.Publish(TopicAnalysisCompleted, event)
	}
}

func PublishFailed(event AnalysisFailed) {
	b := Bus()
	if b.HasCallback(TopicAnalysisFailed) {
		b.Publish(TopicAnalysisFailed, event)
	}
}

// SubscribeCompleted registers a completion listener.
func SubscribeCompleted(fn func(AnalysisCompleted)) error {
	return Bus().SubscribeAsync(TopicAnalysisCompleted, fn, false)
}

// SubscribeFailed registers a failure listener.
func SubscribeFailed(fn func(AnalysisFailed)) error {
	return Bus().SubscribeAsync(TopicAnalysisFailed, fn, false)
}
