package intake

// TopicAlerts carries every new report and status change. Any other topic
// is a report id and carries that report's track points.
const TopicAlerts int64 = 0

const (
	EventReportCreated = "report.created"
	EventPanicCreated  = "panic.created"
	EventReportStatus  = "report.status"
	EventTrackPoint    = "track.point"
)

type Event struct {
	Type     string `json:"type"`
	ReportID int64  `json:"report_id"`
	Data     any    `json:"data"`
}

// Broadcaster delivers events to websocket subscribers of a topic.
type Broadcaster interface {
	Broadcast(topic int64, ev Event)
}

type discard struct{}

func (discard) Broadcast(int64, Event) {}
