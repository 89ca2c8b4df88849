package amqp

import (
	"encoding/json"
	"time"
)

// ExportRequestMessage asks the worker to render one export job. Only
// the job id travels on the wire; the worker fetches the full job from
// the database so a stale message can never render stale parameters.
type ExportRequestMessage struct {
	JobID     string    `json:"jobId"`
	Timestamp time.Time `json:"timestamp"`
}

func NewExportRequestMessage(jobID string) *ExportRequestMessage {
	return &ExportRequestMessage{
		JobID:     jobID,
		Timestamp: time.Now(),
	}
}

func (m *ExportRequestMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func ExportRequestMessageFromJSON(data []byte) (*ExportRequestMessage, error) {
	var msg ExportRequestMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
