package model

// Model represents one trainable model instance as stored in the model
// table. The model table is keyed by model_id and additionally exposes a
// secondary index on (owner, active_status) so that all of a user's
// models can be listed without a full scan. Field names in the json tags
// match the attribute names used by the record store so the same struct
// can be marshalled directly into items.
//
// Fields:
//  ModelID         – primary key, always stored lowercase.
//  Owner           – user_id of the developer who submitted the model.
//  Dataset         – dataset the model trains against. Older records omit
//                    this attribute; DatasetID() falls back to the model ID.
//  ActiveStatus    – 1 while the model is still training, 0 once finalized.
//  DateSubmitted   – YYYYMMDD (ISO 8601 basic) submission date.
//  HasNode         – whether a compute node has been requested for this model.
//  NodeURL         – reachable endpoint of the node, set only after the
//                    provisioning system confirms readiness.
//  PercentComplete – training progress, 0..100.
//  Version         – model version string, e.g. "1.0".
//  DownloadLink    – location of the trained artifact, set only after a
//                    successful retrieval at 100 percent.
type Model struct {
	ModelID         string `json:"model_id"`
	Owner           string `json:"owner_name"`
	Dataset         string `json:"dataset,omitempty"`
	ActiveStatus    int    `json:"active_status"`
	DateSubmitted   string `json:"date_submitted"`
	HasNode         bool   `json:"has_node"`
	NodeURL         string `json:"node_url,omitempty"`
	PercentComplete int    `json:"percent_complete"`
	Version         string `json:"version"`
	DownloadLink    string `json:"download_link,omitempty"`
}

// DatasetID returns the dataset this model trains against. Records written
// before the dataset attribute existed used the model ID itself as the
// dataset identifier, so that remains the fallback.
func (m *Model) DatasetID() string {
	if m.Dataset != "" {
		return m.Dataset
	}
	return m.ModelID
}
