package model

// Dataset describes a purchasable dataset as stored in the dataset table,
// keyed by dataset_id. The table also exposes a secondary index on
// (category, num_devices) for the marketplace browse views; the
// orchestration service only ever fetches by primary key.
type Dataset struct {
	DatasetID    string `json:"dataset_id"`
	App          string `json:"app,omitempty"`
	Name         string `json:"name,omitempty"`
	Category     string `json:"category,omitempty"`
	NumDevices   int    `json:"num_devices"`
	LogoImageURL string `json:"logo_image_url,omitempty"`
}
