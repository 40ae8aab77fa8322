package model

// User represents an application user record as stored in the user table,
// keyed by user_id. Only the fields the orchestration service reads are
// modelled here; the table carries more attributes (bank details, linked
// enterprise) that belong to the account-management surface.
//
// Fields:
//  UserID            – primary key.
//  Name              – display name.
//  Email             – account email address.
//  IsDeveloper       – whether the user may submit models.
//  Enterprise        – enterprise the user belongs to, if any.
//  DatasetsPurchased – dataset IDs the user is entitled to train against.
type User struct {
	UserID            string   `json:"user_id"`
	Name              string   `json:"name,omitempty"`
	Email             string   `json:"user_account_email,omitempty"`
	IsDeveloper       bool     `json:"is_developer"`
	Enterprise        string   `json:"enterprise,omitempty"`
	DatasetsPurchased []string `json:"datasets_purchased"`
}

// Entitled reports whether the user has purchased the given dataset.
func (u *User) Entitled(datasetID string) bool {
	for _, d := range u.DatasetsPurchased {
		if d == datasetID {
			return true
		}
	}
	return false
}
