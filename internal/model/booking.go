package model

// BookingRequest is the body of an upstream booking submission.  The two
// JSON-in-a-string fields are serialized by the caller.
type BookingRequest struct {
	ClientID         int    `json:"client_id"`
	LocationID       int    `json:"location_id"`
	CategoryID       int    `json:"category_id"`
	GroupID          string `json:"group_id"`
	AssetID          string `json:"asset_id"`
	StartTime        string `json:"start_time"`
	Slot             int    `json:"slot"`
	BookingLength    int    `json:"booking_length"`
	FirstName        string `json:"first_name"`
	LastName         string `json:"last_name"`
	Email            string `json:"email"`
	Cell             string `json:"cell"`
	CustomQuestions  string `json:"custom_questions"`
	PatronData       string `json:"patron_data"`
	BookingSource    string `json:"booking_source"`
	AvailabilityType string `json:"availability_type"`
}

// BookingResponse is the upstream answer to a booking submission.
type BookingResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// BookingGroup is one asset group the patron wants to book at the selected
// hour, with the concrete unit ids still free at that hour.
type BookingGroup struct {
	GroupID   string   `json:"groupId"`
	GroupName string   `json:"groupName"`
	AssetIDs  []string `json:"assetIds"`
}

// BookingResult is the outcome of one group's submission.
type BookingResult struct {
	Name    string `json:"name"`
	GroupID string `json:"groupId"`
	AssetID string `json:"assetId,omitempty"`
	Success bool   `json:"success"`
	Message string `json:"msg,omitempty"`
}
