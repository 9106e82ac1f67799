package domain

// Client is the owner of an appliance under repair. Clients are deduplicated
// by phone number.
type Client struct {
	ID       int64
	FullName string
	Phone    string
}

// Appliance identifies a device by its (type, model) pair.
type Appliance struct {
	ID             int64
	ApplianceType  string
	ApplianceModel string
}

// IssueType is an optional classification of the reported problem.
type IssueType struct {
	ID   int64
	Name string
}
