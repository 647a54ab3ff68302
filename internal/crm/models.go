package crm

// LeadRecord is the authoritative lead state re-fetched from the CRM after
// a webhook notification. MovedTimeRaw is kept exactly as the CRM sent it;
// interpretation happens in the validation pipeline.
type LeadRecord struct {
	ID           string
	StatusID     string
	MovedTimeRaw interface{}
}
